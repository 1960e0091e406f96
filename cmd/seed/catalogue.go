package main

import (
	"storefront/internal/domain"
	"storefront/internal/service"

	"github.com/shopspring/decimal"
)

type seedProduct struct {
	name          string
	description   string
	price         string
	originalPrice string
	category      domain.Category
	brand         string
	stock         int
	image         string
	featured      bool
}

// Ratings are not seeded; they only ever come from reviews.
var catalogue = []seedProduct{
	{"iPhone 14 Pro", "Latest Apple iPhone with advanced camera system and A16 Bionic chip", "999", "1099", domain.CategoryElectronics, "Apple", 50, "https://images.unsplash.com/photo-1678685888221-cda773a3dcdb?w=500", true},
	{"Samsung Galaxy S23", "Premium Android smartphone with excellent display and camera", "849", "949", domain.CategoryElectronics, "Samsung", 45, "https://images.unsplash.com/photo-1610945415295-d9bbf067e59c?w=500", true},
	{"Sony WH-1000XM5", "Industry-leading noise canceling wireless headphones", "349", "399", domain.CategoryElectronics, "Sony", 100, "https://images.unsplash.com/photo-1546435770-a3e426bf472b?w=500", true},
	{`MacBook Pro 16"`, "Powerful laptop with M2 Pro chip, perfect for professionals", "2499", "2699", domain.CategoryElectronics, "Apple", 25, "https://images.unsplash.com/photo-1517336714731-489689fd1ca8?w=500", true},
	{"Nike Air Max 270", "Comfortable and stylish running shoes with Max Air cushioning", "150", "180", domain.CategorySports, "Nike", 150, "https://images.unsplash.com/photo-1542291026-7eec264c27ff?w=500", true},
	{"Levi's 501 Original Jeans", "Classic straight fit jeans, timeless style", "69", "89", domain.CategoryClothing, "Levi's", 200, "https://images.unsplash.com/photo-1542272604-787c3835535d?w=500", false},
	{"Kindle Paperwhite", "Waterproof e-reader with high-resolution display", "139", "159", domain.CategoryElectronics, "Amazon", 80, "https://images.unsplash.com/photo-1592422956891-f83c8b3c0a39?w=500", true},
	{"The Great Gatsby", "Classic American novel by F. Scott Fitzgerald", "12", "15", domain.CategoryBooks, "Scribner", 300, "https://images.unsplash.com/photo-1544947950-fa07a98d237f?w=500", false},
	{"Instant Pot Duo", "7-in-1 electric pressure cooker, perfect for quick meals", "89", "119", domain.CategoryHomeKitchen, "Instant Pot", 60, "https://images.unsplash.com/photo-1585515320310-259814833e62?w=500", true},
	{"Dyson V11 Vacuum", "Powerful cordless vacuum cleaner with intelligent cleaning", "599", "699", domain.CategoryHomeKitchen, "Dyson", 35, "https://images.unsplash.com/photo-1558317374-067fb5f30001?w=500", false},
	{"LEGO Star Wars Set", "Build your own Millennium Falcon with 1351 pieces", "159", "179", domain.CategoryToys, "LEGO", 40, "https://images.unsplash.com/photo-1587654780291-39c9404d746b?w=500", false},
	{"L'Oreal Face Cream", "Revitalizing anti-aging day cream with SPF 30", "24", "29", domain.CategoryBeauty, "L'Oreal", 180, "https://images.unsplash.com/photo-1556228720-195a672e8a03?w=500", false},
}

func (p seedProduct) input() service.ProductInput {
	return service.ProductInput{
		Name:          p.name,
		Description:   p.description,
		Price:         decimal.RequireFromString(p.price),
		OriginalPrice: decimal.NewNullDecimal(decimal.RequireFromString(p.originalPrice)),
		Category:      p.category,
		Brand:         p.brand,
		Stock:         p.stock,
		Images:        []string{p.image},
		IsFeatured:    p.featured,
	}
}
