package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Category is one of the fixed catalogue categories
type Category string

const (
	CategoryElectronics Category = "Electronics"
	CategoryClothing    Category = "Clothing"
	CategoryBooks       Category = "Books"
	CategoryHomeKitchen Category = "Home & Kitchen"
	CategorySports      Category = "Sports"
	CategoryBeauty      Category = "Beauty"
	CategoryToys        Category = "Toys"
	CategoryOther       Category = "Other"
)

// Categories lists every valid category in display order
var Categories = []Category{
	CategoryElectronics,
	CategoryClothing,
	CategoryBooks,
	CategoryHomeKitchen,
	CategorySports,
	CategoryBeauty,
	CategoryToys,
	CategoryOther,
}

// Valid reports whether c is one of the fixed categories
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Product represents a product in the catalog.
// Rating and NumReviews are derived from the product's reviews and are only
// written by the rating aggregator.
type Product struct {
	ID            uuid.UUID           `json:"id" db:"id"`
	Name          string              `json:"name" db:"name"`
	Description   string              `json:"description" db:"description"`
	Price         decimal.Decimal     `json:"price" db:"price"`
	OriginalPrice decimal.NullDecimal `json:"originalPrice,omitempty" db:"original_price"`
	Category      Category            `json:"category" db:"category"`
	Brand         string              `json:"brand" db:"brand"`
	Stock         int                 `json:"stock" db:"stock"`
	Images        []string            `json:"images" db:"images"`
	Rating        float64             `json:"rating" db:"rating"`
	NumReviews    int                 `json:"numReviews" db:"num_reviews"`
	IsFeatured    bool                `json:"isFeatured" db:"is_featured"`
	CreatedAt     time.Time           `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time           `json:"updatedAt" db:"updated_at"`
}

// HasStock reports whether at least quantity units are currently in stock
func (p *Product) HasStock(quantity int) bool {
	return p.Stock >= quantity
}
