package service

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const DefaultFeaturedLimit = 8

// ProductInput carries the client-settable product fields. Rating fields are
// derived from reviews and cannot be set.
type ProductInput struct {
	Name          string
	Description   string
	Price         decimal.Decimal
	OriginalPrice decimal.NullDecimal
	Category      domain.Category
	Brand         string
	Stock         int
	Images        []string
	IsFeatured    bool
}

// ProductService defines the interface for catalogue reads and admin writes
type ProductService interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	ListFeatured(ctx context.Context, limit int) ([]*domain.Product, error)
	CreateProduct(ctx context.Context, input ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

type productService struct {
	productRepo repository.ProductRepository
	logger      *zap.Logger
}

// NewProductService creates a new instance of ProductService
func NewProductService(productRepo repository.ProductRepository, logger *zap.Logger) ProductService {
	return &productService{productRepo: productRepo, logger: logger}
}

func (s *productService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.productRepo.FindByID(ctx, id)
}

func (s *productService) ListFeatured(ctx context.Context, limit int) ([]*domain.Product, error) {
	if limit <= 0 {
		limit = DefaultFeaturedLimit
	}
	return s.productRepo.ListFeatured(ctx, limit)
}

// CreateProduct stores a new product with an empty rating aggregate
func (s *productService) CreateProduct(ctx context.Context, input ProductInput) (*domain.Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	product := &domain.Product{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyProductInput(product, input)

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info("Product created", zap.String("product_id", product.ID.String()))
	return product, nil
}

// UpdateProduct replaces the client-settable fields and keeps rating and numReviews
func (s *productService) UpdateProduct(ctx context.Context, id uuid.UUID, input ProductInput) (*domain.Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	applyProductInput(product, input)
	product.UpdatedAt = time.Now().UTC()

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	return product, nil
}

// DeleteProduct removes a product together with its reviews. Cart lines that
// reference it drop out of cart views.
func (s *productService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	s.logger.Info("Product deleted", zap.String("product_id", id.String()))
	return nil
}

func validateProductInput(input ProductInput) error {
	switch {
	case input.Price.IsNegative():
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	case input.OriginalPrice.Valid && input.OriginalPrice.Decimal.IsNegative():
		return fmt.Errorf("%w: original price must not be negative", ErrInvalidProduct)
	case input.Stock < 0:
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidProduct)
	case !input.Category.Valid():
		return fmt.Errorf("%w: unknown category %q", ErrInvalidProduct, input.Category)
	}
	return nil
}

func applyProductInput(product *domain.Product, input ProductInput) {
	product.Name = input.Name
	product.Description = input.Description
	product.Price = input.Price
	product.OriginalPrice = input.OriginalPrice
	product.Category = input.Category
	product.Brand = input.Brand
	product.Stock = input.Stock
	product.Images = input.Images
	if product.Images == nil {
		product.Images = []string{}
	}
	product.IsFeatured = input.IsFeatured
}
