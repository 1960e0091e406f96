package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type productDocument struct {
	ID            string                `bson:"_id"`
	Name          string                `bson:"name"`
	Description   string                `bson:"description"`
	Price         primitive.Decimal128  `bson:"price"`
	OriginalPrice *primitive.Decimal128 `bson:"original_price,omitempty"`
	Category      string                `bson:"category"`
	Brand         string                `bson:"brand"`
	Stock         int                   `bson:"stock"`
	Images        []string              `bson:"images"`
	Rating        float64               `bson:"rating"`
	NumReviews    int                   `bson:"num_reviews"`
	IsFeatured    bool                  `bson:"is_featured"`
	CreatedAt     time.Time             `bson:"created_at"`
	UpdatedAt     time.Time             `bson:"updated_at"`
}

type mongoProductRepository struct {
	db *mongo.Database
}

// NewMongoProductRepository creates a ProductRepository backed by MongoDB
func NewMongoProductRepository(db *mongo.Database) ProductRepository {
	return &mongoProductRepository{db: db}
}

func (r *mongoProductRepository) collection() *mongo.Collection {
	return r.db.Collection(productsCollection)
}

// Create inserts a new product document
func (r *mongoProductRepository) Create(ctx context.Context, product *domain.Product) error {
	doc, err := toProductDocument(product)
	if err != nil {
		return err
	}

	if _, err := r.collection().InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update writes the catalogue attributes, leaving the rating aggregate alone
func (r *mongoProductRepository) Update(ctx context.Context, product *domain.Product) error {
	doc, err := toProductDocument(product)
	if err != nil {
		return err
	}

	filter := bson.D{{Key: "_id", Value: doc.ID}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "name", Value: doc.Name},
		{Key: "description", Value: doc.Description},
		{Key: "price", Value: doc.Price},
		{Key: "original_price", Value: doc.OriginalPrice},
		{Key: "category", Value: doc.Category},
		{Key: "brand", Value: doc.Brand},
		{Key: "stock", Value: doc.Stock},
		{Key: "images", Value: doc.Images},
		{Key: "is_featured", Value: doc.IsFeatured},
		{Key: "updated_at", Value: doc.UpdatedAt},
	}}}

	result, err := r.collection().UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	if result.MatchedCount == 0 {
		return ErrProductNotFound
	}

	return nil
}

// UpdateRating stores a recomputed rating aggregate on the product
func (r *mongoProductRepository) UpdateRating(ctx context.Context, aggregate domain.RatingAggregate) error {
	filter := bson.D{{Key: "_id", Value: aggregate.ProductID.String()}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "rating", Value: aggregate.Rating},
		{Key: "num_reviews", Value: aggregate.NumReviews},
		{Key: "updated_at", Value: time.Now().UTC()},
	}}}

	result, err := r.collection().UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update product rating: %w", err)
	}

	if result.MatchedCount == 0 {
		return ErrProductNotFound
	}

	return nil
}

// Delete removes a product and its reviews in one transaction. Cart documents
// keep their lines; cart views skip products that no longer exist.
func (r *mongoProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx := NewMongoTransactor(r.db.Client())

	return tx.WithinTx(ctx, func(ctx context.Context) error {
		result, err := r.collection().DeleteOne(ctx, bson.D{{Key: "_id", Value: id.String()}})
		if err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}

		if result.DeletedCount == 0 {
			return ErrProductNotFound
		}

		filter := bson.D{{Key: "product_id", Value: id.String()}}
		if _, err := r.db.Collection(reviewsCollection).DeleteMany(ctx, filter); err != nil {
			return fmt.Errorf("failed to delete product reviews: %w", err)
		}

		return nil
	})
}

// FindByID retrieves a product by ID
func (r *mongoProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	var doc productDocument
	err := r.collection().FindOne(ctx, bson.D{{Key: "_id", Value: id.String()}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return doc.toDomain()
}

// FindByIDs retrieves the products with the given ids keyed by id
func (r *mongoProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Product, error) {
	products := make(map[uuid.UUID]*domain.Product, len(ids))
	if len(ids) == 0 {
		return products, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, id.String())
	}

	filter := bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: keys}}}}
	found, err := r.find(ctx, filter, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to find products by IDs: %w", err)
	}

	for _, product := range found {
		products[product.ID] = product
	}

	return products, nil
}

// ListFeatured returns featured products, newest first
func (r *mongoProductRepository) ListFeatured(ctx context.Context, limit int) ([]*domain.Product, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	products, err := r.find(ctx, bson.D{{Key: "is_featured", Value: true}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list featured products: %w", err)
	}

	return products, nil
}

func (r *mongoProductRepository) find(ctx context.Context, filter bson.D, opts *options.FindOptions) ([]*domain.Product, error) {
	cursor, err := r.collection().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	var docs []productDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	products := make([]*domain.Product, 0, len(docs))
	for i := range docs {
		product, err := docs[i].toDomain()
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}

	return products, nil
}

func toProductDocument(p *domain.Product) (*productDocument, error) {
	price, err := primitive.ParseDecimal128(p.Price.String())
	if err != nil {
		return nil, fmt.Errorf("failed to encode product price: %w", err)
	}

	doc := &productDocument{
		ID:          p.ID.String(),
		Name:        p.Name,
		Description: p.Description,
		Price:       price,
		Category:    string(p.Category),
		Brand:       p.Brand,
		Stock:       p.Stock,
		Images:      p.Images,
		Rating:      p.Rating,
		NumReviews:  p.NumReviews,
		IsFeatured:  p.IsFeatured,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}

	if doc.Images == nil {
		doc.Images = []string{}
	}

	if p.OriginalPrice.Valid {
		original, err := primitive.ParseDecimal128(p.OriginalPrice.Decimal.String())
		if err != nil {
			return nil, fmt.Errorf("failed to encode product original price: %w", err)
		}
		doc.OriginalPrice = &original
	}

	return doc, nil
}

func (d *productDocument) toDomain() (*domain.Product, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to decode product id: %w", err)
	}

	price, err := decimal.NewFromString(d.Price.String())
	if err != nil {
		return nil, fmt.Errorf("failed to decode product price: %w", err)
	}

	product := &domain.Product{
		ID:          id,
		Name:        d.Name,
		Description: d.Description,
		Price:       price,
		Category:    domain.Category(d.Category),
		Brand:       d.Brand,
		Stock:       d.Stock,
		Images:      d.Images,
		Rating:      d.Rating,
		NumReviews:  d.NumReviews,
		IsFeatured:  d.IsFeatured,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}

	if product.Images == nil {
		product.Images = []string{}
	}

	if d.OriginalPrice != nil {
		original, err := decimal.NewFromString(d.OriginalPrice.String())
		if err != nil {
			return nil, fmt.Errorf("failed to decode product original price: %w", err)
		}
		product.OriginalPrice = decimal.NewNullDecimal(original)
	}

	return product, nil
}
