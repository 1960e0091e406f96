package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type cartDocument struct {
	ID        string             `bson:"_id"`
	UserID    string             `bson:"user_id"`
	Version   int                `bson:"version"`
	Items     []cartItemDocument `bson:"items"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

type cartItemDocument struct {
	ID        string `bson:"_id"`
	ProductID string `bson:"product_id"`
	Quantity  int    `bson:"quantity"`
}

type mongoCartRepository struct {
	db *mongo.Database
}

// NewMongoCartRepository creates a CartRepository that stores each cart as a
// single document with embedded lines
func NewMongoCartRepository(db *mongo.Database) CartRepository {
	return &mongoCartRepository{db: db}
}

func (r *mongoCartRepository) collection() *mongo.Collection {
	return r.db.Collection(cartsCollection)
}

// FindByUser retrieves the user's cart document
func (r *mongoCartRepository) FindByUser(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	var doc cartDocument
	err := r.collection().FindOne(ctx, bson.D{{Key: "user_id", Value: userID.String()}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find cart by user: %w", err)
	}

	return doc.toDomain()
}

// Save inserts a new cart or replaces the stored document when its version matches
func (r *mongoCartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	doc := toCartDocument(cart)
	doc.Version = cart.Version + 1

	if cart.Version == 0 {
		if _, err := r.collection().InsertOne(ctx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return ErrCartVersionConflict
			}
			return fmt.Errorf("failed to create cart: %w", err)
		}
		cart.Version = doc.Version
		return nil
	}

	filter := bson.D{
		{Key: "_id", Value: doc.ID},
		{Key: "version", Value: cart.Version},
	}

	result, err := r.collection().ReplaceOne(ctx, filter, doc)
	if err != nil {
		return fmt.Errorf("failed to update cart: %w", err)
	}

	if result.MatchedCount == 0 {
		return ErrCartVersionConflict
	}

	cart.Version = doc.Version
	return nil
}

func toCartDocument(cart *domain.Cart) *cartDocument {
	doc := &cartDocument{
		ID:        cart.ID.String(),
		UserID:    cart.UserID.String(),
		Version:   cart.Version,
		Items:     make([]cartItemDocument, 0, len(cart.Items)),
		CreatedAt: cart.CreatedAt,
		UpdatedAt: cart.UpdatedAt,
	}

	for _, item := range cart.Items {
		doc.Items = append(doc.Items, cartItemDocument{
			ID:        item.ID.String(),
			ProductID: item.ProductID.String(),
			Quantity:  item.Quantity,
		})
	}

	return doc
}

func (d *cartDocument) toDomain() (*domain.Cart, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cart id: %w", err)
	}
	userID, err := uuid.Parse(d.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cart user id: %w", err)
	}

	cart := &domain.Cart{
		ID:        id,
		UserID:    userID,
		Version:   d.Version,
		Items:     make([]domain.CartItem, 0, len(d.Items)),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}

	for _, item := range d.Items {
		itemID, err := uuid.Parse(item.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to decode cart item id: %w", err)
		}
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("failed to decode cart item product id: %w", err)
		}
		cart.Items = append(cart.Items, domain.CartItem{
			ID:        itemID,
			ProductID: productID,
			Quantity:  item.Quantity,
		})
	}

	return cart, nil
}
