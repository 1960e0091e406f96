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
	"go.mongodb.org/mongo-driver/mongo/options"
)

type reviewDocument struct {
	ID        string    `bson:"_id"`
	ProductID string    `bson:"product_id"`
	UserID    string    `bson:"user_id"`
	Rating    int       `bson:"rating"`
	Comment   string    `bson:"comment"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type mongoReviewRepository struct {
	db *mongo.Database
}

// NewMongoReviewRepository creates a ReviewRepository backed by MongoDB
func NewMongoReviewRepository(db *mongo.Database) ReviewRepository {
	return &mongoReviewRepository{db: db}
}

func (r *mongoReviewRepository) collection() *mongo.Collection {
	return r.db.Collection(reviewsCollection)
}

func (r *mongoReviewRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	review, err := r.findOne(ctx, bson.D{{Key: "_id", Value: id.String()}})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to find review by ID: %w", err)
	}
	return review, nil
}

func (r *mongoReviewRepository) FindByProductAndUser(ctx context.Context, productID, userID uuid.UUID) (*domain.Review, error) {
	filter := bson.D{
		{Key: "product_id", Value: productID.String()},
		{Key: "user_id", Value: userID.String()},
	}

	review, err := r.findOne(ctx, filter)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find review by product and user: %w", err)
	}
	return review, nil
}

func (r *mongoReviewRepository) FindByProduct(ctx context.Context, productID uuid.UUID) ([]*domain.Review, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection().Find(ctx, bson.D{{Key: "product_id", Value: productID.String()}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}

	var docs []reviewDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode reviews: %w", err)
	}

	reviews := make([]*domain.Review, 0, len(docs))
	for i := range docs {
		review, err := docs[i].toDomain()
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, review)
	}

	return reviews, nil
}

func (r *mongoReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	doc := reviewDocument{
		ID:        review.ID.String(),
		ProductID: review.ProductID.String(),
		UserID:    review.UserID.String(),
		Rating:    review.Rating,
		Comment:   review.Comment,
		CreatedAt: review.CreatedAt,
		UpdatedAt: review.UpdatedAt,
	}

	if _, err := r.collection().InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrReviewAlreadyExists
		}
		return fmt.Errorf("failed to create review: %w", err)
	}

	return nil
}

func (r *mongoReviewRepository) Update(ctx context.Context, review *domain.Review) error {
	filter := bson.D{{Key: "_id", Value: review.ID.String()}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "rating", Value: review.Rating},
		{Key: "comment", Value: review.Comment},
		{Key: "updated_at", Value: review.UpdatedAt},
	}}}

	result, err := r.collection().UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update review: %w", err)
	}

	if result.MatchedCount == 0 {
		return ErrReviewNotFound
	}

	return nil
}

func (r *mongoReviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.collection().DeleteOne(ctx, bson.D{{Key: "_id", Value: id.String()}})
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}

	if result.DeletedCount == 0 {
		return ErrReviewNotFound
	}

	return nil
}

func (r *mongoReviewRepository) findOne(ctx context.Context, filter bson.D) (*domain.Review, error) {
	var doc reviewDocument
	if err := r.collection().FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, err
	}
	return doc.toDomain()
}

func (d *reviewDocument) toDomain() (*domain.Review, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to decode review id: %w", err)
	}
	productID, err := uuid.Parse(d.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to decode review product id: %w", err)
	}
	userID, err := uuid.Parse(d.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to decode review user id: %w", err)
	}

	return &domain.Review{
		ID:        id,
		ProductID: productID,
		UserID:    userID,
		Rating:    d.Rating,
		Comment:   d.Comment,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}, nil
}
