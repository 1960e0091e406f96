package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	productsCollection = "products"
	cartsCollection    = "carts"
	reviewsCollection  = "reviews"
)

type mongoTransactor struct {
	client *mongo.Client
}

// NewMongoTransactor creates a Transactor backed by MongoDB session
// transactions. The server must run as a replica set.
func NewMongoTransactor(client *mongo.Client) Transactor {
	return &mongoTransactor{client: client}
}

// WithinTx runs fn inside a session transaction. fn may be retried by the
// driver on transient transaction errors.
func (t *mongoTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session, err := t.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})

	return err
}

// EnsureMongoIndexes creates the unique indexes the document store relies on
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		cartsCollection: {
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("ux_carts_user"),
			},
		},
		reviewsCollection: {
			{
				Keys:    bson.D{{Key: "product_id", Value: 1}, {Key: "user_id", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("ux_reviews_product_user"),
			},
			{
				Keys:    bson.D{{Key: "product_id", Value: 1}, {Key: "created_at", Value: -1}},
				Options: options.Index().SetName("ix_reviews_product_created"),
			},
		},
		productsCollection: {
			{
				Keys:    bson.D{{Key: "is_featured", Value: 1}, {Key: "created_at", Value: -1}},
				Options: options.Index().SetName("ix_products_featured"),
			},
		},
	}

	for collection, models := range indexes {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", collection, err)
		}
	}

	return nil
}
