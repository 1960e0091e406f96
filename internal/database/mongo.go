package database

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/config"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoService wraps a connected MongoDB client and the storefront database
type MongoService struct {
	client *mongo.Client
	db     *mongo.Database
}

// ConnectMongo connects to MongoDB and checks the connection
func ConnectMongo(ctx context.Context, cfg config.MongoConfig) (*MongoService, error) {
	clientOptions := options.Client().ApplyURI(cfg.URI)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoService{client: client, db: client.Database(cfg.Database)}, nil
}

func (m *MongoService) Client() *mongo.Client {
	return m.client
}

func (m *MongoService) DB() *mongo.Database {
	return m.db
}

// Health pings the primary
func (m *MongoService) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	if err := m.client.Ping(ctx, readpref.Primary()); err != nil {
		return map[string]string{
			"status": "down",
			"error":  fmt.Sprintf("mongodb down: %v", err),
		}
	}

	return map[string]string{"status": "up"}
}

func (m *MongoService) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
