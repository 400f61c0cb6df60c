package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Client holds the MongoDB connection and the application database
type Client struct {
	client   *mongo.Client
	Database *mongo.Database
}

// NewClient connects to MongoDB and selects the database
func NewClient(ctx context.Context, uri, dbName string) (*Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	log.Info().Str("database", dbName).Msg("Connected to MongoDB")
	return &Client{
		client:   client,
		Database: client.Database(dbName),
	}, nil
}

// Close disconnects from MongoDB
func (c *Client) Close(ctx context.Context) error {
	if err := c.client.Disconnect(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to disconnect from MongoDB")
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	return nil
}
