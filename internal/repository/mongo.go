package repository

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	mongoInfra "github.com/RishiKendai/codenest/internal/infra/mongo"
)

// MongoRepository wraps the application database with collection-name based helpers
type MongoRepository struct {
	db *mongo.Database
}

func NewMongoRepository(client *mongoInfra.Client) *MongoRepository {
	return &MongoRepository{
		db: client.Database,
	}
}

// batchIndexes are the lookups served by the repositories: everything is
// read back by batch, reports newest first
var batchIndexes = map[string][]mongo.IndexModel{
	submissionsCollection: {
		{Keys: bson.D{{Key: "batchId", Value: 1}, {Key: "projectId", Value: 1}}},
	},
	comparisonsCollection: {
		{Keys: bson.D{{Key: "batchId", Value: 1}, {Key: "indexA", Value: 1}, {Key: "indexB", Value: 1}}},
	},
	reportsCollection: {
		{Keys: bson.D{{Key: "batchId", Value: 1}, {Key: "createdAt", Value: -1}}},
	},
}

// EnsureIndexes creates the batch lookup indexes; existing indexes are left as is
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	for collection, indexes := range batchIndexes {
		names, err := r.db.Collection(collection).Indexes().CreateMany(ctx, indexes, options.CreateIndexes())
		if err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", collection, err)
		}
		log.Debug().Str("collection", collection).Strs("indexes", names).Msg("Indexes ensured")
	}
	return nil
}

func (r *MongoRepository) InsertOne(ctx context.Context, collection string, document interface{}) error {
	_, err := r.db.Collection(collection).InsertOne(ctx, document)
	return err
}

// InsertMany is a no-op for an empty slice
func (r *MongoRepository) InsertMany(ctx context.Context, collection string, documents []interface{}) error {
	if len(documents) == 0 {
		return nil
	}
	_, err := r.db.Collection(collection).InsertMany(ctx, documents, options.InsertMany().SetOrdered(false))
	return err
}

func (r *MongoRepository) DeleteMany(ctx context.Context, collection string, filter interface{}) (int64, error) {
	res, err := r.db.Collection(collection).DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *MongoRepository) FindOne(ctx context.Context, collection string, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult {
	return r.db.Collection(collection).FindOne(ctx, filter, opts...)
}

func (r *MongoRepository) FindMany(ctx context.Context, collection string, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	return r.db.Collection(collection).Find(ctx, filter, opts...)
}
