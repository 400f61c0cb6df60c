package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/RishiKendai/codenest/internal/models"
)

const (
	comparisonsCollection = "comparison_records"
	reportsCollection     = "plagiarism_reports"
)

// documentWriter is the part of MongoRepository used to replace comparison records
type documentWriter interface {
	InsertMany(ctx context.Context, collection string, documents []interface{}) error
	DeleteMany(ctx context.Context, collection string, filter interface{}) (int64, error)
}

type ResultsRepository struct {
	mongoRepo *MongoRepository
	writer    documentWriter
}

func NewResultsRepository(mongoRepo *MongoRepository) *ResultsRepository {
	return &ResultsRepository{
		mongoRepo: mongoRepo,
		writer:    mongoRepo,
	}
}

// SaveComparisons replaces the stored comparison records of a batch, so a
// recomputed batch does not accumulate old pairs. An empty records slice
// still clears what an earlier run stored.
func (r *ResultsRepository) SaveComparisons(ctx context.Context, batchID string, records []models.ComparisonRecord) error {
	deleted, err := r.writer.DeleteMany(ctx, comparisonsCollection, bson.M{"batchId": batchID})
	if err != nil {
		return fmt.Errorf("failed to delete previous comparison records: %w", err)
	}
	if deleted > 0 {
		log.Debug().Str("batchId", batchID).Int64("deleted", deleted).Msg("Replaced previous comparison records")
	}

	if len(records) == 0 {
		return nil
	}

	docs := make([]interface{}, 0, len(records))
	for i := range records {
		docs = append(docs, &records[i])
	}

	if err := r.writer.InsertMany(ctx, comparisonsCollection, docs); err != nil {
		return fmt.Errorf("failed to insert comparison records: %w", err)
	}

	return nil
}

func (r *ResultsRepository) SaveReport(ctx context.Context, report *models.BatchReport) error {
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now()
	}

	err := r.mongoRepo.InsertOne(ctx, reportsCollection, report)
	if err != nil {
		return fmt.Errorf("failed to insert batch report: %w", err)
	}

	return nil
}

// GetLatestReportByBatchID returns nil without error when no report exists
func (r *ResultsRepository) GetLatestReportByBatchID(ctx context.Context, batchID string) (*models.BatchReport, error) {
	filter := bson.M{"batchId": batchID}
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	var report models.BatchReport
	err := r.mongoRepo.FindOne(ctx, reportsCollection, filter, opts).Decode(&report)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find report: %w", err)
	}

	return &report, nil
}

func (r *ResultsRepository) GetComparisonsByBatchID(ctx context.Context, batchID string) ([]models.ComparisonRecord, error) {
	filter := bson.M{"batchId": batchID}
	opts := options.Find().SetSort(bson.D{{Key: "indexA", Value: 1}, {Key: "indexB", Value: 1}})

	cursor, err := r.mongoRepo.FindMany(ctx, comparisonsCollection, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find comparison records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []models.ComparisonRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode comparison records: %w", err)
	}

	return records, nil
}
