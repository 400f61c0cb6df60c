package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/RishiKendai/codenest/internal/models"
)

const submissionsCollection = "project_submissions"

type SubmissionsRepository struct {
	mongoRepo *MongoRepository
}

func NewSubmissionsRepository(mongoRepo *MongoRepository) *SubmissionsRepository {
	return &SubmissionsRepository{
		mongoRepo: mongoRepo,
	}
}

// SaveBundles stores one submission per extracted project of a batch
func (r *SubmissionsRepository) SaveBundles(ctx context.Context, batchID string, projects []models.ProjectRef, bundles []*models.FeatureBundle) error {
	if len(projects) != len(bundles) {
		return fmt.Errorf("project and bundle counts differ: %d != %d", len(projects), len(bundles))
	}

	now := time.Now()
	docs := make([]interface{}, 0, len(bundles))
	for i, bundle := range bundles {
		docs = append(docs, &models.ProjectSubmission{
			BatchID:   batchID,
			ProjectID: projects[i].ID,
			Path:      projects[i].Path,
			Features:  bundle,
			CreatedAt: now,
		})
	}

	if err := r.mongoRepo.InsertMany(ctx, submissionsCollection, docs); err != nil {
		return fmt.Errorf("failed to insert submissions: %w", err)
	}

	return nil
}
