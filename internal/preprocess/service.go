package preprocess

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/RishiKendai/codenest/internal/features"
	"github.com/RishiKendai/codenest/internal/models"
)

// BundleStore persists the extracted feature bundles of a batch
type BundleStore interface {
	SaveBundles(ctx context.Context, batchID string, projects []models.ProjectRef, bundles []*models.FeatureBundle) error
}

type Config struct {
	// Concurrency bounds the number of projects extracted at once; <= 0 uses NumCPU
	Concurrency int
	Features    features.Options
	// OnProjectDone is called after each project is extracted, from the extracting goroutine
	OnProjectDone func(ref models.ProjectRef, bundle *models.FeatureBundle)
}

type Service struct {
	store BundleStore
	cfg   Config
}

// NewService creates the extraction service. store may be nil, in which case
// bundles are not persisted.
func NewService(store BundleStore, cfg Config) *Service {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.NumCPU()
	}
	return &Service{
		store: store,
		cfg:   cfg,
	}
}

// ExtractBatch extracts one feature bundle per project of the job, in job order.
func (s *Service) ExtractBatch(ctx context.Context, job *models.BatchJob) ([]*models.FeatureBundle, error) {
	start := time.Now()
	bundles := make([]*models.FeatureBundle, len(job.Projects))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for i, ref := range job.Projects {
		g.Go(func() error {
			bundle, err := features.ExtractFeatures(gctx, ref.ID, ref.Path, s.cfg.Features)
			if err != nil {
				return fmt.Errorf("failed to extract project %s: %w", ref.ID, err)
			}
			bundles[i] = bundle
			if s.cfg.OnProjectDone != nil {
				s.cfg.OnProjectDone(ref, bundle)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Info().
		Str("batchId", job.BatchID).
		Int("projects", len(bundles)).
		Dur("duration", time.Since(start)).
		Msg("Feature extraction completed")

	if s.store != nil {
		if err := s.store.SaveBundles(ctx, job.BatchID, job.Projects, bundles); err != nil {
			return nil, fmt.Errorf("failed to store feature bundles: %w", err)
		}
	}

	return bundles, nil
}
