package plagiarism

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/RishiKendai/codenest/internal/models"
)

const (
	statusKeyPrefix = "plagiarism_report_status:"
	statusTTL       = 12 * time.Hour
)

var validSteps = map[models.Step]bool{
	models.StepIdle:       true,
	models.StepInitiated:  true,
	models.StepExtracting: true,
	models.StepComparing:  true,
	models.StepCompleted:  true,
	models.StepFailed:     true,
}

// StatusClient is the subset of the Redis client used by StatusStore
type StatusClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	Get(ctx context.Context, key string) *goredis.StringCmd
}

// StatusStore keeps the current step of every batch in Redis
type StatusStore struct {
	client StatusClient
}

func NewStatusStore(client StatusClient) *StatusStore {
	return &StatusStore{client: client}
}

func statusKey(batchID string) string {
	return statusKeyPrefix + batchID
}

func (s *StatusStore) UpdateStatus(ctx context.Context, batchID string, step models.Step) error {
	if !validSteps[step] {
		return fmt.Errorf("unknown step: %s", step)
	}

	rkey := statusKey(batchID)

	err := s.client.Set(ctx, rkey, string(step), statusTTL).Err()
	if err != nil {
		log.Error().Err(err).
			Str("step", string(step)).
			Str("batchId", batchID).
			Str("redisKey", rkey).
			Msg("Failed to update status in Redis")
		return fmt.Errorf("failed to update status in Redis: %w", err)
	}

	log.Trace().
		Str("step", string(step)).
		Str("batchId", batchID).
		Msg("Status updated in Redis")

	return nil
}

// GetStatus returns StepIdle for batches without a stored step
func (s *StatusStore) GetStatus(ctx context.Context, batchID string) (models.Step, error) {
	val, err := s.client.Get(ctx, statusKey(batchID)).Result()
	if errors.Is(err, goredis.Nil) {
		return models.StepIdle, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read status from Redis: %w", err)
	}
	return models.Step(val), nil
}
