package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/RishiKendai/codenest/internal/metrics"
	"github.com/RishiKendai/codenest/internal/models"
	"github.com/RishiKendai/codenest/internal/plagiarism"
)

const (
	defaultRecoveryInterval = 30 * time.Second
	defaultTrimInterval     = time.Hour
	claimBatchSize          = 10
)

// Processor runs one batch job to completion
type Processor interface {
	Run(ctx context.Context, job *models.BatchJob) (*models.BatchReport, error)
}

type ConsumerConfig struct {
	StreamKey string
	Group     string
	Name      string
	// Retention is how long entries are kept in the stream
	Retention time.Duration
	// JobTimeout bounds a single processing attempt
	JobTimeout time.Duration
	// ClaimMinIdle is how long a delivered entry may stay unacknowledged
	// before another consumer takes it over. It must exceed the time a
	// healthy consumer can spend on one message, retries included.
	ClaimMinIdle time.Duration
}

// Consumer reads batch jobs from a Redis stream consumer group
type Consumer struct {
	client       *redis.Client
	cfg          ConsumerConfig
	processor    Processor
	retryHandler *RetryHandler

	recoveryInterval time.Duration
	trimInterval     time.Duration
	lastRecovery     time.Time
}

func NewConsumer(client *redis.Client, cfg ConsumerConfig, processor Processor, retryHandler *RetryHandler) *Consumer {
	if cfg.ClaimMinIdle <= 0 {
		cfg.ClaimMinIdle = 2 * cfg.JobTimeout
	}
	return &Consumer{
		client:           client,
		cfg:              cfg,
		processor:        processor,
		retryHandler:     retryHandler,
		recoveryInterval: defaultRecoveryInterval,
		trimInterval:     defaultTrimInterval,
	}
}

// Start blocks consuming the stream until ctx is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	if err := c.ensureGroup(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to create consumer group")
	}

	// entries left pending by a crashed consumer
	if err := c.claimStale(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to recover pending entries on startup")
	}
	c.lastRecovery = time.Now()

	go c.trimLoop(ctx)

	log.Info().
		Str("stream", c.cfg.StreamKey).
		Str("group", c.cfg.Group).
		Str("consumer", c.cfg.Name).
		Dur("claim_min_idle", c.cfg.ClaimMinIdle).
		Msg("Stream consumer running")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.poll(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("Error consuming messages")
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
	}
}

func (c *Consumer) ensureGroup(ctx context.Context) error {
	// "$" means a new group only sees entries added after it exists
	err := c.client.XGroupCreateMkStream(ctx, c.cfg.StreamKey, c.cfg.Group, "$").Err()
	if err != nil {
		if strings.Contains(err.Error(), "BUSYGROUP") {
			log.Debug().Str("group", c.cfg.Group).Msg("Consumer group already exists")
			return nil
		}
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	log.Info().
		Str("group", c.cfg.Group).
		Str("stream", c.cfg.StreamKey).
		Msg("Created consumer group")
	return nil
}

// claimStale takes over entries that stayed unacknowledged for longer than
// ClaimMinIdle and processes them
func (c *Consumer) claimStale(ctx context.Context) error {
	start := "0-0"
	for {
		msgs, next, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   c.cfg.StreamKey,
			Group:    c.cfg.Group,
			Consumer: c.cfg.Name,
			MinIdle:  c.cfg.ClaimMinIdle,
			Start:    start,
			Count:    claimBatchSize,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil
			}
			return fmt.Errorf("failed to claim pending entries: %w", err)
		}

		if len(msgs) > 0 {
			log.Info().Int("claimed", len(msgs)).Msg("Claimed stale pending entries")
		}
		for i := range msgs {
			if err := c.handle(ctx, &msgs[i]); err != nil {
				log.Error().Err(err).Str("message_id", msgs[i].ID).Msg("Failed to process claimed entry")
			}
		}

		if next == "0-0" || next == "" || ctx.Err() != nil {
			return ctx.Err()
		}
		start = next
	}
}

func (c *Consumer) poll(ctx context.Context) error {
	if time.Since(c.lastRecovery) > c.recoveryInterval {
		if err := c.claimStale(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to recover pending entries")
		}
		c.lastRecovery = time.Now()
	}

	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Name,
		Streams:  []string{c.cfg.StreamKey, ">"},
		Count:    1, // batches are heavy, take one at a time
		Block:    time.Second,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, s := range streams {
		for i := range s.Messages {
			if err := c.handle(ctx, &s.Messages[i]); err != nil {
				log.Error().Err(err).Str("message_id", s.Messages[i].ID).Msg("Failed to process message")
			}
		}
	}
	return nil
}

// handle runs the batch job carried by one entry. Entries are acknowledged
// once they complete or are parked in the dead letter list; an entry
// interrupted by shutdown stays pending for recovery.
func (c *Consumer) handle(ctx context.Context, msg *redis.XMessage) error {
	streamMsg := toStreamMessage(msg)

	fields := make(map[string]interface{}, len(streamMsg.Fields))
	for k, v := range streamMsg.Fields {
		fields[k] = v
	}

	job, err := ParseBatchJob(streamMsg)
	if err != nil {
		metrics.StreamMessages.WithLabelValues("invalid").Inc()
		if dlqErr := c.retryHandler.SendToDeadLetter(ctx, msg.ID, fields, err, 0); dlqErr != nil {
			log.Error().Err(dlqErr).Str("message_id", msg.ID).Msg("Failed to park invalid message")
		}
		c.ack(ctx, msg.ID)
		return fmt.Errorf("failed to parse batch job: %w", err)
	}

	log.Info().
		Str("message_id", msg.ID).
		Str("batchId", job.BatchID).
		Int("projects", len(job.Projects)).
		Msg("Processing batch job")

	err = c.retryHandler.RetryWithBackoff(ctx, func() error {
		jobCtx, cancel := context.WithTimeout(ctx, c.cfg.JobTimeout)
		defer cancel()
		_, err := c.processor.Run(jobCtx, job)
		if errors.Is(err, plagiarism.ErrNotRetryable) {
			return Permanent(err)
		}
		return err
	}, msg.ID, fields)

	switch {
	case err == nil:
		metrics.StreamMessages.WithLabelValues("completed").Inc()
	case ctx.Err() != nil:
		return err
	default:
		metrics.StreamMessages.WithLabelValues("dead_letter").Inc()
	}

	c.ack(ctx, msg.ID)
	return err
}

func toStreamMessage(msg *redis.XMessage) *StreamMessage {
	fields := make(map[string]string, len(msg.Values))
	for key, val := range msg.Values {
		if value, ok := val.(string); ok {
			fields[key] = value
		}
	}
	return &StreamMessage{
		ID:     msg.ID,
		Fields: fields,
	}
}

func (c *Consumer) ack(ctx context.Context, messageID string) {
	if err := c.client.XAck(ctx, c.cfg.StreamKey, c.cfg.Group, messageID).Err(); err != nil {
		log.Error().Err(err).Str("message_id", messageID).Msg("Failed to acknowledge message")
		return
	}
	log.Debug().Str("message_id", messageID).Msg("Message acknowledged")
}

// trimLoop drops entries older than the retention window, once at start and
// then every trimInterval
func (c *Consumer) trimLoop(ctx context.Context) {
	ticker := time.NewTicker(c.trimInterval)
	defer ticker.Stop()

	for {
		if err := c.trim(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("Failed to trim stream")
		}

		select {
		case <-ctx.Done():
			log.Debug().Msg("Stream trim loop stopped")
			return
		case <-ticker.C:
		}
	}
}

func (c *Consumer) trim(ctx context.Context) error {
	cutoff := time.Now().Add(-c.cfg.Retention)
	minID := minStreamID(cutoff)

	trimmed, err := c.client.XTrimMinID(ctx, c.cfg.StreamKey, minID).Result()
	if err != nil {
		return fmt.Errorf("failed to trim stream: %w", err)
	}
	if trimmed > 0 {
		log.Debug().
			Int64("trimmed", trimmed).
			Str("cutoff", cutoff.Format(time.RFC3339)).
			Msg("Trimmed old stream entries")
	}
	return nil
}

// minStreamID is the smallest entry id created at or after t
func minStreamID(t time.Time) string {
	return fmt.Sprintf("%d-0", t.UnixMilli())
}
