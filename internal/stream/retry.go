package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// deadLetterWriter is the subset of the Redis client the retry handler needs
type deadLetterWriter interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// DeadLetter is the entry pushed to the dead letter list
type DeadLetter struct {
	MessageID string                 `json:"messageId"`
	Fields    map[string]interface{} `json:"fields"`
	Error     string                 `json:"error"`
	Attempts  int                    `json:"attempts"`
	FailedAt  time.Time              `json:"failedAt"`
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying; RetryWithBackoff dead-letters it
// right away.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

type RetryHandler struct {
	client        deadLetterWriter
	deadLetterKey string
	maxRetries    int
	baseDelay     time.Duration
	maxDelay      time.Duration
}

func NewRetryHandler(client *redis.Client, deadLetterKey string, maxRetries int) *RetryHandler {
	return newRetryHandler(client, deadLetterKey, maxRetries, 2*time.Second, time.Minute)
}

func newRetryHandler(client deadLetterWriter, deadLetterKey string, maxRetries int, baseDelay, maxDelay time.Duration) *RetryHandler {
	return &RetryHandler{
		client:        client,
		deadLetterKey: deadLetterKey,
		maxRetries:    max(0, maxRetries),
		baseDelay:     baseDelay,
		maxDelay:      maxDelay,
	}
}

// RetryWithBackoff runs fn until it succeeds or maxRetries retries are used
// up, doubling the delay after each failure. An exhausted message, or one
// whose error is Permanent, goes to the dead letter list and the last error
// is returned.
func (r *RetryHandler) RetryWithBackoff(ctx context.Context, fn func() error, messageID string, fields map[string]interface{}) error {
	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			delay := r.backoff(attempt)
			log.Warn().
				Err(lastErr).
				Str("message_id", messageID).
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("Retrying message")

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		attempts++
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var perm *permanentError
		if errors.As(lastErr, &perm) {
			break
		}
	}

	if err := r.SendToDeadLetter(ctx, messageID, fields, lastErr, attempts); err != nil {
		log.Error().Err(err).Str("message_id", messageID).Msg("Failed to send message to dead letter queue")
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

// backoff returns the delay before the given retry attempt, starting at 1
func (r *RetryHandler) backoff(attempt int) time.Duration {
	delay := r.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= r.maxDelay {
			return r.maxDelay
		}
	}
	return min(delay, r.maxDelay)
}

func (r *RetryHandler) SendToDeadLetter(ctx context.Context, messageID string, fields map[string]interface{}, cause error, attempts int) error {
	entry := DeadLetter{
		MessageID: messageID,
		Fields:    fields,
		Attempts:  attempts,
		FailedAt:  time.Now().UTC(),
	}
	if cause != nil {
		entry.Error = cause.Error()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter: %w", err)
	}
	if err := r.client.LPush(ctx, r.deadLetterKey, string(data)).Err(); err != nil {
		return fmt.Errorf("failed to push dead letter: %w", err)
	}

	log.Warn().
		Str("message_id", messageID).
		Str("queue", r.deadLetterKey).
		Int("attempts", attempts).
		Msg("Message moved to dead letter queue")
	return nil
}
