package stream

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/RishiKendai/codenest/internal/models"
)

// PayloadField is the stream entry field carrying the JSON encoded batch job
const PayloadField = "payload"

var ErrMissingPayload = errors.New("message has no payload field")

// StreamMessage is a stream entry with its string fields
type StreamMessage struct {
	ID     string
	Fields map[string]string
}

// ParseBatchJob decodes and validates the batch job carried by a message
func ParseBatchJob(msg *StreamMessage) (*models.BatchJob, error) {
	payload, ok := msg.Fields[PayloadField]
	if !ok || payload == "" {
		return nil, ErrMissingPayload
	}

	var job models.BatchJob
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		return nil, fmt.Errorf("failed to decode batch job: %w", err)
	}
	if err := job.Validate(); err != nil {
		return nil, fmt.Errorf("invalid batch job: %w", err)
	}

	return &job, nil
}

// EncodeBatchJob builds the stream fields for a job, for producers and tests
func EncodeBatchJob(job *models.BatchJob) (map[string]interface{}, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to encode batch job: %w", err)
	}
	return map[string]interface{}{
		"batchId":    job.BatchID,
		PayloadField: string(payload),
	}, nil
}
