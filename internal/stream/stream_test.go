package stream

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RishiKendai/codenest/internal/models"
)

func TestParseBatchJob(t *testing.T) {
	valid := `{"batchId":"b1","name":"CS101","projects":[{"id":"a","path":"/x/a"},{"id":"b","path":"/x/b"}]}`

	tests := []struct {
		name    string
		fields  map[string]string
		wantErr error
		errMsg  string
	}{
		{name: "valid", fields: map[string]string{"payload": valid}},
		{name: "missing payload", fields: map[string]string{"batchId": "b1"}, wantErr: ErrMissingPayload},
		{name: "empty payload", fields: map[string]string{"payload": ""}, wantErr: ErrMissingPayload},
		{name: "bad json", fields: map[string]string{"payload": "{"}, errMsg: "failed to decode"},
		{name: "no projects", fields: map[string]string{"payload": `{"batchId":"b1"}`}, errMsg: "invalid batch job"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job, err := ParseBatchJob(&StreamMessage{ID: "1-0", Fields: tt.fields})
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.errMsg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			default:
				require.NoError(t, err)
				assert.Equal(t, "b1", job.BatchID)
				assert.Equal(t, "CS101", job.Name)
				assert.Len(t, job.Projects, 2)
			}
		})
	}
}

func TestEncodeBatchJob(t *testing.T) {
	job := &models.BatchJob{BatchID: "b2", Projects: []models.ProjectRef{{ID: "a", Path: "/a"}}}

	values, err := EncodeBatchJob(job)
	require.NoError(t, err)
	assert.Equal(t, "b2", values["batchId"])

	msg := toStreamMessage(&redis.XMessage{ID: "5-0", Values: values})
	assert.Equal(t, "5-0", msg.ID)

	parsed, err := ParseBatchJob(msg)
	require.NoError(t, err)
	assert.Equal(t, job, parsed)
}

func TestToStreamMessageSkipsNonStrings(t *testing.T) {
	msg := toStreamMessage(&redis.XMessage{ID: "1-0", Values: map[string]interface{}{"a": "x", "n": 3}})
	assert.Equal(t, map[string]string{"a": "x"}, msg.Fields)
}

type fakeDeadLetters struct {
	pushed []string
	err    error
}

func (f *fakeDeadLetters) LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx, "lpush", key)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	for _, v := range values {
		f.pushed = append(f.pushed, v.(string))
	}
	cmd.SetVal(int64(len(f.pushed)))
	return cmd
}

func TestRetryWithBackoffEventuallySucceeds(t *testing.T) {
	dlq := &fakeDeadLetters{}
	h := newRetryHandler(dlq, "dlq", 3, time.Millisecond, 5*time.Millisecond)

	calls := 0
	err := h.RetryWithBackoff(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, "1-0", nil)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Empty(t, dlq.pushed)
}

func TestRetryWithBackoffDeadLetters(t *testing.T) {
	dlq := &fakeDeadLetters{}
	h := newRetryHandler(dlq, "dlq", 2, time.Millisecond, 5*time.Millisecond)

	calls := 0
	err := h.RetryWithBackoff(context.Background(), func() error {
		calls++
		return errors.New("mongo down")
	}, "7-0", map[string]interface{}{"batchId": "b7"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "mongo down")
	assert.Equal(t, 3, calls)

	require.Len(t, dlq.pushed, 1)
	var entry DeadLetter
	require.NoError(t, json.Unmarshal([]byte(dlq.pushed[0]), &entry))
	assert.Equal(t, "7-0", entry.MessageID)
	assert.Equal(t, "mongo down", entry.Error)
	assert.Equal(t, 3, entry.Attempts)
	assert.Equal(t, "b7", entry.Fields["batchId"])
}

func TestRetryWithBackoffPermanentError(t *testing.T) {
	dlq := &fakeDeadLetters{}
	h := newRetryHandler(dlq, "dlq", 5, time.Millisecond, 5*time.Millisecond)

	cause := errors.New("work directory removed")
	calls := 0
	err := h.RetryWithBackoff(context.Background(), func() error {
		calls++
		return Permanent(cause)
	}, "9-0", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1, calls)

	require.Len(t, dlq.pushed, 1)
	var entry DeadLetter
	require.NoError(t, json.Unmarshal([]byte(dlq.pushed[0]), &entry))
	assert.Equal(t, 1, entry.Attempts)
	assert.Equal(t, "work directory removed", entry.Error)
}

func TestPermanentNil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
}

func TestRetryWithBackoffDeadLetterFailure(t *testing.T) {
	dlq := &fakeDeadLetters{err: errors.New("redis down")}
	h := newRetryHandler(dlq, "dlq", 0, time.Millisecond, time.Millisecond)

	err := h.RetryWithBackoff(context.Background(), func() error { return errors.New("boom") }, "1-0", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestRetryWithBackoffCancelled(t *testing.T) {
	dlq := &fakeDeadLetters{}
	h := newRetryHandler(dlq, "dlq", 5, time.Hour, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	err := h.RetryWithBackoff(ctx, func() error {
		cancel()
		return errors.New("interrupted")
	}, "1-0", nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, dlq.pushed)
}

func TestBackoff(t *testing.T) {
	h := newRetryHandler(nil, "dlq", 5, time.Second, 5*time.Second)

	assert.Equal(t, time.Second, h.backoff(1))
	assert.Equal(t, 2*time.Second, h.backoff(2))
	assert.Equal(t, 4*time.Second, h.backoff(3))
	assert.Equal(t, 5*time.Second, h.backoff(4))
	assert.Equal(t, 5*time.Second, h.backoff(10))
}

func TestMinStreamID(t *testing.T) {
	ts := time.UnixMilli(1700000000123)
	assert.Equal(t, "1700000000123-0", minStreamID(ts))
}

func TestNewConsumerDefaults(t *testing.T) {
	c := NewConsumer(nil, ConsumerConfig{StreamKey: "s", JobTimeout: time.Minute}, nil, nil)
	assert.Equal(t, 2*time.Minute, c.cfg.ClaimMinIdle)

	c = NewConsumer(nil, ConsumerConfig{JobTimeout: time.Minute, ClaimMinIdle: time.Hour}, nil, nil)
	assert.Equal(t, time.Hour, c.cfg.ClaimMinIdle)
}
