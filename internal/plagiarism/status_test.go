package plagiarism

import (
	"context"
	"errors"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RishiKendai/codenest/internal/models"
)

type fakeStatusClient struct {
	values map[string]string
	ttls   map[string]time.Duration
	err    error
}

func newFakeStatusClient() *fakeStatusClient {
	return &fakeStatusClient{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeStatusClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd {
	cmd := goredis.NewStatusCmd(ctx, "set", key, value)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	f.values[key] = value.(string)
	f.ttls[key] = expiration
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeStatusClient) Get(ctx context.Context, key string) *goredis.StringCmd {
	cmd := goredis.NewStringCmd(ctx, "get", key)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	val, ok := f.values[key]
	if !ok {
		cmd.SetErr(goredis.Nil)
		return cmd
	}
	cmd.SetVal(val)
	return cmd
}

func TestStatusStore(t *testing.T) {
	ctx := context.Background()
	client := newFakeStatusClient()
	store := NewStatusStore(client)

	step, err := store.GetStatus(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, models.StepIdle, step)

	require.NoError(t, store.UpdateStatus(ctx, "b1", models.StepComparing))
	assert.Equal(t, "comparing", client.values["plagiarism_report_status:b1"])
	assert.Equal(t, statusTTL, client.ttls["plagiarism_report_status:b1"])

	step, err = store.GetStatus(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, models.StepComparing, step)
}

func TestStatusStoreRejectsUnknownStep(t *testing.T) {
	client := newFakeStatusClient()
	store := NewStatusStore(client)

	err := store.UpdateStatus(context.Background(), "b1", models.Step("paused"))
	require.Error(t, err)
	assert.Empty(t, client.values)
}

func TestStatusStoreRedisErrors(t *testing.T) {
	client := newFakeStatusClient()
	client.err = errors.New("connection refused")
	store := NewStatusStore(client)

	err := store.UpdateStatus(context.Background(), "b1", models.StepInitiated)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	_, err = store.GetStatus(context.Background(), "b1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read status")
}
