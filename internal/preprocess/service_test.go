package preprocess

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RishiKendai/codenest/internal/models"
)

type recordingStore struct {
	batchID string
	bundles []*models.FeatureBundle
	err     error
}

func (r *recordingStore) SaveBundles(ctx context.Context, batchID string, projects []models.ProjectRef, bundles []*models.FeatureBundle) error {
	r.batchID = batchID
	r.bundles = bundles
	return r.err
}

func writeProject(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func newJob(t *testing.T) *models.BatchJob {
	t.Helper()
	work := t.TempDir()
	ids := []string{"p1", "p2", "p3", "p4"}
	job := &models.BatchJob{BatchID: "batch-1", WorkDir: work}
	for i, id := range ids {
		dir := filepath.Join(work, id)
		files := map[string]string{"main.py": "import os\n\ndef run():\n    return 1\n"}
		if i%2 == 1 {
			files = map[string]string{"index.js": "const x = require('fs');\nfunction go() { return x; }\n", "util.js": "let y = 2;\n"}
		}
		writeProject(t, dir, files)
		job.Projects = append(job.Projects, models.ProjectRef{ID: id, Path: dir})
	}
	return job
}

func TestExtractBatch(t *testing.T) {
	job := newJob(t)
	store := &recordingStore{}

	var (
		mu   sync.Mutex
		done []string
	)
	svc := NewService(store, Config{
		Concurrency: 2,
		OnProjectDone: func(ref models.ProjectRef, bundle *models.FeatureBundle) {
			mu.Lock()
			defer mu.Unlock()
			done = append(done, ref.ID)
		},
	})

	bundles, err := svc.ExtractBatch(context.Background(), job)
	require.NoError(t, err)
	require.Len(t, bundles, 4)

	for i, b := range bundles {
		assert.Equal(t, job.Projects[i].ID, b.ProjectID)
	}
	assert.Equal(t, 1, bundles[0].TotalFiles)
	assert.Equal(t, 2, bundles[1].TotalFiles)
	assert.ElementsMatch(t, []string{"p1", "p2", "p3", "p4"}, done)

	assert.Equal(t, "batch-1", store.batchID)
	assert.Equal(t, bundles, store.bundles)

	// the work directory belongs to the pipeline
	assert.DirExists(t, job.WorkDir)
}

func TestExtractBatchMissingProject(t *testing.T) {
	job := newJob(t)
	job.Projects[2].Path = filepath.Join(job.WorkDir, "gone")

	store := &recordingStore{}
	svc := NewService(store, Config{Concurrency: 1})

	_, err := svc.ExtractBatch(context.Background(), job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "p3")
	assert.Nil(t, store.bundles)
}

func TestExtractBatchStoreFailure(t *testing.T) {
	job := newJob(t)
	job.WorkDir = ""

	svc := NewService(&recordingStore{err: errors.New("mongo down")}, Config{})

	_, err := svc.ExtractBatch(context.Background(), job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to store feature bundles")
}

func TestExtractBatchWithoutStore(t *testing.T) {
	job := newJob(t)

	bundles, err := NewService(nil, Config{}).ExtractBatch(context.Background(), job)
	require.NoError(t, err)
	assert.Len(t, bundles, 4)
}

func TestExtractBatchCancelled(t *testing.T) {
	job := newJob(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewService(nil, Config{Concurrency: 1}).ExtractBatch(ctx, job)
	assert.ErrorIs(t, err, context.Canceled)
}
