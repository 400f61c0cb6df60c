package classifier

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RishiKendai/codenest/internal/models"
)

var smallConfig = Config{Trees: 15, MaxDepth: 10, MinSamplesSplit: 5, MinSamplesLeaf: 2, Seed: 42}

var (
	copied = models.ClassifierInput{Content: 1, Hash: 0.3, Import: 1, StructureDifference: 0, Keyword: 1}
	unique = models.ClassifierInput{Content: 0, Hash: 0, Import: 0, StructureDifference: 8, Keyword: 0}
)

func TestSyntheticDataset(t *testing.T) {
	X, y := SyntheticDataset(500, 42)
	require.Len(t, X, 500)
	require.Len(t, y, 500)

	X2, y2 := SyntheticDataset(500, 42)
	assert.Equal(t, X, X2)
	assert.Equal(t, y, y2)

	positives := 0
	for i, x := range X {
		require.Len(t, x, len(FeatureNames))
		assert.GreaterOrEqual(t, x[0], 0.0)
		assert.Less(t, x[0], 1.0)
		assert.LessOrEqual(t, x[1], 0.3)
		assert.GreaterOrEqual(t, x[3], 0.0)
		if y[i] {
			positives++
		}
	}
	assert.Greater(t, positives, 0)
	assert.Less(t, positives, len(y))
}

func TestSplitTrainTest(t *testing.T) {
	X, y := SyntheticDataset(100, 7)
	trainX, trainY, testX, testY := splitTrainTest(X, y, 0.2, 7)
	assert.Len(t, trainX, 80)
	assert.Len(t, trainY, 80)
	assert.Len(t, testX, 20)
	assert.Len(t, testY, 20)
}

func TestTrainForestSeparable(t *testing.T) {
	var X [][]float64
	var y []bool
	for i := range 100 {
		x := float64(i) / 100
		X = append(X, []float64{x})
		y = append(y, x > 0.5)
	}

	forest, err := TrainForest(X, y, smallConfig)
	require.NoError(t, err)
	require.NoError(t, forest.validate())

	assert.Greater(t, forest.PredictProba([]float64{0.95}), 0.9)
	assert.Less(t, forest.PredictProba([]float64{0.05}), 0.1)
}

func TestTrainForestInvalidInput(t *testing.T) {
	_, err := TrainForest(nil, nil, smallConfig)
	assert.Error(t, err)

	_, err = TrainForest([][]float64{{1}}, []bool{true, false}, smallConfig)
	assert.Error(t, err)

	_, err = TrainForest([][]float64{{1}}, []bool{true}, Config{})
	assert.Error(t, err)
}

func TestTrain(t *testing.T) {
	m, err := Train(DefaultConfig)
	require.NoError(t, err)

	assert.Len(t, m.Forest.Trees, 100)
	assert.Equal(t, FeatureNames, m.Features)
	assert.Greater(t, m.Accuracy, 0.75)

	label, confidence := m.Classify(copied)
	assert.True(t, label)
	assert.Greater(t, confidence, 0.5)

	label, confidence = m.Classify(unique)
	assert.False(t, label)
	assert.Less(t, confidence, 0.5)
}

func TestTrainIsDeterministic(t *testing.T) {
	a, err := Train(smallConfig)
	require.NoError(t, err)
	b, err := Train(smallConfig)
	require.NoError(t, err)

	assert.Equal(t, a.Forest, b.Forest)
	assert.Equal(t, a.Accuracy, b.Accuracy)
}

func TestSaveLoad(t *testing.T) {
	m, err := Train(smallConfig)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "models", "classifier.json")
	require.NoError(t, m.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, m.Forest, loaded.Forest)

	for _, in := range []models.ClassifierInput{copied, unique} {
		wantLabel, wantConf := m.Classify(in)
		gotLabel, gotConf := loaded.Classify(in)
		assert.Equal(t, wantLabel, gotLabel)
		assert.Equal(t, wantConf, gotConf)
	}
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"not json", "{oops"},
		{"wrong version", `{"version": 9, "features": [], "forest": {}}`},
		{"missing forest", `{"version": 1, "features": ["tfidf_similarity","hash_similarity","import_similarity","structure_difference","keyword_similarity"]}`},
		{"bad child index", `{"version": 1, "features": ["tfidf_similarity","hash_similarity","import_similarity","structure_difference","keyword_similarity"],
			"forest": {"numFeatures": 5, "trees": [{"nodes": [{"leaf": false, "feature": 1, "left": 0, "right": 3}]}]}}`},
		{"feature beyond input", `{"version": 1, "features": ["tfidf_similarity","hash_similarity","import_similarity","structure_difference","keyword_similarity"],
			"forest": {"numFeatures": 8, "trees": [{"nodes": [{"leaf": false, "feature": 7, "threshold": 0.5, "left": 1, "right": 2}, {"leaf": true}, {"leaf": true, "positive": 1}]}]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := Load(path)
			assert.ErrorIs(t, err, ErrInvalidModel)
		})
	}
}

func TestHandleTrainsAndSaves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classifier.json")
	h := NewHandle(path, smallConfig)

	label, confidence, err := h.Classify(copied)
	require.NoError(t, err)
	assert.True(t, label)
	assert.Greater(t, confidence, 0.5)
	assert.FileExists(t, path)

	// a second handle reuses the saved model
	other := NewHandle(path, smallConfig)
	m, err := other.Model()
	require.NoError(t, err)

	first, err := h.Model()
	require.NoError(t, err)
	assert.Equal(t, first.Forest, m.Forest)
}

func TestHandleRetrainsCorruptModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classifier.json")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))

	h := NewHandle(path, smallConfig)
	m, err := h.Model()
	require.NoError(t, err)
	assert.NotNil(t, m.Forest)

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, m.Forest, reloaded.Forest)
}

func TestHandleWithoutPath(t *testing.T) {
	h := NewHandle("", smallConfig)
	label, _, err := h.Classify(unique)
	require.NoError(t, err)
	assert.False(t, label)
}
