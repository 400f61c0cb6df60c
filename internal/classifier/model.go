package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/RishiKendai/codenest/internal/models"
)

const (
	modelVersion = 1

	trainingSamples = 1000
	testFraction    = 0.2
)

var ErrInvalidModel = errors.New("invalid model file")

// Model is a trained forest plus the metadata needed to reload it
type Model struct {
	Version   int       `json:"version"`
	Features  []string  `json:"features"`
	Config    Config    `json:"config"`
	Accuracy  float64   `json:"accuracy"`
	TrainedAt time.Time `json:"trainedAt"`
	Forest    *Forest   `json:"forest"`
}

// Train fits a model on the synthetic dataset and reports held-out accuracy
func Train(cfg Config) (*Model, error) {
	start := time.Now()

	X, y := SyntheticDataset(trainingSamples, cfg.Seed)
	trainX, trainY, testX, testY := splitTrainTest(X, y, testFraction, cfg.Seed)

	forest, err := TrainForest(trainX, trainY, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to train forest: %w", err)
	}

	m := &Model{
		Version:   modelVersion,
		Features:  slices.Clone(FeatureNames),
		Config:    cfg,
		TrainedAt: time.Now().UTC(),
		Forest:    forest,
	}
	m.Accuracy = m.accuracy(testX, testY)

	log.Info().
		Int("trees", cfg.Trees).
		Int("trainSamples", len(trainX)).
		Int("testSamples", len(testX)).
		Float64("accuracy", m.Accuracy).
		Dur("duration", time.Since(start)).
		Msg("Classifier trained")

	return m, nil
}

func (m *Model) accuracy(X [][]float64, y []bool) float64 {
	if len(X) == 0 {
		return 0
	}
	correct := 0
	for i, x := range X {
		if (m.Forest.PredictProba(x) > 0.5) == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(X))
}

// Classify returns the predicted label and the positive-class probability
func (m *Model) Classify(in models.ClassifierInput) (bool, float64) {
	confidence := m.Forest.PredictProba(in.Vector())
	return confidence > 0.5, confidence
}

// Save writes the model as JSON, replacing any existing file atomically
func (m *Model) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal model: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".model-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp model file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write model: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace model file: %w", err)
	}
	return nil
}

// Load reads a model saved by Save
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}
	if m.Version != modelVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidModel, m.Version)
	}
	if !slices.Equal(m.Features, FeatureNames) {
		return nil, fmt.Errorf("%w: feature columns %v", ErrInvalidModel, m.Features)
	}
	if m.Forest == nil {
		return nil, fmt.Errorf("%w: missing forest", ErrInvalidModel)
	}
	if m.Forest.NumFeatures != len(FeatureNames) {
		return nil, fmt.Errorf("%w: forest expects %d features, have %d", ErrInvalidModel, m.Forest.NumFeatures, len(FeatureNames))
	}
	if err := m.Forest.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}
	return &m, nil
}
