package classifier

import (
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/RishiKendai/codenest/internal/models"
)

// Handle gives the comparison engine shared access to a model that is
// loaded from disk, or trained, on first use. A failed attempt is retried
// on the next call.
type Handle struct {
	path string
	cfg  Config

	mu    sync.Mutex
	model *Model
}

func NewHandle(path string, cfg Config) *Handle {
	return &Handle{path: path, cfg: cfg}
}

// Model returns the ready model, loading or training it if needed
func (h *Handle) Model() (*Model, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.model != nil {
		return h.model, nil
	}

	if h.path != "" {
		m, err := Load(h.path)
		if err == nil {
			log.Info().Str("path", h.path).Float64("accuracy", m.Accuracy).Msg("Classifier model loaded")
			h.model = m
			return m, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn().Err(err).Str("path", h.path).Msg("Failed to load classifier model, retraining")
		}
	}

	m, err := Train(h.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare classifier: %w", err)
	}
	h.model = m

	if h.path != "" {
		if err := m.Save(h.path); err != nil {
			log.Warn().Err(err).Str("path", h.path).Msg("Failed to save classifier model")
		} else {
			log.Info().Str("path", h.path).Msg("Classifier model saved")
		}
	}

	return m, nil
}

// Classify implements the engine's Classifier
func (h *Handle) Classify(in models.ClassifierInput) (bool, float64, error) {
	m, err := h.Model()
	if err != nil {
		return false, 0, err
	}
	label, confidence := m.Classify(in)
	return label, confidence, nil
}
