package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/RishiKendai/codenest/internal/config"
	"github.com/RishiKendai/codenest/internal/features"
	"github.com/RishiKendai/codenest/internal/models"
	"github.com/RishiKendai/codenest/internal/plagiarism"
)

// BatchRunner runs a batch job end to end
type BatchRunner interface {
	Run(ctx context.Context, job *models.BatchJob) (*models.BatchReport, error)
}

// ReportReader loads stored batch reports and comparison records
type ReportReader interface {
	GetLatestReportByBatchID(ctx context.Context, batchID string) (*models.BatchReport, error)
	GetComparisonsByBatchID(ctx context.Context, batchID string) ([]models.ComparisonRecord, error)
}

// StatusStore reads and writes the batch progress step
type StatusStore interface {
	UpdateStatus(ctx context.Context, batchID string, step models.Step) error
	GetStatus(ctx context.Context, batchID string) (models.Step, error)
}

// Handler holds dependencies for handlers
type Handler struct {
	cfg            *config.Config
	runner         BatchRunner
	reports        ReportReader
	status         StatusStore
	classifier     plagiarism.Classifier
	computeSem     chan struct{} // Semaphore for bounded concurrency
	computeTimeout time.Duration
	inflight       sync.WaitGroup
	baseCtx        context.Context
	stop           context.CancelFunc
}

// NewHandler creates a new handler. classifier may be nil.
func NewHandler(
	cfg *config.Config,
	runner BatchRunner,
	reports ReportReader,
	status StatusStore,
	classifier plagiarism.Classifier,
) *Handler {
	// Create semaphore for bounded concurrency
	sem := make(chan struct{}, cfg.MaxConcurrentCompute)
	baseCtx, stop := context.WithCancel(context.Background())

	return &Handler{
		cfg:            cfg,
		runner:         runner,
		reports:        reports,
		status:         status,
		classifier:     classifier,
		computeSem:     sem,
		computeTimeout: cfg.ComputationTimeout,
		baseCtx:        baseCtx,
		stop:           stop,
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}

func (h *Handler) Compute(c *gin.Context) {
	var job models.BatchJob
	if err := c.ShouldBindJSON(&job); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	// Input validation
	if err := job.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_BATCH",
		})
		return
	}

	ctx := c.Request.Context()

	// A completed batch is only recomputed on request
	if c.Query("force") != "true" {
		latest, err := h.reports.GetLatestReportByBatchID(ctx, job.BatchID)
		if err != nil {
			log.Error().Err(err).Str("batchId", job.BatchID).Msg("Failed to get latest report")
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error: "Failed to check computation status",
				Code:  "INTERNAL_ERROR",
			})
			return
		}
		if latest != nil && latest.Status == plagiarism.ReportCompleted {
			c.JSON(http.StatusOK, models.ComputeResponse{
				Step:    models.StepCompleted,
				BatchID: job.BatchID,
			})
			return
		}
	}

	// Acquire semaphore (bounded concurrency)
	select {
	case h.computeSem <- struct{}{}:
	case <-ctx.Done():
		c.JSON(http.StatusRequestTimeout, models.ErrorResponse{
			Error: "Request cancelled",
			Code:  "REQUEST_TIMEOUT",
		})
		return
	}

	if err := h.status.UpdateStatus(ctx, job.BatchID, models.StepInitiated); err != nil {
		log.Warn().Err(err).Str("batchId", job.BatchID).Msg("Failed to update initiated status")
	}

	// Return 202 Accepted immediately
	c.JSON(http.StatusAccepted, models.ComputeResponse{
		Step:    models.StepInitiated,
		BatchID: job.BatchID,
	})

	h.inflight.Add(1)
	go h.processComputation(&job)
}

// processComputation runs the batch asynchronously
func (h *Handler) processComputation(job *models.BatchJob) {
	defer h.inflight.Done()
	defer func() { <-h.computeSem }() // Release semaphore

	ctx, cancel := context.WithTimeout(h.baseCtx, h.computeTimeout)
	defer cancel()

	// the pipeline records the failed state itself
	if _, err := h.runner.Run(ctx, job); err != nil {
		log.Error().Err(err).Str("batchId", job.BatchID).Msg("Computation failed")
		return
	}

	log.Debug().Str("batchId", job.BatchID).Msg("Computation completed successfully")
}

// Wait blocks until every accepted computation has finished
func (h *Handler) Wait() {
	h.inflight.Wait()
}

// Stop cancels running computations and waits for them to exit
func (h *Handler) Stop() {
	h.stop()
	h.inflight.Wait()
}

func (h *Handler) GetReport(c *gin.Context) {
	batchID := c.Param("batchId")

	report, err := h.reports.GetLatestReportByBatchID(c.Request.Context(), batchID)
	if err != nil {
		log.Error().Err(err).Str("batchId", batchID).Msg("Failed to get report")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: "Failed to load report",
			Code:  "INTERNAL_ERROR",
		})
		return
	}
	if report == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: "No report found for batchId",
			Code:  "REPORT_NOT_FOUND",
		})
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetComparisons lists every stored comparison record of a batch, optionally
// only the flagged ones
func (h *Handler) GetComparisons(c *gin.Context) {
	batchID := c.Param("batchId")
	flaggedOnly := c.Query("flagged") == "true"

	records, err := h.reports.GetComparisonsByBatchID(c.Request.Context(), batchID)
	if err != nil {
		log.Error().Err(err).Str("batchId", batchID).Msg("Failed to get comparisons")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: "Failed to load comparisons",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	out := make([]models.ComparisonRecord, 0, len(records))
	for _, r := range records {
		if flaggedOnly && !r.IsPlagiarized {
			continue
		}
		out = append(out, r)
	}

	c.JSON(http.StatusOK, models.ComparisonsResponse{
		BatchID:     batchID,
		Count:       len(out),
		Comparisons: out,
	})
}

func (h *Handler) GetStatus(c *gin.Context) {
	batchID := c.Param("batchId")

	step, err := h.status.GetStatus(c.Request.Context(), batchID)
	if err != nil {
		log.Error().Err(err).Str("batchId", batchID).Msg("Failed to get status")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: "Failed to load status",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, models.StatusResponse{BatchID: batchID, Step: step})
}

// Compare scores two project directories directly, outside any batch
func (h *Handler) Compare(c *gin.Context) {
	var req models.CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.computeTimeout)
	defer cancel()

	select {
	case h.computeSem <- struct{}{}:
		defer func() { <-h.computeSem }()
	case <-ctx.Done():
		c.JSON(http.StatusRequestTimeout, models.ErrorResponse{
			Error: "Request cancelled",
			Code:  "REQUEST_TIMEOUT",
		})
		return
	}

	opts := h.cfg.FeatureOptions()
	bundleA, err := features.ExtractFeatures(ctx, "projectA", req.ProjectA, opts)
	if err != nil {
		h.extractionError(c, req.ProjectA, err)
		return
	}
	bundleB, err := features.ExtractFeatures(ctx, "projectB", req.ProjectB, opts)
	if err != nil {
		h.extractionError(c, req.ProjectB, err)
		return
	}

	signals := plagiarism.Compare(bundleA, bundleB)
	resp := models.CompareResponse{
		ProjectA:      req.ProjectA,
		ProjectB:      req.ProjectB,
		Signals:       signals,
		IsPlagiarized: plagiarism.IsPlagiarized(signals.Overall),
		RiskLevel:     plagiarism.GetRiskLevel(signals.Overall),
	}
	if h.classifier != nil {
		if label, confidence, err := h.classifier.Classify(signals.ClassifierInput()); err == nil {
			resp.ClassifierLabel = &label
			resp.ClassifierConfidence = &confidence
		} else {
			log.Warn().Err(err).Msg("Classifier unavailable for direct comparison")
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) extractionError(c *gin.Context, path string, err error) {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		c.JSON(http.StatusRequestTimeout, models.ErrorResponse{
			Error: "Comparison timed out",
			Code:  "REQUEST_TIMEOUT",
		})
		return
	}
	log.Warn().Err(err).Str("path", path).Msg("Failed to extract project features")
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error: fmt.Sprintf("Cannot read project %s", path),
		Code:  "INVALID_PROJECT_PATH",
	})
}

func (h *Handler) Classify(c *gin.Context) {
	if h.classifier == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Error: "Classifier is not configured",
			Code:  "CLASSIFIER_UNAVAILABLE",
		})
		return
	}

	var in models.ClassifierInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}
	if err := validateClassifierInput(in); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_FEATURES",
		})
		return
	}

	label, confidence, err := h.classifier.Classify(in)
	if err != nil {
		log.Error().Err(err).Msg("Classification failed")
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Error: "Classifier is not available",
			Code:  "CLASSIFIER_UNAVAILABLE",
		})
		return
	}

	c.JSON(http.StatusOK, models.ClassifyResponse{
		IsPlagiarized: label,
		Confidence:    confidence,
	})
}

func validateClassifierInput(in models.ClassifierInput) error {
	ratios := map[string]float64{
		"tfidf_similarity":   in.Content,
		"hash_similarity":    in.Hash,
		"import_similarity":  in.Import,
		"keyword_similarity": in.Keyword,
	}
	for name, v := range ratios {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be between 0 and 1", name)
		}
	}
	if in.StructureDifference < 0 {
		return fmt.Errorf("structure_difference must not be negative")
	}
	return nil
}
