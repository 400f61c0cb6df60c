package plagiarism

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/RishiKendai/codenest/internal/metrics"
	"github.com/RishiKendai/codenest/internal/models"
)

// ErrNotRetryable marks a batch failure that running the job again cannot
// fix, such as a rejected job or one whose work directory is already gone.
var ErrNotRetryable = errors.New("batch cannot be retried")

// Extractor turns the projects of a batch into feature bundles, in job order
type Extractor interface {
	ExtractBatch(ctx context.Context, job *models.BatchJob) ([]*models.FeatureBundle, error)
}

// RecordStore persists comparison records and reports
type RecordStore interface {
	SaveComparisons(ctx context.Context, batchID string, records []models.ComparisonRecord) error
	SaveReport(ctx context.Context, report *models.BatchReport) error
}

// StatusTracker records the progress step of a batch
type StatusTracker interface {
	UpdateStatus(ctx context.Context, batchID string, step models.Step) error
}

// Pipeline runs a batch end to end: extraction, all-pairs comparison and report.
type Pipeline struct {
	extractor Extractor
	engine    *Engine
	records   RecordStore
	status    StatusTracker
}

// NewPipeline wires a pipeline. records and status may be nil.
func NewPipeline(extractor Extractor, engine *Engine, records RecordStore, status StatusTracker) *Pipeline {
	return &Pipeline{
		extractor: extractor,
		engine:    engine,
		records:   records,
		status:    status,
	}
}

// Run processes the batch and returns its report. A job's WorkDir is removed
// when Run returns; failures after that point wrap ErrNotRetryable.
func (p *Pipeline) Run(ctx context.Context, job *models.BatchJob) (*models.BatchReport, error) {
	start := time.Now()
	defer p.removeWorkDir(job)

	report, err := p.run(ctx, job)
	if err != nil {
		metrics.BatchDuration.WithLabelValues(ReportFailed).Observe(time.Since(start).Seconds())
		p.fail(job, err)
		if job.WorkDir != "" && !errors.Is(err, ErrNotRetryable) {
			err = fmt.Errorf("%w: %w", ErrNotRetryable, err)
		}
		return nil, err
	}

	metrics.BatchDuration.WithLabelValues(ReportCompleted).Observe(time.Since(start).Seconds())
	log.Info().
		Str("batchId", job.BatchID).
		Int("projects", report.TotalProjects).
		Int("comparisons", report.TotalComparisons).
		Int("flagged", report.FlaggedProjects).
		Float64("plagiarismPercentage", report.PlagiarismPercentage).
		Dur("duration", time.Since(start)).
		Msg("Batch completed successfully")

	return report, nil
}

func (p *Pipeline) run(ctx context.Context, job *models.BatchJob) (*models.BatchReport, error) {
	if err := job.Validate(); err != nil {
		return nil, fmt.Errorf("%w: invalid batch job: %w", ErrNotRetryable, err)
	}

	p.updateStatus(ctx, job.BatchID, models.StepExtracting)
	bundles, err := p.extractor.ExtractBatch(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("failed to extract features: %w", err)
	}

	p.updateStatus(ctx, job.BatchID, models.StepComparing)
	records, err := p.engine.CompareBatch(ctx, bundles)
	if err != nil {
		return nil, fmt.Errorf("failed to compare projects: %w", err)
	}
	for i := range records {
		records[i].BatchID = job.BatchID
	}

	report := BuildReport(*job, bundles, records)

	if p.records != nil {
		if err := p.records.SaveComparisons(ctx, job.BatchID, records); err != nil {
			return nil, fmt.Errorf("failed to store comparison records: %w", err)
		}
		if err := p.records.SaveReport(ctx, report); err != nil {
			return nil, fmt.Errorf("failed to store batch report: %w", err)
		}
	}

	p.updateStatus(ctx, job.BatchID, models.StepCompleted)
	return report, nil
}

// fail records the failed state; the batch context may already be done
func (p *Pipeline) fail(job *models.BatchJob, cause error) {
	log.Error().Err(cause).Str("batchId", job.BatchID).Msg("Batch failed")
	if job.BatchID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	p.updateStatus(ctx, job.BatchID, models.StepFailed)
	if p.records == nil {
		return
	}

	report := &models.BatchReport{
		BatchID:     job.BatchID,
		Name:        job.Name,
		Topic:       job.Topic,
		Status:      ReportFailed,
		Error:       cause.Error(),
		Comparisons: []models.ComparisonRecord{},
		Projects:    []models.ProjectSummary{},
		SharedFiles: []models.SharedFile{},
		CreatedAt:   time.Now().UTC(),
	}
	if err := p.records.SaveReport(ctx, report); err != nil {
		log.Error().Err(err).Str("batchId", job.BatchID).Msg("Failed to store failed batch report")
	}
}

// removeWorkDir deletes the job's WorkDir, but only one that passes
// ValidateWorkDir so a malformed job can never point it elsewhere
func (p *Pipeline) removeWorkDir(job *models.BatchJob) {
	if job.WorkDir == "" {
		return
	}
	if err := job.ValidateWorkDir(); err != nil {
		log.Warn().Err(err).Str("batchId", job.BatchID).Msg("Refusing to remove work directory")
		return
	}
	if err := os.RemoveAll(job.WorkDir); err != nil {
		log.Warn().Err(err).
			Str("batchId", job.BatchID).
			Str("workDir", job.WorkDir).
			Msg("Failed to remove work directory")
		return
	}
	log.Debug().Str("batchId", job.BatchID).Str("workDir", job.WorkDir).Msg("Work directory removed")
}

// status is advisory; a Redis outage never fails the batch
func (p *Pipeline) updateStatus(ctx context.Context, batchID string, step models.Step) {
	if p.status == nil {
		return
	}
	if err := p.status.UpdateStatus(ctx, batchID, step); err != nil {
		log.Warn().Err(err).Str("batchId", batchID).Str("step", string(step)).Msg("Failed to update batch status")
	}
}
