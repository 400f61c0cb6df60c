package plagiarism

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/RishiKendai/codenest/internal/metrics"
	"github.com/RishiKendai/codenest/internal/models"
)

// Classifier gives a secondary opinion on a pair from a subset of its signals.
type Classifier interface {
	Classify(in models.ClassifierInput) (bool, float64, error)
}

// Engine runs pair comparisons on a worker pool.
type Engine struct {
	workerPool *WorkerPool
	classifier Classifier
}

// NewEngine creates an engine. classifier may be nil, in which case records
// carry no classifier opinion.
func NewEngine(workerPool *WorkerPool, classifier Classifier) *Engine {
	return &Engine{
		workerPool: workerPool,
		classifier: classifier,
	}
}

// Pair represents a pair of bundles to compare, by position in the batch
type Pair struct {
	IndexA  int
	IndexB  int
	BundleA *models.FeatureBundle
	BundleB *models.FeatureBundle
}

// AllPairs enumerates every unordered pair (i, j), i < j, in input order
func AllPairs(bundles []*models.FeatureBundle) []Pair {
	n := len(bundles)
	pairs := make([]Pair, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, Pair{IndexA: i, IndexB: j, BundleA: bundles[i], BundleB: bundles[j]})
		}
	}
	return pairs
}

// ComparisonJob represents a job for the worker pool
type ComparisonJob struct {
	Pair       Pair
	Engine     *Engine
	ResultChan chan<- models.ComparisonRecord
}

// Execute executes the comparison job
func (j *ComparisonJob) Execute(ctx context.Context) error {
	record := j.Engine.ComparePair(j.Pair)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case j.ResultChan <- record:
		return nil
	}
}

// ComparePair scores one pair. A failure, including a panic, yields an
// error record with zero scores instead of propagating.
func (e *Engine) ComparePair(pair Pair) (record models.ComparisonRecord) {
	start := time.Now()
	record = models.ComparisonRecord{
		IndexA:    pair.IndexA,
		IndexB:    pair.IndexB,
		ProjectA:  projectID(pair.BundleA, pair.IndexA),
		ProjectB:  projectID(pair.BundleB, pair.IndexB),
		Status:    models.ComparisonOK,
		CreatedAt: start.UTC(),
	}

	defer func() {
		if r := recover(); r != nil {
			record = errorRecord(record, fmt.Errorf("panic during comparison: %v", r))
		}
		metrics.ComparisonCount.WithLabelValues(record.Status).Inc()
		metrics.ComparisonDuration.Observe(time.Since(start).Seconds())
	}()

	if pair.BundleA == nil || pair.BundleB == nil {
		return errorRecord(record, fmt.Errorf("missing feature bundle"))
	}

	record.Signals = Compare(pair.BundleA, pair.BundleB)
	record.IsPlagiarized = IsPlagiarized(record.Signals.Overall)

	if e.classifier != nil {
		label, confidence, err := classify(e.classifier, record.Signals.ClassifierInput())
		if err != nil {
			log.Warn().Err(err).
				Str("projectA", record.ProjectA).
				Str("projectB", record.ProjectB).
				Msg("Classifier unavailable, keeping deterministic verdict only")
		} else {
			record.ClassifierLabel = &label
			record.ClassifierConfidence = &confidence
		}
	}

	return record
}

// classify turns a classifier panic into an error so the opinion can be
// dropped without touching the deterministic scores
func classify(clf Classifier, in models.ClassifierInput) (label bool, confidence float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			label, confidence = false, 0
			err = fmt.Errorf("classifier panicked: %v", r)
		}
	}()
	return clf.Classify(in)
}

func errorRecord(record models.ComparisonRecord, err error) models.ComparisonRecord {
	log.Error().Err(err).
		Str("projectA", record.ProjectA).
		Str("projectB", record.ProjectB).
		Msg("Pair comparison failed")

	record.Signals = models.SignalVector{}
	record.IsPlagiarized = false
	record.ClassifierLabel = nil
	record.ClassifierConfidence = nil
	record.Status = models.ComparisonError
	record.Error = err.Error()
	return record
}

func projectID(b *models.FeatureBundle, index int) string {
	if b == nil || b.ProjectID == "" {
		return fmt.Sprintf("project-%d", index)
	}
	return b.ProjectID
}

// CompareBatch compares every unordered pair of bundles on the worker pool.
// Records are returned sorted by (IndexA, IndexB). A failing pair produces an
// error record and the batch continues; only cancellation of ctx aborts it.
func (e *Engine) CompareBatch(ctx context.Context, bundles []*models.FeatureBundle) ([]models.ComparisonRecord, error) {
	pairs := AllPairs(bundles)
	if len(pairs) == 0 {
		return []models.ComparisonRecord{}, nil
	}

	resultChan := make(chan models.ComparisonRecord, len(pairs))

	// Submit all jobs
	submitted := 0
	for _, pair := range pairs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		job := &ComparisonJob{
			Pair:       pair,
			Engine:     e,
			ResultChan: resultChan,
		}
		if err := e.workerPool.Submit(job); err != nil {
			return nil, fmt.Errorf("failed to submit comparison job: %w", err)
		}
		submitted++
	}

	// Collect results as jobs complete
	records := make([]models.ComparisonRecord, 0, submitted)
	for len(records) < submitted {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case record := <-resultChan:
			records = append(records, record)
		}
	}

	slices.SortFunc(records, func(a, b models.ComparisonRecord) int {
		if a.IndexA != b.IndexA {
			return a.IndexA - b.IndexA
		}
		return a.IndexB - b.IndexB
	})

	log.Debug().
		Int("projects", len(bundles)).
		Int("pairs", len(records)).
		Msg("Batch comparison finished")

	return records, nil
}
