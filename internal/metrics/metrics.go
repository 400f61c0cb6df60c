package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// FilesProcessed counts recognized source files by language
	FilesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codenest_files_processed_total",
			Help: "Total number of recognized source files processed",
		},
		[]string{"language"},
	)

	// ParseFailures counts files whose grammar-aware parse failed
	ParseFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codenest_parse_failures_total",
			Help: "Total number of source files that could not be parsed",
		},
		[]string{"language"},
	)

	// UnreadableFiles counts files skipped because of I/O or decoding errors
	UnreadableFiles = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "codenest_unreadable_files_total",
			Help: "Total number of source files whose content could not be read",
		},
	)

	// ComparisonCount counts pair comparisons
	ComparisonCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codenest_comparisons_total",
			Help: "Total number of project pair comparisons",
		},
		[]string{"status"},
	)

	// ComparisonDuration measures single pair comparison duration
	ComparisonDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "codenest_comparison_duration_seconds",
			Help:    "Project pair comparison duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
	)

	// BatchDuration measures full batch pipeline duration
	BatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codenest_batch_duration_seconds",
			Help:    "Batch pipeline duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	// BusyWorkers is the number of comparison workers running a job
	BusyWorkers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "codenest_busy_workers",
			Help: "Number of comparison workers currently running a job",
		},
	)

	// StreamMessages counts batch messages handled by the stream consumer
	StreamMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codenest_stream_messages_total",
			Help: "Total number of batch messages consumed from the Redis stream",
		},
		[]string{"outcome"},
	)
)

var registerOnce sync.Once

// InitPrometheus registers all collectors with the default registry.
// Collectors work unregistered too, which keeps library use and tests free of globals.
func InitPrometheus() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			FilesProcessed,
			ParseFailures,
			UnreadableFiles,
			ComparisonCount,
			ComparisonDuration,
			BatchDuration,
			BusyWorkers,
			StreamMessages,
		)
	})
}
