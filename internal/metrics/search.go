package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Federated search metrics.
var (
	SearchCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_cache_total",
			Help:      "Search page cache lookups",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	SearchUpstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_upstream_duration_seconds",
			Help:      "Search engine query duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"outcome"}, // "ok" / "error"
	)

	SearchCollectionErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_collection_errors_total",
			Help:      "Collections that failed inside a federated search",
		},
	)
)

// Ingestion metrics.
var (
	IngestRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_records_total",
			Help:      "Uploaded records by outcome",
		},
		[]string{"format", "outcome"}, // outcome: "inserted" / "failed"
	)

	IngestBatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_batches_total",
			Help:      "Batch writes by outcome",
		},
		[]string{"format", "status"}, // status: "ok" / "partial" / "error"
	)

	IngestBatchesInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ingest_batches_in_flight",
			Help:      "Batch writes currently in flight across all jobs",
		},
	)

	IngestJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_jobs_total",
			Help:      "Finished ingestion jobs by terminal state",
		},
		[]string{"format", "state"},
	)
)

var registerOnce sync.Once

// RegisterDomainMetrics registers search and ingestion collectors. Safe to call more than once.
func RegisterDomainMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			SearchCacheTotal,
			SearchUpstreamDuration,
			SearchCollectionErrorsTotal,
			IngestRecordsTotal,
			IngestBatchesTotal,
			IngestBatchesInFlight,
			IngestJobsTotal,
		)
	})
}
