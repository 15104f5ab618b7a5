// Package metrics provides Prometheus instrumentation for the batch
// processor.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DocumentsProcessedTotal counts finished document tasks by outcome.
	DocumentsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "documents_processed_total",
			Help: "Total number of document tasks by outcome.",
		},
		[]string{"status"}, // "success", "read_error", "completion_error", "write_error"
	)

	// CompletionLatency tracks end-to-end completion latency in seconds.
	CompletionLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "completion_latency_seconds",
			Help:    "End-to-end completion call latency in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider", "model", "cache_status"},
	)

	// CompletionRetriesTotal counts retry attempts beyond the first call.
	CompletionRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "completion_retries_total",
			Help: "Total number of completion retry attempts.",
		},
	)

	// TokenUsageTotal tracks the total number of tokens consumed.
	TokenUsageTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_usage_total",
			Help: "Total number of tokens consumed.",
		},
		[]string{"provider", "model", "direction"}, // direction: "input" or "output"
	)

	// ActiveWorkers tracks the number of workers currently processing a
	// document.
	ActiveWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_workers",
			Help: "Number of workers currently processing a document.",
		},
	)

	// CacheHitsTotal tracks the total number of response cache hits.
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of response cache hits.",
		},
	)

	// CacheLookupsTotal tracks the total number of response cache lookups.
	CacheLookupsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Total number of response cache lookups.",
		},
	)

	// CircuitBreakerState tracks the breaker state per provider.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state: 0=closed, 1=open, 2=half-open.",
		},
		[]string{"provider"},
	)
)

// RecordCacheLookup records one response cache lookup.
func RecordCacheLookup(hit bool) {
	CacheLookupsTotal.Inc()
	if hit {
		CacheHitsTotal.Inc()
	}
}
