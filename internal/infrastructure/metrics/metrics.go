// Package metrics exposes Prometheus collectors for the discovery pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Discovery metrics
	DiscoveryRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "productlens_discovery_requests_total",
			Help: "Total number of discovery requests by outcome",
		},
		[]string{"outcome"},
	)

	DiscoveryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "productlens_discovery_duration_seconds",
			Help:    "Discovery request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		},
	)

	CandidateOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "productlens_candidate_outcomes_total",
			Help: "Candidates resolved, by source tier and extraction strategy",
		},
		[]string{"source_tier", "strategy"},
	)

	// Provider metrics
	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "productlens_provider_calls_total",
			Help: "Search provider calls by tier kind and status",
		},
		[]string{"tier", "status"},
	)

	ProviderCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "productlens_provider_call_duration_seconds",
			Help:    "Search provider call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tier"},
	)

	HitsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "productlens_hits_rejected_total",
			Help: "Provider hits rejected by the result filter, by reason",
		},
		[]string{"reason"},
	)

	// Cache metrics
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "productlens_cache_lookups_total",
			Help: "Response cache lookups by result",
		},
		[]string{"result"},
	)

	CacheTokensSaved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "productlens_cache_tokens_saved_total",
			Help: "Estimated upstream tokens saved by response cache hits",
		},
	)
)
