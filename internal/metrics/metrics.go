// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Recommendation pipeline metrics
	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_requests_total",
			Help: "Total number of recommendation requests by outcome",
		},
		[]string{"outcome"}, // cache_hit, computed, fallback, empty, invalid
	)

	RecommendLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommend_request_duration_seconds",
			Help:    "End-to-end recommendation latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"outcome"},
	)

	RecommendStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommend_stage_duration_seconds",
			Help:    "Duration of individual pipeline stages in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"stage"}, // user_context, generate, fuse, score, rerank
	)

	RecommendPoolSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommend_candidate_pool_size",
			Help:    "Number of candidates entering the scoring stage",
			Buckets: []float64{0, 5, 10, 20, 50, 100, 200, 400, 800},
		},
	)

	RecommendFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_fallbacks_total",
			Help: "Total number of trending fallbacks by reason",
		},
		[]string{"reason"}, // timeout, error
	)

	RecommendCacheOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_cache_operations_total",
			Help: "Recommendation cache operations by result",
		},
		[]string{"operation", "result"}, // get: hit/miss/error, put: ok/error, invalidate: ok/error
	)

	RecommendCacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "recommend_cache_entries",
			Help: "Entries held by the in-memory recommendation cache by state",
		},
		[]string{"state"}, // fresh, stale
	)

	RecommendCacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_cache_evictions_total",
			Help: "Entries removed from the in-memory recommendation cache",
		},
		[]string{"reason"}, // stale, capacity
	)

	// Candidate retrieval metrics
	SourceRetrievals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_source_retrievals_total",
			Help: "Per-model candidate retrievals by outcome",
		},
		[]string{"model", "outcome"}, // ok, empty, error, timeout
	)

	SourceRetrievalDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommend_source_retrieval_duration_seconds",
			Help:    "Per-model candidate retrieval latency in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"model"},
	)

	TrendingFills = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommend_trending_fills_total",
			Help: "Requests whose candidate pool was topped up with trending articles",
		},
	)

	// Embedding snapshot metrics
	EmbeddingSnapshotLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embedding_snapshot_loads_total",
			Help: "Embedding snapshot load attempts by result",
		},
		[]string{"result"}, // loaded, unchanged, error
	)

	EmbeddingsLoaded = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "embeddings_loaded",
			Help: "Active embeddings held in memory by model and entity type",
		},
		[]string{"model", "entity_type"},
	)

	EmbeddingsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embeddings_rejected_total",
			Help: "Stored embeddings dropped on read because the vector length does not match the dimension",
		},
		[]string{"backend", "model"},
	)

	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of store queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_query_errors_total",
			Help: "Total number of store query errors",
		},
		[]string{"backend", "operation"},
	)

	StoreRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_retries_total",
			Help: "Retries issued at the store I/O boundary",
		},
		[]string{"target"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // success, failure, rejected
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current consecutive failures seen by the circuit breaker",
		},
		[]string{"name"},
	)

	// Interaction event metrics
	InteractionEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interaction_events_total",
			Help: "Interaction events consumed by result",
		},
		[]string{"result"}, // invalidated, ignored, duplicate, malformed, error
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordDBQuery records a store query metric.
func RecordDBQuery(backend, operation string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(backend, operation).Inc()
	}
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordSourceRetrieval records one per-model retrieval.
func RecordSourceRetrieval(model, outcome string, duration time.Duration) {
	SourceRetrievals.WithLabelValues(model, outcome).Inc()
	SourceRetrievalDuration.WithLabelValues(model).Observe(duration.Seconds())
}
