// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

/*
Package metrics provides Prometheus metrics for the recommendation service.

Metrics are registered with the default registry through promauto and exposed
at /metrics in Prometheus text format:

	curl http://localhost:8080/metrics

# Available Metrics

Pipeline:
  - recommend_requests_total{outcome}: requests by outcome
  - recommend_request_duration_seconds{outcome}: end-to-end latency
  - recommend_stage_duration_seconds{stage}: per-stage latency
  - recommend_candidate_pool_size: candidates entering scoring
  - recommend_fallbacks_total{reason}: trending fallbacks
  - recommend_source_retrievals_total{model,outcome}: per-model retrievals
  - recommend_trending_fills_total: pools topped up from trending

Cache:
  - recommend_cache_operations_total{operation,result}
  - recommend_cache_entries{state}
  - recommend_cache_evictions_total{reason}

Stores and resilience:
  - db_query_duration_seconds{backend,operation}
  - db_query_errors_total{backend,operation}
  - store_retries_total{target}
  - circuit_breaker_state{name}, circuit_breaker_requests_total{name,result},
    circuit_breaker_state_transitions_total{name,from_state,to_state}

HTTP:
  - api_requests_total{method,endpoint,status_code}
  - api_request_duration_seconds{method,endpoint}
  - api_active_requests
  - api_rate_limit_hits_total{endpoint}

Events and embeddings:
  - interaction_events_total{result}
  - embedding_snapshot_loads_total{result}
  - embeddings_loaded{model,entity_type}
*/
package metrics
