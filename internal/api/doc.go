// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

/*
Package api exposes the recommendation engine over HTTP using the Chi router.

# Endpoints

	GET    /api/v1/recommendations/{userID}        query: limit, categories, exclude_read, diversity_weight
	POST   /api/v1/recommendations                 body: {user_id, limit, categories, exclude_read, diversity_weight}
	DELETE /api/v1/recommendations/{userID}/cache  invalidate the user's cached result
	GET    /api/v1/health                          dependency checks and engine counters
	GET    /api/v1/health/live                     liveness
	GET    /metrics                                Prometheus exposition

# Response Format

Every JSON response uses one envelope:

	{
	  "status": "success",
	  "data": {...},
	  "metadata": {"timestamp": "...", "query_time_ms": 12, "cached": true},
	  "error": {"code": "VALIDATION_ERROR", "message": "...", "details": {...}}
	}

Out-of-range request values are rejected here with VALIDATION_ERROR. The
engine additionally clamps values it receives from other callers.

# Middleware

Request ID propagation, real IP extraction, panic recovery, CORS
(go-chi/cors), per-IP rate limiting (go-chi/httprate), security headers,
gzip compression and Prometheus request metrics.
*/
package api
