// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

/*
Package middleware provides HTTP middleware shared by the API router.

  - RequestID: propagates X-Request-ID into the logging context
  - PrometheusMetrics: request counts, durations and in-flight gauge,
    labelled by chi route pattern

Both are chi-compatible (func(http.Handler) http.Handler):

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
*/
package middleware
