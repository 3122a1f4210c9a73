// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/recserve/internal/middleware"
)

// NewRouter wires the handlers into a Chi router.
func NewRouter(h *Handler, mw *ChiMiddleware) http.Handler {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.ContextLogger(h.logger))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(mw.CORS()) // global so OPTIONS preflight is answered
	r.Use(chimiddleware.Compress(5, "application/json"))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "Resource not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed", nil)
	})

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(mw.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/", h.Health)
		r.Get("/live", h.Live)
	})

	r.Route("/api/v1/recommendations", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)

		r.Group(func(r chi.Router) {
			r.Use(mw.RateLimit())
			r.Post("/", h.PostRecommendations)
			r.Get("/{userID}", h.GetRecommendations)
		})
		r.With(mw.RateLimitInvalidate()).Delete("/{userID}/cache", h.InvalidateRecommendations)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
