// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package api

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/recserve/internal/recommend"
)

// Recommender is the engine surface the handlers need.
type Recommender interface {
	GetRecommendations(ctx context.Context, req recommend.Request) (*recommend.RecommendationResult, error)
	Invalidate(ctx context.Context, userID string) error
	Stats() recommend.Stats
}

// HealthCheck is one named dependency probe.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Handler serves the HTTP API.
type Handler struct {
	recommender  Recommender
	checks       []HealthCheck
	version      string
	startTime    time.Time
	checkTimeout time.Duration
	logger       zerolog.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithHealthChecks registers dependency probes for /api/v1/health.
func WithHealthChecks(checks ...HealthCheck) HandlerOption {
	return func(h *Handler) { h.checks = append(h.checks, checks...) }
}

// WithVersion sets the version reported by health responses.
func WithVersion(version string) HandlerOption {
	return func(h *Handler) { h.version = version }
}

// NewHandler creates the API handler.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewHandler(recommender Recommender, logger zerolog.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		recommender:  recommender,
		version:      "dev",
		startTime:    time.Now(),
		checkTimeout: 2 * time.Second,
		logger:       logger.With().Str("component", "api").Logger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}
