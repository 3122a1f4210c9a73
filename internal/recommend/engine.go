// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/recserve/internal/logging"
	"github.com/tomtom215/recserve/internal/metrics"
)

// Request outcomes recorded in metrics and Stats.
const (
	OutcomeCacheHit = "cache_hit"
	OutcomeComputed = "computed"
	OutcomeFallback = "fallback"
	OutcomeEmpty    = "empty"
	OutcomeInvalid  = "invalid"
)

// Dependencies are the collaborators and stages the Engine coordinates.
// Preferences, Interactions and Cache are optional.
type Dependencies struct {
	Generator    CandidateGenerator
	Fuser        Fuser
	Scorer       Scorer
	Reranker     Reranker
	Articles     ArticleStore
	Preferences  PreferenceStore
	Interactions InteractionStore
	Cache        ResultCache
}

// Engine coordinates the recommendation pipeline for one request at a time
// per goroutine. It is safe for concurrent use.
type Engine struct {
	config Config
	deps   Dependencies
	logger zerolog.Logger
	clock  func() time.Time

	inflight singleflight.Group

	requestCount  atomic.Int64
	cacheHits     atomic.Int64
	cacheMisses   atomic.Int64
	cacheErrors   atomic.Int64
	fallbackCount atomic.Int64
	sharedCount   atomic.Int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the wall clock. Tests use it to pin recency and expiry.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// Stats is a snapshot of engine counters.
type Stats struct {
	Requests    int64 `json:"requests"`
	CacheHits   int64 `json:"cache_hits"`
	CacheMisses int64 `json:"cache_misses"`
	CacheErrors int64 `json:"cache_errors"`
	Fallbacks   int64 `json:"fallbacks"`
	SharedRuns  int64 `json:"shared_runs"`
}

// NewEngine validates the configuration and wires the pipeline stages.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg Config, deps Dependencies, logger zerolog.Logger, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	switch {
	case deps.Generator == nil:
		return nil, errors.New("recommend: candidate generator is required")
	case deps.Fuser == nil:
		return nil, errors.New("recommend: feature fuser is required")
	case deps.Scorer == nil:
		return nil, errors.New("recommend: scorer is required")
	case deps.Reranker == nil:
		return nil, errors.New("recommend: reranker is required")
	case deps.Articles == nil:
		return nil, errors.New("recommend: article store is required")
	}

	e := &Engine{
		config: cfg,
		deps:   deps,
		logger: logger.With().Str("component", "recommend").Logger(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// GetRecommendations returns a ranked list for the user. Only invalid
// requests produce an error; every pipeline failure degrades to the
// trending fallback or to an empty result carrying a Reason.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) GetRecommendations(ctx context.Context, req Request) (*RecommendationResult, error) {
	start := time.Now()
	e.requestCount.Add(1)

	req, err := e.normalizeRequest(req)
	if err != nil {
		metrics.RecommendRequests.WithLabelValues(OutcomeInvalid).Inc()
		return nil, err
	}

	requestID := logging.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	logger := e.logger.With().
		Str("request_id", requestID).
		Str("user_id", req.UserID).
		Int("limit", req.Limit).
		Logger()

	if cached := e.lookupCache(ctx, req, logger); cached != nil {
		cached.RequestID = requestID
		e.observe(OutcomeCacheHit, start)
		logger.Debug().Int("returned", len(cached.RankedArticles)).Msg("served from cache")
		return cached, nil
	}

	v, _, shared := e.inflight.Do(flightKey(req), func() (interface{}, error) {
		return e.compute(context.WithoutCancel(ctx), req, logger), nil
	})
	if shared {
		e.sharedCount.Add(1)
	}

	result := v.(*RecommendationResult).Clone()
	result.RequestID = requestID

	outcome := OutcomeComputed
	switch {
	case result.Empty():
		outcome = OutcomeEmpty
	case result.GenerationContext.Fallback != "":
		outcome = OutcomeFallback
	}
	e.observe(outcome, start)

	logger.Debug().
		Str("outcome", outcome).
		Int("pool_size", result.GenerationContext.PoolSize).
		Int("returned", len(result.RankedArticles)).
		Dur("latency", time.Since(start)).
		Msg("recommendation complete")

	return result, nil
}

// Invalidate makes the user's cached result unservable.
func (e *Engine) Invalidate(ctx context.Context, userID string) error {
	if userID == "" {
		return &RequestError{Field: "user_id", Message: "is required"}
	}
	if e.deps.Cache == nil {
		return nil
	}
	if err := e.deps.Cache.Invalidate(ctx, userID); err != nil {
		e.cacheErrors.Add(1)
		metrics.RecommendCacheOps.WithLabelValues("invalidate", "error").Inc()
		return fmt.Errorf("invalidate %s: %w", userID, err)
	}
	metrics.RecommendCacheOps.WithLabelValues("invalidate", "ok").Inc()
	e.logger.Debug().Str("user_id", userID).Msg("cache invalidated")
	return nil
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Requests:    e.requestCount.Load(),
		CacheHits:   e.cacheHits.Load(),
		CacheMisses: e.cacheMisses.Load(),
		CacheErrors: e.cacheErrors.Load(),
		Fallbacks:   e.fallbackCount.Load(),
		SharedRuns:  e.sharedCount.Load(),
	}
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.config
}

// compute runs the full pipeline, falls back to trending on failure and
// stores the outcome in the cache.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) compute(ctx context.Context, req Request, logger zerolog.Logger) *RecommendationResult {
	now := e.clock()

	pctx, cancel := context.WithTimeout(ctx, e.config.Timeouts.Deadline)
	result, err := e.runPipeline(pctx, req, now, logger)
	cancel()

	if err != nil {
		reason := fallbackReason(err)
		e.fallbackCount.Add(1)
		metrics.RecommendFallbacks.WithLabelValues(reason).Inc()
		logger.Warn().Err(err).Str("reason", reason).Msg("pipeline failed, serving trending fallback")

		fctx, fcancel := context.WithTimeout(ctx, e.config.Timeouts.FallbackTimeout)
		result = e.trendingFallback(fctx, req, now, reason, logger)
		fcancel()
	}

	e.storeResult(ctx, req.UserID, result, logger)
	return result
}

// lookupCache returns a fresh cached result compatible with req, or nil.
// Cache errors are counted and treated as a miss.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) lookupCache(ctx context.Context, req Request, logger zerolog.Logger) *RecommendationResult {
	if e.deps.Cache == nil {
		return nil
	}

	cached, ok, err := e.deps.Cache.Get(ctx, req.UserID)
	if err != nil {
		e.cacheErrors.Add(1)
		metrics.RecommendCacheOps.WithLabelValues("get", "error").Inc()
		logger.Warn().Err(err).Msg("cache lookup failed, running pipeline")
		return nil
	}
	if !ok || !compatible(cached, req) {
		e.cacheMisses.Add(1)
		metrics.RecommendCacheOps.WithLabelValues("get", "miss").Inc()
		return nil
	}

	e.cacheHits.Add(1)
	metrics.RecommendCacheOps.WithLabelValues("get", "hit").Inc()

	out := cached.Clone()
	if len(out.RankedArticles) > req.Limit {
		out.RankedArticles = out.RankedArticles[:req.Limit]
	}
	out.GenerationContext.Limit = req.Limit
	out.GenerationContext.CacheServed = true
	return out
}

// storeResult writes non-empty results to the cache. Results missing the
// read-history exclusion are skipped. Failures are logged.
func (e *Engine) storeResult(ctx context.Context, userID string, result *RecommendationResult, logger zerolog.Logger) {
	if e.deps.Cache == nil || result.Empty() {
		return
	}
	if result.GenerationContext.ExclusionIncomplete {
		logger.Debug().Msg("not caching result without read-history exclusion")
		return
	}
	if err := e.deps.Cache.Put(ctx, userID, result); err != nil {
		e.cacheErrors.Add(1)
		metrics.RecommendCacheOps.WithLabelValues("put", "error").Inc()
		logger.Warn().Err(err).Msg("cache write failed")
		return
	}
	metrics.RecommendCacheOps.WithLabelValues("put", "ok").Inc()
}

func (e *Engine) observe(outcome string, start time.Time) {
	metrics.RecommendRequests.WithLabelValues(outcome).Inc()
	metrics.RecommendLatency.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}
