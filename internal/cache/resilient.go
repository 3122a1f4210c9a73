// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/recserve/internal/recommend"
	"github.com/tomtom215/recserve/internal/resilience"
)

// ResilientStore decorates a backend with one short retry and a circuit
// breaker. While the breaker is open every call fails immediately and the
// engine treats it as a miss.
type ResilientStore struct {
	inner   Store
	breaker *resilience.Breaker
	retry   resilience.RetryConfig
	target  string
}

// NewResilientStore wraps inner.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewResilientStore(inner Store, retry resilience.RetryConfig, breakerCfg resilience.BreakerConfig, logger zerolog.Logger) (*ResilientStore, error) {
	if breakerCfg.Name == "" {
		breakerCfg.Name = "cache-" + inner.Name()
	}
	breaker, err := resilience.NewBreaker(breakerCfg, logger)
	if err != nil {
		return nil, err
	}
	return &ResilientStore{
		inner:   inner,
		breaker: breaker,
		retry:   retry,
		target:  "cache_" + inner.Name(),
	}, nil
}

// Name returns the wrapped backend name.
func (s *ResilientStore) Name() string { return s.inner.Name() }

// BreakerState reports the circuit state for health checks.
func (s *ResilientStore) BreakerState() string { return s.breaker.State() }

func (s *ResilientStore) call(ctx context.Context, op func() error) error {
	return resilience.Retry(ctx, s.retry, s.target, func() error {
		err := s.breaker.Execute(op)
		if resilience.IsRejected(err) {
			return resilience.Permanent(err)
		}
		return err
	})
}

// Get reads through the breaker.
func (s *ResilientStore) Get(ctx context.Context, userID string) (*recommend.RecommendationResult, bool, error) {
	var (
		result *recommend.RecommendationResult
		hit    bool
	)
	err := s.call(ctx, func() error {
		var err error
		result, hit, err = s.inner.Get(ctx, userID)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return result, hit, nil
}

// Put writes through the breaker.
func (s *ResilientStore) Put(ctx context.Context, userID string, result *recommend.RecommendationResult) error {
	return s.call(ctx, func() error {
		return s.inner.Put(ctx, userID, result)
	})
}

// Invalidate removes or marks stale through the breaker.
func (s *ResilientStore) Invalidate(ctx context.Context, userID string) error {
	return s.call(ctx, func() error {
		return s.inner.Invalidate(ctx, userID)
	})
}

// Sweep forwards to the backend when it needs sweeping.
func (s *ResilientStore) Sweep(now time.Time) int {
	if sw, ok := s.inner.(Sweeper); ok {
		return sw.Sweep(now)
	}
	return 0
}

// Close closes the backend.
func (s *ResilientStore) Close() error {
	return s.inner.Close()
}

var (
	_ Store   = (*ResilientStore)(nil)
	_ Sweeper = (*ResilientStore)(nil)
)
