// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package recommend

import (
	"fmt"
	"math"
	"time"
)

// Config contains the orchestration settings of the Engine. Stage-specific
// settings live with the stage implementations.
type Config struct {
	// Weights is the ensemble weight per feature.
	Weights Weights `json:"weights"`

	// Limits contains request and pool bounds.
	Limits LimitsConfig `json:"limits"`

	// Timeouts contains pipeline deadlines.
	Timeouts TimeoutsConfig `json:"timeouts"`

	// Cache contains result lifetimes.
	Cache CacheConfig `json:"cache"`

	// Diversity contains the default diversity trade-off.
	Diversity DiversityConfig `json:"diversity"`

	// Fallback contains trending fallback settings.
	Fallback FallbackConfig `json:"fallback"`
}

// LimitsConfig bounds request sizes.
type LimitsConfig struct {
	// DefaultLimit is used when a request leaves Limit at zero.
	DefaultLimit int `json:"default_limit"`

	// MaxLimit is the largest accepted limit. Larger values are clamped.
	MaxLimit int `json:"max_limit"`

	// MaxPoolSize caps the candidate pool passed to scoring.
	MaxPoolSize int `json:"max_pool_size"`

	// MinPoolSize is the pool size below which trending articles fill in.
	MinPoolSize int `json:"min_pool_size"`
}

// TimeoutsConfig holds pipeline deadlines.
type TimeoutsConfig struct {
	// Deadline bounds generation, fusion, scoring and re-ranking.
	Deadline time.Duration `json:"deadline"`

	// FallbackTimeout bounds the trending fallback that runs after a
	// pipeline failure.
	FallbackTimeout time.Duration `json:"fallback_timeout"`
}

// CacheConfig holds result lifetimes.
type CacheConfig struct {
	// TTL is the lifetime of a full pipeline result.
	TTL time.Duration `json:"ttl"`

	// FallbackTTL is the lifetime of a trending fallback result.
	FallbackTTL time.Duration `json:"fallback_ttl"`
}

// DiversityConfig holds the default diversity trade-off.
type DiversityConfig struct {
	// DefaultWeight applies when neither the request nor the profile set one.
	DefaultWeight float64 `json:"default_weight"`
}

// FallbackConfig holds trending fallback settings.
type FallbackConfig struct {
	// TrendingWindow bounds how old a trending article may be.
	TrendingWindow time.Duration `json:"trending_window"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Weights: DefaultWeights(),
		Limits: LimitsConfig{
			DefaultLimit: 20,
			MaxLimit:     100,
			MaxPoolSize:  400,
			MinPoolSize:  20,
		},
		Timeouts: TimeoutsConfig{
			Deadline:        2 * time.Second,
			FallbackTimeout: 500 * time.Millisecond,
		},
		Cache: CacheConfig{
			TTL:         time.Hour,
			FallbackTTL: time.Minute,
		},
		Diversity: DiversityConfig{
			DefaultWeight: 0.3,
		},
		Fallback: FallbackConfig{
			TrendingWindow: 7 * 24 * time.Hour,
		},
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	for i, w := range c.Weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("weights.%s must be finite, got %f", Feature(i), w)
		}
	}

	if c.Limits.DefaultLimit < 1 {
		return fmt.Errorf("limits.default_limit must be positive, got %d", c.Limits.DefaultLimit)
	}
	if c.Limits.MaxLimit < c.Limits.DefaultLimit {
		return fmt.Errorf("limits.max_limit (%d) must be >= limits.default_limit (%d)",
			c.Limits.MaxLimit, c.Limits.DefaultLimit)
	}
	if c.Limits.MaxPoolSize < c.Limits.MaxLimit {
		return fmt.Errorf("limits.max_pool_size (%d) must be >= limits.max_limit (%d)",
			c.Limits.MaxPoolSize, c.Limits.MaxLimit)
	}
	if c.Limits.MinPoolSize < 0 {
		return fmt.Errorf("limits.min_pool_size must be non-negative, got %d", c.Limits.MinPoolSize)
	}

	if c.Timeouts.Deadline <= 0 {
		return fmt.Errorf("timeouts.deadline must be positive, got %v", c.Timeouts.Deadline)
	}
	if c.Timeouts.FallbackTimeout <= 0 {
		return fmt.Errorf("timeouts.fallback_timeout must be positive, got %v", c.Timeouts.FallbackTimeout)
	}

	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %v", c.Cache.TTL)
	}
	if c.Cache.FallbackTTL <= 0 || c.Cache.FallbackTTL > c.Cache.TTL {
		return fmt.Errorf("cache.fallback_ttl must be in (0, cache.ttl], got %v", c.Cache.FallbackTTL)
	}

	if c.Diversity.DefaultWeight < 0 || c.Diversity.DefaultWeight > 1 {
		return fmt.Errorf("diversity.default_weight must be in [0, 1], got %f", c.Diversity.DefaultWeight)
	}

	if c.Fallback.TrendingWindow < 0 {
		return fmt.Errorf("fallback.trending_window must be non-negative, got %v", c.Fallback.TrendingWindow)
	}
	return nil
}
