// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package cache

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/recserve/internal/recommend"
	"github.com/tomtom215/recserve/internal/resilience"
)

// Store is a recommendation result cache backend. All backends hold at most
// one result per user and never serve a result past its ExpiresAt.
//
// Usage:
//
//	store, err := cache.Open(cfg, logger)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	engine, err := recommend.NewEngine(recCfg, recommend.Dependencies{Cache: store, ...}, logger)
type Store interface {
	recommend.ResultCache

	// Name identifies the backend in logs and metrics.
	Name() string

	// Close releases backend resources.
	Close() error
}

// Sweeper is implemented by backends that need periodic eviction of stale
// entries. Badger and redis expire entries natively.
type Sweeper interface {
	Sweep(now time.Time) int
}

// Backend selects the cache implementation.
type Backend string

const (
	// BackendMemory is a bounded in-process map (default, not persistent).
	BackendMemory Backend = "memory"

	// BackendBadger persists entries in an embedded BadgerDB with native TTL.
	BackendBadger Backend = "badger"

	// BackendRedis shares entries across replicas through Redis.
	BackendRedis Backend = "redis"
)

// keyPrefix namespaces recommendation entries in shared key spaces.
const keyPrefix = "recommendations:"

// Key returns the storage key of a user's cached result.
func Key(userID string) string {
	return keyPrefix + userID
}

// Config holds configuration for creating a cache.
type Config struct {
	// Backend is memory, badger or redis.
	Backend Backend `koanf:"backend"`

	// MaxEntries bounds the memory backend. The entry closest to expiry is
	// evicted when full.
	MaxEntries int `koanf:"max_entries"`

	// SweepInterval is how often stale memory entries are evicted.
	SweepInterval time.Duration `koanf:"sweep_interval"`

	// BadgerPath is the badger data directory.
	BadgerPath string `koanf:"badger_path"`

	// Redis configures the redis backend.
	Redis RedisConfig `koanf:"redis"`

	// Retry and Breaker configure the resilient wrapper around every backend.
	Retry   resilience.RetryConfig   `koanf:"retry"`
	Breaker resilience.BreakerConfig `koanf:"breaker"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Backend:       BackendMemory,
		MaxEntries:    100000,
		SweepInterval: time.Minute,
		BadgerPath:    "/data/cache",
		Redis:         DefaultRedisConfig(),
		Retry:         resilience.DefaultRetryConfig(),
		Breaker:       resilience.DefaultBreakerConfig("recommendation-cache"),
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
		if c.MaxEntries < 1 {
			return fmt.Errorf("cache.max_entries must be positive, got %d", c.MaxEntries)
		}
		if c.SweepInterval <= 0 {
			return fmt.Errorf("cache.sweep_interval must be positive, got %v", c.SweepInterval)
		}
	case BackendBadger:
		if c.BadgerPath == "" {
			return fmt.Errorf("cache.badger_path is required for the badger backend")
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("cache.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("cache.backend must be one of memory, badger, redis; got %q", c.Backend)
	}
	if err := c.Retry.Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := c.Breaker.Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return nil
}

// Open creates the configured backend wrapped in the resilient decorator.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func Open(cfg Config, logger zerolog.Logger) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		inner Store
		err   error
	)
	switch cfg.Backend {
	case BackendBadger:
		inner, err = OpenBadgerStore(cfg.BadgerPath)
	case BackendRedis:
		inner, err = OpenRedisStore(cfg.Redis)
	default:
		inner = NewMemoryStore(cfg.MaxEntries)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s cache: %w", cfg.Backend, err)
	}

	return NewResilientStore(inner, cfg.Retry, cfg.Breaker, logger)
}
