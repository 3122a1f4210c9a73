// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package config

import (
	"fmt"
	"strings"

	"github.com/tomtom215/recserve/internal/logging"
	"github.com/tomtom215/recserve/internal/recommend"
	"github.com/tomtom215/recserve/internal/recommend/embedding"
)

// Validate checks that the configuration is complete and consistent.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if err := c.validateRecommend(); err != nil {
		return err
	}
	return c.validateEvents()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server read_timeout and write_timeout must be positive")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server shutdown_timeout must be positive, got %v", c.Server.ShutdownTimeout)
	}
	if !c.Server.RateLimitDisabled {
		if c.Server.RateLimitReqs < 1 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive, got %d", c.Server.RateLimitReqs)
		}
		if c.Server.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %v", c.Server.RateLimitWindow)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, fatal, panic, disabled; got %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case StorageMemory:
	case StorageDuckDB:
		if err := c.Storage.DuckDB.Validate(); err != nil {
			return fmt.Errorf("storage.duckdb: %w", err)
		}
	case StoragePostgres:
		if err := c.Storage.Postgres.Validate(); err != nil {
			return fmt.Errorf("storage: %w", err)
		}
		if c.Storage.SeedPath != "" {
			return fmt.Errorf("storage.seed_path is not supported by the read-only postgres backend")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be memory, duckdb or postgres; got %q", c.Storage.Backend)
	}
	if c.Storage.SnapshotDir != "" && c.Storage.RefreshInterval <= 0 {
		return fmt.Errorf("storage.refresh_interval must be positive when snapshot_dir is set, got %v", c.Storage.RefreshInterval)
	}
	return nil
}

func (c *Config) validateRecommend() error {
	engine, err := c.Recommend.EngineConfig()
	if err != nil {
		return fmt.Errorf("recommend: %w", err)
	}
	if err := engine.Validate(); err != nil {
		return fmt.Errorf("recommend: %w", err)
	}
	gen := c.Recommend.CandidatesConfig()
	if err := gen.Validate(); err != nil {
		return fmt.Errorf("recommend: %w", err)
	}
	fuse := c.Recommend.FeaturesConfig()
	if err := fuse.Validate(); err != nil {
		return fmt.Errorf("recommend: %w", err)
	}
	if c.Recommend.CategoryWeight < 0 || c.Recommend.CategoryWeight > 1 {
		return fmt.Errorf("recommend: category_weight must be in [0, 1], got %f", c.Recommend.CategoryWeight)
	}
	if c.Recommend.MaxPerCategory < 0 {
		return fmt.Errorf("recommend: max_per_category must be non-negative, got %d", c.Recommend.MaxPerCategory)
	}

	enabled := 0
	for _, spec := range c.Recommend.Models {
		if _, err := recommend.ParseModelType(spec.Model); err != nil {
			return fmt.Errorf("recommend.models: %w", err)
		}
		if _, err := embedding.ParseMetric(spec.Metric); err != nil {
			return fmt.Errorf("recommend.models: %s: %w", spec.Model, err)
		}
		if spec.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("recommend.models must enable at least one model")
	}
	return nil
}

func (c *Config) validateEvents() error {
	if !c.Events.Enabled {
		return nil
	}
	if c.Events.URL == "" {
		return fmt.Errorf("NATS_URL is required when events are enabled")
	}
	if c.Events.Subject == "" {
		return fmt.Errorf("events.subject is required when events are enabled")
	}
	if c.Events.SubscribersCount < 1 {
		return fmt.Errorf("events.subscribers_count must be positive, got %d", c.Events.SubscribersCount)
	}
	if c.Events.AckWaitTimeout <= 0 {
		return fmt.Errorf("events.ack_wait_timeout must be positive, got %v", c.Events.AckWaitTimeout)
	}
	for _, name := range c.Events.InvalidateOn {
		if _, err := recommend.ParseInteractionType(name); err != nil {
			return fmt.Errorf("events.invalidate_on: %w", err)
		}
	}
	if c.Events.DedupWindow > 0 && c.Events.DedupCapacity < 1 {
		return fmt.Errorf("events.dedup_capacity must be positive when dedup_window is set, got %d", c.Events.DedupCapacity)
	}
	return nil
}
