// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/tomtom215/recserve/internal/cache"
	"github.com/tomtom215/recserve/internal/database"
	"github.com/tomtom215/recserve/internal/database/postgres"
	"github.com/tomtom215/recserve/internal/eventprocessor"
	"github.com/tomtom215/recserve/internal/logging"
	"github.com/tomtom215/recserve/internal/recommend"
	"github.com/tomtom215/recserve/internal/recommend/candidates"
	"github.com/tomtom215/recserve/internal/recommend/embedding"
	"github.com/tomtom215/recserve/internal/recommend/features"
	"github.com/tomtom215/recserve/internal/recommend/reranking"
)

// Config holds all application configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in defaults for every setting
//  2. Config File: Optional YAML config file (config.yaml)
//  3. Environment Variables: Override any mapped setting
//
// Config is immutable after LoadWithKoanf and safe for concurrent reads.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Storage   StorageConfig   `koanf:"storage"`
	Cache     cache.Config    `koanf:"cache"`
	Recommend RecommendConfig `koanf:"recommend"`
	Events    EventsConfig    `koanf:"events"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// CORSOrigins lists allowed origins. "*" allows any.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitReqs requests are allowed per client IP per RateLimitWindow.
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// Addr returns the listen address.
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// ToLogging converts to the logging package configuration.
func (l *LoggingConfig) ToLogging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = l.Level
	cfg.Format = l.Format
	cfg.Caller = l.Caller
	cfg.Output = os.Stderr
	return cfg
}

// Storage backends.
const (
	StorageMemory   = "memory"
	StorageDuckDB   = "duckdb"
	StoragePostgres = "postgres"
)

// StorageConfig selects where embeddings, articles, preferences and
// interactions are read from.
type StorageConfig struct {
	// Backend is memory, duckdb or postgres.
	Backend string `koanf:"backend"`

	// SeedPath is an optional YAML seed file loaded into the memory or
	// duckdb backend at startup.
	SeedPath string `koanf:"seed_path"`

	// SnapshotDir holds published embedding snapshots. The memory backend
	// reloads new snapshots every RefreshInterval. Empty disables refresh.
	SnapshotDir     string        `koanf:"snapshot_dir"`
	RefreshInterval time.Duration `koanf:"refresh_interval"`

	DuckDB   database.Config `koanf:"duckdb"`
	Postgres postgres.Config `koanf:"postgres"`
}

// RecommendConfig holds engine and stage settings.
type RecommendConfig struct {
	// Weights overrides ensemble weights by feature name. Unnamed features
	// keep their defaults.
	Weights map[string]float64 `koanf:"weights"`

	// Models lists the embedding sources and their similarity metric.
	Models []embedding.SourceSpec `koanf:"models"`

	DefaultLimit int `koanf:"default_limit"`
	MaxLimit     int `koanf:"max_limit"`
	MaxPoolSize  int `koanf:"max_pool_size"`
	MinPoolSize  int `koanf:"min_pool_size"`
	TopNPerModel int `koanf:"top_n_per_model"`

	Deadline         time.Duration `koanf:"deadline"`
	FallbackTimeout  time.Duration `koanf:"fallback_timeout"`
	RetrievalTimeout time.Duration `koanf:"retrieval_timeout"`

	CacheTTL    time.Duration `koanf:"cache_ttl"`
	FallbackTTL time.Duration `koanf:"fallback_ttl"`

	DiversityWeight float64 `koanf:"diversity_weight"`
	CategoryWeight  float64 `koanf:"category_weight"`
	MaxPerCategory  int     `koanf:"max_per_category"`

	TrendingWindow time.Duration `koanf:"trending_window"`

	RecencyFloor     float64 `koanf:"recency_floor"`
	RecencyScaleDays float64 `koanf:"recency_scale_days"`
}

// EngineConfig builds the orchestrator configuration.
func (r *RecommendConfig) EngineConfig() (recommend.Config, error) {
	cfg := recommend.DefaultConfig()
	weights, err := cfg.Weights.WithOverrides(r.Weights)
	if err != nil {
		return cfg, err
	}
	cfg.Weights = weights
	cfg.Limits = recommend.LimitsConfig{
		DefaultLimit: r.DefaultLimit,
		MaxLimit:     r.MaxLimit,
		MaxPoolSize:  r.MaxPoolSize,
		MinPoolSize:  r.MinPoolSize,
	}
	cfg.Timeouts = recommend.TimeoutsConfig{
		Deadline:        r.Deadline,
		FallbackTimeout: r.FallbackTimeout,
	}
	cfg.Cache = recommend.CacheConfig{
		TTL:         r.CacheTTL,
		FallbackTTL: r.FallbackTTL,
	}
	cfg.Diversity.DefaultWeight = r.DiversityWeight
	cfg.Fallback.TrendingWindow = r.TrendingWindow
	return cfg, nil
}

// CandidatesConfig builds the candidate generator configuration.
func (r *RecommendConfig) CandidatesConfig() candidates.Config {
	return candidates.Config{
		TopNPerModel:     r.TopNPerModel,
		MinPoolSize:      r.MinPoolSize,
		TrendingWindow:   r.TrendingWindow,
		RetrievalTimeout: r.RetrievalTimeout,
	}
}

// FeaturesConfig builds the feature fuser configuration.
func (r *RecommendConfig) FeaturesConfig() features.Config {
	return features.Config{
		RecencyFloor:     r.RecencyFloor,
		RecencyScaleDays: r.RecencyScaleDays,
	}
}

// EventsConfig holds NATS interaction event consumption settings.
type EventsConfig struct {
	// Enabled starts the interaction event consumer.
	Enabled bool `koanf:"enabled"`

	URL        string `koanf:"url"`
	Subject    string `koanf:"subject"`
	StreamName string `koanf:"stream_name"`

	DurableName      string `koanf:"durable_name"`
	QueueGroup       string `koanf:"queue_group"`
	SubscribersCount int    `koanf:"subscribers_count"`

	AckWaitTimeout time.Duration `koanf:"ack_wait_timeout"`
	CloseTimeout   time.Duration `koanf:"close_timeout"`
	MaxDeliver     int           `koanf:"max_deliver"`
	MaxReconnects  int           `koanf:"max_reconnects"`
	ReconnectWait  time.Duration `koanf:"reconnect_wait"`

	// InvalidateOn lists the interaction types that invalidate the user's
	// cached result.
	InvalidateOn []string `koanf:"invalidate_on"`

	// RecordInteractions appends consumed interactions to the store.
	RecordInteractions bool `koanf:"record_interactions"`

	// DedupWindow suppresses redelivered events with the same message ID.
	DedupWindow   time.Duration `koanf:"dedup_window"`
	DedupCapacity int           `koanf:"dedup_capacity"`
}

// ToProcessor converts to the event processor configuration. Settings not
// exposed here keep the processor defaults.
func (e *EventsConfig) ToProcessor() eventprocessor.Config {
	cfg := eventprocessor.DefaultConfig()
	cfg.URL = e.URL
	cfg.Subject = e.Subject
	cfg.StreamName = e.StreamName
	cfg.DurableName = e.DurableName
	cfg.QueueGroup = e.QueueGroup
	cfg.SubscribersCount = e.SubscribersCount
	cfg.AckWaitTimeout = e.AckWaitTimeout
	cfg.CloseTimeout = e.CloseTimeout
	cfg.MaxDeliver = e.MaxDeliver
	cfg.MaxReconnects = e.MaxReconnects
	cfg.ReconnectWait = e.ReconnectWait
	cfg.InvalidateOn = append([]string(nil), e.InvalidateOn...)
	cfg.RecordInteractions = e.RecordInteractions
	cfg.DedupWindow = e.DedupWindow
	cfg.DedupCapacity = e.DedupCapacity
	return cfg
}

// defaultRecommendConfig mirrors the package defaults of every stage.
func defaultRecommendConfig() RecommendConfig {
	engine := recommend.DefaultConfig()
	gen := candidates.DefaultConfig()
	fuse := features.DefaultConfig()
	return RecommendConfig{
		Weights:          engine.Weights.Map(),
		Models:           embedding.DefaultSourceSpecs(),
		DefaultLimit:     engine.Limits.DefaultLimit,
		MaxLimit:         engine.Limits.MaxLimit,
		MaxPoolSize:      engine.Limits.MaxPoolSize,
		MinPoolSize:      engine.Limits.MinPoolSize,
		TopNPerModel:     gen.TopNPerModel,
		Deadline:         engine.Timeouts.Deadline,
		FallbackTimeout:  engine.Timeouts.FallbackTimeout,
		RetrievalTimeout: gen.RetrievalTimeout,
		CacheTTL:         engine.Cache.TTL,
		FallbackTTL:      engine.Cache.FallbackTTL,
		DiversityWeight:  engine.Diversity.DefaultWeight,
		CategoryWeight:   reranking.DefaultCategoryWeight,
		MaxPerCategory:   0,
		TrendingWindow:   engine.Fallback.TrendingWindow,
		RecencyFloor:     fuse.RecencyFloor,
		RecencyScaleDays: fuse.RecencyScaleDays,
	}
}
