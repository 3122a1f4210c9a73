// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/recserve/internal/cache"
	"github.com/tomtom215/recserve/internal/database"
	"github.com/tomtom215/recserve/internal/database/postgres"
	"github.com/tomtom215/recserve/internal/recommend"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/recserve/config.yaml",
	"/etc/recserve/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   300,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Storage: StorageConfig{
			Backend:         StorageMemory,
			SeedPath:        "",
			SnapshotDir:     "",
			RefreshInterval: 5 * time.Minute,
			DuckDB:          database.DefaultConfig(),
			Postgres:        postgres.DefaultConfig(),
		},
		Cache:     cache.DefaultConfig(),
		Recommend: defaultRecommendConfig(),
		Events: EventsConfig{
			Enabled:            false,
			URL:                "nats://127.0.0.1:4222",
			Subject:            "interactions.recorded",
			DurableName:        "recserve",
			QueueGroup:         "recserve",
			SubscribersCount:   2,
			AckWaitTimeout:     30 * time.Second,
			CloseTimeout:       30 * time.Second,
			MaxDeliver:         5,
			MaxReconnects:      -1,
			ReconnectWait:      2 * time.Second,
			InvalidateOn:       recommend.StrongInteractionNames(),
			RecordInteractions: false,
			DedupWindow:        5 * time.Minute,
			DedupCapacity:      10000,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any mapped setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// HTTP_PORT -> server.port, RECOMMEND_WEIGHT_RECENCY -> recommend.weights.recency
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the first existing config file, or "" if none.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"server.cors_origins",
	"events.invalidate_on",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// weightEnvPrefix maps RECOMMEND_WEIGHT_<FEATURE> to recommend.weights.<feature>.
const weightEnvPrefix = "recommend_weight_"

// envMappings maps lower-cased environment variable names to koanf paths.
// Unmapped variables are ignored so unrelated environment does not leak
// into the configuration.
var envMappings = map[string]string{
	// Server mappings
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"cors_origins":          "server.cors_origins",
	"rate_limit_requests":   "server.rate_limit_reqs",
	"rate_limit_window":     "server.rate_limit_window",
	"disable_rate_limit":    "server.rate_limit_disabled",

	// Logging mappings
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Storage mappings
	"storage_backend":          "storage.backend",
	"storage_seed_path":        "storage.seed_path",
	"storage_snapshot_dir":     "storage.snapshot_dir",
	"storage_refresh_interval": "storage.refresh_interval",
	"duckdb_path":              "storage.duckdb.path",
	"duckdb_threads":           "storage.duckdb.threads",
	"duckdb_max_memory":        "storage.duckdb.max_memory",
	"duckdb_query_timeout":     "storage.duckdb.query_timeout",
	"postgres_host":            "storage.postgres.host",
	"postgres_port":            "storage.postgres.port",
	"postgres_user":            "storage.postgres.user",
	"postgres_password":        "storage.postgres.password",
	"postgres_db":              "storage.postgres.database",
	"postgres_sslmode":         "storage.postgres.ssl_mode",
	"postgres_max_open_conns":  "storage.postgres.max_open_conns",

	// Cache mappings
	"cache_backend":        "cache.backend",
	"cache_max_entries":    "cache.max_entries",
	"cache_sweep_interval": "cache.sweep_interval",
	"cache_badger_path":    "cache.badger_path",
	"redis_addr":           "cache.redis.addr",
	"redis_password":       "cache.redis.password",
	"redis_db":             "cache.redis.db",
	"redis_pool_size":      "cache.redis.pool_size",

	// Recommendation engine mappings
	"recommend_default_limit":      "recommend.default_limit",
	"recommend_max_limit":          "recommend.max_limit",
	"recommend_max_pool_size":      "recommend.max_pool_size",
	"recommend_min_pool_size":      "recommend.min_pool_size",
	"recommend_top_n_per_model":    "recommend.top_n_per_model",
	"recommend_deadline":           "recommend.deadline",
	"recommend_fallback_timeout":   "recommend.fallback_timeout",
	"recommend_retrieval_timeout":  "recommend.retrieval_timeout",
	"recommend_cache_ttl":          "recommend.cache_ttl",
	"recommend_fallback_ttl":       "recommend.fallback_ttl",
	"recommend_diversity_weight":   "recommend.diversity_weight",
	"recommend_category_weight":    "recommend.category_weight",
	"recommend_max_per_category":   "recommend.max_per_category",
	"recommend_trending_window":    "recommend.trending_window",
	"recommend_recency_floor":      "recommend.recency_floor",
	"recommend_recency_scale_days": "recommend.recency_scale_days",

	// NATS interaction event mappings
	"nats_enabled":             "events.enabled",
	"nats_url":                 "events.url",
	"nats_subject":             "events.subject",
	"nats_stream_name":         "events.stream_name",
	"nats_durable_name":        "events.durable_name",
	"nats_queue_group":         "events.queue_group",
	"nats_subscribers":         "events.subscribers_count",
	"nats_invalidate_on":       "events.invalidate_on",
	"nats_record_interactions": "events.record_interactions",
	"nats_dedup_window":        "events.dedup_window",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - CACHE_BACKEND -> cache.backend
//   - REDIS_ADDR -> cache.redis.addr
//   - RECOMMEND_WEIGHT_TRENDING -> recommend.weights.trending
func envTransformFunc(key string) string {
	key = strings.ToLower(key)
	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	if name, ok := strings.CutPrefix(key, weightEnvPrefix); ok && name != "" {
		return "recommend.weights." + name
	}
	return ""
}
