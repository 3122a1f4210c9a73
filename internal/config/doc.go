// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

/*
Package config provides centralized configuration management for recserve.

Configuration is layered with Koanf v2: built-in defaults, then an optional
YAML file (CONFIG_PATH, ./config.yaml or /etc/recserve/config.yaml), then
environment variables. Only mapped environment variables are read.

# Sections

  - server: HTTP listener, CORS and rate limiting
  - logging: zerolog level, format and caller
  - storage: memory, duckdb or postgres backend, seed file, snapshot refresh
  - cache: memory, badger or redis result cache with retry and breaker
  - recommend: ensemble weights, model sources, limits, deadlines, TTLs
  - events: NATS interaction event consumer

# Environment Variables

A selection of the mapped variables:

Server:
  - HTTP_HOST, HTTP_PORT (default: 0.0.0.0:8000)
  - CORS_ORIGINS: comma-separated origins (default: *)
  - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT

Storage:
  - STORAGE_BACKEND: memory, duckdb or postgres (default: memory)
  - STORAGE_SEED_PATH, STORAGE_SNAPSHOT_DIR, STORAGE_REFRESH_INTERVAL
  - DUCKDB_PATH, POSTGRES_HOST, POSTGRES_DB, POSTGRES_PASSWORD

Cache:
  - CACHE_BACKEND: memory, badger or redis (default: memory)
  - CACHE_BADGER_PATH, REDIS_ADDR, REDIS_PASSWORD

Recommendation engine:
  - RECOMMEND_WEIGHT_<FEATURE>: ensemble weight, e.g. RECOMMEND_WEIGHT_RECENCY
  - RECOMMEND_DEADLINE (default: 2s), RECOMMEND_CACHE_TTL (default: 1h)
  - RECOMMEND_DIVERSITY_WEIGHT (default: 0.3)

Events:
  - NATS_ENABLED, NATS_URL, NATS_SUBJECT (default: interactions.recorded)
  - NATS_INVALIDATE_ON: comma-separated interaction types

# Usage Example

	cfg, err := config.LoadWithKoanf()
	if err != nil {
	    log.Fatalf("Failed to load config: %v", err)
	}
	engineCfg, err := cfg.Recommend.EngineConfig()
*/
package config
