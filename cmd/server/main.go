// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

// Package main is the entry point for the recserve recommendation server.
//
// # Startup Order
//
//  1. Configuration: koanf layering of defaults, config.yaml and environment
//  2. Logging: zerolog global logger
//  3. Storage: memory (seed file and embedding snapshots), DuckDB or PostgreSQL
//  4. Result cache: memory, badger or redis behind retry and circuit breaker
//  5. Engine: embedding sources, candidate generator, feature fuser,
//     ensemble scorer and MMR reranker
//  6. Supervisor tree: snapshot refresher, cache sweeper, NATS interaction
//     consumer and HTTP server
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the supervisor tree. The HTTP server drains
// in-flight requests within HTTP_SHUTDOWN_TIMEOUT, then storage and cache are
// closed.
//
// # Example Usage
//
// Memory storage from a seed file:
//
//	export STORAGE_BACKEND=memory
//	export STORAGE_SEED_PATH=/etc/recserve/seed.yaml
//	./recserve
//
// PostgreSQL storage with a shared redis cache and NATS invalidation:
//
//	export STORAGE_BACKEND=postgres
//	export POSTGRES_HOST=db.internal POSTGRES_PASSWORD=secret
//	export CACHE_BACKEND=redis REDIS_ADDR=redis:6379
//	export NATS_ENABLED=true NATS_URL=nats://nats:4222
//	./recserve
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/recserve/internal/api"
	"github.com/tomtom215/recserve/internal/cache"
	"github.com/tomtom215/recserve/internal/config"
	"github.com/tomtom215/recserve/internal/logging"
	"github.com/tomtom215/recserve/internal/metrics"
	"github.com/tomtom215/recserve/internal/supervisor"
	"github.com/tomtom215/recserve/internal/supervisor/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("recserve exited")
	}
}

func run() error {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(cfg.Logging.ToLogging())
	logger := logging.Logger()
	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)

	logger.Info().
		Str("version", version).
		Str("storage", cfg.Storage.Backend).
		Str("cache", string(cfg.Cache.Backend)).
		Bool("events", cfg.Events.Enabled).
		Msg("starting recserve")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	resultCache, err := cache.Open(cfg.Cache, logger)
	if err != nil {
		return fmt.Errorf("open result cache: %w", err)
	}
	defer func() {
		if err := resultCache.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing result cache")
		}
	}()

	engine, err := initEngine(&cfg.Recommend, backend.store, resultCache, logger)
	if err != nil {
		return err
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(logger), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	if backend.refresher != nil {
		refresher := backend.refresher
		tree.AddDataService(services.NewPeriodicService("snapshot-refresher", cfg.Storage.RefreshInterval,
			func(ctx context.Context) error {
				_, err := refresher.Refresh(ctx)
				return err
			}, logger))
	}

	if cfg.Cache.Backend == cache.BackendMemory {
		if sweeper, ok := resultCache.(cache.Sweeper); ok {
			tree.AddDataService(services.NewPeriodicService("cache-sweeper", cfg.Cache.SweepInterval,
				cacheSweep(sweeper, time.Now, logger), logger))
		}
	}

	checks := []api.HealthCheck{{Name: "storage", Check: backend.ping}}

	if cfg.Events.Enabled {
		events, err := initEvents(&cfg.Events, engine, backend.store, logger)
		if err != nil {
			return err
		}
		tree.AddMessagingService(events.consumer)
		if events.deduper != nil {
			tree.AddDataService(services.NewPeriodicService("dedup-cleanup", events.dedupWindow,
				dedupCleanup(events.deduper, logger), logger))
		}
		checks = append(checks, api.HealthCheck{Name: "events", Check: events.consumer.HealthCheck})
	}

	handler := api.NewHandler(engine, logger, api.WithHealthChecks(checks...), api.WithVersion(version))
	router := api.NewRouter(handler, api.NewChiMiddlewareFromServer(
		cfg.Server.CORSOrigins,
		cfg.Server.RateLimitReqs,
		cfg.Server.RateLimitWindow,
		cfg.Server.RateLimitDisabled,
	))
	if cfg.Server.RateLimitDisabled {
		logger.Warn().Msg("rate limiting is disabled")
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout, logger))

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor tree: %w", err)
	}

	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		logger.Warn().Int("count", len(report)).Msg("services did not stop within the shutdown timeout")
	}
	logger.Info().Msg("recserve stopped")
	return nil
}

// cacheSweep removes expired and stale results from the memory cache and
// reports the hit rate when the cache exposes one.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func cacheSweep(sweeper cache.Sweeper, now func() time.Time, logger zerolog.Logger) func(context.Context) error {
	return func(context.Context) error {
		removed := sweeper.Sweep(now())
		event := logger.Debug().Int("removed", removed)
		if r, ok := sweeper.(interface{ HitRate() float64 }); ok {
			event = event.Float64("hit_rate_pct", r.HitRate())
		}
		event.Msg("result cache swept")
		return nil
	}
}
