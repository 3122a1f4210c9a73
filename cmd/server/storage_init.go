// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/recserve/internal/config"
	"github.com/tomtom215/recserve/internal/database"
	"github.com/tomtom215/recserve/internal/database/postgres"
	"github.com/tomtom215/recserve/internal/recommend"
	"github.com/tomtom215/recserve/internal/recommend/storage"
)

// recommendStore is what every storage backend provides.
type recommendStore interface {
	recommend.EmbeddingStore
	recommend.ArticleStore
	recommend.PreferenceStore
	recommend.InteractionStore
	RecordInteraction(ctx context.Context, in recommend.Interaction) error
}

// storageBackend is the opened store with its lifecycle hooks.
type storageBackend struct {
	store     recommendStore
	refresher *storage.Refresher
	ping      func(ctx context.Context) error
	close     func() error
	logger    zerolog.Logger
}

// Close releases the backend, logging failures.
func (b *storageBackend) Close() {
	if b.close == nil {
		return
	}
	if err := b.close(); err != nil {
		b.logger.Error().Err(err).Msg("error closing storage")
	}
}

//nolint:gocritic // zerolog.Logger is designed to be passed by value
func initStorage(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*storageBackend, error) {
	logger = logger.With().Str("component", "storage").Logger()

	var seed *storage.Seed
	if cfg.Storage.SeedPath != "" {
		var err error
		if seed, err = storage.LoadSeedFile(cfg.Storage.SeedPath); err != nil {
			return nil, err
		}
	}

	switch cfg.Storage.Backend {
	case config.StorageDuckDB:
		return openDuckDB(ctx, &cfg.Storage, seed, logger)
	case config.StoragePostgres:
		return openPostgres(&cfg.Storage, logger)
	default:
		return openMemory(ctx, &cfg.Storage, seed, logger)
	}
}

//nolint:gocritic // zerolog.Logger is designed to be passed by value
func openMemory(ctx context.Context, cfg *config.StorageConfig, seed *storage.Seed, logger zerolog.Logger) (*storageBackend, error) {
	store := storage.NewMemoryStore()
	if seed != nil {
		if err := store.Apply(seed); err != nil {
			// invalid rows are skipped; the rest of the seed is served
			logger.Warn().Err(err).Msg("seed file contained invalid rows")
		}
	}

	backend := &storageBackend{
		store:  store,
		ping:   func(context.Context) error { return nil },
		logger: logger,
	}

	if cfg.SnapshotDir != "" {
		snapshots, err := storage.NewSnapshotStore(cfg.SnapshotDir)
		if err != nil {
			return nil, fmt.Errorf("open snapshot dir: %w", err)
		}
		backend.refresher = storage.NewRefresher(snapshots, store, logger)
		loaded, err := backend.refresher.Refresh(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("initial snapshot load incomplete")
		}
		logger.Info().Int("models", loaded).Str("dir", cfg.SnapshotDir).Msg("embedding snapshots loaded")
	}

	counts := store.EmbeddingCounts()
	logger.Info().Int("models", len(counts)).Msg("memory storage ready")
	return backend, nil
}

//nolint:gocritic // zerolog.Logger is designed to be passed by value
func openDuckDB(ctx context.Context, cfg *config.StorageConfig, seed *storage.Seed, logger zerolog.Logger) (*storageBackend, error) {
	db, err := database.New(cfg.DuckDB, logger)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	if seed != nil {
		if err := seedDuckDB(ctx, db, seed); err != nil {
			_ = db.Close() //nolint:errcheck // already failing
			return nil, fmt.Errorf("seed duckdb: %w", err)
		}
	}

	logger.Info().Str("path", cfg.DuckDB.Path).Msg("duckdb storage ready")
	return &storageBackend{
		store:  db,
		ping:   db.Ping,
		close:  db.Close,
		logger: logger,
	}, nil
}

// seedDuckDB upserts a seed document. Rows are idempotent except
// interactions, which are appended.
func seedDuckDB(ctx context.Context, db *database.DB, seed *storage.Seed) error {
	var errs []error
	for i := range seed.Articles {
		if err := db.UpsertArticle(ctx, seed.Articles[i]); err != nil {
			errs = append(errs, fmt.Errorf("articles[%d]: %w", i, err))
		}
	}
	if len(seed.Embeddings) > 0 {
		if _, err := db.UpsertEmbeddings(ctx, seed.Embeddings); err != nil {
			errs = append(errs, fmt.Errorf("embeddings: %w", err))
		}
	}
	for i := range seed.Preferences {
		if err := db.PutPreferences(ctx, seed.Preferences[i]); err != nil {
			errs = append(errs, fmt.Errorf("preferences[%d]: %w", i, err))
		}
	}
	for i := range seed.Interactions {
		if err := db.RecordInteraction(ctx, seed.Interactions[i]); err != nil {
			errs = append(errs, fmt.Errorf("interactions[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

//nolint:gocritic // zerolog.Logger is designed to be passed by value
func openPostgres(cfg *config.StorageConfig, logger zerolog.Logger) (*storageBackend, error) {
	store, err := postgres.Open(cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	logger.Info().
		Str("host", cfg.Postgres.Host).
		Str("database", cfg.Postgres.Database).
		Msg("postgres storage ready")
	return &storageBackend{
		store:  store,
		ping:   store.Ping,
		close:  store.Close,
		logger: logger,
	}, nil
}
