// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tomtom215/recserve/internal/metrics"
	"github.com/tomtom215/recserve/internal/recommend"
)

// Refresher loads newer embedding snapshots into a MemoryStore. Each model
// type is swapped atomically, so a request sees either the old or the new
// embeddings of a model, never a mix.
type Refresher struct {
	snapshots *SnapshotStore
	store     *MemoryStore
	logger    zerolog.Logger

	mu     sync.Mutex
	loaded map[recommend.ModelType]int
}

// NewRefresher creates a refresher. Nothing is loaded until Refresh runs.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewRefresher(snapshots *SnapshotStore, store *MemoryStore, logger zerolog.Logger) *Refresher {
	return &Refresher{
		snapshots: snapshots,
		store:     store,
		logger:    logger.With().Str("component", "embedding_refresher").Logger(),
		loaded:    make(map[recommend.ModelType]int),
	}
}

// Refresh rescans the snapshot directory and loads every model whose
// latest sequence is newer than the one in memory. It returns the number
// of models loaded; failures of one model do not stop the others.
func (r *Refresher) Refresh(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.snapshots.Rescan(); err != nil {
		metrics.EmbeddingSnapshotLoads.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("rescan snapshots: %w", err)
	}

	var (
		loaded int
		errs   []error
	)
	for _, model := range recommend.AllModelTypes() {
		if err := ctx.Err(); err != nil {
			return loaded, err
		}

		seq, ok := r.snapshots.LatestSequence(model)
		if !ok {
			continue
		}
		if seq <= r.loaded[model] {
			metrics.EmbeddingSnapshotLoads.WithLabelValues("unchanged").Inc()
			continue
		}

		embeddings, meta, err := r.snapshots.Load(ctx, model, seq)
		if err != nil {
			metrics.EmbeddingSnapshotLoads.WithLabelValues("error").Inc()
			r.logger.Error().Err(err).Str("model", string(model)).Int("sequence", seq).Msg("snapshot load failed")
			errs = append(errs, fmt.Errorf("%s v%d: %w", model, seq, err))
			continue
		}

		accepted, err := r.store.ReplaceModel(model, embeddings)
		if err != nil {
			metrics.EmbeddingSnapshotLoads.WithLabelValues("error").Inc()
			errs = append(errs, fmt.Errorf("%s v%d: %w", model, seq, err))
			continue
		}
		r.loaded[model] = seq
		loaded++
		metrics.EmbeddingSnapshotLoads.WithLabelValues("loaded").Inc()

		r.logger.Info().
			Str("model", string(model)).
			Int("sequence", seq).
			Str("model_version", meta.ModelVersion).
			Int("embeddings", meta.EmbeddingCount).
			Int("accepted", accepted).
			Msg("embedding snapshot loaded")
	}

	for model, counts := range r.store.EmbeddingCounts() {
		for entityType, n := range counts {
			metrics.EmbeddingsLoaded.WithLabelValues(string(model), string(entityType)).Set(float64(n))
		}
	}
	return loaded, errors.Join(errs...)
}

// LoadedSequence returns the sequence currently served for a model.
func (r *Refresher) LoadedSequence(model recommend.ModelType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded[model]
}
