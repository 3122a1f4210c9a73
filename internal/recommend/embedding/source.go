// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/recserve/internal/recommend"
)

// ctxCheckInterval is how many article vectors are scored between
// cancellation checks.
const ctxCheckInterval = 256

// Source retrieves candidates for one model type by brute-force similarity
// between the user's active embedding and every active article embedding
// of the same model version.
type Source struct {
	model  recommend.ModelType
	metric Metric
	store  recommend.EmbeddingStore
	now    func() time.Time
	logger zerolog.Logger
}

// SourceOption configures a Source.
type SourceOption func(*Source)

// WithClock sets the clock used for RetrievedAt.
func WithClock(now func() time.Time) SourceOption {
	return func(s *Source) { s.now = now }
}

// WithLogger sets the logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func WithLogger(logger zerolog.Logger) SourceOption {
	return func(s *Source) { s.logger = logger }
}

// NewSource creates a Source. It fails on an unknown model or metric.
func NewSource(model recommend.ModelType, metric Metric, store recommend.EmbeddingStore, opts ...SourceOption) (*Source, error) {
	if !model.Valid() {
		return nil, fmt.Errorf("embedding source: unknown model type %q", model)
	}
	if metric != MetricCosine && metric != MetricDot {
		return nil, fmt.Errorf("embedding source %s: unknown metric %q", model, metric)
	}
	if store == nil {
		return nil, fmt.Errorf("embedding source %s: store is required", model)
	}
	s := &Source{
		model:  model,
		metric: metric,
		store:  store,
		now:    time.Now,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("model", string(model)).Logger()
	return s, nil
}

// ModelType returns the model this source serves.
func (s *Source) ModelType() recommend.ModelType { return s.model }

// Metric returns the similarity metric.
func (s *Source) Metric() Metric { return s.metric }

// Retrieve returns up to n candidates best first, ties by ascending ID.
func (s *Source) Retrieve(ctx context.Context, userID string, n int) ([]recommend.Candidate, error) {
	if n <= 0 {
		return nil, nil
	}

	user, err := s.store.GetEmbedding(ctx, userID, recommend.EntityUser, s.model)
	if errors.Is(err, recommend.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s user embedding: %w", s.model, err)
	}

	articles, err := s.store.ArticleEmbeddings(ctx, s.model)
	if err != nil {
		return nil, fmt.Errorf("load %s article embeddings: %w", s.model, err)
	}

	best := newTopN(n)
	skipped := 0
	for i := range articles {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		a := &articles[i]
		if !a.IsActive || a.ModelVersion != user.ModelVersion {
			continue
		}
		score, err := s.metric.Similarity(user.Vector, a.Vector)
		if err != nil {
			skipped++
			continue
		}
		best.offer(a.EntityID, score)
	}
	if skipped > 0 {
		s.logger.Warn().
			Str("model_version", user.ModelVersion).
			Int("skipped", skipped).
			Msg("Skipped article embeddings with mismatched dimension")
	}

	now := s.now()
	ranked := best.sorted()
	out := make([]recommend.Candidate, len(ranked))
	for i, r := range ranked {
		out[i] = recommend.Candidate{
			ArticleID:   r.id,
			Source:      string(s.model),
			RawScore:    r.score,
			RetrievedAt: now,
			ModelScores: map[recommend.ModelType]float64{s.model: r.score},
		}
	}
	return out, nil
}

var _ recommend.EmbeddingSource = (*Source)(nil)
