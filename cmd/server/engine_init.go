// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package main

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/recserve/internal/config"
	"github.com/tomtom215/recserve/internal/recommend"
	"github.com/tomtom215/recserve/internal/recommend/candidates"
	"github.com/tomtom215/recserve/internal/recommend/embedding"
	"github.com/tomtom215/recserve/internal/recommend/features"
	"github.com/tomtom215/recserve/internal/recommend/reranking"
	"github.com/tomtom215/recserve/internal/recommend/scoring"
)

// initEngine wires the pipeline stages over the store and cache.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func initEngine(cfg *config.RecommendConfig, store recommendStore, resultCache recommend.ResultCache, logger zerolog.Logger) (*recommend.Engine, error) {
	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return nil, fmt.Errorf("recommend config: %w", err)
	}

	sources, err := embedding.NewSources(cfg.Models, store, embedding.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("embedding sources: %w", err)
	}

	generator, err := candidates.New(cfg.CandidatesConfig(), sources, store, logger)
	if err != nil {
		return nil, fmt.Errorf("candidate generator: %w", err)
	}

	fuser, err := features.New(cfg.FeaturesConfig(), logger, features.WithArticleStore(store))
	if err != nil {
		return nil, fmt.Errorf("feature fuser: %w", err)
	}

	engine, err := recommend.NewEngine(engineCfg, recommend.Dependencies{
		Generator:    generator,
		Fuser:        fuser,
		Scorer:       scoring.NewEnsemble(),
		Reranker:     reranking.NewMMR(cfg.CategoryWeight, cfg.MaxPerCategory),
		Articles:     store,
		Preferences:  store,
		Interactions: store,
		Cache:        resultCache,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("recommendation engine: %w", err)
	}

	metrics := zerolog.Dict()
	for model, metric := range sourceMetrics(sources) {
		metrics.Str(model, metric)
	}
	logger.Info().
		Int("models", len(sources)).
		Dict("similarity_metrics", metrics).
		Int("default_limit", engineCfg.Limits.DefaultLimit).
		Dur("deadline", engineCfg.Timeouts.Deadline).
		Msg("recommendation engine ready")
	return engine, nil
}

// sourceMetrics maps each enabled model to its configured similarity metric.
func sourceMetrics(sources []recommend.EmbeddingSource) map[string]string {
	out := make(map[string]string, len(sources))
	for _, src := range sources {
		metric := "unknown"
		if s, ok := src.(interface{ Metric() embedding.Metric }); ok {
			metric = string(s.Metric())
		}
		out[string(src.ModelType())] = metric
	}
	return out
}
