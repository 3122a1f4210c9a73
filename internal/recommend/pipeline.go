// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/recserve/internal/metrics"
)

// ReasonNoCandidates annotates an empty result.
const ReasonNoCandidates = "no recommendations available"

// userContext is the per-request profile data loaded before generation.
type userContext struct {
	prefs   *UserPreferences
	exclude []string
}

// runPipeline executes generation, fusion, scoring and re-ranking. The
// returned error is non-nil only when the request should fall back.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) runPipeline(ctx context.Context, req Request, now time.Time, logger zerolog.Logger) (*RecommendationResult, error) {
	stageStart := time.Now()
	uc, err := e.loadUserContext(ctx, req, logger)
	if err != nil {
		return nil, fmt.Errorf("load user context: %w", err)
	}
	observeStage("user_context", stageStart)

	stageStart = time.Now()
	minPool := e.config.Limits.MinPoolSize
	if req.Limit > minPool {
		minPool = req.Limit
	}
	candidates, err := e.deps.Generator.GenerateCandidates(ctx, CandidateQuery{
		UserID:     req.UserID,
		Limit:      e.config.Limits.MaxPoolSize,
		MinPool:    minPool,
		Exclude:    uc.exclude,
		Categories: req.Categories,
	})
	if err != nil {
		return nil, fmt.Errorf("generate candidates: %w", err)
	}
	observeStage("generate", stageStart)
	metrics.RecommendPoolSize.Observe(float64(len(candidates)))

	if err := stageDeadline(ctx, "generate"); err != nil {
		return nil, err
	}

	personalization := uc.prefs.Personalization()
	diversity := e.diversityWeight(req, uc.prefs)

	if len(candidates) == 0 {
		logger.Debug().Msg("no candidates available")
		return e.emptyResult(req, now, diversity, personalization, ""), nil
	}

	stageStart = time.Now()
	fused := e.deps.Fuser.Fuse(ctx, req.UserID, uc.prefs, candidates)
	observeStage("fuse", stageStart)
	if err := stageDeadline(ctx, "fuse"); err != nil {
		return nil, err
	}

	stageStart = time.Now()
	scored := e.deps.Scorer.Score(fused, e.config.Weights.Personalized(personalization))
	observeStage("score", stageStart)

	stageStart = time.Now()
	ranked := e.deps.Reranker.Rerank(scored, diversity, req.Limit)
	observeStage("rerank", stageStart)
	if err := stageDeadline(ctx, "rerank"); err != nil {
		return nil, err
	}

	result := e.newResult(req, now, e.config.Cache.TTL)
	result.RankedArticles = toRanked(ranked)
	result.ModelEnsemble = modelEnsemble(ranked)
	result.GenerationContext.PoolSize = len(candidates)
	result.GenerationContext.DiversityWeight = diversity
	result.GenerationContext.DiversityApplied = diversity > 0
	result.GenerationContext.PersonalizationWeight = personalization

	logger.Debug().
		Int("candidates", len(candidates)).
		Float64("diversity_weight", diversity).
		Str("ensemble", result.ModelEnsemble).
		Msg("pipeline complete")

	return result, nil
}

// loadUserContext fetches the preference profile and the read-history
// exclusion set concurrently. A missing profile is not an error.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) loadUserContext(ctx context.Context, req Request, logger zerolog.Logger) (userContext, error) {
	var uc userContext
	g, gctx := errgroup.WithContext(ctx)

	if e.deps.Preferences != nil {
		g.Go(func() error {
			prefs, err := e.deps.Preferences.GetUserPreferences(gctx, req.UserID)
			switch {
			case err == nil:
				uc.prefs = prefs
			case errors.Is(err, ErrNotFound):
			default:
				// Neutral defaults still produce a valid ranking.
				logger.Warn().Err(err).Msg("preference lookup failed, using neutral profile")
			}
			return nil
		})
	}

	if req.ExcludeRead && e.deps.Interactions != nil {
		g.Go(func() error {
			ids, err := e.deps.Interactions.GetRecentInteractions(gctx, req.UserID, ReadInteractionTypes()...)
			if err != nil {
				return fmt.Errorf("read history: %w", err)
			}
			uc.exclude = ids
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return userContext{}, err
	}
	return uc, nil
}

// diversityWeight resolves the request override, then the profile
// preference, then the configured default.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) diversityWeight(req Request, prefs *UserPreferences) float64 {
	switch {
	case req.DiversityWeight != nil:
		return Clamp01(*req.DiversityWeight)
	case prefs != nil && prefs.DiversityPreference != nil:
		return Clamp01(*prefs.DiversityPreference)
	default:
		return e.config.Diversity.DefaultWeight
	}
}

//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) newResult(req Request, now time.Time, ttl time.Duration) *RecommendationResult {
	var override *float64
	if req.DiversityWeight != nil {
		w := *req.DiversityWeight
		override = &w
	}
	return &RecommendationResult{
		UserID:         req.UserID,
		RankedArticles: []RankedArticle{},
		GeneratedAt:    now,
		ExpiresAt:      now.Add(ttl),
		GenerationContext: GenerationContext{
			Limit:             req.Limit,
			Categories:        append([]string(nil), req.Categories...),
			ExcludeRead:       req.ExcludeRead,
			DiversityOverride: override,
			FeatureSchema:     FeatureSchemaVersion,
		},
	}
}

//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) emptyResult(req Request, now time.Time, diversity, personalization float64, fallback string) *RecommendationResult {
	result := e.newResult(req, now, e.config.Cache.FallbackTTL)
	result.ModelEnsemble = "none"
	result.Reason = ReasonNoCandidates
	result.GenerationContext.DiversityWeight = diversity
	result.GenerationContext.PersonalizationWeight = personalization
	result.GenerationContext.Fallback = fallback
	return result
}

func toRanked(scored []ScoredCandidate) []RankedArticle {
	out := make([]RankedArticle, len(scored))
	for i := range scored {
		out[i] = RankedArticle{
			ArticleID:  scored[i].ArticleID,
			FinalScore: scored[i].RelevanceScore,
			Rank:       i + 1,
			Reason:     scored[i].Reason,
		}
	}
	return out
}

// modelEnsemble renders the sources behind a ranked list, for example
// "two_tower+gnn+trending".
func modelEnsemble(ranked []ScoredCandidate) string {
	seen := make(map[ModelType]struct{})
	trending := false
	for i := range ranked {
		if len(ranked[i].ContributingModels) == 0 {
			trending = true
			continue
		}
		for _, m := range ranked[i].ContributingModels {
			seen[m] = struct{}{}
		}
	}

	parts := make([]string, 0, len(seen)+1)
	for _, m := range modelOrder {
		if _, ok := seen[m]; ok {
			parts = append(parts, string(m))
		}
	}
	if trending {
		parts = append(parts, SourceTrending)
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "+")
}

func stageDeadline(ctx context.Context, stage string) error {
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("after %s: %w", stage, ErrTimeout)
		}
		return fmt.Errorf("after %s: %w", stage, err)
	}
	return nil
}

func observeStage(stage string, start time.Time) {
	metrics.RecommendStageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
