// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package recommend

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// ModelTrendingFallback is the ensemble name of fallback results.
const ModelTrendingFallback = "trending_fallback"

// ReasonTrending explains fallback entries.
const ReasonTrending = "trending now"

// trendingFallback ranks trending articles without embedding-based scoring.
// If the read history cannot be loaded the fallback proceeds without it and
// marks the result ExclusionIncomplete.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) trendingFallback(ctx context.Context, req Request, now time.Time, reason string, logger zerolog.Logger) *RecommendationResult {
	diversity := e.diversityWeight(req, nil)

	exclude := make(map[string]struct{})
	exclusionIncomplete := false
	if req.ExcludeRead && e.deps.Interactions != nil {
		ids, err := e.deps.Interactions.GetRecentInteractions(ctx, req.UserID, ReadInteractionTypes()...)
		if err != nil {
			exclusionIncomplete = true
			logger.Warn().Err(err).Msg("fallback: read history unavailable")
		}
		for _, id := range ids {
			exclude[id] = struct{}{}
		}
	}

	var since time.Time
	if e.config.Fallback.TrendingWindow > 0 {
		since = now.Add(-e.config.Fallback.TrendingWindow)
	}
	articles, err := e.deps.Articles.TrendingArticles(ctx, TrendingQuery{
		Since:      since,
		Limit:      req.Limit + len(exclude),
		Categories: req.Categories,
	})
	if err != nil {
		logger.Error().Err(err).Msg("fallback: trending articles unavailable")
		return e.emptyResult(req, now, diversity, 1, reason)
	}

	result := e.newResult(req, now, e.config.Cache.FallbackTTL)
	result.ModelEnsemble = ModelTrendingFallback
	result.GenerationContext.Fallback = reason
	result.GenerationContext.PersonalizationWeight = 1
	result.GenerationContext.DiversityWeight = diversity
	result.GenerationContext.ExclusionIncomplete = exclusionIncomplete

	seen := make(map[string]struct{}, len(articles))
	for i := range articles {
		a := &articles[i]
		if len(result.RankedArticles) >= req.Limit {
			break
		}
		if !a.Published() {
			continue
		}
		if _, skip := exclude[a.ID]; skip {
			continue
		}
		if _, dup := seen[a.ID]; dup {
			continue
		}
		seen[a.ID] = struct{}{}
		result.RankedArticles = append(result.RankedArticles, RankedArticle{
			ArticleID:  a.ID,
			FinalScore: a.TrendingScore,
			Rank:       len(result.RankedArticles) + 1,
			Reason:     ReasonTrending,
		})
	}
	result.GenerationContext.PoolSize = len(articles)

	if result.Empty() {
		result.ModelEnsemble = "none"
		result.Reason = ReasonNoCandidates
	}
	return result
}
