// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

// Package recommend implements the article recommendation serving core.
//
// # Architecture
//
// A request flows through a fixed pipeline of stages, each defined as an
// interface in this package and implemented in a sub-package:
//
//   - Candidate generation (candidates): per-model embedding retrieval fanned
//     out concurrently, merged, filtered, and topped up from trending articles
//   - Feature fusion (features): one fixed-schema FeatureVector per candidate
//   - Ensemble scoring (scoring): weighted sum with a total, deterministic order
//   - Diversity re-ranking (reranking): greedy maximal marginal relevance
//   - Result caching (internal/cache): per-user fresh/stale/absent entries
//
// The Engine coordinates the stages under an overall deadline. Any stage
// failure, or the deadline firing, downgrades the request to a trending-only
// fallback. Callers only ever see an error for invalid requests; every other
// outcome is a RecommendationResult, possibly empty with a Reason.
//
// # Determinism
//
// Given the same embeddings, article metadata, weights and clock, Score and
// Rerank produce identical orderings. Ties are broken by raw similarity, then
// by the number of contributing models, then by article ID.
//
// # Usage
//
//	engine, err := recommend.NewEngine(recommend.DefaultConfig(), recommend.Dependencies{
//	    Generator:    generator,
//	    Fuser:        fuser,
//	    Scorer:       scoring.NewEnsemble(),
//	    Reranker:     reranking.NewMMR(0.6, 0),
//	    Articles:     store,
//	    Preferences:  store,
//	    Interactions: store,
//	    Cache:        resultCache,
//	}, logger)
//
//	result, err := engine.GetRecommendations(ctx, recommend.Request{
//	    UserID: userID,
//	    Limit:  20,
//	})
//
// # Thread Safety
//
// The Engine holds no per-request mutable state and is safe for concurrent
// use. Concurrent cache misses for the same user and request shape are
// collapsed into a single pipeline run.
package recommend
