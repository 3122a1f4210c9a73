// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

// Package reranking reorders scored candidates to balance relevance
// against diversity.
//
// Reranking is applied after ensemble scoring:
//
//	Sources -> Candidate pool -> Features -> Ensemble score -> Reranker -> Result
//	                                         (relevance)       (diversity)
//
// # Maximal Marginal Relevance
//
// MMR iteratively selects the candidate that maximizes
//
//	(1-w) * relevance(i) - w * max_similarity(i, selected)
//
// where w is the diversity weight of the request:
//   - 0.0: pure relevance, the input order is kept
//   - 0.3: default, mild push away from repeated categories
//   - 1.0: pure diversity, relevance only breaks ties
//
// Relevance is divided by the largest score in the pool so the trade-off
// does not depend on the magnitude of the ensemble weights.
//
// # Similarity
//
// Two articles are compared by category and tags:
//
//	sim(a, b) = cw * [category(a) == category(b)] + (1-cw) * jaccard(tags(a), tags(b))
//
// with cw = 0.6 by default. Tags are compared case-insensitively and two
// untagged articles have tag similarity 0.
//
// # Performance
//
// The maximum similarity of every unselected candidate is updated after
// each pick, so selection costs O(limit * n) for a pool of n candidates.
//
// # Thread Safety
//
// MMR is stateless and safe for concurrent use.
package reranking
