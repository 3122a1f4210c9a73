// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package scoring

import (
	"math"
	"sort"

	"github.com/tomtom215/recserve/internal/recommend"
)

// Ensemble scores fused features as a weighted linear combination.
type Ensemble struct{}

// NewEnsemble creates an Ensemble scorer.
func NewEnsemble() *Ensemble {
	return &Ensemble{}
}

// Score computes relevance for every fused feature and returns the
// candidates in their total order with RankBeforeDiversity set.
func (s *Ensemble) Score(fused []recommend.FusedFeature, weights recommend.Weights) []recommend.ScoredCandidate {
	if len(fused) == 0 {
		return nil
	}

	out := make([]recommend.ScoredCandidate, len(fused))
	for i := range fused {
		ff := &fused[i]
		score := weights.Dot(&ff.Features)
		if math.IsNaN(score) || math.IsInf(score, 0) {
			score = 0
		}
		out[i] = recommend.ScoredCandidate{
			ArticleID:          ff.ArticleID,
			RelevanceScore:     score,
			RawScore:           ff.RawScore,
			ContributingModels: append([]recommend.ModelType(nil), ff.ContributingModels...),
			Source:             ff.Source,
			Category:           ff.Category,
			Tags:               append([]string(nil), ff.Tags...),
			Reason:             explain(ff, &weights),
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return Compare(&out[i], &out[j]) < 0
	})
	for i := range out {
		out[i].RankBeforeDiversity = i + 1
	}
	return out
}

// Compare orders a before b (negative) when a has the higher relevance,
// then the higher raw similarity, then more contributing models, then the
// lower article ID.
func Compare(a, b *recommend.ScoredCandidate) int {
	switch {
	case a.RelevanceScore > b.RelevanceScore:
		return -1
	case a.RelevanceScore < b.RelevanceScore:
		return 1
	case a.RawScore > b.RawScore:
		return -1
	case a.RawScore < b.RawScore:
		return 1
	case len(a.ContributingModels) > len(b.ContributingModels):
		return -1
	case len(a.ContributingModels) < len(b.ContributingModels):
		return 1
	case a.ArticleID < b.ArticleID:
		return -1
	case a.ArticleID > b.ArticleID:
		return 1
	default:
		return 0
	}
}

var _ recommend.Scorer = (*Ensemble)(nil)
