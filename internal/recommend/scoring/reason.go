// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package scoring

import (
	"github.com/tomtom215/recserve/internal/recommend"
)

// Reasons shown to readers, keyed by the dominant feature.
const (
	ReasonSimilar      = "similar to articles you read"
	ReasonRecent       = "recently published"
	ReasonTrending     = "trending now"
	ReasonPopular      = "popular with readers"
	ReasonQuality      = "highly rated"
	ReasonCategory     = "matches your interest in "
	ReasonRecommended  = "recommended for you"
	reasonCategoryBare = "matches your interests"
)

// explain names the feature with the largest weighted contribution.
func explain(ff *recommend.FusedFeature, w *recommend.Weights) string {
	best := recommend.Feature(-1)
	var bestContribution float64
	for f := recommend.Feature(0); f < recommend.NumFeatures; f++ {
		c := w[f] * ff.Features.Get(f)
		if c > bestContribution {
			best, bestContribution = f, c
		}
	}

	switch {
	case best < 0:
		if ff.Source == recommend.SourceTrending {
			return ReasonTrending
		}
		return ReasonRecommended
	case best.IsSimilarity():
		return ReasonSimilar
	}

	switch best {
	case recommend.FeatureRecency:
		return ReasonRecent
	case recommend.FeatureTrending:
		return ReasonTrending
	case recommend.FeatureEngagement:
		return ReasonPopular
	case recommend.FeatureQuality:
		return ReasonQuality
	case recommend.FeatureCategoryMatch:
		if ff.Category == "" {
			return reasonCategoryBare
		}
		return ReasonCategory + ff.Category
	default:
		return ReasonRecommended
	}
}
