// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package scoring

import (
	"math"
	"testing"

	"github.com/tomtom215/recserve/internal/recommend"
)

func fused(id string, raw float64, models []recommend.ModelType, set map[recommend.Feature]float64) recommend.FusedFeature {
	ff := recommend.FusedFeature{UserID: "u", ArticleID: id, RawScore: raw, ContributingModels: models}
	for f, v := range set {
		ff.Features.Set(f, v)
	}
	return ff
}

func order(scored []recommend.ScoredCandidate) []string {
	out := make([]string, len(scored))
	for i := range scored {
		out[i] = scored[i].ArticleID
	}
	return out
}

func TestScore_WeightedSum(t *testing.T) {
	t.Parallel()

	var w recommend.Weights
	w[recommend.FeatureTwoTowerSim] = 2
	w[recommend.FeatureRecency] = 0.5

	got := NewEnsemble().Score([]recommend.FusedFeature{
		fused("a", 0.3, nil, map[recommend.Feature]float64{recommend.FeatureTwoTowerSim: 0.3, recommend.FeatureRecency: 1}),
	}, w)

	if len(got) != 1 {
		t.Fatalf("Score() returned %d, want 1", len(got))
	}
	if math.Abs(got[0].RelevanceScore-1.1) > 1e-9 {
		t.Errorf("RelevanceScore = %v, want 1.1", got[0].RelevanceScore)
	}
	if got[0].RankBeforeDiversity != 1 {
		t.Errorf("RankBeforeDiversity = %d, want 1", got[0].RankBeforeDiversity)
	}
}

// Three similarity hits and two trending fills, ranked with default
// weights: similarity must dominate the trending signal.
func TestScore_SimilarityOutranksTrending(t *testing.T) {
	t.Parallel()

	tt := []recommend.ModelType{recommend.ModelTwoTower}
	input := []recommend.FusedFeature{
		fused("D", 0, nil, map[recommend.Feature]float64{recommend.FeatureTrending: 1}),
		fused("B", 0.7, tt, map[recommend.Feature]float64{recommend.FeatureTwoTowerSim: 0.7}),
		fused("E", 0, nil, map[recommend.Feature]float64{recommend.FeatureTrending: 0.8}),
		fused("A", 0.9, tt, map[recommend.Feature]float64{recommend.FeatureTwoTowerSim: 0.9}),
		fused("C", 0.5, tt, map[recommend.Feature]float64{recommend.FeatureTwoTowerSim: 0.5}),
	}
	w := recommend.DefaultWeights()
	if w[recommend.FeatureTwoTowerSim]*0.5 <= w[recommend.FeatureTrending]*1 {
		t.Fatalf("default weights let trending outweigh the weakest similarity hit")
	}

	got := NewEnsemble().Score(input, w)
	want := []string{"A", "B", "C", "D", "E"}
	if o := order(got); len(o) != len(want) {
		t.Fatalf("order = %v, want %v", o, want)
	}
	for i, id := range want {
		if got[i].ArticleID != id {
			t.Errorf("rank %d = %s, want %s", i+1, got[i].ArticleID, id)
		}
		if got[i].RankBeforeDiversity != i+1 {
			t.Errorf("%s RankBeforeDiversity = %d, want %d", id, got[i].RankBeforeDiversity, i+1)
		}
	}
	if got[3].Reason != ReasonTrending || got[0].Reason != ReasonSimilar {
		t.Errorf("reasons = %q / %q", got[0].Reason, got[3].Reason)
	}
}

func TestScore_TieBreaks(t *testing.T) {
	t.Parallel()

	one := []recommend.ModelType{recommend.ModelCNN}
	two := []recommend.ModelType{recommend.ModelCNN, recommend.ModelGNN}
	same := map[recommend.Feature]float64{recommend.FeatureQuality: 1}

	var w recommend.Weights
	w[recommend.FeatureQuality] = 1

	input := []recommend.FusedFeature{
		fused("z", 0.5, one, same),
		fused("y", 0.5, two, same),
		fused("x", 0.9, one, same),
		fused("b", 0.5, one, same),
		fused("a", 0.5, one, same),
	}
	got := order(NewEnsemble().Score(input, w))
	want := []string{"x", "y", "a", "b", "z"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestScore_Deterministic(t *testing.T) {
	t.Parallel()

	input := []recommend.FusedFeature{
		fused("c", 0.1, nil, map[recommend.Feature]float64{recommend.FeatureRecency: 0.2}),
		fused("a", 0.1, nil, map[recommend.Feature]float64{recommend.FeatureRecency: 0.2}),
		fused("b", 0.4, nil, map[recommend.Feature]float64{recommend.FeatureGNNSim: 0.4}),
	}
	first := order(NewEnsemble().Score(input, recommend.DefaultWeights()))
	for i := 0; i < 5; i++ {
		again := order(NewEnsemble().Score(input, recommend.DefaultWeights()))
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("run %d order %v differs from %v", i, again, first)
			}
		}
	}
}

func TestExplain(t *testing.T) {
	t.Parallel()

	w := recommend.DefaultWeights()
	tests := []struct {
		name string
		ff   recommend.FusedFeature
		want string
	}{
		{
			name: "category dominant",
			ff: recommend.FusedFeature{Category: "science", Features: func() recommend.FeatureVector {
				var v recommend.FeatureVector
				v.Set(recommend.FeatureCategoryMatch, 1)
				v.Set(recommend.FeatureRecency, 0.5)
				return v
			}()},
			want: ReasonCategory + "science",
		},
		{
			name: "recency dominant",
			ff: recommend.FusedFeature{Features: func() recommend.FeatureVector {
				var v recommend.FeatureVector
				v.Set(recommend.FeatureRecency, 1)
				return v
			}()},
			want: ReasonRecent,
		},
		{name: "nothing positive", ff: recommend.FusedFeature{}, want: ReasonRecommended},
		{name: "trending source with no signal", ff: recommend.FusedFeature{Source: recommend.SourceTrending}, want: ReasonTrending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := explain(&tt.ff, &w); got != tt.want {
				t.Errorf("explain() = %q, want %q", got, tt.want)
			}
		})
	}
}
