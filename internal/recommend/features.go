// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package recommend

import (
	"fmt"
	"sort"

	"github.com/goccy/go-json"
)

// FeatureSchemaVersion is bumped whenever a Feature is added, removed or
// reordered. Cached results record the version they were scored with.
const FeatureSchemaVersion = 1

// Feature indexes one named signal in a FeatureVector.
type Feature int

const (
	FeatureTwoTowerSim Feature = iota
	FeatureCNNSim
	FeatureRNNSim
	FeatureGNNSim
	FeatureAttentionSim
	FeatureHybridSim
	FeatureRecency
	FeatureTrending
	FeatureEngagement
	FeatureQuality
	FeatureCategoryMatch

	// NumFeatures is the length of the schema.
	NumFeatures
)

var featureNames = [NumFeatures]string{
	FeatureTwoTowerSim:   "two_tower_sim",
	FeatureCNNSim:        "cnn_sim",
	FeatureRNNSim:        "rnn_sim",
	FeatureGNNSim:        "gnn_sim",
	FeatureAttentionSim:  "attention_sim",
	FeatureHybridSim:     "hybrid_sim",
	FeatureRecency:       "recency",
	FeatureTrending:      "trending_score",
	FeatureEngagement:    "engagement_score",
	FeatureQuality:       "quality_score",
	FeatureCategoryMatch: "category_match",
}

var similarityFeatures = map[ModelType]Feature{
	ModelTwoTower:  FeatureTwoTowerSim,
	ModelCNN:       FeatureCNNSim,
	ModelRNN:       FeatureRNNSim,
	ModelGNN:       FeatureGNNSim,
	ModelAttention: FeatureAttentionSim,
	ModelHybrid:    FeatureHybridSim,
}

// String returns the schema name of the feature.
func (f Feature) String() string {
	if f < 0 || f >= NumFeatures {
		return fmt.Sprintf("feature(%d)", int(f))
	}
	return featureNames[f]
}

// IsSimilarity reports whether f is a per-model similarity feature.
func (f Feature) IsSimilarity() bool {
	return f >= FeatureTwoTowerSim && f <= FeatureHybridSim
}

// ParseFeature resolves a schema name to a Feature.
func ParseFeature(name string) (Feature, error) {
	for i, n := range featureNames {
		if n == name {
			return Feature(i), nil
		}
	}
	return 0, fmt.Errorf("unknown feature %q (schema v%d)", name, FeatureSchemaVersion)
}

// SimilarityFeature returns the similarity feature for a model type.
func SimilarityFeature(m ModelType) (Feature, bool) {
	f, ok := similarityFeatures[m]
	return f, ok
}

// FeatureNames returns every feature name in schema order.
func FeatureNames() []string {
	out := make([]string, len(featureNames))
	copy(out[:], featureNames[:])
	return out
}

// FeatureVector holds one value per Feature. Missing signals are zero.
type FeatureVector [NumFeatures]float64

// Get returns the value of feature f.
func (v *FeatureVector) Get(f Feature) float64 {
	return v[f]
}

// Set assigns the value of feature f.
func (v *FeatureVector) Set(f Feature, value float64) {
	v[f] = value
}

// Map renders the vector keyed by feature name.
func (v *FeatureVector) Map() map[string]float64 {
	out := make(map[string]float64, NumFeatures)
	for i, name := range featureNames {
		out[name] = v[i]
	}
	return out
}

// MarshalJSON encodes the vector as an object keyed by feature name.
func (v FeatureVector) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Map())
}

// UnmarshalJSON decodes an object keyed by feature name. Unknown names are
// rejected so stale payloads cannot silently shift features.
func (v *FeatureVector) UnmarshalJSON(data []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*v = FeatureVector{}
	for name, value := range m {
		f, err := ParseFeature(name)
		if err != nil {
			return err
		}
		v[f] = value
	}
	return nil
}

// Weights assigns an ensemble weight to each Feature.
type Weights FeatureVector

// DefaultWeights favours embedding similarity over popularity signals.
func DefaultWeights() Weights {
	var w Weights
	w[FeatureTwoTowerSim] = 1.0
	w[FeatureCNNSim] = 0.8
	w[FeatureRNNSim] = 0.8
	w[FeatureGNNSim] = 0.8
	w[FeatureAttentionSim] = 0.9
	w[FeatureHybridSim] = 1.0
	w[FeatureRecency] = 0.1
	w[FeatureTrending] = 0.3
	w[FeatureEngagement] = 0.1
	w[FeatureQuality] = 0.1
	w[FeatureCategoryMatch] = 0.2
	return w
}

// WithOverrides returns a copy of w with the named weights replaced.
func (w Weights) WithOverrides(overrides map[string]float64) (Weights, error) {
	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		f, err := ParseFeature(name)
		if err != nil {
			return w, fmt.Errorf("weights: %w", err)
		}
		w[f] = overrides[name]
	}
	return w, nil
}

// Personalized scales the similarity and category weights by level.
// A level of 1 returns w unchanged.
func (w Weights) Personalized(level float64) Weights {
	level = Clamp01(level)
	if level == 1 {
		return w
	}
	for f := Feature(0); f < NumFeatures; f++ {
		if f.IsSimilarity() || f == FeatureCategoryMatch {
			w[f] *= level
		}
	}
	return w
}

// Dot returns the weighted sum of v.
func (w *Weights) Dot(v *FeatureVector) float64 {
	var sum float64
	for i := range w {
		sum += w[i] * v[i]
	}
	return sum
}

// Map renders the weights keyed by feature name.
func (w *Weights) Map() map[string]float64 {
	v := FeatureVector(*w)
	return v.Map()
}
