// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package embedding

import (
	"fmt"

	"github.com/tomtom215/recserve/internal/recommend"
)

// SourceSpec describes one configured model source.
type SourceSpec struct {
	Model   string `koanf:"model" yaml:"model"`
	Metric  string `koanf:"metric" yaml:"metric"`
	Enabled bool   `koanf:"enabled" yaml:"enabled"`
}

// DefaultSourceSpecs enables every model type. The two-tower model scores
// with a dot product, the others with cosine similarity.
func DefaultSourceSpecs() []SourceSpec {
	specs := make([]SourceSpec, 0, len(recommend.AllModelTypes()))
	for _, m := range recommend.AllModelTypes() {
		metric := MetricCosine
		if m == recommend.ModelTwoTower {
			metric = MetricDot
		}
		specs = append(specs, SourceSpec{Model: string(m), Metric: string(metric), Enabled: true})
	}
	return specs
}

// NewSources builds the enabled sources in canonical model order.
// A model listed twice is an error.
func NewSources(specs []SourceSpec, store recommend.EmbeddingStore, opts ...SourceOption) ([]recommend.EmbeddingSource, error) {
	seen := make(map[recommend.ModelType]bool, len(specs))
	models := make([]recommend.ModelType, 0, len(specs))
	metrics := make(map[recommend.ModelType]Metric, len(specs))

	for _, spec := range specs {
		model, err := recommend.ParseModelType(spec.Model)
		if err != nil {
			return nil, err
		}
		if seen[model] {
			return nil, fmt.Errorf("model %s configured more than once", model)
		}
		seen[model] = true
		if !spec.Enabled {
			continue
		}
		metric, err := ParseMetric(spec.Metric)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", model, err)
		}
		models = append(models, model)
		metrics[model] = metric
	}

	recommend.SortModels(models)
	sources := make([]recommend.EmbeddingSource, 0, len(models))
	for _, m := range models {
		src, err := NewSource(m, metrics[m], store, opts...)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}
