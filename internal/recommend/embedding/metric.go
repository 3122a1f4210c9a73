// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package embedding

import (
	"fmt"
	"math"
	"strings"
)

// Metric is the similarity function an embedding model was trained with.
type Metric string

const (
	// MetricCosine compares direction only. Zero vectors score 0.
	MetricCosine Metric = "cosine"

	// MetricDot is the raw inner product, used by models trained with
	// dot-product logits such as two-tower retrieval.
	MetricDot Metric = "dot"
)

// ParseMetric converts a configuration value to a Metric.
func ParseMetric(s string) (Metric, error) {
	switch m := Metric(strings.ToLower(strings.TrimSpace(s))); m {
	case MetricCosine, MetricDot:
		return m, nil
	case "inner_product", "dot_product":
		return MetricDot, nil
	default:
		return "", fmt.Errorf("unknown similarity metric %q (want cosine or dot)", s)
	}
}

// Similarity scores a against b. Vectors must have equal length.
func (m Metric) Similarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d vs %d", len(a), len(b))
	}
	switch m {
	case MetricDot:
		return dot(a, b), nil
	case MetricCosine:
		return cosine(a, b), nil
	default:
		return 0, fmt.Errorf("unknown similarity metric %q", string(m))
	}
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func cosine(a, b []float64) float64 {
	var ab, aa, bb float64
	for i := range a {
		ab += a[i] * b[i]
		aa += a[i] * a[i]
		bb += b[i] * b[i]
	}
	if aa == 0 || bb == 0 {
		return 0
	}
	return ab / (math.Sqrt(aa) * math.Sqrt(bb))
}
