// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package recommend

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// normalizeRequest applies defaults and bounds. Out-of-range limits and
// diversity weights are clamped; structurally invalid input is rejected.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) normalizeRequest(req Request) (Request, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		return req, &RequestError{Field: "user_id", Message: "is required"}
	}

	switch {
	case req.Limit < 0:
		return req, &RequestError{Field: "limit", Message: "must not be negative"}
	case req.Limit == 0:
		req.Limit = e.config.Limits.DefaultLimit
	case req.Limit > e.config.Limits.MaxLimit:
		req.Limit = e.config.Limits.MaxLimit
	}

	if req.DiversityWeight != nil {
		w := *req.DiversityWeight
		if math.IsNaN(w) {
			return req, &RequestError{Field: "diversity_weight", Message: "must be a number"}
		}
		w = Clamp01(w)
		req.DiversityWeight = &w
	}

	req.Categories = normalizeCategories(req.Categories)
	return req, nil
}

// normalizeCategories trims, deduplicates and sorts the filter so that
// equivalent requests share a cache signature.
func normalizeCategories(categories []string) []string {
	if len(categories) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(categories))
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}

// compatible reports whether a cached result can answer req. The cached
// list must have been built with the same filter, read exclusion and
// diversity override, and for at least as many items.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func compatible(cached *RecommendationResult, req Request) bool {
	gc := cached.GenerationContext
	if gc.FeatureSchema != FeatureSchemaVersion || gc.ExclusionIncomplete {
		return false
	}
	if gc.ExcludeRead != req.ExcludeRead || gc.Limit < req.Limit {
		return false
	}
	switch {
	case (gc.DiversityOverride == nil) != (req.DiversityWeight == nil):
		return false
	case req.DiversityWeight != nil && math.Abs(*gc.DiversityOverride-*req.DiversityWeight) > 1e-9:
		return false
	}
	if len(gc.Categories) != len(req.Categories) {
		return false
	}
	for i := range req.Categories {
		if gc.Categories[i] != req.Categories[i] {
			return false
		}
	}
	return true
}

// flightKey identifies requests whose pipeline runs can be shared.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func flightKey(req Request) string {
	var b strings.Builder
	b.WriteString(req.UserID)
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(req.Limit))
	b.WriteByte('|')
	b.WriteString(strings.Join(req.Categories, ","))
	b.WriteByte('|')
	b.WriteString(strconv.FormatBool(req.ExcludeRead))
	b.WriteByte('|')
	if req.DiversityWeight != nil {
		b.WriteString(strconv.FormatFloat(*req.DiversityWeight, 'g', -1, 64))
	}
	return b.String()
}
