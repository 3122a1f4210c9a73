// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/tomtom215/recserve/internal/recommend"
)

// maxBodyBytes bounds POST bodies.
const maxBodyBytes = 64 << 10

// RecommendationRequest is the wire form of a recommendation request, shared
// by the GET query string and the POST body.
type RecommendationRequest struct {
	UserID          string   `json:"user_id" validate:"required,identifier"`
	Limit           int      `json:"limit" validate:"omitempty,min=1,max=100"`
	Categories      []string `json:"categories" validate:"max=20,dive,identifier"`
	ExcludeRead     bool     `json:"exclude_read"`
	DiversityWeight *float64 `json:"diversity_weight,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// toEngine converts to the engine request.
func (r *RecommendationRequest) toEngine() recommend.Request {
	return recommend.Request{
		UserID:          r.UserID,
		Limit:           r.Limit,
		Categories:      r.Categories,
		ExcludeRead:     r.ExcludeRead,
		DiversityWeight: r.DiversityWeight,
	}
}

// paramError reports a query parameter that failed to parse.
type paramError struct {
	param string
	value string
}

func (e *paramError) Error() string {
	return fmt.Sprintf("%s has an invalid value %q", e.param, e.value)
}

// parseQueryRequest reads the GET query parameters. Absent parameters keep
// their zero value and the engine applies its defaults.
func parseQueryRequest(userID string, q url.Values) (RecommendationRequest, error) {
	req := RecommendationRequest{UserID: userID}

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return req, &paramError{param: "limit", value: v}
		}
		req.Limit = limit
	}

	if v := q.Get("categories"); v != "" {
		req.Categories = splitCSV(v)
	}

	if v := q.Get("exclude_read"); v != "" {
		exclude, err := strconv.ParseBool(v)
		if err != nil {
			return req, &paramError{param: "exclude_read", value: v}
		}
		req.ExcludeRead = exclude
	}

	if v := q.Get("diversity_weight"); v != "" {
		w, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return req, &paramError{param: "diversity_weight", value: v}
		}
		req.DiversityWeight = &w
	}
	return req, nil
}

// splitCSV splits a comma-separated list, dropping empty items.
func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
