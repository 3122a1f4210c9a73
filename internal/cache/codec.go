// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package cache

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/recserve/internal/recommend"
)

// encodeResult serializes a result for the persistent backends.
func encodeResult(result *recommend.RecommendationResult) ([]byte, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal recommendation result: %w", err)
	}
	return data, nil
}

func decodeResult(data []byte) (*recommend.RecommendationResult, error) {
	var result recommend.RecommendationResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unmarshal recommendation result: %w", err)
	}
	return &result, nil
}
