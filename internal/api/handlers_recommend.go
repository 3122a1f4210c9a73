// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/recserve/internal/logging"
	"github.com/tomtom215/recserve/internal/recommend"
	"github.com/tomtom215/recserve/internal/validation"
)

// GetRecommendations serves GET /api/v1/recommendations/{userID}.
//
// Query parameters:
//   - limit: number of articles, 1-100 (engine default when absent)
//   - categories: comma-separated category filter
//   - exclude_read: drop articles the user already read
//   - diversity_weight: per-request diversity override in [0, 1]
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req, err := parseQueryRequest(chi.URLParam(r, "userID"), r.URL.Query())
	if err != nil {
		var pe *paramError
		if errors.As(err, &pe) {
			respondErrorDetails(w, http.StatusBadRequest, ErrCodeValidation, pe.Error(),
				map[string]interface{}{"field": pe.param}, nil)
			return
		}
		respondError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid query parameters", err)
		return
	}

	h.recommend(w, r, &req, start)
}

// PostRecommendations serves POST /api/v1/recommendations.
func (h *Handler) PostRecommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req RecommendationRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeBadRequest, "Request body must be a JSON object", err)
		return
	}

	h.recommend(w, r, &req, start)
}

func (h *Handler) recommend(w http.ResponseWriter, r *http.Request, req *RecommendationRequest, start time.Time) {
	if verr := validation.ValidateStruct(req); verr != nil {
		apiErr := verr.ToAPIError()
		respondErrorDetails(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details, nil)
		return
	}

	result, err := h.recommender.GetRecommendations(r.Context(), req.toEngine())
	if err != nil {
		h.respondEngineError(w, r, err)
		return
	}

	respondSuccess(w, result, start, result.GenerationContext.CacheServed)
}

// InvalidateRecommendations serves DELETE /api/v1/recommendations/{userID}/cache.
func (h *Handler) InvalidateRecommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	userID := chi.URLParam(r, "userID")

	if err := h.recommender.Invalidate(r.Context(), userID); err != nil {
		h.respondEngineError(w, r, err)
		return
	}

	respondSuccess(w, map[string]interface{}{
		"user_id":     userID,
		"invalidated": true,
	}, start, false)
}

func (h *Handler) respondEngineError(w http.ResponseWriter, r *http.Request, err error) {
	var reqErr *recommend.RequestError
	switch {
	case errors.As(err, &reqErr):
		respondErrorDetails(w, http.StatusBadRequest, ErrCodeValidation, reqErr.Field+" "+reqErr.Message,
			map[string]interface{}{"field": reqErr.Field}, nil)
	case errors.Is(err, recommend.ErrStoreUnavailable):
		respondError(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Recommendation store unavailable", err)
	default:
		logging.Ctx(r.Context()).Error().Err(err).Msg("recommendation request failed")
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "Failed to generate recommendations", nil)
	}
}
