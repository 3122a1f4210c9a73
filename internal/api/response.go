// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/recserve/internal/logging"
)

// APIResponse is the response envelope of every endpoint.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata for observability.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
}

// APIError is the error part of the envelope.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error codes for API responses
const (
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	ErrCodeTooManyRequests    = "TOO_MANY_REQUESTS"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// Envelope statuses.
const (
	statusSuccess = "success"
	statusError   = "error"
)

// respondJSON writes the envelope. Recommendation responses are personal,
// so they are never cacheable by intermediaries.
func respondJSON(w http.ResponseWriter, status int, response *APIResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondSuccess writes a success envelope timed from start.
func respondSuccess(w http.ResponseWriter, data interface{}, start time.Time, cached bool) {
	respondJSON(w, http.StatusOK, &APIResponse{
		Status: statusSuccess,
		Data:   data,
		Metadata: Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(start).Milliseconds(),
			Cached:      cached,
		},
	})
}

// respondError writes an error envelope. err is logged, never sent.
func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	respondErrorDetails(w, status, code, message, nil, err)
}

func respondErrorDetails(w http.ResponseWriter, status int, code, message string, details map[string]interface{}, err error) {
	if err != nil {
		logging.Error().Str("code", code).Str("error", sanitizeLogValue(err.Error())).Msg("API Error")
	}

	respondJSON(w, status, &APIResponse{
		Status: statusError,
		Data:   nil,
		Metadata: Metadata{
			Timestamp: time.Now().UTC(),
		},
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// sanitizeLogValue strips line breaks so client-controlled values cannot
// forge log lines.
func sanitizeLogValue(s string) string {
	return strings.NewReplacer("\n", " ", "\r", " ").Replace(s)
}
