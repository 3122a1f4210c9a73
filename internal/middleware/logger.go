// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package middleware

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/tomtom215/recserve/internal/logging"
)

// ContextLogger stores logger in the request context so handlers can log
// through logging.Ctx, which adds the request ID.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func ContextLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logging.ContextWithLogger(r.Context(), logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
