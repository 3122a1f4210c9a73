// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package database

import (
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// closeWithLog closes a resource and logs any error
func closeWithLog(closer io.Closer, logger *zerolog.Logger, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil && logger != nil {
		logger.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}

// closeQuietly closes a resource and explicitly ignores any error
// Use this for cleanup operations in error paths where Close() errors are not actionable
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close() // Explicitly ignore error - cleanup is best-effort
	}
}

// isConnectionError checks if an error indicates database connection loss
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"bad connection",
		"database is closed",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// isTransactionConflict checks if an error is a DuckDB transaction conflict
func isTransactionConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Transaction conflict") ||
		strings.Contains(msg, "Conflict on update")
}
