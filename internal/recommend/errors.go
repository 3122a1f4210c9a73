// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package recommend

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a missing embedding, article, or profile. It is
	// never fatal: the caller skips that signal.
	ErrNotFound = errors.New("not found")

	// ErrTimeout reports that the pipeline deadline was exceeded.
	ErrTimeout = errors.New("deadline exceeded")

	// ErrStoreUnavailable reports a store that could not be reached after
	// the bounded retry at the I/O boundary.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInvalidRequest reports a request rejected at the boundary.
	ErrInvalidRequest = errors.New("invalid request")
)

// RequestError describes why a request was rejected.
type RequestError struct {
	Field   string
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidRequest.
func (e *RequestError) Unwrap() error {
	return ErrInvalidRequest
}

// IsTimeout reports whether err is a pipeline or context deadline error.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}

// Fallback reasons recorded in GenerationContext.Fallback.
const (
	FallbackTimeout = "timeout"
	FallbackError   = "error"
)

func fallbackReason(err error) string {
	if IsTimeout(err) {
		return FallbackTimeout
	}
	return FallbackError
}
