// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package eventprocessor

import "errors"

// ErrInvalidConfig is returned when configuration is invalid.
var ErrInvalidConfig = errors.New("invalid configuration")

// ErrMalformedEvent is returned when a payload cannot be decoded or fails
// validation. Such messages are acked, never retried.
var ErrMalformedEvent = errors.New("malformed interaction event")
