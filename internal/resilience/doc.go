// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

// Package resilience provides the retry and circuit breaker primitives used
// at I/O boundaries: embedding and article stores retry once with a short
// backoff, remote cache backends sit behind a circuit breaker.
//
//	err := resilience.Retry(ctx, resilience.DefaultRetryConfig(), "duckdb", func() error {
//	    rows, err = db.QueryContext(ctx, query, args...)
//	    return err
//	})
package resilience
