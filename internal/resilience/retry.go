// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tomtom215/recserve/internal/metrics"
)

// RetryConfig bounds retries at an I/O boundary.
type RetryConfig struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries uint64 `koanf:"max_retries"`

	// InitialInterval is the wait before the first retry.
	InitialInterval time.Duration `koanf:"initial_interval"`

	// MaxInterval caps the exponential backoff.
	MaxInterval time.Duration `koanf:"max_interval"`
}

// DefaultRetryConfig retries once after 50ms.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      1,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     500 * time.Millisecond,
	}
}

// Validate checks the configuration.
func (c *RetryConfig) Validate() error {
	if c.InitialInterval <= 0 {
		return fmt.Errorf("retry initial_interval must be positive, got %v", c.InitialInterval)
	}
	if c.MaxInterval < c.InitialInterval {
		return fmt.Errorf("retry max_interval (%v) must be >= initial_interval (%v)", c.MaxInterval, c.InitialInterval)
	}
	return nil
}

// Permanent marks err as not worth retrying, such as a not-found result.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// Retry runs op until it succeeds, returns a Permanent error, exhausts the
// retry budget, or ctx is done. target labels the retry metric.
func Retry(ctx context.Context, cfg RetryConfig, target string, op func() error) error {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = cfg.InitialInterval
	exp.MaxInterval = cfg.MaxInterval
	exp.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(exp, cfg.MaxRetries), ctx)
	return backoff.RetryNotify(op, policy, func(_ error, _ time.Duration) {
		metrics.StoreRetries.WithLabelValues(target).Inc()
	})
}
