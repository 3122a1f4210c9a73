// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package resilience

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/recserve/internal/metrics"
)

// BreakerConfig configures a circuit breaker.
type BreakerConfig struct {
	// Name labels logs and metrics.
	Name string `koanf:"name"`

	// MaxRequests is the number of trial requests allowed while half-open.
	MaxRequests uint32 `koanf:"max_requests"`

	// Interval resets the failure counts while closed.
	Interval time.Duration `koanf:"interval"`

	// Timeout is how long the breaker stays open before trying again.
	Timeout time.Duration `koanf:"timeout"`

	// MinRequests is the sample size below which the breaker never trips.
	MinRequests uint32 `koanf:"min_requests"`

	// FailureRatio trips the breaker once reached.
	FailureRatio float64 `koanf:"failure_ratio"`
}

// DefaultBreakerConfig opens after a 60% failure rate over at least 10
// requests and probes again after 30 seconds.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:         name,
		MaxRequests:  3,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		MinRequests:  10,
		FailureRatio: 0.6,
	}
}

// Validate checks the configuration.
func (c *BreakerConfig) Validate() error {
	if c.Name == "" {
		return errors.New("breaker name is required")
	}
	if c.MaxRequests == 0 {
		return fmt.Errorf("breaker %s: max_requests must be positive", c.Name)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("breaker %s: timeout must be positive, got %v", c.Name, c.Timeout)
	}
	if c.FailureRatio <= 0 || c.FailureRatio > 1 {
		return fmt.Errorf("breaker %s: failure_ratio must be in (0, 1], got %f", c.Name, c.FailureRatio)
	}
	return nil
}

// Breaker wraps calls to a remote dependency with the circuit breaker
// pattern so an unavailable backend fails fast instead of adding latency
// to every request.
//
// The breaker uses real time (via sony/gobreaker) for its interval and
// timeout. Tests exercise trip behaviour with a small MinRequests rather
// than a fake clock.
type Breaker struct {
	cb     *gobreaker.CircuitBreaker[interface{}]
	name   string
	logger zerolog.Logger
}

// NewBreaker creates a circuit breaker and initialises its metrics.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewBreaker(cfg BreakerConfig, logger zerolog.Logger) (*Breaker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b := &Breaker{
		name:   cfg.Name,
		logger: logger.With().Str("component", "circuit_breaker").Str("breaker", cfg.Name).Logger(),
	}

	metrics.CircuitBreakerState.WithLabelValues(cfg.Name).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cfg.Name).Set(0)

	b.cb = gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= cfg.FailureRatio
			if shouldTrip {
				b.logger.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("Opening circuit")
			}
			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)
			b.logger.Info().Str("from", fromStr).Str("to", toStr).Msg("Circuit state transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})

	return b, nil
}

// Name returns the breaker name.
func (b *Breaker) Name() string { return b.name }

// State returns closed, half-open or open.
func (b *Breaker) State() string { return stateToString(b.cb.State()) }

// Execute runs fn under the breaker. Rejections return ErrOpen.
func (b *Breaker) Execute(fn func() error) error {
	_, err := b.execute(func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

// Do runs fn under the breaker and returns its typed result.
func Do[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	result, err := b.execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker %s: unexpected result type %T", b.name, result)
	}
	return typed, nil
}

// ErrOpen is returned when the breaker rejects a call.
var ErrOpen = errors.New("circuit breaker open")

// IsRejected reports whether err came from an open or saturated breaker.
func IsRejected(err error) bool {
	return errors.Is(err, ErrOpen)
}

func (b *Breaker) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := b.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
			b.logger.Debug().Err(err).Msg("Request rejected")
			return nil, fmt.Errorf("%s: %w", b.name, ErrOpen)
		}
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		counts := b.cb.Counts()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(float64(counts.ConsecutiveFailures))
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(0)
	return result, nil
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// stateToString converts circuit breaker state to string for logging
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
