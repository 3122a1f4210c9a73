// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Task is one run of periodic work.
type Task func(ctx context.Context) error

// PeriodicService runs a task on a fixed interval under supervision. Task
// errors are logged and retried on the next tick; they never restart the
// service.
type PeriodicService struct {
	name       string
	interval   time.Duration
	task       Task
	runOnStart bool
	timeout    time.Duration
	logger     zerolog.Logger
}

// PeriodicOption configures a PeriodicService.
type PeriodicOption func(*PeriodicService)

// RunOnStart runs the task once before the first tick.
func RunOnStart() PeriodicOption {
	return func(s *PeriodicService) { s.runOnStart = true }
}

// WithTaskTimeout bounds each run. The default is the interval.
func WithTaskTimeout(d time.Duration) PeriodicOption {
	return func(s *PeriodicService) { s.timeout = d }
}

// NewPeriodicService creates a service running task every interval.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewPeriodicService(name string, interval time.Duration, task Task, logger zerolog.Logger, opts ...PeriodicOption) *PeriodicService {
	if interval <= 0 {
		interval = time.Minute
	}
	s := &PeriodicService{
		name:     name,
		interval: interval,
		task:     task,
		timeout:  interval,
		logger:   logger.With().Str("service", name).Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve implements suture.Service.
func (s *PeriodicService) Serve(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.interval).Msg("periodic service starting")

	if s.runOnStart {
		s.run(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("periodic service shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.run(ctx)
		}
	}
}

func (s *PeriodicService) run(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	if err := s.task(runCtx); err != nil {
		s.logger.Warn().Err(err).Dur("duration", time.Since(start)).Msg("periodic task failed")
		return
	}
	s.logger.Debug().Dur("duration", time.Since(start)).Msg("periodic task complete")
}

// String names the service in supervisor logs.
func (s *PeriodicService) String() string {
	return s.name
}
