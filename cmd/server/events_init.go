// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/tomtom215/recserve/internal/cache"
	"github.com/tomtom215/recserve/internal/config"
	"github.com/tomtom215/recserve/internal/eventprocessor"
	"github.com/tomtom215/recserve/internal/logging"
)

// eventsBackend is the interaction consumer and its optional deduper.
type eventsBackend struct {
	consumer    *eventprocessor.Consumer
	deduper     *cache.Deduper
	dedupWindow time.Duration
}

// initEvents builds the NATS interaction consumer.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func initEvents(cfg *config.EventsConfig, invalidator eventprocessor.Invalidator, recorder eventprocessor.InteractionRecorder, logger zerolog.Logger) (*eventsBackend, error) {
	procCfg := cfg.ToProcessor()
	events := &eventsBackend{dedupWindow: procCfg.DedupWindow}

	var opts []eventprocessor.HandlerOption
	if procCfg.DedupWindow > 0 {
		events.deduper = cache.NewDeduper(procCfg.DedupCapacity, procCfg.DedupWindow)
		opts = append(opts, eventprocessor.WithDeduper(events.deduper))
	}
	if procCfg.RecordInteractions {
		opts = append(opts, eventprocessor.WithRecorder(recorder))
	}

	handler, err := eventprocessor.NewInteractionHandler(invalidator, procCfg.InvalidateOn, logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("interaction handler: %w", err)
	}

	wmLogger := logging.NewWatermillAdapter(logging.WithComponent("nats"))
	subscribe := func() (message.Subscriber, error) {
		return eventprocessor.NewNATSSubscriber(&procCfg, wmLogger)
	}

	events.consumer, err = eventprocessor.NewConsumer(procCfg, subscribe, handler, logger)
	if err != nil {
		return nil, fmt.Errorf("interaction consumer: %w", err)
	}

	logger.Info().
		Str("url", procCfg.URL).
		Str("subject", procCfg.Subject).
		Strs("invalidate_on", procCfg.InvalidateOn).
		Msg("interaction events enabled")
	return events, nil
}

// dedupCleanup drops expired event IDs so the deduper does not hold them
// until capacity eviction.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func dedupCleanup(deduper *cache.Deduper, logger zerolog.Logger) func(context.Context) error {
	return func(context.Context) error {
		if removed := deduper.CleanupExpired(); removed > 0 {
			logger.Debug().Int("removed", removed).Msg("expired event IDs removed")
		}
		return nil
	}
}
