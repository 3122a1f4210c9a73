// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/rs/zerolog"

	"github.com/tomtom215/recserve/internal/logging"
)

// handlerName identifies the interaction handler in router logs.
const handlerName = "interaction-invalidation"

// SubscriberFactory opens a fresh subscriber. The router closes its
// subscriber on shutdown, so every Serve call needs a new one.
type SubscriberFactory func() (message.Subscriber, error)

// Consumer runs the interaction handler behind a Watermill router. It
// implements suture.Service.
type Consumer struct {
	cfg        Config
	subscriber SubscriberFactory
	handler    *InteractionHandler
	logger     zerolog.Logger
	wmLogger   watermill.LoggerAdapter
	running    atomic.Bool
}

// NewConsumer creates a consumer of cfg.Subject.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewConsumer(cfg Config, subscriber SubscriberFactory, handler *InteractionHandler, logger zerolog.Logger) (*Consumer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if subscriber == nil || handler == nil {
		return nil, errors.New("eventprocessor: subscriber factory and handler are required")
	}

	logger = logger.With().Str("component", "interaction-consumer").Logger()
	return &Consumer{
		cfg:        cfg,
		subscriber: subscriber,
		handler:    handler,
		logger:     logger,
		wmLogger:   logging.NewWatermillAdapter(logger),
	}, nil
}

// Serve runs until ctx is canceled. It returns nil on a clean shutdown so
// the supervisor does not restart it.
func (c *Consumer) Serve(ctx context.Context) error {
	sub, err := c.subscriber()
	if err != nil {
		return fmt.Errorf("open subscriber: %w", err)
	}

	router, err := c.newRouter(sub)
	if err != nil {
		_ = sub.Close() //nolint:errcheck // best effort on a failed start
		return err
	}

	c.logger.Info().Str("subject", c.cfg.Subject).Msg("interaction consumer starting")
	c.running.Store(true)
	defer c.running.Store(false)

	err = router.Run(ctx)
	if ctx.Err() != nil {
		c.logger.Info().Msg("interaction consumer stopped")
		return nil
	}
	if err != nil {
		return fmt.Errorf("interaction router: %w", err)
	}
	return errors.New("interaction router stopped unexpectedly")
}

// IsRunning reports whether the router is consuming.
func (c *Consumer) IsRunning() bool {
	return c.running.Load()
}

// HealthCheck fails while the consumer is not running.
func (c *Consumer) HealthCheck(context.Context) error {
	if !c.IsRunning() {
		return errors.New("interaction consumer not running")
	}
	return nil
}

// String names the service in supervisor logs.
func (c *Consumer) String() string {
	return "interaction-consumer"
}

func (c *Consumer) newRouter(sub message.Subscriber) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: c.cfg.CloseTimeout,
	}, c.wmLogger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	router.AddMiddleware(middleware.Recoverer)
	if c.cfg.RetryMaxRetries > 0 {
		retry := middleware.Retry{
			MaxRetries:      c.cfg.RetryMaxRetries,
			InitialInterval: c.cfg.RetryInitialInterval,
			MaxInterval:     time.Second,
			Multiplier:      2.0,
			Logger:          c.wmLogger,
		}
		router.AddMiddleware(retry.Middleware)
	}

	router.AddConsumerHandler(handlerName, c.cfg.Subject, sub, c.handler.Handle)
	return router, nil
}
