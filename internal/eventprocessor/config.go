// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package eventprocessor

import (
	"fmt"
	"time"

	"github.com/tomtom215/recserve/internal/recommend"
)

// Config holds interaction consumer settings.
type Config struct {
	// NATS connection
	URL           string
	MaxReconnects int // -1 for unlimited
	ReconnectWait time.Duration

	// JetStream subscription
	Subject          string
	StreamName       string // bind to an existing stream when set
	DurableName      string
	QueueGroup       string
	SubscribersCount int
	AckWaitTimeout   time.Duration
	CloseTimeout     time.Duration
	MaxDeliver       int
	MaxAckPending    int

	// Handler retry before nacking
	RetryMaxRetries      int
	RetryInitialInterval time.Duration

	// Processing
	InvalidateOn       []string
	RecordInteractions bool
	DedupWindow        time.Duration
	DedupCapacity      int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		URL:                  "nats://127.0.0.1:4222",
		MaxReconnects:        -1,
		ReconnectWait:        2 * time.Second,
		Subject:              "interactions.recorded",
		DurableName:          "recserve",
		QueueGroup:           "recserve",
		SubscribersCount:     2,
		AckWaitTimeout:       30 * time.Second,
		CloseTimeout:         30 * time.Second,
		MaxDeliver:           5,
		MaxAckPending:        1000,
		RetryMaxRetries:      2,
		RetryInitialInterval: 100 * time.Millisecond,
		InvalidateOn:         recommend.StrongInteractionNames(),
		DedupWindow:          5 * time.Minute,
		DedupCapacity:        10000,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("%w: NATS URL is required", ErrInvalidConfig)
	}
	if c.Subject == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidConfig)
	}
	if c.SubscribersCount < 1 {
		return fmt.Errorf("%w: subscribers count must be positive, got %d", ErrInvalidConfig, c.SubscribersCount)
	}
	if c.RetryMaxRetries < 0 {
		return fmt.Errorf("%w: retry max retries must not be negative, got %d", ErrInvalidConfig, c.RetryMaxRetries)
	}
	if _, err := invalidationSet(c.InvalidateOn); err != nil {
		return err
	}
	if c.DedupWindow > 0 && c.DedupCapacity < 1 {
		return fmt.Errorf("%w: dedup capacity must be positive when a dedup window is set", ErrInvalidConfig)
	}
	return nil
}

// invalidationSet parses the interaction type names that invalidate.
func invalidationSet(names []string) (map[recommend.InteractionType]struct{}, error) {
	set := make(map[recommend.InteractionType]struct{}, len(names))
	for _, name := range names {
		t, err := recommend.ParseInteractionType(name)
		if err != nil {
			return nil, fmt.Errorf("%w: invalidate_on: %w", ErrInvalidConfig, err)
		}
		set[t] = struct{}{}
	}
	return set, nil
}
