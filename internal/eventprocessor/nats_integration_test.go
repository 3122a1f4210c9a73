// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

//go:build integration

package eventprocessor

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/recserve/internal/logging"
	"github.com/tomtom215/recserve/internal/recommend"
	"github.com/tomtom215/recserve/internal/testinfra"
)

func TestConsumer_NATSJetStream(t *testing.T) {
	testinfra.SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker, err := testinfra.NewNATSContainer(ctx)
	if err != nil {
		t.Fatalf("Failed to start NATS: %v", err)
	}
	defer testinfra.CleanupContainer(t, context.Background(), broker.Container)

	cfg := DefaultConfig()
	cfg.URL = broker.URL
	cfg.SubscribersCount = 1
	cfg.CloseTimeout = 5 * time.Second

	logger := logging.NewTestLogger(io.Discard)
	wmLogger := logging.NewWatermillAdapter(logger)

	inv := &fakeInvalidator{}
	handler, err := NewInteractionHandler(inv, cfg.InvalidateOn, logger)
	if err != nil {
		t.Fatalf("NewInteractionHandler: %v", err)
	}
	consumer, err := NewConsumer(cfg, func() (message.Subscriber, error) {
		return NewNATSSubscriber(&cfg, wmLogger)
	}, handler, logger)
	if err != nil {
		t.Fatalf("NewConsumer: %v", err)
	}

	serveCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- consumer.Serve(serveCtx) }()

	pub, err := NewNATSPublisher(&cfg, wmLogger)
	if err != nil {
		t.Fatalf("NewNATSPublisher: %v", err)
	}
	defer pub.Close()

	// The subscription only receives new messages, so publish until the
	// consumer has caught one.
	deadline := time.Now().Add(30 * time.Second)
	for len(inv.invalidated()) == 0 && time.Now().Before(deadline) {
		if consumer.IsRunning() {
			msg := NewInteractionMessage(payload(t, "u-save", "a1", recommend.InteractionSave))
			if err := pub.Publish(cfg.Subject, msg); err != nil {
				t.Logf("Publish: %v", err)
			}
		}
		time.Sleep(500 * time.Millisecond)
	}

	got := inv.invalidated()
	if len(got) == 0 || got[0] != "u-save" {
		t.Fatalf("invalidated = %v, want u-save", got)
	}
	if err := consumer.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck while running: %v", err)
	}

	stop()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() = %v, want nil on shutdown", err)
		}
	case <-time.After(30 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
