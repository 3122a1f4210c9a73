// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/recserve/internal/testinfra"
)

func TestRedisStore_Integration(t *testing.T) {
	testinfra.SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	server, err := testinfra.NewRedisContainer(ctx)
	if err != nil {
		t.Fatalf("Failed to start redis: %v", err)
	}
	defer testinfra.CleanupContainer(t, context.Background(), server.Container)

	cfg := DefaultRedisConfig()
	cfg.Addr = server.Addr
	cfg.ReadTimeout = 2 * time.Second
	cfg.WriteTimeout = 2 * time.Second

	store, err := OpenRedisStore(cfg)
	if err != nil {
		t.Fatalf("OpenRedisStore() error = %v", err)
	}
	defer store.Close()
	store.now = func() time.Time { return testNow }

	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}

	if _, ok, err := store.Get(ctx, "u1"); err != nil || ok {
		t.Fatalf("Get() on empty store = ok %v, err %v", ok, err)
	}

	if err := store.Put(ctx, "u1", testResult("u1", time.Hour, "a1", "a2")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, ok, err := store.Get(ctx, "u1")
	if err != nil || !ok {
		t.Fatalf("Get() = ok %v, err %v", ok, err)
	}
	if len(got.RankedArticles) != 2 || got.RankedArticles[0].ArticleID != "a1" {
		t.Errorf("Unexpected cached result %+v", got.RankedArticles)
	}

	// Expired results are never written.
	if err := store.Put(ctx, "u2", testResult("u2", -time.Minute, "a1")); err != nil {
		t.Fatalf("Put(expired) error = %v", err)
	}
	if _, ok, _ := store.Get(ctx, "u2"); ok {
		t.Error("Expected expired result to be absent")
	}

	if err := store.Invalidate(ctx, "u1"); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if _, ok, _ := store.Get(ctx, "u1"); ok {
		t.Error("Expected invalidated result to be absent")
	}

	ttl, err := store.client.TTL(ctx, Key("u1")).Result()
	if err != nil {
		t.Fatalf("TTL() error = %v", err)
	}
	if ttl >= 0 {
		t.Errorf("Expected no key after invalidation, ttl = %v", ttl)
	}
}
