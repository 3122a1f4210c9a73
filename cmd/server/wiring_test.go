// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/recserve/internal/cache"
	"github.com/tomtom215/recserve/internal/config"
	"github.com/tomtom215/recserve/internal/recommend"
	"github.com/tomtom215/recserve/internal/recommend/embedding"
	"github.com/tomtom215/recserve/internal/recommend/storage"
)

const testSeed = `articles:
  - id: a1
    status: published
    category: tech
    published_at: 2026-01-02T15:04:05Z
    trending_score: 10
  - id: a2
    status: published
    category: sports
    published_at: 2026-01-03T15:04:05Z
    trending_score: 5
  - id: a3
    status: draft
    category: tech
    published_at: 2026-01-04T15:04:05Z
embeddings:
  - entity_id: u1
    entity_type: user
    model_type: two_tower
    model_version: v1
    vector: [1, 0]
    dimension: 2
    is_active: true
  - entity_id: a1
    entity_type: article
    model_type: two_tower
    model_version: v1
    vector: [0.9, 0.1]
    dimension: 2
    is_active: true
  - entity_id: a2
    entity_type: article
    model_type: two_tower
    model_version: v1
    vector: [0.2, 0.8]
    dimension: 2
    is_active: true
`

func loadTestConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	seedPath := filepath.Join(dir, "seed.yaml")
	if err := os.WriteFile(seedPath, []byte(testSeed), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	cfgPath := filepath.Join(dir, "config.yaml")
	doc := "storage:\n  backend: memory\n  seed_path: " + seedPath + "\n"
	if err := os.WriteFile(cfgPath, []byte(doc), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv(config.ConfigPathEnvVar, cfgPath)
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	return cfg
}

func TestWiring_MemoryBackendServesSeed(t *testing.T) {
	cfg := loadTestConfig(t)
	ctx := context.Background()
	logger := zerolog.Nop()

	backend, err := initStorage(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("initStorage() error = %v", err)
	}
	defer backend.Close()

	if err := backend.ping(ctx); err != nil {
		t.Errorf("ping() error = %v", err)
	}
	if backend.refresher != nil {
		t.Error("Expected no refresher without a snapshot dir")
	}

	resultCache, err := cache.Open(cfg.Cache, logger)
	if err != nil {
		t.Fatalf("cache.Open() error = %v", err)
	}
	defer resultCache.Close()

	engine, err := initEngine(&cfg.Recommend, backend.store, resultCache, logger)
	if err != nil {
		t.Fatalf("initEngine() error = %v", err)
	}

	result, err := engine.GetRecommendations(ctx, recommend.Request{UserID: "u1", Limit: 2})
	if err != nil {
		t.Fatalf("GetRecommendations() error = %v", err)
	}
	if len(result.RankedArticles) > 2 {
		t.Errorf("Expected at most 2 recommendations, got %d", len(result.RankedArticles))
	}
	for _, ra := range result.RankedArticles {
		if ra.ArticleID == "a3" {
			t.Error("Draft article must not be recommended")
		}
	}

	if err := engine.Invalidate(ctx, "u1"); err != nil {
		t.Errorf("Invalidate() error = %v", err)
	}
}

func TestWiring_MissingSeedFile(t *testing.T) {
	cfg := loadTestConfig(t)
	cfg.Storage.SeedPath = filepath.Join(t.TempDir(), "missing.yaml")

	if _, err := initStorage(context.Background(), cfg, zerolog.Nop()); err == nil {
		t.Fatal("Expected error for a missing seed file")
	}
}

func TestWiring_EventsConsumer(t *testing.T) {
	cfg := loadTestConfig(t)
	cfg.Events.Enabled = true

	backend, err := initStorage(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("initStorage() error = %v", err)
	}
	defer backend.Close()

	resultCache, err := cache.Open(cfg.Cache, zerolog.Nop())
	if err != nil {
		t.Fatalf("cache.Open() error = %v", err)
	}
	defer resultCache.Close()

	engine, err := initEngine(&cfg.Recommend, backend.store, resultCache, zerolog.Nop())
	if err != nil {
		t.Fatalf("initEngine() error = %v", err)
	}

	events, err := initEvents(&cfg.Events, engine, backend.store, zerolog.Nop())
	if err != nil {
		t.Fatalf("initEvents() error = %v", err)
	}
	if events.consumer.IsRunning() {
		t.Error("Expected consumer to be idle before Serve")
	}
	if events.deduper == nil || events.dedupWindow != cfg.Events.DedupWindow {
		t.Errorf("Expected deduper with window %v, got %+v", cfg.Events.DedupWindow, events)
	}
}

type fakeSweeper struct {
	sweptAt time.Time
	rate    float64
}

func (f *fakeSweeper) Sweep(now time.Time) int {
	f.sweptAt = now
	return 2
}

func (f *fakeSweeper) HitRate() float64 { return f.rate }

func TestCacheSweep(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sweeper := &fakeSweeper{rate: 75}
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	if err := cacheSweep(sweeper, func() time.Time { return at }, logger)(context.Background()); err != nil {
		t.Fatalf("cacheSweep() error = %v", err)
	}
	if !sweeper.sweptAt.Equal(at) {
		t.Errorf("Sweep called with %v, want %v", sweeper.sweptAt, at)
	}
	out := buf.String()
	if !strings.Contains(out, `"removed":2`) || !strings.Contains(out, `"hit_rate_pct":75`) {
		t.Errorf("Expected removed count and hit rate in log, got: %s", out)
	}
}

func TestDedupCleanup(t *testing.T) {
	t.Parallel()

	deduper := cache.NewDeduper(10, time.Millisecond)
	deduper.Seen("evt-1")
	deduper.Seen("evt-2")
	time.Sleep(10 * time.Millisecond)

	if err := dedupCleanup(deduper, zerolog.Nop())(context.Background()); err != nil {
		t.Fatalf("dedupCleanup() error = %v", err)
	}
	if n := deduper.Len(); n != 0 {
		t.Errorf("Len() after cleanup = %d, want 0", n)
	}
}

func TestSourceMetrics(t *testing.T) {
	t.Parallel()

	sources, err := embedding.NewSources([]embedding.SourceSpec{
		{Model: "two_tower", Metric: "dot", Enabled: true},
		{Model: "cnn", Metric: "cosine", Enabled: true},
		{Model: "gnn", Metric: "cosine", Enabled: false},
	}, storage.NewMemoryStore())
	if err != nil {
		t.Fatalf("NewSources() error = %v", err)
	}

	got := sourceMetrics(sources)
	want := map[string]string{"two_tower": "dot", "cnn": "cosine"}
	if len(got) != len(want) {
		t.Fatalf("sourceMetrics() = %v, want %v", got, want)
	}
	for model, metric := range want {
		if got[model] != metric {
			t.Errorf("metric for %s = %q, want %q", model, got[model], metric)
		}
	}
}
