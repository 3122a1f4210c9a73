// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/recserve/internal/recommend"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testResult(userID string, ttl time.Duration, ids ...string) *recommend.RecommendationResult {
	ranked := make([]recommend.RankedArticle, len(ids))
	for i, id := range ids {
		ranked[i] = recommend.RankedArticle{ArticleID: id, FinalScore: float64(len(ids) - i), Rank: i + 1, Reason: "similar to articles you read"}
	}
	return &recommend.RecommendationResult{
		UserID:         userID,
		RankedArticles: ranked,
		ModelEnsemble:  "ensemble",
		GeneratedAt:    testNow,
		ExpiresAt:      testNow.Add(ttl),
		GenerationContext: recommend.GenerationContext{
			PoolSize: len(ids),
			Limit:    len(ids),
		},
	}
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemoryStore_Lifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clk := &clock{now: testNow}
	store := NewMemoryStore(10, WithClock(clk.Now))

	if _, hit, err := store.Get(ctx, "u1"); hit || err != nil {
		t.Fatalf("Get() on empty store = hit %v, err %v", hit, err)
	}

	if err := store.Put(ctx, "u1", testResult("u1", time.Hour, "a", "b")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, hit, err := store.Get(ctx, "u1")
	if err != nil || !hit {
		t.Fatalf("Get() = hit %v, err %v; want fresh hit", hit, err)
	}
	if len(got.RankedArticles) != 2 || got.RankedArticles[0].ArticleID != "a" {
		t.Errorf("Get() returned %+v", got.RankedArticles)
	}

	// Callers own the returned copy.
	got.RankedArticles[0].ArticleID = "mutated"
	again, _, _ := store.Get(ctx, "u1")
	if again.RankedArticles[0].ArticleID != "a" {
		t.Error("mutating a returned result changed the cached entry")
	}

	clk.Advance(time.Hour)
	if _, hit, _ := store.Get(ctx, "u1"); hit {
		t.Error("Get() served a result at its expiry instant")
	}
	if store.Len() != 1 {
		t.Errorf("Len() = %d, expired entries stay until swept", store.Len())
	}
	if removed := store.Sweep(clk.Now()); removed != 1 {
		t.Errorf("Sweep() removed %d, want 1", removed)
	}
	if store.Len() != 0 {
		t.Errorf("Len() after sweep = %d, want 0", store.Len())
	}
}

func TestMemoryStore_Invalidate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore(10, WithClock(func() time.Time { return testNow }))

	if err := store.Put(ctx, "u1", testResult("u1", time.Hour, "a")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := store.Invalidate(ctx, "u1"); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if err := store.Invalidate(ctx, "missing"); err != nil {
		t.Errorf("Invalidate(missing) error = %v", err)
	}
	if _, hit, _ := store.Get(ctx, "u1"); hit {
		t.Error("Get() served an invalidated entry")
	}
	if removed := store.Sweep(testNow); removed != 1 {
		t.Errorf("Sweep() removed %d, want 1", removed)
	}

	// A new Put makes the user fresh again.
	if err := store.Put(ctx, "u1", testResult("u1", time.Hour, "b")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, hit, _ := store.Get(ctx, "u1")
	if !hit || got.RankedArticles[0].ArticleID != "b" {
		t.Errorf("Get() after re-put = %v, %+v", hit, got)
	}
}

func TestMemoryStore_CapacityEvictsEarliestExpiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore(3, WithClock(func() time.Time { return testNow }))

	ttls := map[string]time.Duration{
		"long":   3 * time.Hour,
		"short":  time.Minute,
		"medium": time.Hour,
	}
	for _, user := range []string{"long", "short", "medium"} {
		if err := store.Put(ctx, user, testResult(user, ttls[user], "a")); err != nil {
			t.Fatalf("Put(%s) error = %v", user, err)
		}
	}

	// Overwriting an existing user never evicts.
	if err := store.Put(ctx, "long", testResult("long", 3*time.Hour, "b")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if store.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", store.Len())
	}

	if err := store.Put(ctx, "new", testResult("new", 2*time.Hour, "a")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if store.Len() != 3 {
		t.Errorf("Len() = %d, want 3", store.Len())
	}
	if _, hit, _ := store.Get(ctx, "short"); hit {
		t.Error("entry closest to expiry was not evicted")
	}
	for _, user := range []string{"long", "medium", "new"} {
		if _, hit, _ := store.Get(ctx, user); !hit {
			t.Errorf("Get(%s) missed after capacity eviction", user)
		}
	}
	if stats := store.GetStats(); stats.Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", stats.Evictions)
	}
}

func TestMemoryStore_PutNil(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(1)
	if err := store.Put(context.Background(), "u1", nil); err == nil {
		t.Error("Put(nil) should fail")
	}
}

func TestMemoryStore_Stats(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore(10, WithClock(func() time.Time { return testNow }))
	_ = store.Put(ctx, "u1", testResult("u1", time.Hour, "a"))

	store.Get(ctx, "u1")
	store.Get(ctx, "u1")
	store.Get(ctx, "u2")

	stats := store.GetStats()
	if stats.Hits != 2 || stats.Misses != 1 || stats.TotalKeys != 1 {
		t.Errorf("stats = {Hits:%d Misses:%d TotalKeys:%d}, want 2 hits, 1 miss, 1 key",
			stats.Hits, stats.Misses, stats.TotalKeys)
	}
	if rate := store.HitRate(); rate < 66.6 || rate > 66.7 {
		t.Errorf("HitRate() = %f, want ~66.67", rate)
	}
}

func TestMemoryStore_Concurrent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore(50, WithClock(func() time.Time { return testNow }))

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				user := fmt.Sprintf("u%d", (g*200+i)%80)
				_ = store.Put(ctx, user, testResult(user, time.Duration(i+1)*time.Minute, "a"))
				store.Get(ctx, user)
				if i%7 == 0 {
					_ = store.Invalidate(ctx, user)
				}
				if i%50 == 0 {
					store.Sweep(testNow)
				}
			}
		}(g)
	}
	wg.Wait()

	if store.Len() > 50 {
		t.Errorf("Len() = %d exceeds capacity 50", store.Len())
	}
}

func TestKey(t *testing.T) {
	t.Parallel()
	if got := Key("user-42"); got != "recommendations:user-42" {
		t.Errorf("Key() = %q", got)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "unknown backend", mutate: func(c *Config) { c.Backend = "memcached" }, wantErr: true},
		{name: "memory zero capacity", mutate: func(c *Config) { c.MaxEntries = 0 }, wantErr: true},
		{name: "memory zero sweep", mutate: func(c *Config) { c.SweepInterval = 0 }, wantErr: true},
		{name: "badger without path", mutate: func(c *Config) { c.Backend = BackendBadger; c.BadgerPath = "" }, wantErr: true},
		{name: "redis without addr", mutate: func(c *Config) { c.Backend = BackendRedis; c.Redis.Addr = "" }, wantErr: true},
		{name: "redis", mutate: func(c *Config) { c.Backend = BackendRedis }},
		{name: "bad retry", mutate: func(c *Config) { c.Retry.InitialInterval = 0 }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
