// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tomtom215/recserve/internal/metrics"
	"github.com/tomtom215/recserve/internal/recommend"
)

// entry is one user's cached result. Invalidated entries stay in the map
// as stale until the next sweep.
type entry struct {
	result *recommend.RecommendationResult
	stale  bool
}

// MemoryStore provides a thread-safe, capacity-bounded in-memory result
// cache.
//
// Entry lifecycle per user: absent -> fresh (Put) -> stale (expiry or
// Invalidate) -> absent (Sweep or capacity eviction).
type MemoryStore struct {
	mu         sync.RWMutex
	entries    map[string]*entry
	expiry     *expiryHeap
	maxEntries int
	now        func() time.Time
	stats      Stats
}

// Stats tracks cache performance metrics
type Stats struct {
	mu        sync.RWMutex
	Hits      int64
	Misses    int64
	Evictions int64
	TotalKeys int64
	LastSweep time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock sets the clock used for freshness checks.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryStore) { m.now = now }
}

// NewMemoryStore creates an in-memory store holding at most maxEntries
// users.
func NewMemoryStore(maxEntries int, opts ...MemoryOption) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = DefaultConfig().MaxEntries
	}
	m := &MemoryStore{
		entries:    make(map[string]*entry),
		expiry:     newExpiryHeap(),
		maxEntries: maxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the backend name.
func (m *MemoryStore) Name() string { return string(BackendMemory) }

// Get returns a copy of the user's result while it is fresh.
func (m *MemoryStore) Get(_ context.Context, userID string) (*recommend.RecommendationResult, bool, error) {
	now := m.now()

	m.mu.RLock()
	e, exists := m.entries[userID]
	var result *recommend.RecommendationResult
	if exists && !e.stale && now.Before(e.result.ExpiresAt) {
		result = e.result.Clone()
	}
	m.mu.RUnlock()

	if result == nil {
		m.recordMiss()
		return nil, false, nil
	}
	m.recordHit()
	return result, true, nil
}

// Put stores a copy of result, replacing any previous entry. When the store
// is full the entry closest to expiry is evicted first.
func (m *MemoryStore) Put(_ context.Context, userID string, result *recommend.RecommendationResult) error {
	if result == nil {
		return errors.New("cache: nil result")
	}
	stored := result.Clone()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[userID]; !exists {
		for len(m.entries) >= m.maxEntries {
			key, _, ok := m.expiry.peek()
			if !ok {
				break
			}
			m.expiry.remove(key)
			delete(m.entries, key)
			m.recordEvictions(1)
			metrics.RecommendCacheEvictions.WithLabelValues("capacity").Inc()
		}
	}

	m.entries[userID] = &entry{result: stored}
	m.expiry.set(userID, stored.ExpiresAt)
	m.setTotalKeys(len(m.entries))
	return nil
}

// Invalidate marks the user's entry stale. It is removed on the next sweep.
func (m *MemoryStore) Invalidate(_ context.Context, userID string) error {
	m.mu.Lock()
	if e, exists := m.entries[userID]; exists {
		e.stale = true
	}
	m.mu.Unlock()
	return nil
}

// Sweep removes stale and expired entries and returns how many were removed.
func (m *MemoryStore) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for _, key := range m.expiry.popExpired(now) {
		delete(m.entries, key)
		removed++
	}
	for key, e := range m.entries {
		if e.stale {
			m.expiry.remove(key)
			delete(m.entries, key)
			removed++
		}
	}

	if removed > 0 {
		metrics.RecommendCacheEvictions.WithLabelValues("stale").Add(float64(removed))
	}
	metrics.RecommendCacheEntries.WithLabelValues("fresh").Set(float64(len(m.entries)))

	m.recordEvictions(int64(removed))
	m.setTotalKeys(len(m.entries))
	m.stats.mu.Lock()
	m.stats.LastSweep = now
	m.stats.mu.Unlock()
	return removed
}

// Len returns the number of entries held, fresh or stale.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close releases nothing; it exists to satisfy Store.
func (m *MemoryStore) Close() error { return nil }

// GetStats returns a snapshot of current cache performance statistics.
func (m *MemoryStore) GetStats() Stats {
	m.stats.mu.RLock()
	defer m.stats.mu.RUnlock()

	return Stats{
		Hits:      m.stats.Hits,
		Misses:    m.stats.Misses,
		Evictions: m.stats.Evictions,
		TotalKeys: m.stats.TotalKeys,
		LastSweep: m.stats.LastSweep,
	}
}

// HitRate returns the cache hit rate as a percentage
func (m *MemoryStore) HitRate() float64 {
	stats := m.GetStats()
	total := stats.Hits + stats.Misses
	if total == 0 {
		return 0.0
	}
	return float64(stats.Hits) / float64(total) * 100.0
}

func (m *MemoryStore) recordHit() {
	m.stats.mu.Lock()
	m.stats.Hits++
	m.stats.mu.Unlock()
}

func (m *MemoryStore) recordMiss() {
	m.stats.mu.Lock()
	m.stats.Misses++
	m.stats.mu.Unlock()
}

func (m *MemoryStore) recordEvictions(n int64) {
	m.stats.mu.Lock()
	m.stats.Evictions += n
	m.stats.mu.Unlock()
}

func (m *MemoryStore) setTotalKeys(n int) {
	m.stats.mu.Lock()
	m.stats.TotalKeys = int64(n)
	m.stats.mu.Unlock()
}

var (
	_ Store   = (*MemoryStore)(nil)
	_ Sweeper = (*MemoryStore)(nil)
)
