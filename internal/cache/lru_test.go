// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestDeduper_Seen(t *testing.T) {
	t.Parallel()

	d := NewDeduper(10, time.Minute)
	if d.Seen("evt-1") {
		t.Error("first Seen() should report new")
	}
	if !d.Seen("evt-1") {
		t.Error("second Seen() should report duplicate")
	}
	if d.Seen("evt-2") {
		t.Error("different key should report new")
	}

	dup, unique, size := d.Stats()
	if dup != 1 || unique != 2 || size != 2 {
		t.Errorf("Stats() = %d, %d, %d; want 1, 2, 2", dup, unique, size)
	}
}

func TestDeduper_TTL(t *testing.T) {
	t.Parallel()

	clk := &clock{now: testNow}
	d := NewDeduper(10, time.Minute)
	d.now = clk.Now

	d.Seen("evt-1")
	clk.Advance(30 * time.Second)
	d.Seen("evt-2")
	clk.Advance(31 * time.Second)

	if removed := d.CleanupExpired(); removed != 1 {
		t.Errorf("CleanupExpired() removed %d, want 1", removed)
	}
	if d.Seen("evt-1") {
		t.Error("expired key should be reported new")
	}
	if !d.Seen("evt-2") {
		t.Error("unexpired key should be reported duplicate")
	}
}

func TestDeduper_EvictsLeastRecentlySeen(t *testing.T) {
	t.Parallel()

	d := NewDeduper(3, time.Hour)
	d.Seen("a")
	d.Seen("b")
	d.Seen("c")
	d.Seen("a") // refresh a; b is now least recent
	d.Seen("d")

	if d.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", d.Len())
	}
	if d.Seen("b") {
		t.Error("b should have been evicted")
	}
}

func TestDeduper_Forget(t *testing.T) {
	t.Parallel()

	d := NewDeduper(10, time.Hour)
	d.Seen("a")
	d.Forget("a")
	d.Forget("missing")
	if d.Seen("a") {
		t.Error("forgotten key should be reported new")
	}
}

func TestDeduper_Concurrent(t *testing.T) {
	t.Parallel()

	d := NewDeduper(1000, time.Hour)
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		fresh int
	)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				if !d.Seen(fmt.Sprintf("evt-%d", i)) {
					mu.Lock()
					fresh++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	if fresh != 100 {
		t.Errorf("new keys = %d, want exactly 100", fresh)
	}
}
