// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package cache

import (
	"sync"
	"time"
)

// dedupEntry is a node in the recency list.
type dedupEntry struct {
	key       string
	prev      *dedupEntry
	next      *dedupEntry
	expiresAt time.Time
}

// Deduper remembers recently seen keys for a bounded window. The interaction
// event consumer uses it to drop redelivered messages before they trigger a
// second cache invalidation.
//
// Key features:
//   - O(1) Seen and eviction (doubly-linked list plus map)
//   - least recently seen key evicted at capacity
//   - TTL with lazy expiration, plus CleanupExpired for bulk removal
type Deduper struct {
	mu sync.Mutex

	capacity int
	ttl      time.Duration
	now      func() time.Time

	items map[string]*dedupEntry

	// head.next is the most recently seen, tail.prev the least.
	head *dedupEntry
	tail *dedupEntry

	duplicates int64
	unique     int64
}

// NewDeduper creates a deduper holding at most capacity keys for ttl each.
func NewDeduper(capacity int, ttl time.Duration) *Deduper {
	if capacity <= 0 {
		capacity = 10000
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	d := &Deduper{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		items:    make(map[string]*dedupEntry, capacity),
		head:     &dedupEntry{},
		tail:     &dedupEntry{},
	}
	d.head.next = d.tail
	d.tail.prev = d.head
	return d
}

// Seen reports whether key was recorded within the window. An unseen or
// expired key is recorded and false is returned.
func (d *Deduper) Seen(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()

	if entry, exists := d.items[key]; exists {
		if !now.After(entry.expiresAt) {
			d.moveToFront(entry)
			d.duplicates++
			return true
		}
		d.removeEntry(entry)
	}

	entry := &dedupEntry{key: key, expiresAt: now.Add(d.ttl)}
	d.addToFront(entry)
	d.items[key] = entry

	for len(d.items) > d.capacity {
		d.evictOldest()
	}

	d.unique++
	return false
}

// Forget removes key so the next Seen reports it as new.
func (d *Deduper) Forget(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if entry, exists := d.items[key]; exists {
		d.removeEntry(entry)
	}
}

// Len returns the number of remembered keys, expired ones included.
func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.items)
}

// CleanupExpired removes all expired keys and returns how many were removed.
func (d *Deduper) CleanupExpired() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	removed := 0

	// Walk from tail (oldest) to head (newest)
	for entry := d.tail.prev; entry != d.head; {
		prev := entry.prev
		if now.After(entry.expiresAt) {
			d.removeEntry(entry)
			removed++
		}
		entry = prev
	}
	return removed
}

// Stats returns duplicate and unique counts and the current size.
func (d *Deduper) Stats() (duplicates, unique int64, size int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.duplicates, d.unique, len(d.items)
}

// Internal methods (must be called with lock held)

func (d *Deduper) addToFront(entry *dedupEntry) {
	entry.prev = d.head
	entry.next = d.head.next
	d.head.next.prev = entry
	d.head.next = entry
}

func (d *Deduper) moveToFront(entry *dedupEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	d.addToFront(entry)
}

func (d *Deduper) removeEntry(entry *dedupEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	delete(d.items, entry.key)
}

func (d *Deduper) evictOldest() {
	oldest := d.tail.prev
	if oldest == d.head {
		return
	}
	d.removeEntry(oldest)
}
