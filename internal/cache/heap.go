// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package cache

import "time"

// expiryItem is one key in the expiry heap.
type expiryItem struct {
	key     string
	expires time.Time
	index   int // position in the heap array, used for O(log n) updates
}

// expiryHeap orders keys by expiry time, earliest first, with a parallel
// map for O(1) key lookup. It is not safe for concurrent use; MemoryStore
// guards it with its own mutex.
//
// It serves two purposes:
//   - capacity eviction (drop the entry closest to expiry)
//   - sweeping (pop every entry that expired before now)
type expiryHeap struct {
	items []*expiryItem
	byKey map[string]*expiryItem
}

func newExpiryHeap() *expiryHeap {
	return &expiryHeap{byKey: make(map[string]*expiryItem)}
}

// set inserts key or moves it to its new expiry.
func (h *expiryHeap) set(key string, expires time.Time) {
	if existing, ok := h.byKey[key]; ok {
		existing.expires = expires
		h.fix(existing.index)
		return
	}
	item := &expiryItem{key: key, expires: expires, index: len(h.items)}
	h.items = append(h.items, item)
	h.byKey[key] = item
	h.bubbleUp(item.index)
}

// remove drops key if present.
func (h *expiryHeap) remove(key string) {
	if item, ok := h.byKey[key]; ok {
		h.removeAt(item.index)
	}
}

// peek returns the earliest-expiring key.
func (h *expiryHeap) peek() (string, time.Time, bool) {
	if len(h.items) == 0 {
		return "", time.Time{}, false
	}
	return h.items[0].key, h.items[0].expires, true
}

// popExpired removes and returns every key whose expiry is not after now.
func (h *expiryHeap) popExpired(now time.Time) []string {
	var keys []string
	for len(h.items) > 0 && !h.items[0].expires.After(now) {
		keys = append(keys, h.removeAt(0).key)
	}
	return keys
}

func (h *expiryHeap) len() int { return len(h.items) }

// removeAt removes the element at the given index.
func (h *expiryHeap) removeAt(i int) *expiryItem {
	n := len(h.items) - 1
	item := h.items[i]
	delete(h.byKey, item.key)

	if i == n {
		h.items = h.items[:n]
		return item
	}

	h.items[i] = h.items[n]
	h.items[i].index = i
	h.items = h.items[:n]
	h.fix(i)
	return item
}

// fix restores heap order after the expiry at index i changed.
func (h *expiryHeap) fix(i int) {
	if h.bubbleUp(i) {
		return
	}
	h.bubbleDown(i)
}

// bubbleUp reports whether the element moved.
func (h *expiryHeap) bubbleUp(i int) bool {
	moved := false
	for i > 0 {
		parent := (i - 1) / 2
		if !h.items[i].expires.Before(h.items[parent].expires) {
			break
		}
		h.swap(i, parent)
		i = parent
		moved = true
	}
	return moved
}

func (h *expiryHeap) bubbleDown(i int) {
	n := len(h.items)
	for {
		smallest := i
		left := 2*i + 1
		right := 2*i + 2

		if left < n && h.items[left].expires.Before(h.items[smallest].expires) {
			smallest = left
		}
		if right < n && h.items[right].expires.Before(h.items[smallest].expires) {
			smallest = right
		}
		if smallest == i {
			return
		}
		h.swap(i, smallest)
		i = smallest
	}
}

func (h *expiryHeap) swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].index = i
	h.items[j].index = j
}
