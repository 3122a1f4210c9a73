// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package embedding

import (
	"container/heap"
	"sort"
)

type scored struct {
	id    string
	score float64
}

// worse orders entries so that the heap root is the entry to drop first:
// lower score, then lexicographically larger ID.
func worse(a, b scored) bool {
	if a.score != b.score {
		return a.score < b.score
	}
	return a.id > b.id
}

type minHeap []scored

func (h minHeap) Len() int            { return len(h) }
func (h minHeap) Less(i, j int) bool  { return worse(h[i], h[j]) }
func (h minHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x interface{}) { *h = append(*h, x.(scored)) }
func (h *minHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// topN keeps the n best entries seen so far in O(log n) per offer.
type topN struct {
	n int
	h minHeap
}

func newTopN(n int) *topN {
	return &topN{n: n, h: make(minHeap, 0, n)}
}

func (t *topN) offer(id string, score float64) {
	if t.n <= 0 {
		return
	}
	s := scored{id: id, score: score}
	if len(t.h) < t.n {
		heap.Push(&t.h, s)
		return
	}
	if worse(t.h[0], s) {
		t.h[0] = s
		heap.Fix(&t.h, 0)
	}
}

// sorted returns the kept entries best first, ties by ascending ID.
func (t *topN) sorted() []scored {
	out := make([]scored, len(t.h))
	copy(out, t.h)
	sort.Slice(out, func(i, j int) bool { return worse(out[j], out[i]) })
	return out
}
