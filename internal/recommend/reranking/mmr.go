// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package reranking

import (
	"math"
	"strings"

	"github.com/tomtom215/recserve/internal/recommend"
)

// DefaultCategoryWeight is the share of article similarity that comes from
// sharing a category. The rest comes from tag overlap.
const DefaultCategoryWeight = 0.6

// maxRerankSize limits slice allocations; limit is also bounded by the
// input length.
const maxRerankSize = 10000

// MMR implements Maximal Marginal Relevance reranking.
// It balances relevance and diversity by iteratively selecting items
// that are both relevant and dissimilar to already selected items.
//
// The MMR formula is:
//
//	MMR = argmax[(1-w) * relevance(i) - w * max(sim(i, s)) for s in selected]
//
// Where:
//   - w: diversity weight (0.0 = pure relevance, 1.0 = pure diversity)
//   - relevance(i): ensemble score, unscaled
//   - sim(i, s): category and tag similarity between two articles
//
// Greedy selection is a heuristic for an NP-hard objective. It is not
// optimal, but more diversity weight never yields fewer distinct categories
// on typical pools.
//
// Reference:
// Carbonell, J., & Goldstein, J. (1998). "The Use of MMR, Diversity-Based
// Reranking for Reordering Documents and Producing Summaries." SIGIR 1998.
type MMR struct {
	categoryWeight float64
	maxPerCategory int
}

// NewMMR creates a new MMR reranker. categoryWeight is clamped to [0, 1].
// maxPerCategory caps how many articles of one category may be selected;
// zero disables the cap.
func NewMMR(categoryWeight float64, maxPerCategory int) *MMR {
	if maxPerCategory < 0 {
		maxPerCategory = 0
	}
	return &MMR{
		categoryWeight: recommend.Clamp01(categoryWeight),
		maxPerCategory: maxPerCategory,
	}
}

// Name returns the reranker identifier.
func (m *MMR) Name() string {
	return "mmr"
}

// Rerank selects up to limit candidates. Duplicate article IDs collapse to
// their first occurrence and exact ties keep input order.
func (m *MMR) Rerank(scored []recommend.ScoredCandidate, diversityWeight float64, limit int) []recommend.ScoredCandidate {
	items := dedupe(scored)
	if len(items) == 0 || limit <= 0 {
		return []recommend.ScoredCandidate{}
	}

	k := limit
	if k > maxRerankSize {
		k = maxRerankSize
	}
	if k > len(items) {
		k = len(items)
	}

	w := diversityWeight
	if math.IsNaN(w) {
		w = 0
	}
	w = recommend.Clamp01(w)

	// Pure relevance without a category cap is a prefix of the input.
	if w == 0 && m.maxPerCategory == 0 {
		out := make([]recommend.ScoredCandidate, k)
		copy(out, items[:k])
		return out
	}

	tags := make([]map[string]struct{}, len(items))
	for i := range items {
		tags[i] = tagSet(items[i].Tags)
	}

	maxSim := make([]float64, len(items))
	picked := make([]bool, len(items))
	perCategory := make(map[string]int)
	selected := make([]recommend.ScoredCandidate, 0, k)

	for len(selected) < k {
		bestIdx := -1
		bestMMR := math.Inf(-1)

		for i := range items {
			if picked[i] || m.capped(items[i].Category, perCategory) {
				continue
			}
			mmrScore := (1-w)*items[i].RelevanceScore - w*maxSim[i]
			if mmrScore > bestMMR {
				bestMMR = mmrScore
				bestIdx = i
			}
		}

		if bestIdx < 0 {
			break
		}

		picked[bestIdx] = true
		selected = append(selected, items[bestIdx])
		if c := items[bestIdx].Category; c != "" {
			perCategory[c]++
		}

		// Keep maxSim current so each round is linear in the pool.
		for i := range items {
			if picked[i] {
				continue
			}
			if sim := m.similarity(&items[bestIdx], &items[i], tags[bestIdx], tags[i]); sim > maxSim[i] {
				maxSim[i] = sim
			}
		}
	}

	return selected
}

func (m *MMR) capped(category string, counts map[string]int) bool {
	return m.maxPerCategory > 0 && category != "" && counts[category] >= m.maxPerCategory
}

// similarity blends category equality with tag Jaccard similarity.
func (m *MMR) similarity(a, b *recommend.ScoredCandidate, tagsA, tagsB map[string]struct{}) float64 {
	var sim float64
	if a.Category != "" && a.Category == b.Category {
		sim += m.categoryWeight
	}
	return sim + (1-m.categoryWeight)*jaccard(tagsA, tagsB)
}

func dedupe(scored []recommend.ScoredCandidate) []recommend.ScoredCandidate {
	seen := make(map[string]struct{}, len(scored))
	out := make([]recommend.ScoredCandidate, 0, len(scored))
	for i := range scored {
		if _, dup := seen[scored[i].ArticleID]; dup {
			continue
		}
		seen[scored[i].ArticleID] = struct{}{}
		out = append(out, scored[i])
	}
	return out
}

func tagSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			set[t] = struct{}{}
		}
	}
	return set
}

// jaccard computes Jaccard similarity between tag sets. Two empty sets
// score 0.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	intersection := 0
	for t := range a {
		if _, ok := b[t]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// Ensure MMR implements the interface.
var _ recommend.Reranker = (*MMR)(nil)
