// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package recommend_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/recserve/internal/cache"
	"github.com/tomtom215/recserve/internal/recommend"
	"github.com/tomtom215/recserve/internal/recommend/candidates"
	"github.com/tomtom215/recserve/internal/recommend/embedding"
	"github.com/tomtom215/recserve/internal/recommend/features"
	"github.com/tomtom215/recserve/internal/recommend/reranking"
	"github.com/tomtom215/recserve/internal/recommend/scoring"
	"github.com/tomtom215/recserve/internal/recommend/storage"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// clock is a settable time source shared by every stage of a harness.
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

// harness wires the real pipeline stages over an in-memory store.
type harness struct {
	store  *storage.MemoryStore
	cache  *cache.MemoryStore
	clock  *clock
	engine *recommend.Engine
}

type harnessOption func(*recommend.Config, *recommend.Dependencies)

func withoutCache() harnessOption {
	return func(_ *recommend.Config, deps *recommend.Dependencies) { deps.Cache = nil }
}

func withGenerator(g recommend.CandidateGenerator) harnessOption {
	return func(_ *recommend.Config, deps *recommend.Dependencies) { deps.Generator = g }
}

func withConfig(mutate func(*recommend.Config)) harnessOption {
	return func(cfg *recommend.Config, _ *recommend.Dependencies) { mutate(cfg) }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	h := &harness{
		store: storage.NewMemoryStore(),
		clock: &clock{now: epoch},
	}
	h.cache = cache.NewMemoryStore(100, cache.WithClock(h.clock.Now))

	sources, err := embedding.NewSources(embedding.DefaultSourceSpecs(), h.store, embedding.WithClock(h.clock.Now))
	if err != nil {
		t.Fatalf("NewSources() error = %v", err)
	}
	gen, err := candidates.New(candidates.DefaultConfig(), sources, h.store, zerolog.Nop(), candidates.WithClock(h.clock.Now))
	if err != nil {
		t.Fatalf("candidates.New() error = %v", err)
	}
	fuser, err := features.New(features.DefaultConfig(), zerolog.Nop(),
		features.WithClock(h.clock.Now), features.WithArticleStore(h.store))
	if err != nil {
		t.Fatalf("features.New() error = %v", err)
	}

	cfg := recommend.DefaultConfig()
	deps := recommend.Dependencies{
		Generator:    gen,
		Fuser:        fuser,
		Scorer:       scoring.NewEnsemble(),
		Reranker:     reranking.NewMMR(reranking.DefaultCategoryWeight, 0),
		Articles:     h.store,
		Preferences:  h.store,
		Interactions: h.store,
		Cache:        h.cache,
	}
	for _, opt := range opts {
		opt(&cfg, &deps)
	}

	h.engine, err = recommend.NewEngine(cfg, deps, zerolog.Nop(), recommend.WithClock(h.clock.Now))
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return h
}

// article stores a published article.
func (h *harness) article(t *testing.T, id, category string, trending float64, tags ...string) {
	t.Helper()
	err := h.store.PutArticle(recommend.Article{
		ID:              id,
		Status:          recommend.StatusPublished,
		Category:        category,
		Tags:            tags,
		PublishedAt:     h.clock.Now().Add(-time.Hour),
		TrendingScore:   trending,
		EngagementScore: trending / 2,
		QualityScore:    0.5,
	})
	if err != nil {
		t.Fatalf("PutArticle(%s) error = %v", id, err)
	}
}

// similarArticle stores an article whose two_tower cosine similarity to a
// user embedding of [1, 0] is exactly sim.
func (h *harness) similarArticle(t *testing.T, id, category string, sim float64, tags ...string) {
	t.Helper()
	h.article(t, id, category, 0, tags...)
	h.embedding(t, id, recommend.EntityArticle, sim, math.Sqrt(1-sim*sim))
}

func (h *harness) embedding(t *testing.T, id string, et recommend.EntityType, vec ...float64) {
	t.Helper()
	err := h.store.PutEmbedding(recommend.Embedding{
		EntityID:     id,
		EntityType:   et,
		ModelType:    recommend.ModelTwoTower,
		ModelVersion: "v1",
		Vector:       vec,
		Dimension:    len(vec),
		IsActive:     true,
	})
	if err != nil {
		t.Fatalf("PutEmbedding(%s) error = %v", id, err)
	}
}

func ids(result *recommend.RecommendationResult) []string {
	out := make([]string, len(result.RankedArticles))
	for i, a := range result.RankedArticles {
		out[i] = a.ArticleID
	}
	return out
}

func ptr(v float64) *float64 { return &v }

func TestEngine_SimilarityOutranksTrending(t *testing.T) {
	t.Parallel()

	h := newHarness(t, withConfig(func(cfg *recommend.Config) {
		// Popularity signals stay small next to strong similarity.
		cfg.Weights, _ = recommend.DefaultWeights().WithOverrides(map[string]float64{
			"trending_score":   0.05,
			"engagement_score": 0,
			"quality_score":    0,
		})
	}))
	h.embedding(t, "U", recommend.EntityUser, 1, 0)
	h.similarArticle(t, "A", "tech", 0.9)
	h.similarArticle(t, "B", "tech", 0.7)
	h.similarArticle(t, "C", "tech", 0.5)
	h.article(t, "D", "news", 100)
	h.article(t, "E", "sport", 80)

	result, err := h.engine.GetRecommendations(context.Background(), recommend.Request{
		UserID: "U", Limit: 3, DiversityWeight: ptr(0),
	})
	if err != nil {
		t.Fatalf("GetRecommendations() error = %v", err)
	}

	if got := ids(result); !reflect.DeepEqual(got, []string{"A", "B", "C"}) {
		t.Errorf("ranked = %v, want [A B C]", got)
	}
	if result.GenerationContext.PoolSize != 5 {
		t.Errorf("pool size = %d, want 5 (A-C plus trending D, E)", result.GenerationContext.PoolSize)
	}
	if result.ModelEnsemble != "two_tower" {
		t.Errorf("model ensemble = %q, want two_tower", result.ModelEnsemble)
	}
	for i, a := range result.RankedArticles {
		if a.Rank != i+1 {
			t.Errorf("rank[%d] = %d", i, a.Rank)
		}
		if a.Reason != scoring.ReasonSimilar {
			t.Errorf("reason[%d] = %q, want %q", i, a.Reason, scoring.ReasonSimilar)
		}
	}
	if !result.ExpiresAt.Equal(epoch.Add(time.Hour)) {
		t.Errorf("expires at %v, want generated_at + 1h", result.ExpiresAt)
	}
}

func TestEngine_ColdStartServesTrending(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.article(t, "t1", "news", 10)
	h.article(t, "t2", "news", 30)
	h.article(t, "t3", "tech", 20)

	result, err := h.engine.GetRecommendations(context.Background(), recommend.Request{UserID: "new-user", Limit: 2})
	if err != nil {
		t.Fatalf("GetRecommendations() error = %v", err)
	}
	if result.Empty() {
		t.Fatal("cold start returned no recommendations")
	}
	if result.GenerationContext.Fallback != "" {
		t.Errorf("cold start should not be a fallback, got %q", result.GenerationContext.Fallback)
	}
	if result.ModelEnsemble != recommend.SourceTrending {
		t.Errorf("model ensemble = %q, want trending", result.ModelEnsemble)
	}
	if len(result.RankedArticles) != 2 {
		t.Errorf("returned %d, want 2", len(result.RankedArticles))
	}
}

func TestEngine_ExcludeReadAndCategories(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.embedding(t, "U", recommend.EntityUser, 1, 0)
	h.similarArticle(t, "A", "tech", 0.95)
	h.similarArticle(t, "B", "tech", 0.8)
	h.similarArticle(t, "C", "news", 0.7)
	h.article(t, "T", "tech", 50)

	for _, in := range []recommend.Interaction{
		{UserID: "U", ArticleID: "A", Type: recommend.InteractionView, OccurredAt: epoch},
		{UserID: "U", ArticleID: "T", Type: recommend.InteractionSave, OccurredAt: epoch},
		{UserID: "U", ArticleID: "B", Type: recommend.InteractionComment, OccurredAt: epoch},
	} {
		if err := h.store.RecordInteraction(context.Background(), in); err != nil {
			t.Fatalf("RecordInteraction() error = %v", err)
		}
	}

	result, err := h.engine.GetRecommendations(context.Background(), recommend.Request{
		UserID: "U", Limit: 10, ExcludeRead: true, Categories: []string{"tech"},
	})
	if err != nil {
		t.Fatalf("GetRecommendations() error = %v", err)
	}
	if got := ids(result); !reflect.DeepEqual(got, []string{"B"}) {
		t.Errorf("ranked = %v, want [B] (A and T read, C outside category)", got)
	}
	if !result.GenerationContext.ExcludeRead || !reflect.DeepEqual(result.GenerationContext.Categories, []string{"tech"}) {
		t.Errorf("generation context = %+v", result.GenerationContext)
	}
}

func TestEngine_LimitAndNoDuplicates(t *testing.T) {
	t.Parallel()

	h := newHarness(t, withoutCache())
	h.embedding(t, "U", recommend.EntityUser, 1, 0)
	for i := 0; i < 40; i++ {
		sim := 0.2 + float64(i)/50
		h.similarArticle(t, fmt.Sprintf("a%02d", i), fmt.Sprintf("cat%d", i%4), sim, "tag", fmt.Sprintf("t%d", i%3))
	}
	for i := 0; i < 10; i++ {
		h.article(t, fmt.Sprintf("trend%02d", i), "news", float64(i))
	}

	for _, limit := range []int{1, 5, 20, 100, 500} {
		result, err := h.engine.GetRecommendations(context.Background(), recommend.Request{UserID: "U", Limit: limit})
		if err != nil {
			t.Fatalf("limit %d: error = %v", limit, err)
		}
		want := limit
		if want > 50 {
			want = 50
		}
		if len(result.RankedArticles) != want {
			t.Errorf("limit %d: returned %d, want %d", limit, len(result.RankedArticles), want)
		}
		seen := make(map[string]bool)
		for _, a := range result.RankedArticles {
			if seen[a.ArticleID] {
				t.Errorf("limit %d: duplicate %s", limit, a.ArticleID)
			}
			seen[a.ArticleID] = true
		}
	}
}

func TestEngine_Deterministic(t *testing.T) {
	t.Parallel()

	h := newHarness(t, withoutCache())
	h.embedding(t, "U", recommend.EntityUser, 1, 0)
	for i := 0; i < 30; i++ {
		// Pairs of identical scores exercise the tie-breaks.
		h.similarArticle(t, fmt.Sprintf("a%02d", i), fmt.Sprintf("cat%d", i%3), 0.3+float64(i/2)/40, "x")
	}

	req := recommend.Request{UserID: "U", Limit: 15, DiversityWeight: ptr(0.5)}
	first, err := h.engine.GetRecommendations(context.Background(), req)
	if err != nil {
		t.Fatalf("GetRecommendations() error = %v", err)
	}
	for i := 0; i < 5; i++ {
		again, _ := h.engine.GetRecommendations(context.Background(), req)
		if !reflect.DeepEqual(first.RankedArticles, again.RankedArticles) {
			t.Fatalf("run %d differs:\n%v\n%v", i, ids(first), ids(again))
		}
	}
}

func TestEngine_DiversitySpreadsCategories(t *testing.T) {
	t.Parallel()

	h := newHarness(t, withoutCache())
	h.embedding(t, "U", recommend.EntityUser, 1, 0)
	h.similarArticle(t, "t1", "tech", 0.95, "go")
	h.similarArticle(t, "t2", "tech", 0.94, "go")
	h.similarArticle(t, "t3", "tech", 0.93, "go")
	h.similarArticle(t, "n1", "news", 0.60, "politics")
	h.similarArticle(t, "s1", "sport", 0.55, "football")

	categories := func(w float64) int {
		result, err := h.engine.GetRecommendations(context.Background(), recommend.Request{UserID: "U", Limit: 3, DiversityWeight: ptr(w)})
		if err != nil {
			t.Fatalf("GetRecommendations() error = %v", err)
		}
		distinct := make(map[string]bool)
		for _, a := range result.RankedArticles {
			art, _ := h.store.GetArticle(context.Background(), a.ArticleID)
			distinct[art.Category] = true
		}
		return len(distinct)
	}

	if got := categories(0); got != 1 {
		t.Errorf("w=0 distinct categories = %d, want 1", got)
	}
	if got := categories(1); got != 3 {
		t.Errorf("w=1 distinct categories = %d, want 3", got)
	}
}

func TestEngine_CacheLifecycle(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.embedding(t, "U", recommend.EntityUser, 1, 0)
	h.similarArticle(t, "A", "tech", 0.9)
	h.similarArticle(t, "B", "news", 0.8)

	ctx := context.Background()
	req := recommend.Request{UserID: "U", Limit: 2}

	first, err := h.engine.GetRecommendations(ctx, req)
	if err != nil {
		t.Fatalf("GetRecommendations() error = %v", err)
	}
	if first.GenerationContext.CacheServed {
		t.Fatal("first request should not be cache served")
	}

	// A smaller limit is answered from the cached list.
	second, _ := h.engine.GetRecommendations(ctx, recommend.Request{UserID: "U", Limit: 1})
	if !second.GenerationContext.CacheServed {
		t.Error("second request should be cache served")
	}
	if len(second.RankedArticles) != 1 || second.RankedArticles[0].ArticleID != first.RankedArticles[0].ArticleID {
		t.Errorf("cached truncation = %v", ids(second))
	}

	// Fresh until ExpiresAt, recomputed afterwards.
	h.clock.Advance(59 * time.Minute)
	if r, _ := h.engine.GetRecommendations(ctx, req); !r.GenerationContext.CacheServed {
		t.Error("entry should still be fresh before its TTL")
	}
	h.clock.Advance(time.Minute)
	if r, _ := h.engine.GetRecommendations(ctx, req); r.GenerationContext.CacheServed {
		t.Error("entry served at its expiry instant")
	}

	// Invalidation forces recomputation.
	if err := h.engine.Invalidate(ctx, "U"); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if r, _ := h.engine.GetRecommendations(ctx, req); r.GenerationContext.CacheServed {
		t.Error("invalidated entry was served")
	}

	// A different filter is not compatible with the cached entry.
	filtered, _ := h.engine.GetRecommendations(ctx, recommend.Request{UserID: "U", Limit: 2, Categories: []string{"news"}})
	if filtered.GenerationContext.CacheServed {
		t.Error("request with a different category filter was served from cache")
	}

	stats := h.engine.Stats()
	if stats.CacheHits != 2 || stats.Requests != 6 {
		t.Errorf("stats = %+v, want 2 hits over 6 requests", stats)
	}
}

// failingGenerator returns err, or blocks until the context ends when err
// is nil.
type failingGenerator struct {
	err error
}

func (g failingGenerator) GenerateCandidates(ctx context.Context, _ recommend.CandidateQuery) ([]recommend.Candidate, error) {
	if g.err != nil {
		return nil, g.err
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestEngine_Fallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		gen        failingGenerator
		wantReason string
	}{
		{name: "generator error", gen: failingGenerator{err: errors.New("index offline")}, wantReason: recommend.FallbackError},
		{name: "deadline", gen: failingGenerator{}, wantReason: recommend.FallbackTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, withGenerator(tt.gen), withConfig(func(cfg *recommend.Config) {
				cfg.Timeouts.Deadline = 30 * time.Millisecond
			}))
			h.article(t, "low", "news", 1)
			h.article(t, "high", "news", 9)
			h.article(t, "mid", "tech", 5)

			result, err := h.engine.GetRecommendations(context.Background(), recommend.Request{UserID: "U", Limit: 2})
			if err != nil {
				t.Fatalf("GetRecommendations() error = %v, fallback should not surface errors", err)
			}
			if result.ModelEnsemble != recommend.ModelTrendingFallback {
				t.Errorf("model ensemble = %q, want %q", result.ModelEnsemble, recommend.ModelTrendingFallback)
			}
			if result.GenerationContext.Fallback != tt.wantReason {
				t.Errorf("fallback = %q, want %q", result.GenerationContext.Fallback, tt.wantReason)
			}
			if got := ids(result); !reflect.DeepEqual(got, []string{"high", "mid"}) {
				t.Errorf("ranked = %v, want [high mid]", got)
			}
			if !result.ExpiresAt.Equal(epoch.Add(time.Minute)) {
				t.Errorf("fallback expires at %v, want generated_at + 1m", result.ExpiresAt)
			}

			cached, hit, _ := h.cache.Get(context.Background(), "U")
			if !hit || cached.ModelEnsemble != recommend.ModelTrendingFallback {
				t.Error("fallback result should be cached with the fallback TTL")
			}
			if h.engine.Stats().Fallbacks != 1 {
				t.Errorf("fallbacks = %d, want 1", h.engine.Stats().Fallbacks)
			}
		})
	}
}

// flakyInteractions fails every read while down is set.
type flakyInteractions struct {
	recommend.InteractionStore
	down atomic.Bool
}

func (f *flakyInteractions) GetRecentInteractions(ctx context.Context, userID string, types ...recommend.InteractionType) ([]string, error) {
	if f.down.Load() {
		return nil, fmt.Errorf("interactions: %w", recommend.ErrStoreUnavailable)
	}
	return f.InteractionStore.GetRecentInteractions(ctx, userID, types...)
}

func TestEngine_FallbackWithoutReadHistoryIsNotCached(t *testing.T) {
	t.Parallel()

	var interactions *flakyInteractions
	h := newHarness(t, func(_ *recommend.Config, deps *recommend.Dependencies) {
		interactions = &flakyInteractions{InteractionStore: deps.Interactions}
		deps.Interactions = interactions
	})
	h.embedding(t, "U", recommend.EntityUser, 1, 0)
	h.article(t, "read", "news", 9)
	h.article(t, "fresh", "news", 5)

	ctx := context.Background()
	err := h.store.RecordInteraction(ctx, recommend.Interaction{
		UserID: "U", ArticleID: "read", Type: recommend.InteractionView, OccurredAt: epoch,
	})
	if err != nil {
		t.Fatalf("RecordInteraction() error = %v", err)
	}
	req := recommend.Request{UserID: "U", Limit: 5, ExcludeRead: true}

	interactions.down.Store(true)
	degraded, err := h.engine.GetRecommendations(ctx, req)
	if err != nil {
		t.Fatalf("GetRecommendations() error = %v", err)
	}
	if degraded.ModelEnsemble != recommend.ModelTrendingFallback {
		t.Errorf("model ensemble = %q, want %q", degraded.ModelEnsemble, recommend.ModelTrendingFallback)
	}
	if !degraded.GenerationContext.ExclusionIncomplete {
		t.Error("result built without read history should be marked exclusion incomplete")
	}
	if h.cache.Len() != 0 {
		t.Error("result built without read history must not be cached")
	}

	interactions.down.Store(false)
	recovered, err := h.engine.GetRecommendations(ctx, req)
	if err != nil {
		t.Fatalf("GetRecommendations() error = %v", err)
	}
	if recovered.GenerationContext.CacheServed {
		t.Error("recovered request was served from cache")
	}
	got := ids(recovered)
	if slices.Contains(got, "read") || !slices.Contains(got, "fresh") {
		t.Errorf("ranked = %v, want fresh without read once history is available", got)
	}
	if recovered.GenerationContext.ExclusionIncomplete {
		t.Error("recovered result should carry the full exclusion")
	}
}

func TestEngine_EmptyPool(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	result, err := h.engine.GetRecommendations(context.Background(), recommend.Request{UserID: "U"})
	if err != nil {
		t.Fatalf("GetRecommendations() error = %v", err)
	}
	if !result.Empty() || result.Reason != recommend.ReasonNoCandidates {
		t.Errorf("result = %+v, want empty with reason", result)
	}
	if result.RankedArticles == nil {
		t.Error("empty result should carry an empty, non-nil list")
	}
	if h.cache.Len() != 0 {
		t.Error("empty results must not be cached")
	}
}

func TestEngine_InvalidRequest(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	tests := []struct {
		name  string
		req   recommend.Request
		field string
	}{
		{name: "missing user", req: recommend.Request{}, field: "user_id"},
		{name: "blank user", req: recommend.Request{UserID: "   "}, field: "user_id"},
		{name: "negative limit", req: recommend.Request{UserID: "U", Limit: -1}, field: "limit"},
		{name: "NaN diversity", req: recommend.Request{UserID: "U", DiversityWeight: ptr(math.NaN())}, field: "diversity_weight"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := h.engine.GetRecommendations(context.Background(), tt.req)
			if !errors.Is(err, recommend.ErrInvalidRequest) {
				t.Fatalf("error = %v, want ErrInvalidRequest", err)
			}
			var reqErr *recommend.RequestError
			if !errors.As(err, &reqErr) || reqErr.Field != tt.field {
				t.Errorf("error field = %v, want %s", err, tt.field)
			}
		})
	}

	if err := h.engine.Invalidate(context.Background(), ""); !errors.Is(err, recommend.ErrInvalidRequest) {
		t.Errorf("Invalidate(\"\") error = %v, want ErrInvalidRequest", err)
	}
}

func TestEngine_ClampsRequest(t *testing.T) {
	t.Parallel()

	h := newHarness(t, withoutCache())
	for i := 0; i < 120; i++ {
		h.article(t, fmt.Sprintf("t%03d", i), "news", float64(i))
	}

	result, err := h.engine.GetRecommendations(context.Background(), recommend.Request{
		UserID: "U", Limit: 1000, DiversityWeight: ptr(7),
	})
	if err != nil {
		t.Fatalf("GetRecommendations() error = %v", err)
	}
	if len(result.RankedArticles) != 100 {
		t.Errorf("returned %d, want the max limit of 100", len(result.RankedArticles))
	}
	if result.GenerationContext.DiversityWeight != 1 {
		t.Errorf("diversity weight = %v, want clamped to 1", result.GenerationContext.DiversityWeight)
	}

	def, _ := h.engine.GetRecommendations(context.Background(), recommend.Request{UserID: "U"})
	if len(def.RankedArticles) != 20 {
		t.Errorf("default limit returned %d, want 20", len(def.RankedArticles))
	}
}

func TestEngine_ConcurrentRequests(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.embedding(t, "U", recommend.EntityUser, 1, 0)
	for i := 0; i < 20; i++ {
		h.similarArticle(t, fmt.Sprintf("a%02d", i), "tech", 0.1+float64(i)/25)
	}

	var wg sync.WaitGroup
	results := make([][]string, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := h.engine.GetRecommendations(context.Background(), recommend.Request{UserID: "U", Limit: 5})
			if err != nil {
				t.Errorf("GetRecommendations() error = %v", err)
				return
			}
			results[i] = ids(r)
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(results); i++ {
		if !reflect.DeepEqual(results[i], results[0]) {
			t.Fatalf("concurrent results differ: %v vs %v", results[i], results[0])
		}
	}
}

func TestNewEngine_RequiresStages(t *testing.T) {
	t.Parallel()

	if _, err := recommend.NewEngine(recommend.DefaultConfig(), recommend.Dependencies{}, zerolog.Nop()); err == nil {
		t.Error("NewEngine() without stages should fail")
	}

	cfg := recommend.DefaultConfig()
	cfg.Timeouts.Deadline = 0
	if _, err := recommend.NewEngine(cfg, recommend.Dependencies{}, zerolog.Nop()); err == nil {
		t.Error("NewEngine() with invalid config should fail")
	}
}
