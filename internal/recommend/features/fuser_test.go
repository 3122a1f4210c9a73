// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package features

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/recserve/internal/recommend"
)

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

type metaStore struct {
	articles map[string]recommend.Article
	err      error
}

func (m *metaStore) GetArticle(_ context.Context, id string) (*recommend.Article, error) {
	a, ok := m.articles[id]
	if !ok {
		return nil, recommend.ErrNotFound
	}
	return &a, nil
}

func (m *metaStore) GetArticles(_ context.Context, ids []string) (map[string]recommend.Article, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]recommend.Article)
	for _, id := range ids {
		if a, ok := m.articles[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

func (m *metaStore) TrendingArticles(context.Context, recommend.TrendingQuery) ([]recommend.Article, error) {
	return nil, nil
}

func newTestFuser(t *testing.T, opts ...Option) *Fuser {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	f, err := New(DefaultConfig(), zerolog.Nop(), opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return f
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestFuse_Features(t *testing.T) {
	t.Parallel()

	tech := recommend.Article{
		ID: "a", Status: recommend.StatusPublished, Category: "tech", Tags: []string{"go"},
		PublishedAt:   testNow.Add(-24 * time.Hour),
		TrendingScore: 50, EngagementScore: 10, QualityScore: 4,
	}
	sport := recommend.Article{
		ID: "b", Status: recommend.StatusPublished, Category: "sports",
		PublishedAt:   testNow.Add(time.Hour),
		TrendingScore: 100, EngagementScore: 0, QualityScore: 8,
	}
	candidates := []recommend.Candidate{
		{
			ArticleID: "a", Source: "cnn", RawScore: 0.8,
			ModelScores: map[recommend.ModelType]float64{recommend.ModelCNN: 0.8, recommend.ModelGNN: 0.6},
			Article:     &tech,
		},
		{ArticleID: "b", Source: recommend.SourceTrending, Article: &sport},
	}
	prefs := &recommend.UserPreferences{UserID: "u", Categories: map[string]float64{"tech": 0.9}}

	got := newTestFuser(t).Fuse(context.Background(), "u", prefs, candidates)
	if len(got) != 2 {
		t.Fatalf("Fuse() returned %d features, want 2", len(got))
	}

	a := got[0]
	checks := []struct {
		name string
		f    recommend.Feature
		want float64
	}{
		{"cnn sim", recommend.FeatureCNNSim, 0.8},
		{"gnn sim", recommend.FeatureGNNSim, 0.6},
		{"two tower sim", recommend.FeatureTwoTowerSim, 0},
		{"recency one day", recommend.FeatureRecency, 0.5},
		{"trending", recommend.FeatureTrending, 0.5},
		{"engagement", recommend.FeatureEngagement, 1},
		{"quality", recommend.FeatureQuality, 0.5},
		{"category match", recommend.FeatureCategoryMatch, 0.9},
	}
	for _, c := range checks {
		if v := a.Features.Get(c.f); !approx(v, c.want) {
			t.Errorf("a.%s = %v, want %v", c.name, v, c.want)
		}
	}
	if len(a.ContributingModels) != 2 || a.ContributingModels[0] != recommend.ModelCNN {
		t.Errorf("a contributing models = %v", a.ContributingModels)
	}
	if a.Category != "tech" || len(a.Tags) != 1 {
		t.Errorf("a provenance = %q %v", a.Category, a.Tags)
	}

	b := got[1]
	if v := b.Features.Get(recommend.FeatureRecency); !approx(v, 1) {
		t.Errorf("future publish recency = %v, want 1", v)
	}
	if v := b.Features.Get(recommend.FeatureCategoryMatch); v != 0 {
		t.Errorf("category absent from profile = %v, want 0", v)
	}
	if v := b.Features.Get(recommend.FeatureEngagement); v != 0 {
		t.Errorf("zero engagement = %v, want 0", v)
	}
}

func TestFuse_NeutralAndMissing(t *testing.T) {
	t.Parallel()

	old := recommend.Article{ID: "old", Status: recommend.StatusPublished, Category: "x",
		PublishedAt: testNow.Add(-365 * 24 * time.Hour)}
	undated := recommend.Article{ID: "undated", Status: recommend.StatusPublished, Category: "x"}
	candidates := []recommend.Candidate{
		{ArticleID: "old", Article: &old},
		{ArticleID: "undated", Article: &undated},
		{ArticleID: "ghost", RawScore: 0.3, ModelScores: map[recommend.ModelType]float64{recommend.ModelRNN: 0.3}},
	}

	got := newTestFuser(t).Fuse(context.Background(), "u", nil, candidates)
	if len(got) != len(candidates) {
		t.Fatalf("Fuse() dropped candidates: %d of %d", len(got), len(candidates))
	}

	for i, id := range []string{"old", "undated", "ghost"} {
		if got[i].ArticleID != id {
			t.Errorf("order[%d] = %s, want %s", i, got[i].ArticleID, id)
		}
		if v := got[i].Features.Get(recommend.FeatureCategoryMatch); v != NeutralCategoryMatch {
			t.Errorf("%s category match = %v, want neutral", id, v)
		}
	}
	if v := got[0].Features.Get(recommend.FeatureRecency); v != 0.05 {
		t.Errorf("old recency = %v, want floor", v)
	}
	if v := got[1].Features.Get(recommend.FeatureRecency); v != 0.05 {
		t.Errorf("undated recency = %v, want floor", v)
	}
	ghost := got[2]
	if ghost.Features.Get(recommend.FeatureRNNSim) != 0.3 || ghost.Features.Get(recommend.FeatureRecency) != 0 {
		t.Errorf("missing metadata features = %v", ghost.Features.Map())
	}
}

func TestFuse_LoadsMissingMetadata(t *testing.T) {
	t.Parallel()

	store := &metaStore{articles: map[string]recommend.Article{
		"a": {ID: "a", Status: recommend.StatusPublished, Category: "tech", TrendingScore: 3},
	}}
	got := newTestFuser(t, WithArticleStore(store)).Fuse(context.Background(), "u", nil,
		[]recommend.Candidate{{ArticleID: "a"}})

	if got[0].Category != "tech" || got[0].Features.Get(recommend.FeatureTrending) != 1 {
		t.Errorf("loaded metadata not used: %+v", got[0])
	}

	failing := &metaStore{err: recommend.ErrStoreUnavailable}
	got = newTestFuser(t, WithArticleStore(failing)).Fuse(context.Background(), "u", nil,
		[]recommend.Candidate{{ArticleID: "a"}})
	if len(got) != 1 || got[0].Category != "" {
		t.Errorf("failed lookup should leave similarity-only features: %+v", got)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "defaults", cfg: DefaultConfig()},
		{name: "floor above one", cfg: Config{RecencyFloor: 1.5, RecencyScaleDays: 1}, wantErr: true},
		{name: "zero scale", cfg: Config{RecencyFloor: 0.1}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
