// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package storage

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/tomtom215/recserve/internal/recommend"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func emb(id string, et recommend.EntityType, model recommend.ModelType, version string, active bool, vec ...float64) recommend.Embedding {
	return recommend.Embedding{
		EntityID:     id,
		EntityType:   et,
		ModelType:    model,
		ModelVersion: version,
		Vector:       vec,
		Dimension:    len(vec),
		IsActive:     active,
		UpdatedAt:    testNow,
	}
}

func TestMemoryStore_ActiveEmbeddingInvariant(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.PutEmbedding(emb("u1", recommend.EntityUser, recommend.ModelTwoTower, "v1", true, 1, 0)); err != nil {
		t.Fatalf("PutEmbedding(v1) error = %v", err)
	}
	if err := s.PutEmbedding(emb("u1", recommend.EntityUser, recommend.ModelTwoTower, "v2", true, 0, 1)); err != nil {
		t.Fatalf("PutEmbedding(v2) error = %v", err)
	}

	got, err := s.GetEmbedding(ctx, "u1", recommend.EntityUser, recommend.ModelTwoTower)
	if err != nil {
		t.Fatalf("GetEmbedding() error = %v", err)
	}
	if got.ModelVersion != "v2" || !got.IsActive {
		t.Errorf("GetEmbedding() = %s active=%v, want v2 active", got.ModelVersion, got.IsActive)
	}

	old, err := s.GetEmbeddingVersion(ctx, "u1", recommend.EntityUser, recommend.ModelTwoTower, "v1")
	if err != nil {
		t.Fatalf("GetEmbeddingVersion(v1) error = %v", err)
	}
	if old.IsActive {
		t.Error("superseded version should be inactive")
	}

	if _, err := s.GetEmbeddingVersion(ctx, "u1", recommend.EntityUser, recommend.ModelTwoTower, "v9"); !errors.Is(err, recommend.ErrNotFound) {
		t.Errorf("GetEmbeddingVersion(v9) error = %v, want ErrNotFound", err)
	}
	if _, err := s.GetEmbedding(ctx, "u1", recommend.EntityUser, recommend.ModelCNN); !errors.Is(err, recommend.ErrNotFound) {
		t.Errorf("GetEmbedding(cnn) error = %v, want ErrNotFound", err)
	}
	if _, err := s.GetEmbedding(ctx, "u1", recommend.EntityArticle, recommend.ModelTwoTower); !errors.Is(err, recommend.ErrNotFound) {
		t.Errorf("GetEmbedding(article) error = %v, want ErrNotFound", err)
	}

	// Deactivating the active version leaves no active embedding.
	if err := s.PutEmbedding(emb("u1", recommend.EntityUser, recommend.ModelTwoTower, "v2", false, 0, 1)); err != nil {
		t.Fatalf("PutEmbedding(v2 inactive) error = %v", err)
	}
	if _, err := s.GetEmbedding(ctx, "u1", recommend.EntityUser, recommend.ModelTwoTower); !errors.Is(err, recommend.ErrNotFound) {
		t.Errorf("GetEmbedding() after deactivation error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_RejectsDimensionMismatch(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	bad := emb("a1", recommend.EntityArticle, recommend.ModelCNN, "v1", true, 1, 2, 3)
	bad.Dimension = 4
	if err := s.PutEmbedding(bad); err == nil {
		t.Error("PutEmbedding() should reject a vector shorter than its dimension")
	}

	unknown := emb("a1", recommend.EntityArticle, "word2vec", "v1", true, 1)
	if err := s.PutEmbedding(unknown); err == nil {
		t.Error("PutEmbedding() should reject an unknown model type")
	}
}

func TestMemoryStore_ArticleEmbeddingsAndVersions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()
	rows := []recommend.Embedding{
		emb("b", recommend.EntityArticle, recommend.ModelGNN, "v2", true, 1, 0),
		emb("a", recommend.EntityArticle, recommend.ModelGNN, "v2", true, 0, 1),
		emb("c", recommend.EntityArticle, recommend.ModelGNN, "v1", true, 1, 1),
		emb("d", recommend.EntityArticle, recommend.ModelGNN, "v0", false, 1, 1),
		emb("u1", recommend.EntityUser, recommend.ModelGNN, "v2", true, 1, 1),
	}
	for i := range rows {
		if err := s.PutEmbedding(rows[i]); err != nil {
			t.Fatalf("PutEmbedding(%d) error = %v", i, err)
		}
	}

	articles, err := s.ArticleEmbeddings(ctx, recommend.ModelGNN)
	if err != nil {
		t.Fatalf("ArticleEmbeddings() error = %v", err)
	}
	var ids []string
	for _, e := range articles {
		ids = append(ids, e.EntityID)
	}
	if !reflect.DeepEqual(ids, []string{"a", "b", "c"}) {
		t.Errorf("ArticleEmbeddings() ids = %v, want [a b c]", ids)
	}

	versions, err := s.GetActiveModelVersions(ctx, recommend.ModelGNN)
	if err != nil {
		t.Fatalf("GetActiveModelVersions() error = %v", err)
	}
	if !reflect.DeepEqual(versions, []string{"v1", "v2"}) {
		t.Errorf("GetActiveModelVersions() = %v, want [v1 v2]", versions)
	}

	if got, _ := s.ArticleEmbeddings(ctx, recommend.ModelRNN); len(got) != 0 {
		t.Errorf("ArticleEmbeddings(rnn) = %d rows, want 0", len(got))
	}
}

func TestMemoryStore_ReplaceModel(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.PutEmbedding(emb("old", recommend.EntityArticle, recommend.ModelRNN, "v1", true, 1))

	bad := emb("bad", recommend.EntityArticle, recommend.ModelRNN, "v2", true, 1, 2)
	bad.Dimension = 3
	accepted, err := s.ReplaceModel(recommend.ModelRNN, []recommend.Embedding{
		emb("new", recommend.EntityArticle, recommend.ModelRNN, "v2", true, 1, 0),
		emb("other", recommend.EntityArticle, recommend.ModelCNN, "v2", true, 1, 0),
		bad,
	})
	if err != nil {
		t.Fatalf("ReplaceModel() error = %v", err)
	}
	if accepted != 1 {
		t.Errorf("accepted = %d, want 1", accepted)
	}
	if _, err := s.GetEmbedding(ctx, "old", recommend.EntityArticle, recommend.ModelRNN); !errors.Is(err, recommend.ErrNotFound) {
		t.Error("replaced model still serves old embeddings")
	}
	if _, err := s.GetEmbedding(ctx, "new", recommend.EntityArticle, recommend.ModelRNN); err != nil {
		t.Errorf("GetEmbedding(new) error = %v", err)
	}
	if _, err := s.ReplaceModel("bogus", nil); err == nil {
		t.Error("ReplaceModel() should reject unknown model types")
	}

	counts := s.EmbeddingCounts()
	if counts[recommend.ModelRNN][recommend.EntityArticle] != 1 {
		t.Errorf("EmbeddingCounts() = %v", counts)
	}
}

func TestMemoryStore_TrendingArticles(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()
	articles := []recommend.Article{
		{ID: "a", Status: recommend.StatusPublished, Category: "tech", PublishedAt: testNow.Add(-time.Hour), TrendingScore: 5, EngagementScore: 1},
		{ID: "b", Status: recommend.StatusPublished, Category: "tech", PublishedAt: testNow.Add(-time.Hour), TrendingScore: 5, EngagementScore: 3},
		{ID: "c", Status: recommend.StatusPublished, Category: "news", PublishedAt: testNow.Add(-time.Hour), TrendingScore: 9},
		{ID: "d", Status: recommend.StatusDraft, Category: "tech", PublishedAt: testNow.Add(-time.Hour), TrendingScore: 100},
		{ID: "e", Status: recommend.StatusPublished, Category: "tech", PublishedAt: testNow.Add(-30 * 24 * time.Hour), TrendingScore: 50},
		{ID: "f", Status: recommend.StatusPublished, Category: "tech", PublishedAt: testNow.Add(-time.Hour), TrendingScore: 5, EngagementScore: 3},
	}
	for i := range articles {
		if err := s.PutArticle(articles[i]); err != nil {
			t.Fatalf("PutArticle() error = %v", err)
		}
	}

	tests := []struct {
		name string
		q    recommend.TrendingQuery
		want []string
	}{
		{
			name: "all published in window",
			q:    recommend.TrendingQuery{Since: testNow.Add(-7 * 24 * time.Hour)},
			want: []string{"c", "b", "f", "a"},
		},
		{
			name: "no window",
			q:    recommend.TrendingQuery{},
			want: []string{"e", "c", "b", "f", "a"},
		},
		{
			name: "category filter and limit",
			q:    recommend.TrendingQuery{Since: testNow.Add(-7 * 24 * time.Hour), Categories: []string{"tech"}, Limit: 2},
			want: []string{"b", "f"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := s.TrendingArticles(ctx, tt.q)
			if err != nil {
				t.Fatalf("TrendingArticles() error = %v", err)
			}
			ids := make([]string, len(got))
			for i := range got {
				ids[i] = got[i].ID
			}
			if !reflect.DeepEqual(ids, tt.want) {
				t.Errorf("TrendingArticles() = %v, want %v", ids, tt.want)
			}
		})
	}
}

func TestMemoryStore_Articles(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.PutArticle(recommend.Article{}); err == nil {
		t.Error("PutArticle() without id should fail")
	}
	_ = s.PutArticle(recommend.Article{ID: "a", Status: recommend.StatusPublished, Tags: []string{"go"}})

	got, err := s.GetArticles(ctx, []string{"a", "missing"})
	if err != nil {
		t.Fatalf("GetArticles() error = %v", err)
	}
	if len(got) != 1 || got["a"].ID != "a" {
		t.Errorf("GetArticles() = %v", got)
	}

	s.DeleteArticle("a")
	if _, err := s.GetArticle(ctx, "a"); !errors.Is(err, recommend.ErrNotFound) {
		t.Errorf("GetArticle() after delete error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_Preferences(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()
	if _, err := s.GetUserPreferences(ctx, "u1"); !errors.Is(err, recommend.ErrNotFound) {
		t.Errorf("GetUserPreferences() error = %v, want ErrNotFound", err)
	}

	_ = s.PutPreferences(recommend.UserPreferences{UserID: "u1", Categories: map[string]float64{"tech": 0.9}})
	got, err := s.GetUserPreferences(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUserPreferences() error = %v", err)
	}
	got.Categories["tech"] = 0
	again, _ := s.GetUserPreferences(ctx, "u1")
	if again.Categories["tech"] != 0.9 {
		t.Error("mutating a returned profile changed the store")
	}
}

func TestMemoryStore_Interactions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()
	record := func(article string, typ recommend.InteractionType, minutes int) {
		t.Helper()
		err := s.RecordInteraction(context.Background(), recommend.Interaction{
			UserID: "u1", ArticleID: article, Type: typ, OccurredAt: testNow.Add(time.Duration(minutes) * time.Minute),
		})
		if err != nil {
			t.Fatalf("RecordInteraction() error = %v", err)
		}
	}
	record("a", recommend.InteractionView, 1)
	record("b", recommend.InteractionLike, 2)
	record("c", recommend.InteractionComment, 3)
	record("a", recommend.InteractionSave, 4)
	record("d", recommend.InteractionDislike, 5)

	got, err := s.GetRecentInteractions(ctx, "u1", recommend.ReadInteractionTypes()...)
	if err != nil {
		t.Fatalf("GetRecentInteractions() error = %v", err)
	}
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("read interactions = %v, want [a b]", got)
	}

	all, _ := s.GetRecentInteractions(ctx, "u1")
	if !reflect.DeepEqual(all, []string{"d", "a", "c", "b"}) {
		t.Errorf("all interactions = %v, want [d a c b]", all)
	}

	if err := s.RecordInteraction(context.Background(), recommend.Interaction{UserID: "u1", ArticleID: "x", Type: "poke"}); err == nil {
		t.Error("RecordInteraction() should reject unknown types")
	}
	if err := s.RecordInteraction(context.Background(), recommend.Interaction{UserID: "u1", Type: recommend.InteractionView}); err == nil {
		t.Error("RecordInteraction() should require an article id")
	}
}

func TestMemoryStore_InteractionRetention(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()
	s.maxInteractions = 3
	for i := 0; i < 5; i++ {
		_ = s.RecordInteraction(context.Background(), recommend.Interaction{
			UserID: "u1", ArticleID: fmt.Sprintf("a%d", i), Type: recommend.InteractionView, OccurredAt: testNow.Add(time.Duration(i) * time.Second),
		})
	}
	got, _ := s.GetRecentInteractions(ctx, "u1")
	if !reflect.DeepEqual(got, []string{"a4", "a3", "a2"}) {
		t.Errorf("retained = %v, want [a4 a3 a2]", got)
	}
}
