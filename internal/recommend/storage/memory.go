// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tomtom215/recserve/internal/recommend"
)

// DefaultMaxInteractionsPerUser bounds retained history per user.
const DefaultMaxInteractionsPerUser = 1000

// modelIndex holds every embedding of one model type.
type modelIndex struct {
	// active maps entity type -> entity ID -> the active embedding.
	active map[recommend.EntityType]map[string]recommend.Embedding

	// versions maps entity type -> entity ID -> version -> embedding,
	// active or not.
	versions map[recommend.EntityType]map[string]map[string]recommend.Embedding
}

func newModelIndex() *modelIndex {
	return &modelIndex{
		active: map[recommend.EntityType]map[string]recommend.Embedding{
			recommend.EntityUser:    {},
			recommend.EntityArticle: {},
		},
		versions: map[recommend.EntityType]map[string]map[string]recommend.Embedding{
			recommend.EntityUser:    {},
			recommend.EntityArticle: {},
		},
	}
}

// put inserts e, deactivating any other active version of the same entity.
func (idx *modelIndex) put(e recommend.Embedding) {
	byVersion, ok := idx.versions[e.EntityType][e.EntityID]
	if !ok {
		byVersion = make(map[string]recommend.Embedding)
		idx.versions[e.EntityType][e.EntityID] = byVersion
	}

	if e.IsActive {
		if prev, ok := idx.active[e.EntityType][e.EntityID]; ok && prev.ModelVersion != e.ModelVersion {
			prev.IsActive = false
			byVersion[prev.ModelVersion] = prev
		}
		idx.active[e.EntityType][e.EntityID] = e
	} else if prev, ok := idx.active[e.EntityType][e.EntityID]; ok && prev.ModelVersion == e.ModelVersion {
		delete(idx.active[e.EntityType], e.EntityID)
	}
	byVersion[e.ModelVersion] = e
}

func (idx *modelIndex) count(entityType recommend.EntityType) int {
	return len(idx.active[entityType])
}

// MemoryStore is an in-process implementation of every store the engine
// reads from. It is seeded from YAML fixtures and refreshed from embedding
// snapshots. All methods are safe for concurrent use.
//
// Returned embeddings share their Vector backing arrays with the store;
// callers must treat them as read-only.
type MemoryStore struct {
	mu sync.RWMutex

	embeddings   map[recommend.ModelType]*modelIndex
	articles     map[string]recommend.Article
	preferences  map[string]recommend.UserPreferences
	interactions map[string][]recommend.Interaction

	maxInteractions int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		embeddings:      make(map[recommend.ModelType]*modelIndex),
		articles:        make(map[string]recommend.Article),
		preferences:     make(map[string]recommend.UserPreferences),
		interactions:    make(map[string][]recommend.Interaction),
		maxInteractions: DefaultMaxInteractionsPerUser,
	}
}

// PutEmbedding validates and stores one embedding. Storing an active
// embedding deactivates the previously active version of that entity.
func (s *MemoryStore) PutEmbedding(e recommend.Embedding) error {
	if err := e.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.embeddings[e.ModelType]
	if !ok {
		idx = newModelIndex()
		s.embeddings[e.ModelType] = idx
	}
	idx.put(e)
	return nil
}

// ReplaceModel atomically swaps every embedding of one model type, as done
// when a new snapshot is loaded. Invalid rows and rows of another model
// type are rejected; the number of accepted rows is returned.
func (s *MemoryStore) ReplaceModel(model recommend.ModelType, embeddings []recommend.Embedding) (int, error) {
	if !model.Valid() {
		return 0, fmt.Errorf("unknown model type %q", model)
	}

	idx := newModelIndex()
	accepted := 0
	for i := range embeddings {
		e := embeddings[i]
		if e.ModelType != model || e.Validate() != nil {
			continue
		}
		idx.put(e)
		accepted++
	}

	s.mu.Lock()
	s.embeddings[model] = idx
	s.mu.Unlock()
	return accepted, nil
}

// EmbeddingCounts returns the active embedding count per model and entity
// type.
func (s *MemoryStore) EmbeddingCounts() map[recommend.ModelType]map[recommend.EntityType]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[recommend.ModelType]map[recommend.EntityType]int, len(s.embeddings))
	for model, idx := range s.embeddings {
		out[model] = map[recommend.EntityType]int{
			recommend.EntityUser:    idx.count(recommend.EntityUser),
			recommend.EntityArticle: idx.count(recommend.EntityArticle),
		}
	}
	return out
}

// GetEmbedding returns the active embedding for the entity.
func (s *MemoryStore) GetEmbedding(_ context.Context, entityID string, entityType recommend.EntityType, model recommend.ModelType) (*recommend.Embedding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.embeddings[model]
	if !ok {
		return nil, recommend.ErrNotFound
	}
	e, ok := idx.active[entityType][entityID]
	if !ok {
		return nil, recommend.ErrNotFound
	}
	return &e, nil
}

// GetEmbeddingVersion returns a specific version, active or not.
func (s *MemoryStore) GetEmbeddingVersion(_ context.Context, entityID string, entityType recommend.EntityType, model recommend.ModelType, version string) (*recommend.Embedding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.embeddings[model]
	if !ok {
		return nil, recommend.ErrNotFound
	}
	e, ok := idx.versions[entityType][entityID][version]
	if !ok {
		return nil, recommend.ErrNotFound
	}
	return &e, nil
}

// GetActiveModelVersions returns the sorted versions that have at least one
// active embedding.
func (s *MemoryStore) GetActiveModelVersions(_ context.Context, model recommend.ModelType) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.embeddings[model]
	if !ok {
		return nil, nil
	}
	seen := make(map[string]struct{})
	for _, byEntity := range idx.active {
		for _, e := range byEntity {
			seen[e.ModelVersion] = struct{}{}
		}
	}
	versions := make([]string, 0, len(seen))
	for v := range seen {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	return versions, nil
}

// ArticleEmbeddings returns the active article embeddings of a model,
// ordered by article ID.
func (s *MemoryStore) ArticleEmbeddings(_ context.Context, model recommend.ModelType) ([]recommend.Embedding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.embeddings[model]
	if !ok {
		return nil, nil
	}
	active := idx.active[recommend.EntityArticle]
	out := make([]recommend.Embedding, 0, len(active))
	for _, e := range active {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out, nil
}

// PutArticle stores or replaces article metadata.
//
//nolint:gocritic // hugeParam: article is copied into the store
func (s *MemoryStore) PutArticle(a recommend.Article) error {
	if a.ID == "" {
		return fmt.Errorf("article: id is required")
	}
	a.Tags = append([]string(nil), a.Tags...)

	s.mu.Lock()
	s.articles[a.ID] = a
	s.mu.Unlock()
	return nil
}

// DeleteArticle removes article metadata.
func (s *MemoryStore) DeleteArticle(id string) {
	s.mu.Lock()
	delete(s.articles, id)
	s.mu.Unlock()
}

// GetArticle returns ErrNotFound for unknown articles.
func (s *MemoryStore) GetArticle(_ context.Context, id string) (*recommend.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.articles[id]
	if !ok {
		return nil, recommend.ErrNotFound
	}
	return &a, nil
}

// GetArticles returns the requested articles that exist.
func (s *MemoryStore) GetArticles(_ context.Context, ids []string) (map[string]recommend.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]recommend.Article, len(ids))
	for _, id := range ids {
		if a, ok := s.articles[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

// TrendingArticles returns published articles ordered by trending score,
// then engagement score, then ID.
func (s *MemoryStore) TrendingArticles(_ context.Context, q recommend.TrendingQuery) ([]recommend.Article, error) {
	var categories map[string]struct{}
	if len(q.Categories) > 0 {
		categories = make(map[string]struct{}, len(q.Categories))
		for _, c := range q.Categories {
			categories[c] = struct{}{}
		}
	}

	s.mu.RLock()
	out := make([]recommend.Article, 0)
	for _, a := range s.articles {
		if !a.Published() {
			continue
		}
		if !q.Since.IsZero() && a.PublishedAt.Before(q.Since) {
			continue
		}
		if categories != nil {
			if _, ok := categories[a.Category]; !ok {
				continue
			}
		}
		out = append(out, a)
	}
	s.mu.RUnlock()

	SortTrending(out)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// SortTrending orders articles by trending score desc, engagement score
// desc, then ID asc.
func SortTrending(articles []recommend.Article) {
	sort.Slice(articles, func(i, j int) bool {
		a, b := &articles[i], &articles[j]
		if a.TrendingScore != b.TrendingScore {
			return a.TrendingScore > b.TrendingScore
		}
		if a.EngagementScore != b.EngagementScore {
			return a.EngagementScore > b.EngagementScore
		}
		return a.ID < b.ID
	})
}

// PutPreferences stores or replaces a user profile.
//
//nolint:gocritic // hugeParam: prefs is copied into the store
func (s *MemoryStore) PutPreferences(prefs recommend.UserPreferences) error {
	if prefs.UserID == "" {
		return fmt.Errorf("preferences: user_id is required")
	}
	categories := make(map[string]float64, len(prefs.Categories))
	for k, v := range prefs.Categories {
		categories[k] = v
	}
	prefs.Categories = categories

	s.mu.Lock()
	s.preferences[prefs.UserID] = prefs
	s.mu.Unlock()
	return nil
}

// GetUserPreferences returns ErrNotFound when the user has no profile.
func (s *MemoryStore) GetUserPreferences(_ context.Context, userID string) (*recommend.UserPreferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.preferences[userID]
	if !ok {
		return nil, recommend.ErrNotFound
	}
	categories := make(map[string]float64, len(p.Categories))
	for k, v := range p.Categories {
		categories[k] = v
	}
	p.Categories = categories
	return &p, nil
}

// RecordInteraction appends to the user's history, dropping the oldest
// entries beyond the retention cap.
func (s *MemoryStore) RecordInteraction(_ context.Context, in recommend.Interaction) error {
	if in.UserID == "" || in.ArticleID == "" {
		return fmt.Errorf("interaction: user_id and article_id are required")
	}
	if _, err := recommend.ParseInteractionType(string(in.Type)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.interactions[in.UserID], in)
	if over := len(history) - s.maxInteractions; over > 0 {
		history = append(history[:0:0], history[over:]...)
	}
	s.interactions[in.UserID] = history
	return nil
}

// GetRecentInteractions returns distinct article IDs the user interacted
// with using any of types, most recent first. No types means all types.
func (s *MemoryStore) GetRecentInteractions(_ context.Context, userID string, types ...recommend.InteractionType) ([]string, error) {
	want := make(map[recommend.InteractionType]struct{}, len(types))
	for _, t := range types {
		want[t] = struct{}{}
	}

	s.mu.RLock()
	history := s.interactions[userID]
	matched := make([]recommend.Interaction, 0, len(history))
	for _, in := range history {
		if len(want) > 0 {
			if _, ok := want[in.Type]; !ok {
				continue
			}
		}
		matched = append(matched, in)
	}
	s.mu.RUnlock()

	// Stable keeps insertion order for equal timestamps, newest appended last.
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].OccurredAt.After(matched[j].OccurredAt)
	})

	seen := make(map[string]struct{}, len(matched))
	ids := make([]string, 0, len(matched))
	for _, in := range matched {
		if _, dup := seen[in.ArticleID]; dup {
			continue
		}
		seen[in.ArticleID] = struct{}{}
		ids = append(ids, in.ArticleID)
	}
	return ids, nil
}

var (
	_ recommend.EmbeddingStore   = (*MemoryStore)(nil)
	_ recommend.ArticleStore     = (*MemoryStore)(nil)
	_ recommend.PreferenceStore  = (*MemoryStore)(nil)
	_ recommend.InteractionStore = (*MemoryStore)(nil)
)
