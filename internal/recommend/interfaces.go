// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package recommend

import "context"

// EmbeddingStore is read-only access to precomputed embeddings.
// Implementations return ErrNotFound when no embedding exists.
type EmbeddingStore interface {
	// GetEmbedding returns the single active embedding for the entity.
	GetEmbedding(ctx context.Context, entityID string, entityType EntityType, model ModelType) (*Embedding, error)

	// GetEmbeddingVersion returns a specific version, active or not.
	GetEmbeddingVersion(ctx context.Context, entityID string, entityType EntityType, model ModelType, version string) (*Embedding, error)

	// GetActiveModelVersions returns the versions with at least one active
	// embedding for the model type.
	GetActiveModelVersions(ctx context.Context, model ModelType) ([]string, error)

	// ArticleEmbeddings returns all active article embeddings for a model.
	ArticleEmbeddings(ctx context.Context, model ModelType) ([]Embedding, error)
}

// EmbeddingSource retrieves candidates using one model type. The candidate
// generator iterates over registered sources without knowing their type.
type EmbeddingSource interface {
	ModelType() ModelType

	// Retrieve returns up to n candidates ordered by similarity. A user
	// without an embedding for this model yields no candidates and no error.
	Retrieve(ctx context.Context, userID string, n int) ([]Candidate, error)
}

// ArticleStore is the article metadata collaborator.
type ArticleStore interface {
	// GetArticle returns ErrNotFound for missing or deleted articles.
	GetArticle(ctx context.Context, id string) (*Article, error)

	// GetArticles returns the articles that exist, keyed by ID.
	GetArticles(ctx context.Context, ids []string) (map[string]Article, error)

	// TrendingArticles returns published articles ordered by trending score,
	// then engagement score, then ID.
	TrendingArticles(ctx context.Context, q TrendingQuery) ([]Article, error)
}

// PreferenceStore is the optional user profile collaborator.
type PreferenceStore interface {
	// GetUserPreferences returns ErrNotFound when no profile exists.
	GetUserPreferences(ctx context.Context, userID string) (*UserPreferences, error)
}

// InteractionStore exposes interaction history.
type InteractionStore interface {
	// GetRecentInteractions returns the distinct article IDs the user
	// interacted with using any of the given types.
	GetRecentInteractions(ctx context.Context, userID string, types ...InteractionType) ([]string, error)
}

// ResultCache stores one RecommendationResult per user.
type ResultCache interface {
	// Get returns the cached result and true only while it is fresh.
	Get(ctx context.Context, userID string) (*RecommendationResult, bool, error)

	// Put replaces any entry for the user. Expiry is taken from the result.
	Put(ctx context.Context, userID string, result *RecommendationResult) error

	// Invalidate makes any entry for the user unservable.
	Invalidate(ctx context.Context, userID string) error
}

// CandidateGenerator produces the unranked candidate pool.
type CandidateGenerator interface {
	GenerateCandidates(ctx context.Context, q CandidateQuery) ([]Candidate, error)
}

// Fuser computes one FusedFeature per candidate without dropping any.
type Fuser interface {
	Fuse(ctx context.Context, userID string, prefs *UserPreferences, candidates []Candidate) []FusedFeature
}

// Scorer computes relevance scores and a deterministic total order.
type Scorer interface {
	Score(fused []FusedFeature, weights Weights) []ScoredCandidate
}

// Reranker reorders scored candidates to balance relevance and diversity.
type Reranker interface {
	Rerank(scored []ScoredCandidate, diversityWeight float64, limit int) []ScoredCandidate
	Name() string
}
