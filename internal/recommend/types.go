// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package recommend

import (
	"fmt"
	"sort"
	"time"
)

// ModelType identifies the embedding model family that produced a vector.
type ModelType string

const (
	ModelTwoTower  ModelType = "two_tower"
	ModelCNN       ModelType = "cnn"
	ModelRNN       ModelType = "rnn"
	ModelGNN       ModelType = "gnn"
	ModelAttention ModelType = "attention"
	ModelHybrid    ModelType = "hybrid"
)

// SourceTrending marks candidates that came from the trending fallback
// rather than from an embedding model.
const SourceTrending = "trending"

// modelOrder is the canonical ordering used wherever model sets are rendered.
var modelOrder = []ModelType{ModelTwoTower, ModelCNN, ModelRNN, ModelGNN, ModelAttention, ModelHybrid}

// AllModelTypes returns every known model type in canonical order.
func AllModelTypes() []ModelType {
	out := make([]ModelType, len(modelOrder))
	copy(out, modelOrder)
	return out
}

// Valid reports whether m is a known model type.
func (m ModelType) Valid() bool {
	return m.order() >= 0
}

func (m ModelType) order() int {
	for i, known := range modelOrder {
		if known == m {
			return i
		}
	}
	return -1
}

// ParseModelType converts a configuration string to a ModelType.
func ParseModelType(s string) (ModelType, error) {
	m := ModelType(s)
	if !m.Valid() {
		return "", fmt.Errorf("unknown model type %q", s)
	}
	return m, nil
}

// SortModels sorts model types into canonical order in place.
func SortModels(models []ModelType) {
	sort.Slice(models, func(i, j int) bool {
		return models[i].order() < models[j].order()
	})
}

// EntityType distinguishes user embeddings from article embeddings.
type EntityType string

const (
	EntityUser    EntityType = "user"
	EntityArticle EntityType = "article"
)

// ArticleStatus is the publication state of an article.
type ArticleStatus string

const (
	StatusDraft     ArticleStatus = "draft"
	StatusPublished ArticleStatus = "published"
	StatusArchived  ArticleStatus = "archived"
	StatusBlocked   ArticleStatus = "blocked"
)

// InteractionType classifies a recorded user/article interaction.
type InteractionType string

const (
	InteractionLike    InteractionType = "like"
	InteractionDislike InteractionType = "dislike"
	InteractionSave    InteractionType = "save"
	InteractionShare   InteractionType = "share"
	InteractionView    InteractionType = "view"
	InteractionComment InteractionType = "comment"
)

// ReadInteractionTypes are the interactions that count as "already read"
// when a request sets ExcludeRead.
func ReadInteractionTypes() []InteractionType {
	return []InteractionType{InteractionView, InteractionLike, InteractionSave}
}

// StrongInteractionNames are the interactions that change a user's taste
// enough to invalidate their cached recommendations.
func StrongInteractionNames() []string {
	return []string{
		string(InteractionLike),
		string(InteractionDislike),
		string(InteractionSave),
		string(InteractionShare),
	}
}

// ParseInteractionType converts a wire value to an InteractionType.
func ParseInteractionType(s string) (InteractionType, error) {
	switch t := InteractionType(s); t {
	case InteractionLike, InteractionDislike, InteractionSave,
		InteractionShare, InteractionView, InteractionComment:
		return t, nil
	default:
		return "", fmt.Errorf("unknown interaction type %q", s)
	}
}

// Interaction is one recorded user action on an article.
type Interaction struct {
	UserID     string          `json:"user_id" yaml:"user_id" validate:"required,max=128"`
	ArticleID  string          `json:"article_id" yaml:"article_id" validate:"required,max=128"`
	Type       InteractionType `json:"type" yaml:"type" validate:"required,oneof=like dislike save share view comment"`
	OccurredAt time.Time       `json:"occurred_at" yaml:"occurred_at"`
}

// Embedding is a precomputed vector for one entity under one model version.
type Embedding struct {
	// EntityID is the user or article identifier.
	EntityID string `json:"entity_id" yaml:"entity_id"`

	// EntityType is user or article.
	EntityType EntityType `json:"entity_type" yaml:"entity_type"`

	// ModelType is the model family that produced the vector.
	ModelType ModelType `json:"model_type" yaml:"model_type"`

	// ModelVersion identifies the training run.
	ModelVersion string `json:"model_version" yaml:"model_version"`

	// Vector holds the embedding values.
	Vector []float64 `json:"vector" yaml:"vector"`

	// Dimension is the declared vector length.
	Dimension int `json:"dimension" yaml:"dimension"`

	// IsActive marks the single embedding served for this entity and model.
	IsActive bool `json:"is_active" yaml:"is_active"`

	// UpdatedAt is when the training job last wrote the embedding.
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Validate checks the structural invariants of an embedding.
func (e *Embedding) Validate() error {
	if e.EntityID == "" {
		return fmt.Errorf("embedding: entity_id is required")
	}
	if e.EntityType != EntityUser && e.EntityType != EntityArticle {
		return fmt.Errorf("embedding %s: invalid entity_type %q", e.EntityID, e.EntityType)
	}
	if !e.ModelType.Valid() {
		return fmt.Errorf("embedding %s: invalid model_type %q", e.EntityID, e.ModelType)
	}
	if e.Dimension <= 0 || len(e.Vector) != e.Dimension {
		return fmt.Errorf("embedding %s/%s: vector length %d does not match dimension %d",
			e.EntityID, e.ModelType, len(e.Vector), e.Dimension)
	}
	return nil
}

// Article is the metadata the pipeline needs about a candidate article.
type Article struct {
	// ID is the article identifier.
	ID string `json:"id" yaml:"id"`

	// Status is the publication state. Only published articles are served.
	Status ArticleStatus `json:"status" yaml:"status"`

	// Category is the primary category.
	Category string `json:"category" yaml:"category"`

	// Tags are free-form topic labels.
	Tags []string `json:"tags" yaml:"tags"`

	// PublishedAt is the publication time (zero if unknown).
	PublishedAt time.Time `json:"published_at" yaml:"published_at"`

	// TrendingScore, EngagementScore and QualityScore are precomputed
	// non-negative signals maintained outside this service.
	TrendingScore   float64 `json:"trending_score" yaml:"trending_score"`
	EngagementScore float64 `json:"engagement_score" yaml:"engagement_score"`
	QualityScore    float64 `json:"quality_score" yaml:"quality_score"`
}

// Published reports whether the article may be recommended.
func (a *Article) Published() bool {
	return a.Status == StatusPublished
}

// UserPreferences is the optional preference profile of a user.
type UserPreferences struct {
	// UserID is the owner of the profile.
	UserID string `json:"user_id" yaml:"user_id"`

	// Categories maps category name to affinity in [0, 1].
	Categories map[string]float64 `json:"categories,omitempty" yaml:"categories"`

	// DiversityPreference overrides the default diversity weight when set.
	DiversityPreference *float64 `json:"diversity_preference,omitempty" yaml:"diversity_preference"`

	// PersonalizationLevel scales personal signals, in [0, 1]. Nil means 1.
	PersonalizationLevel *float64 `json:"personalization_level,omitempty" yaml:"personalization_level"`
}

// Personalization returns the effective personalization level.
// A nil receiver yields the neutral level of 1.
func (p *UserPreferences) Personalization() float64 {
	if p == nil || p.PersonalizationLevel == nil {
		return 1
	}
	return Clamp01(*p.PersonalizationLevel)
}

// HasCategoryProfile reports whether category affinities are available.
func (p *UserPreferences) HasCategoryProfile() bool {
	return p != nil && len(p.Categories) > 0
}

// Candidate is an article considered for recommendation before scoring.
type Candidate struct {
	// ArticleID identifies the article.
	ArticleID string `json:"article_id"`

	// Source is the model type with the highest raw score, or SourceTrending.
	Source string `json:"source_model"`

	// RawScore is the best similarity observed across models. Trending
	// candidates have a raw score of 0.
	RawScore float64 `json:"raw_score"`

	// RetrievedAt is when the candidate was produced.
	RetrievedAt time.Time `json:"retrieved_at"`

	// ModelScores holds the raw similarity per contributing model.
	ModelScores map[ModelType]float64 `json:"model_scores,omitempty"`

	// Article is the metadata attached during filtering, if known.
	Article *Article `json:"-"`
}

// ContributingModels returns the models that retrieved the candidate in
// canonical order.
func (c *Candidate) ContributingModels() []ModelType {
	if len(c.ModelScores) == 0 {
		return nil
	}
	models := make([]ModelType, 0, len(c.ModelScores))
	for m := range c.ModelScores {
		models = append(models, m)
	}
	SortModels(models)
	return models
}

// FusedFeature is the fixed-schema feature vector for one user/article pair.
type FusedFeature struct {
	UserID    string        `json:"user_id"`
	ArticleID string        `json:"article_id"`
	Features  FeatureVector `json:"features"`

	// The remaining fields carry candidate provenance through scoring.
	RawScore           float64     `json:"raw_score"`
	ContributingModels []ModelType `json:"contributing_models,omitempty"`
	Source             string      `json:"source"`
	Category           string      `json:"category,omitempty"`
	Tags               []string    `json:"tags,omitempty"`
}

// ScoredCandidate is a candidate with its ensemble relevance score.
type ScoredCandidate struct {
	// ArticleID identifies the article.
	ArticleID string `json:"article_id"`

	// RelevanceScore is the weighted ensemble score.
	RelevanceScore float64 `json:"relevance_score"`

	// RawScore is the best raw similarity, used for tie-breaking.
	RawScore float64 `json:"raw_score"`

	// ContributingModels lists models that retrieved the article.
	ContributingModels []ModelType `json:"contributing_models,omitempty"`

	// RankBeforeDiversity is the 1-based rank by relevance alone.
	RankBeforeDiversity int `json:"rank_before_diversity"`

	// Source is the candidate source (model type or SourceTrending).
	Source string `json:"source"`

	// Category and Tags drive diversity similarity.
	Category string   `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`

	// Reason is a short explanation derived from the dominant feature.
	Reason string `json:"reason"`
}

// RankedArticle is one entry of a served recommendation list.
type RankedArticle struct {
	ArticleID  string  `json:"article_id"`
	FinalScore float64 `json:"score"`
	Rank       int     `json:"rank"`
	Reason     string  `json:"reason"`
}

// GenerationContext records how a result was produced.
type GenerationContext struct {
	// PoolSize is the number of candidates scored.
	PoolSize int `json:"pool_size"`

	// DiversityApplied is true when a non-zero diversity weight was used.
	DiversityApplied bool `json:"diversity_applied"`

	// DiversityWeight is the effective weight after overrides and clamping.
	DiversityWeight float64 `json:"diversity_weight"`

	// DiversityOverride is the request override, if any.
	DiversityOverride *float64 `json:"diversity_override,omitempty"`

	// PersonalizationWeight is the personalization level applied to weights.
	PersonalizationWeight float64 `json:"personalization_weight"`

	// CacheServed marks responses served from the recommendation cache.
	CacheServed bool `json:"cache_served"`

	// Fallback names why the trending fallback was used, empty otherwise.
	Fallback string `json:"fallback,omitempty"`

	// Limit, Categories and ExcludeRead echo the request shape so cached
	// entries can be matched against later requests.
	Limit       int      `json:"limit"`
	Categories  []string `json:"categories,omitempty"`
	ExcludeRead bool     `json:"exclude_read"`

	// ExclusionIncomplete marks results built without the user's read
	// history although ExcludeRead was requested. They are never cached.
	ExclusionIncomplete bool `json:"exclusion_incomplete,omitempty"`

	// FeatureSchema is the FeatureVector schema version used for scoring.
	FeatureSchema int `json:"feature_schema"`
}

// RecommendationResult is the output of one pipeline run.
type RecommendationResult struct {
	UserID            string            `json:"user_id"`
	RequestID         string            `json:"request_id,omitempty"`
	RankedArticles    []RankedArticle   `json:"recommendations"`
	ModelEnsemble     string            `json:"model_used"`
	GeneratedAt       time.Time         `json:"generated_at"`
	ExpiresAt         time.Time         `json:"expires_at"`
	GenerationContext GenerationContext `json:"generation_context"`

	// Reason explains an empty result.
	Reason string `json:"reason,omitempty"`
}

// Empty reports whether the result has no recommendations.
func (r *RecommendationResult) Empty() bool {
	return len(r.RankedArticles) == 0
}

// Clone returns a deep copy so callers may annotate it freely.
func (r *RecommendationResult) Clone() *RecommendationResult {
	if r == nil {
		return nil
	}
	out := *r
	out.RankedArticles = append([]RankedArticle(nil), r.RankedArticles...)
	out.GenerationContext.Categories = append([]string(nil), r.GenerationContext.Categories...)
	if r.GenerationContext.DiversityOverride != nil {
		w := *r.GenerationContext.DiversityOverride
		out.GenerationContext.DiversityOverride = &w
	}
	return &out
}

// Request is the caller-facing input of GetRecommendations.
type Request struct {
	// UserID identifies the user. Required.
	UserID string `json:"user_id"`

	// Limit is the maximum number of results. Zero selects the default.
	Limit int `json:"limit"`

	// Categories optionally restricts results to these categories.
	Categories []string `json:"categories,omitempty"`

	// ExcludeRead removes articles the user has viewed, liked or saved.
	ExcludeRead bool `json:"exclude_read"`

	// DiversityWeight overrides the profile and default diversity weight.
	DiversityWeight *float64 `json:"diversity_weight,omitempty"`
}

// TrendingQuery selects published trending articles.
type TrendingQuery struct {
	// Since bounds publication time from below. Zero means no bound.
	Since time.Time

	// Limit caps the number of articles returned.
	Limit int

	// Categories optionally restricts the category.
	Categories []string
}

// CandidateQuery is the input of candidate generation.
type CandidateQuery struct {
	// UserID identifies the user.
	UserID string

	// Limit caps the size of the returned pool.
	Limit int

	// MinPool is the pool size below which trending articles fill the
	// deficit. Zero selects the generator default.
	MinPool int

	// Exclude lists article IDs that must not be returned.
	Exclude []string

	// Categories optionally restricts candidates to these categories.
	Categories []string
}

// Clamp01 bounds v to [0, 1].
func Clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
