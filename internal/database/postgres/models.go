// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package postgres

import (
	"database/sql"
	"time"

	"github.com/goccy/go-json"
	"github.com/lib/pq"

	"github.com/tomtom215/recserve/internal/recommend"
)

// embeddingRow maps the user_embeddings and article_embeddings tables. The
// identifier column (user_id or article_id) is selected as entity_id.
type embeddingRow struct {
	EntityID     string          `gorm:"column:entity_id"`
	ModelType    string          `gorm:"column:model_type"`
	ModelVersion string          `gorm:"column:model_version"`
	Vector       pq.Float64Array `gorm:"column:embedding_vector;type:float8[]"`
	Dimension    int             `gorm:"column:embedding_dimension"`
	IsActive     bool            `gorm:"column:is_active"`
	UpdatedAt    time.Time       `gorm:"column:updated_at"`
}

func (r *embeddingRow) toEmbedding(entityType recommend.EntityType) recommend.Embedding {
	return recommend.Embedding{
		EntityID:     r.EntityID,
		EntityType:   entityType,
		ModelType:    recommend.ModelType(r.ModelType),
		ModelVersion: r.ModelVersion,
		Vector:       []float64(r.Vector),
		Dimension:    r.Dimension,
		IsActive:     r.IsActive,
		UpdatedAt:    r.UpdatedAt,
	}
}

// embeddingsFromRows converts rows and drops those that fail validation,
// typically a vector whose length disagrees with embedding_dimension.
func embeddingsFromRows(rows []embeddingRow, entityType recommend.EntityType) (valid []recommend.Embedding, rejected int) {
	valid = make([]recommend.Embedding, 0, len(rows))
	for i := range rows {
		e := rows[i].toEmbedding(entityType)
		if e.Validate() != nil {
			rejected++
			continue
		}
		valid = append(valid, e)
	}
	return valid, rejected
}

// articleRow maps the articles table.
type articleRow struct {
	ID              string         `gorm:"column:id;primaryKey"`
	Status          string         `gorm:"column:status"`
	Category        string         `gorm:"column:category"`
	Tags            pq.StringArray `gorm:"column:tags;type:text[]"`
	PublishedAt     sql.NullTime   `gorm:"column:published_at"`
	TrendingScore   float64        `gorm:"column:trending_score"`
	EngagementScore float64        `gorm:"column:engagement_score"`
	QualityScore    float64        `gorm:"column:quality_score"`
}

// TableName implements gorm's tabler interface.
func (articleRow) TableName() string { return "articles" }

func (r *articleRow) toArticle() recommend.Article {
	a := recommend.Article{
		ID:              r.ID,
		Status:          recommend.ArticleStatus(r.Status),
		Category:        r.Category,
		Tags:            []string(r.Tags),
		TrendingScore:   r.TrendingScore,
		EngagementScore: r.EngagementScore,
		QualityScore:    r.QualityScore,
	}
	if r.PublishedAt.Valid {
		a.PublishedAt = r.PublishedAt.Time
	}
	return a
}

// preferencesRow maps user_preferences. Categories is a jsonb object of
// category to affinity.
type preferencesRow struct {
	UserID               string          `gorm:"column:user_id;primaryKey"`
	Categories           []byte          `gorm:"column:categories;type:jsonb"`
	DiversityPreference  sql.NullFloat64 `gorm:"column:diversity_preference"`
	PersonalizationLevel sql.NullFloat64 `gorm:"column:personalization_level"`
}

// TableName implements gorm's tabler interface.
func (preferencesRow) TableName() string { return "user_preferences" }

func (r *preferencesRow) toPreferences() (recommend.UserPreferences, error) {
	p := recommend.UserPreferences{UserID: r.UserID}
	if len(r.Categories) > 0 {
		if err := json.Unmarshal(r.Categories, &p.Categories); err != nil {
			return p, err
		}
	}
	if r.DiversityPreference.Valid {
		v := r.DiversityPreference.Float64
		p.DiversityPreference = &v
	}
	if r.PersonalizationLevel.Valid {
		v := r.PersonalizationLevel.Float64
		p.PersonalizationLevel = &v
	}
	return p, nil
}

// interactionRow maps user_interactions.
type interactionRow struct {
	ID              string    `gorm:"column:id;primaryKey"`
	UserID          string    `gorm:"column:user_id"`
	ArticleID       string    `gorm:"column:article_id"`
	InteractionType string    `gorm:"column:interaction_type"`
	CreatedAt       time.Time `gorm:"column:created_at"`
}

// TableName implements gorm's tabler interface.
func (interactionRow) TableName() string { return "user_interactions" }
