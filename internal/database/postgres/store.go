// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package postgres

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tomtom215/recserve/internal/metrics"
	"github.com/tomtom215/recserve/internal/recommend"
	"github.com/tomtom215/recserve/internal/resilience"
)

const backendName = "postgres"

// maxRecentInteractions caps the read-history returned per user.
const maxRecentInteractions = 1000

// Config contains PostgreSQL connection settings.
type Config struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Database string `koanf:"database"`
	SSLMode  string `koanf:"ssl_mode"`

	// MaxOpenConns and MaxIdleConns size the pool.
	MaxOpenConns int `koanf:"max_open_conns"`
	MaxIdleConns int `koanf:"max_idle_conns"`

	// ConnMaxLifetime recycles connections.
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`

	// Retry configures retries of failed reads.
	Retry resilience.RetryConfig `koanf:"retry"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            5432,
		User:            "recserve",
		Database:        "news_platform",
		SSLMode:         "disable",
		MaxOpenConns:    20,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		Retry:           resilience.DefaultRetryConfig(),
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("postgres.host is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("postgres.port must be in 1-65535, got %d", c.Port)
	}
	if c.Database == "" {
		return fmt.Errorf("postgres.database is required")
	}
	switch c.SSLMode {
	case "disable", "require", "verify-ca", "verify-full":
	default:
		return fmt.Errorf("postgres.ssl_mode must be disable, require, verify-ca or verify-full; got %q", c.SSLMode)
	}
	if c.MaxOpenConns < 1 {
		return fmt.Errorf("postgres.max_open_conns must be positive, got %d", c.MaxOpenConns)
	}
	if err := c.Retry.Validate(); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	return nil
}

// DSN renders the connection URL. The password is escaped.
func (c *Config) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Database,
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	} else if c.User != "" {
		u.User = url.User(c.User)
	}
	q := url.Values{}
	q.Set("sslmode", c.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Store implements the engine's read interfaces over the platform schema.
type Store struct {
	db     *gorm.DB
	retry  resilience.RetryConfig
	logger zerolog.Logger
	now    func() time.Time
}

// Open connects to PostgreSQL and verifies the connection.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func Open(cfg Config, logger zerolog.Logger) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return NewStore(db, cfg.Retry, logger), nil
}

// NewStore wraps an existing gorm connection.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewStore(db *gorm.DB, retry resilience.RetryConfig, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		retry:  retry,
		logger: logger.With().Str("component", "postgres").Logger(),
		now:    time.Now,
	}
}

// Close closes the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping verifies the connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// embeddingTable returns the table and identifier column of an entity type.
func embeddingTable(entityType recommend.EntityType) (table, idColumn string, err error) {
	switch entityType {
	case recommend.EntityUser:
		return "user_embeddings", "user_id", nil
	case recommend.EntityArticle:
		return "article_embeddings", "article_id", nil
	default:
		return "", "", fmt.Errorf("unknown entity type %q", entityType)
	}
}

func embeddingSelect(idColumn string) string {
	return idColumn + " AS entity_id, model_type, model_version, embedding_vector, embedding_dimension, is_active, updated_at"
}

// GetEmbedding returns the active embedding for the entity and model. A
// malformed row is reported as recommend.ErrNotFound.
func (s *Store) GetEmbedding(ctx context.Context, entityID string, entityType recommend.EntityType, model recommend.ModelType) (*recommend.Embedding, error) {
	return s.getEmbedding(ctx, "get_embedding", entityID, entityType, func(q *gorm.DB) *gorm.DB {
		return q.Where("model_type = ? AND is_active = ?", string(model), true)
	})
}

// GetEmbeddingVersion returns a specific version, active or not.
func (s *Store) GetEmbeddingVersion(ctx context.Context, entityID string, entityType recommend.EntityType, model recommend.ModelType, version string) (*recommend.Embedding, error) {
	return s.getEmbedding(ctx, "get_embedding_version", entityID, entityType, func(q *gorm.DB) *gorm.DB {
		return q.Where("model_type = ? AND model_version = ?", string(model), version)
	})
}

func (s *Store) getEmbedding(ctx context.Context, operation, entityID string, entityType recommend.EntityType, scope func(*gorm.DB) *gorm.DB) (*recommend.Embedding, error) {
	table, idColumn, err := embeddingTable(entityType)
	if err != nil {
		return nil, err
	}

	var row embeddingRow
	err = s.read(ctx, operation, func(ctx context.Context) error {
		q := s.db.WithContext(ctx).
			Table(table).
			Select(embeddingSelect(idColumn)).
			Where(idColumn+" = ?", entityID)
		return scope(q).Take(&row).Error
	})
	if err != nil {
		return nil, err
	}
	e := row.toEmbedding(entityType)
	if err := e.Validate(); err != nil {
		metrics.EmbeddingsRejected.WithLabelValues(backendName, row.ModelType).Inc()
		s.logger.Warn().Err(err).Str("entity_id", entityID).Msg("Stored embedding is malformed, treating as missing")
		return nil, fmt.Errorf("%w: %w", recommend.ErrNotFound, err)
	}
	return &e, nil
}

// GetActiveModelVersions returns the distinct active versions of a model
// across user and article embeddings.
func (s *Store) GetActiveModelVersions(ctx context.Context, model recommend.ModelType) ([]string, error) {
	set := make(map[string]struct{})
	for _, table := range []string{"user_embeddings", "article_embeddings"} {
		var versions []string
		err := s.read(ctx, "active_model_versions", func(ctx context.Context) error {
			versions = versions[:0]
			return s.db.WithContext(ctx).
				Table(table).
				Where("model_type = ? AND is_active = ?", string(model), true).
				Distinct().
				Pluck("model_version", &versions).Error
		})
		if err != nil {
			return nil, err
		}
		for _, v := range versions {
			set[v] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out, nil
}

// ArticleEmbeddings returns the active article embeddings of a model,
// ordered by article ID. Rows whose vector length does not match the
// stored dimension are skipped.
func (s *Store) ArticleEmbeddings(ctx context.Context, model recommend.ModelType) ([]recommend.Embedding, error) {
	var rows []embeddingRow
	err := s.read(ctx, "article_embeddings", func(ctx context.Context) error {
		return s.db.WithContext(ctx).
			Table("article_embeddings").
			Select(embeddingSelect("article_id")).
			Where("model_type = ? AND is_active = ?", string(model), true).
			Order("article_id").
			Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}

	out, rejected := embeddingsFromRows(rows, recommend.EntityArticle)
	if rejected > 0 {
		metrics.EmbeddingsRejected.WithLabelValues(backendName, string(model)).Add(float64(rejected))
		s.logger.Warn().
			Str("model", string(model)).
			Int("rejected", rejected).
			Msg("Skipped malformed article embeddings")
	}
	return out, nil
}

// GetArticle returns one article or recommend.ErrNotFound.
func (s *Store) GetArticle(ctx context.Context, id string) (*recommend.Article, error) {
	var row articleRow
	err := s.read(ctx, "get_article", func(ctx context.Context) error {
		return s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	})
	if err != nil {
		return nil, err
	}
	a := row.toArticle()
	return &a, nil
}

// GetArticles returns the known articles among ids.
func (s *Store) GetArticles(ctx context.Context, ids []string) (map[string]recommend.Article, error) {
	out := make(map[string]recommend.Article, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []articleRow
	err := s.read(ctx, "get_articles", func(ctx context.Context) error {
		return s.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	for i := range rows {
		out[rows[i].ID] = rows[i].toArticle()
	}
	return out, nil
}

// TrendingArticles returns published articles ordered by trending score,
// engagement score and ID.
func (s *Store) TrendingArticles(ctx context.Context, q recommend.TrendingQuery) ([]recommend.Article, error) {
	var rows []articleRow
	err := s.read(ctx, "trending_articles", func(ctx context.Context) error {
		tx := s.db.WithContext(ctx).
			Where("status = ?", string(recommend.StatusPublished)).
			Order("trending_score DESC, engagement_score DESC, id ASC")
		if !q.Since.IsZero() {
			tx = tx.Where("published_at >= ?", q.Since)
		}
		if len(q.Categories) > 0 {
			tx = tx.Where("category IN ?", q.Categories)
		}
		if q.Limit > 0 {
			tx = tx.Limit(q.Limit)
		}
		return tx.Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}

	out := make([]recommend.Article, len(rows))
	for i := range rows {
		out[i] = rows[i].toArticle()
	}
	return out, nil
}

// GetUserPreferences returns recommend.ErrNotFound when the user has no
// profile.
func (s *Store) GetUserPreferences(ctx context.Context, userID string) (*recommend.UserPreferences, error) {
	var row preferencesRow
	err := s.read(ctx, "get_preferences", func(ctx context.Context) error {
		return s.db.WithContext(ctx).
			Select("user_id, categories, diversity_preference, personalization_level").
			Where("user_id = ?", userID).
			Take(&row).Error
	})
	if err != nil {
		return nil, err
	}
	prefs, err := row.toPreferences()
	if err != nil {
		return nil, fmt.Errorf("decode preferences of %s: %w", userID, err)
	}
	return &prefs, nil
}

// GetRecentInteractions returns distinct article IDs the user interacted
// with using any of types, most recent first. No types means all types.
func (s *Store) GetRecentInteractions(ctx context.Context, userID string, types ...recommend.InteractionType) ([]string, error) {
	var rows []struct {
		ArticleID string    `gorm:"column:article_id"`
		LastSeen  time.Time `gorm:"column:last_seen"`
	}
	err := s.read(ctx, "recent_interactions", func(ctx context.Context) error {
		tx := s.db.WithContext(ctx).
			Model(&interactionRow{}).
			Select("article_id, MAX(created_at) AS last_seen").
			Where("user_id = ?", userID).
			Group("article_id").
			Order("last_seen DESC, article_id ASC").
			Limit(maxRecentInteractions)
		if len(types) > 0 {
			names := make([]string, len(types))
			for i, t := range types {
				names[i] = string(t)
			}
			tx = tx.Where("interaction_type IN ?", names)
		}
		return tx.Scan(&rows).Error
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(rows))
	for i := range rows {
		ids[i] = rows[i].ArticleID
	}
	return ids, nil
}

// RecordInteraction appends one interaction.
//
//nolint:gocritic // hugeParam: in is copied into the row
func (s *Store) RecordInteraction(ctx context.Context, in recommend.Interaction) error {
	if in.UserID == "" || in.ArticleID == "" {
		return fmt.Errorf("interaction: user_id and article_id are required")
	}
	if _, err := recommend.ParseInteractionType(string(in.Type)); err != nil {
		return err
	}
	row := interactionRow{
		ID:              uuid.NewString(),
		UserID:          in.UserID,
		ArticleID:       in.ArticleID,
		InteractionType: string(in.Type),
		CreatedAt:       in.OccurredAt,
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = s.now()
	}

	start := time.Now()
	err := s.db.WithContext(ctx).Create(&row).Error
	metrics.RecordDBQuery(backendName, "record_interaction", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("record interaction: %w", classify(err))
	}
	return nil
}

// read runs op under the retry policy. Missing rows map to
// recommend.ErrNotFound and are not retried.
func (s *Store) read(ctx context.Context, operation string, op func(ctx context.Context) error) error {
	start := time.Now()
	err := resilience.Retry(ctx, s.retry, backendName, func() error {
		err := op(ctx)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return resilience.Permanent(recommend.ErrNotFound)
		}
		return err
	})

	if errors.Is(err, recommend.ErrNotFound) {
		metrics.RecordDBQuery(backendName, operation, time.Since(start), nil)
		return recommend.ErrNotFound
	}
	metrics.RecordDBQuery(backendName, operation, time.Since(start), err)
	if err != nil {
		s.logger.Debug().Err(err).Str("operation", operation).Msg("postgres read failed")
		return fmt.Errorf("%s: %w", operation, classify(err))
	}
	return nil
}

// classify marks connection-level failures as recommend.ErrStoreUnavailable.
func classify(err error) error {
	msg := err.Error()
	for _, marker := range []string{"connection refused", "connection reset", "broken pipe", "database is closed", "failed to connect"} {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %w", recommend.ErrStoreUnavailable, err)
		}
	}
	return err
}

var (
	_ recommend.EmbeddingStore   = (*Store)(nil)
	_ recommend.ArticleStore     = (*Store)(nil)
	_ recommend.PreferenceStore  = (*Store)(nil)
	_ recommend.InteractionStore = (*Store)(nil)
)
