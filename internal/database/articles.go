// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/goccy/go-json"

	"github.com/tomtom215/recserve/internal/recommend"
)

var articleColumns = []string{
	"id", "status", "category", "tags", "published_at",
	"trending_score", "engagement_score", "quality_score",
}

// GetArticle returns one article or recommend.ErrNotFound.
func (db *DB) GetArticle(ctx context.Context, id string) (*recommend.Article, error) {
	query, args, err := builder().Select(articleColumns...).From("articles").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build article query: %w", err)
	}

	var a *recommend.Article
	err = db.read(ctx, "get_article", func(ctx context.Context) error {
		var scanErr error
		a, scanErr = scanArticle(db.conn.QueryRowContext(ctx, query, args...))
		return scanErr
	})
	return a, err
}

// GetArticles returns the known articles among ids. Unknown IDs are
// omitted.
func (db *DB) GetArticles(ctx context.Context, ids []string) (map[string]recommend.Article, error) {
	out := make(map[string]recommend.Article, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query, args, err := builder().Select(articleColumns...).From("articles").Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build articles query: %w", err)
	}

	err = db.read(ctx, "get_articles", func(ctx context.Context) error {
		clear(out)
		return db.queryArticles(ctx, query, args, func(a *recommend.Article) {
			out[a.ID] = *a
		})
	})
	return out, err
}

// TrendingArticles returns published articles ordered by trending score,
// engagement score and ID.
func (db *DB) TrendingArticles(ctx context.Context, q recommend.TrendingQuery) ([]recommend.Article, error) {
	stmt := builder().
		Select(articleColumns...).
		From("articles").
		Where(sq.Eq{"status": string(recommend.StatusPublished)}).
		OrderBy("trending_score DESC", "engagement_score DESC", "id ASC")
	if !q.Since.IsZero() {
		stmt = stmt.Where(sq.GtOrEq{"published_at": q.Since.UTC()})
	}
	if len(q.Categories) > 0 {
		stmt = stmt.Where(sq.Eq{"category": q.Categories})
	}
	if q.Limit > 0 {
		stmt = stmt.Limit(uint64(q.Limit))
	}

	query, args, err := stmt.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build trending query: %w", err)
	}

	var out []recommend.Article
	err = db.read(ctx, "trending_articles", func(ctx context.Context) error {
		out = out[:0]
		return db.queryArticles(ctx, query, args, func(a *recommend.Article) {
			out = append(out, *a)
		})
	})
	if out == nil {
		out = []recommend.Article{}
	}
	return out, err
}

// UpsertArticle inserts or replaces an article's metadata.
//
//nolint:gocritic // hugeParam: a is copied into the row
func (db *DB) UpsertArticle(ctx context.Context, a recommend.Article) error {
	if a.ID == "" {
		return fmt.Errorf("article: id is required")
	}
	tags, err := json.Marshal(nonNilStrings(a.Tags))
	if err != nil {
		return fmt.Errorf("encode tags %s: %w", a.ID, err)
	}
	var published sql.NullTime
	if !a.PublishedAt.IsZero() {
		published = sql.NullTime{Time: a.PublishedAt.UTC(), Valid: true}
	}

	query, args, err := builder().
		Insert("articles").
		Columns(articleColumns...).
		Values(a.ID, string(a.Status), a.Category, string(tags), published,
			a.TrendingScore, a.EngagementScore, a.QualityScore).
		Suffix("ON CONFLICT (id) DO UPDATE SET " +
			"status = EXCLUDED.status, category = EXCLUDED.category, tags = EXCLUDED.tags, " +
			"published_at = EXCLUDED.published_at, trending_score = EXCLUDED.trending_score, " +
			"engagement_score = EXCLUDED.engagement_score, quality_score = EXCLUDED.quality_score").
		ToSql()
	if err != nil {
		return fmt.Errorf("build article upsert: %w", err)
	}

	return db.write(ctx, "upsert_article", func(ctx context.Context) error {
		_, err := db.conn.ExecContext(ctx, query, args...)
		return err
	})
}

func (db *DB) queryArticles(ctx context.Context, query string, args []any, fn func(*recommend.Article)) error {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer closeWithLog(rows, &db.logger, "rows")

	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return err
		}
		fn(a)
	}
	return rows.Err()
}

func scanArticle(row rowScanner) (*recommend.Article, error) {
	var (
		a         recommend.Article
		status    string
		tags      string
		published sql.NullTime
	)
	err := row.Scan(&a.ID, &status, &a.Category, &tags, &published,
		&a.TrendingScore, &a.EngagementScore, &a.QualityScore)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, recommend.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Status = recommend.ArticleStatus(status)
	if published.Valid {
		a.PublishedAt = published.Time
	}
	if err := json.Unmarshal([]byte(tags), &a.Tags); err != nil {
		return nil, fmt.Errorf("decode tags %s: %w", a.ID, err)
	}
	return &a, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
