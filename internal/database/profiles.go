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

// MaxRecentInteractions caps the read-history returned per user.
const MaxRecentInteractions = 1000

// GetUserPreferences returns recommend.ErrNotFound when the user has no
// profile.
func (db *DB) GetUserPreferences(ctx context.Context, userID string) (*recommend.UserPreferences, error) {
	query, args, err := builder().
		Select("user_id", "categories", "diversity_preference", "personalization_level").
		From("user_preferences").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build preferences query: %w", err)
	}

	var prefs *recommend.UserPreferences
	err = db.read(ctx, "get_preferences", func(ctx context.Context) error {
		var (
			p           recommend.UserPreferences
			categories  string
			diversity   sql.NullFloat64
			personalize sql.NullFloat64
		)
		err := db.conn.QueryRowContext(ctx, query, args...).Scan(&p.UserID, &categories, &diversity, &personalize)
		if errors.Is(err, sql.ErrNoRows) {
			return recommend.ErrNotFound
		}
		if err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(categories), &p.Categories); err != nil {
			return fmt.Errorf("decode categories of %s: %w", userID, err)
		}
		if diversity.Valid {
			p.DiversityPreference = &diversity.Float64
		}
		if personalize.Valid {
			p.PersonalizationLevel = &personalize.Float64
		}
		prefs = &p
		return nil
	})
	return prefs, err
}

// PutPreferences stores or replaces a user profile.
//
//nolint:gocritic // hugeParam: prefs is copied into the row
func (db *DB) PutPreferences(ctx context.Context, prefs recommend.UserPreferences) error {
	if prefs.UserID == "" {
		return fmt.Errorf("preferences: user_id is required")
	}
	categories := prefs.Categories
	if categories == nil {
		categories = map[string]float64{}
	}
	encoded, err := json.Marshal(categories)
	if err != nil {
		return fmt.Errorf("encode categories of %s: %w", prefs.UserID, err)
	}

	query, args, err := builder().
		Insert("user_preferences").
		Columns("user_id", "categories", "diversity_preference", "personalization_level").
		Values(prefs.UserID, string(encoded), nullFloat(prefs.DiversityPreference), nullFloat(prefs.PersonalizationLevel)).
		Suffix("ON CONFLICT (user_id) DO UPDATE SET categories = EXCLUDED.categories, " +
			"diversity_preference = EXCLUDED.diversity_preference, " +
			"personalization_level = EXCLUDED.personalization_level").
		ToSql()
	if err != nil {
		return fmt.Errorf("build preferences upsert: %w", err)
	}

	return db.write(ctx, "put_preferences", func(ctx context.Context) error {
		_, err := db.conn.ExecContext(ctx, query, args...)
		return err
	})
}

// RecordInteraction appends one interaction.
//
//nolint:gocritic // hugeParam: in is copied into the row
func (db *DB) RecordInteraction(ctx context.Context, in recommend.Interaction) error {
	if in.UserID == "" || in.ArticleID == "" {
		return fmt.Errorf("interaction: user_id and article_id are required")
	}
	if _, err := recommend.ParseInteractionType(string(in.Type)); err != nil {
		return err
	}
	occurred := in.OccurredAt
	if occurred.IsZero() {
		occurred = db.now()
	}

	query, args, err := builder().
		Insert("interactions").
		Columns("user_id", "article_id", "interaction_type", "occurred_at").
		Values(in.UserID, in.ArticleID, string(in.Type), occurred.UTC()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build interaction insert: %w", err)
	}

	return db.write(ctx, "record_interaction", func(ctx context.Context) error {
		_, err := db.conn.ExecContext(ctx, query, args...)
		return err
	})
}

// GetRecentInteractions returns distinct article IDs the user interacted
// with using any of types, most recent first. No types means all types.
func (db *DB) GetRecentInteractions(ctx context.Context, userID string, types ...recommend.InteractionType) ([]string, error) {
	stmt := builder().
		Select("article_id", "MAX(occurred_at) AS last_seen").
		From("interactions").
		Where(sq.Eq{"user_id": userID}).
		GroupBy("article_id").
		OrderBy("last_seen DESC", "article_id ASC").
		Limit(MaxRecentInteractions)
	if len(types) > 0 {
		names := make([]string, len(types))
		for i, t := range types {
			names[i] = string(t)
		}
		stmt = stmt.Where(sq.Eq{"interaction_type": names})
	}

	query, args, err := stmt.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build interactions query: %w", err)
	}

	ids := []string{}
	err = db.read(ctx, "recent_interactions", func(ctx context.Context) error {
		rows, err := db.conn.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer closeWithLog(rows, &db.logger, "rows")

		ids = ids[:0]
		for rows.Next() {
			var (
				id   string
				last sql.NullTime
			)
			if err := rows.Scan(&id, &last); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return rows.Err()
	})
	return ids, err
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
