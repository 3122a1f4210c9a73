// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core database tables
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// createIndexes creates the indexes used by the serving queries.
func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range indexCreationQueries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

var tableCreationQueries = []string{
	`CREATE TABLE IF NOT EXISTS embeddings (
		entity_id TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		model_type TEXT NOT NULL,
		model_version TEXT NOT NULL,
		vector TEXT NOT NULL,
		dimension INTEGER NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT false,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (entity_id, entity_type, model_type, model_version)
	)`,
	`CREATE TABLE IF NOT EXISTS articles (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		tags TEXT NOT NULL DEFAULT '[]',
		published_at TIMESTAMP,
		trending_score DOUBLE NOT NULL DEFAULT 0,
		engagement_score DOUBLE NOT NULL DEFAULT 0,
		quality_score DOUBLE NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS user_preferences (
		user_id TEXT PRIMARY KEY,
		categories TEXT NOT NULL DEFAULT '{}',
		diversity_preference DOUBLE,
		personalization_level DOUBLE
	)`,
	`CREATE TABLE IF NOT EXISTS interactions (
		user_id TEXT NOT NULL,
		article_id TEXT NOT NULL,
		interaction_type TEXT NOT NULL,
		occurred_at TIMESTAMP NOT NULL
	)`,
}

// Columns rewritten by ON CONFLICT DO UPDATE must stay unindexed; DuckDB
// rejects upserts that assign to indexed columns.
var indexCreationQueries = []string{
	`CREATE INDEX IF NOT EXISTS idx_interactions_user ON interactions(user_id, occurred_at)`,
}
