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
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/goccy/go-json"

	"github.com/tomtom215/recserve/internal/recommend"
	"github.com/tomtom215/recserve/internal/resilience"
)

var embeddingColumns = []string{
	"entity_id", "entity_type", "model_type", "model_version",
	"vector", "dimension", "is_active", "updated_at",
}

// GetEmbedding returns the active embedding for the entity and model.
func (db *DB) GetEmbedding(ctx context.Context, entityID string, entityType recommend.EntityType, model recommend.ModelType) (*recommend.Embedding, error) {
	return db.getEmbedding(ctx, "get_embedding", sq.Eq{
		"entity_id":   entityID,
		"entity_type": string(entityType),
		"model_type":  string(model),
		"is_active":   true,
	})
}

// GetEmbeddingVersion returns a specific version, active or not.
func (db *DB) GetEmbeddingVersion(ctx context.Context, entityID string, entityType recommend.EntityType, model recommend.ModelType, version string) (*recommend.Embedding, error) {
	return db.getEmbedding(ctx, "get_embedding_version", sq.Eq{
		"entity_id":     entityID,
		"entity_type":   string(entityType),
		"model_type":    string(model),
		"model_version": version,
	})
}

func (db *DB) getEmbedding(ctx context.Context, operation string, where sq.Eq) (*recommend.Embedding, error) {
	query, args, err := builder().Select(embeddingColumns...).From("embeddings").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s query: %w", operation, err)
	}

	var e *recommend.Embedding
	err = db.read(ctx, operation, func(ctx context.Context) error {
		var scanErr error
		e, scanErr = scanEmbedding(db.conn.QueryRowContext(ctx, query, args...))
		return scanErr
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// GetActiveModelVersions returns the distinct active versions of a model.
func (db *DB) GetActiveModelVersions(ctx context.Context, model recommend.ModelType) ([]string, error) {
	query, args, err := builder().
		Select("DISTINCT model_version").
		From("embeddings").
		Where(sq.Eq{"model_type": string(model), "is_active": true}).
		OrderBy("model_version").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build active versions query: %w", err)
	}

	var versions []string
	err = db.read(ctx, "active_model_versions", func(ctx context.Context) error {
		rows, err := db.conn.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer closeWithLog(rows, &db.logger, "rows")

		versions = versions[:0]
		for rows.Next() {
			var v string
			if err := rows.Scan(&v); err != nil {
				return err
			}
			versions = append(versions, v)
		}
		return rows.Err()
	})
	return versions, err
}

// ArticleEmbeddings returns the active article embeddings of a model,
// ordered by article ID.
func (db *DB) ArticleEmbeddings(ctx context.Context, model recommend.ModelType) ([]recommend.Embedding, error) {
	query, args, err := builder().
		Select(embeddingColumns...).
		From("embeddings").
		Where(sq.Eq{
			"model_type":  string(model),
			"entity_type": string(recommend.EntityArticle),
			"is_active":   true,
		}).
		OrderBy("entity_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build article embeddings query: %w", err)
	}

	var out []recommend.Embedding
	err = db.read(ctx, "article_embeddings", func(ctx context.Context) error {
		rows, err := db.conn.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer closeWithLog(rows, &db.logger, "rows")

		out = out[:0]
		for rows.Next() {
			e, err := scanEmbedding(rows)
			if err != nil {
				return err
			}
			out = append(out, *e)
		}
		return rows.Err()
	})
	return out, err
}

// UpsertEmbeddings writes embeddings in one transaction. An active row
// deactivates every other version of the same entity and model. Invalid
// rows abort the whole batch.
func (db *DB) UpsertEmbeddings(ctx context.Context, embeddings []recommend.Embedding) (int, error) {
	for i := range embeddings {
		if err := embeddings[i].Validate(); err != nil {
			return 0, err
		}
	}
	if len(embeddings) == 0 {
		return 0, nil
	}

	now := db.now().UTC()
	err := db.write(ctx, "upsert_embeddings", func(ctx context.Context) error {
		// Concurrent activations of the same entity can conflict in DuckDB's
		// optimistic concurrency control. Conflicts are retried, other
		// failures are not.
		return resilience.Retry(ctx, db.cfg.Retry, backendName, func() error {
			err := db.upsertEmbeddingsTx(ctx, embeddings, now)
			if err != nil && !isTransactionConflict(err) {
				return resilience.Permanent(err)
			}
			return err
		})
	})
	if err != nil {
		return 0, err
	}
	return len(embeddings), nil
}

func (db *DB) upsertEmbeddingsTx(ctx context.Context, embeddings []recommend.Embedding, now time.Time) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for i := range embeddings {
		e := &embeddings[i]
		vector, err := json.Marshal(e.Vector)
		if err != nil {
			return fmt.Errorf("encode vector %s: %w", e.EntityID, err)
		}
		updated := e.UpdatedAt
		if updated.IsZero() {
			updated = now
		}

		if e.IsActive {
			deactivate, args, err := builder().
				Update("embeddings").
				Set("is_active", false).
				Where(sq.Eq{
					"entity_id":   e.EntityID,
					"entity_type": string(e.EntityType),
					"model_type":  string(e.ModelType),
				}).
				Where(sq.NotEq{"model_version": e.ModelVersion}).
				ToSql()
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, deactivate, args...); err != nil {
				return fmt.Errorf("deactivate previous versions of %s: %w", e.EntityID, err)
			}
		}

		insert, args, err := builder().
			Insert("embeddings").
			Columns(embeddingColumns...).
			Values(e.EntityID, string(e.EntityType), string(e.ModelType), e.ModelVersion,
				string(vector), e.Dimension, e.IsActive, updated).
			Suffix("ON CONFLICT (entity_id, entity_type, model_type, model_version) DO UPDATE SET " +
				"vector = EXCLUDED.vector, dimension = EXCLUDED.dimension, " +
				"is_active = EXCLUDED.is_active, updated_at = EXCLUDED.updated_at").
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
			return fmt.Errorf("insert embedding %s: %w", e.EntityID, err)
		}
	}
	return tx.Commit()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmbedding(row rowScanner) (*recommend.Embedding, error) {
	var (
		e          recommend.Embedding
		entityType string
		modelType  string
		vector     string
	)
	err := row.Scan(&e.EntityID, &entityType, &modelType, &e.ModelVersion,
		&vector, &e.Dimension, &e.IsActive, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, recommend.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	e.EntityType = recommend.EntityType(entityType)
	e.ModelType = recommend.ModelType(modelType)
	if err := json.Unmarshal([]byte(vector), &e.Vector); err != nil {
		return nil, fmt.Errorf("decode vector %s: %w", e.EntityID, err)
	}
	return &e, nil
}
