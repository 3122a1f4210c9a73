// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

/*
Package database provides the embedded DuckDB backend for the recommendation
engine's collaborator data.

A single DB value implements every read interface the engine consumes:

  - recommend.EmbeddingStore: active and versioned embeddings per model type
  - recommend.ArticleStore: article metadata and trending articles
  - recommend.PreferenceStore: category affinities and tuning knobs
  - recommend.InteractionStore: recent user interactions for read exclusion

Write methods (UpsertEmbeddings, UpsertArticle, PutPreferences,
RecordInteraction) exist for the training job import path, the event
consumer and tests. The serving path never writes.

Schema:

	embeddings        (entity_id, entity_type, model_type, model_version) primary key,
	                  vector stored as JSON text, is_active flag
	articles          id primary key, tags stored as JSON text
	user_preferences  user_id primary key, categories stored as JSON text
	interactions      append-only, indexed by (user_id, occurred_at)

Vectors, tags and category maps are stored as JSON text rather than DuckDB
LIST or MAP columns so rows round-trip through database/sql without driver
specific types.

Resilience:

Every read runs under resilience.Retry (one retry with a short backoff by
default). Connection failures are reported as recommend.ErrStoreUnavailable;
missing rows as recommend.ErrNotFound, which is never retried.

Queries are built with squirrel so optional filters (categories, since,
interaction types) compose without string concatenation.

Usage:

	db, err := database.New(cfg, logger)
	if err != nil {
	    return err
	}
	defer db.Close()

	engine, err := recommend.NewEngine(recCfg, recommend.Dependencies{
	    Articles:     db,
	    Preferences:  db,
	    Interactions: db,
	    ...
	}, logger)
*/
package database
