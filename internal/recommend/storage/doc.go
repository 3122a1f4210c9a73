// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

// Package storage provides the in-process data stores of the recommendation
// engine and the embedding snapshot format shared with the training job.
//
// # MemoryStore
//
// MemoryStore implements recommend.EmbeddingStore, ArticleStore,
// PreferenceStore and InteractionStore. It keeps every embedding version
// but at most one active embedding per (entity, entity type, model type);
// storing a new active version deactivates the previous one. Rows whose
// vector length differs from their declared dimension are rejected.
//
// # Snapshots
//
// The training job publishes embeddings as files:
//
//	filename: {model_type}_v{sequence}.gob.gz
//
//	structure:
//	  - Metadata (SnapshotMetadata, including a SHA-256 checksum)
//	  - CompressedData (gzip-compressed gob-encoded []recommend.Embedding)
//
// Refresher rescans the directory, verifies checksums and swaps each model
// into the MemoryStore atomically. The supervisor runs it periodically.
//
// # Seeds
//
// Seed files (YAML) populate articles, embeddings, preferences and
// interactions at startup for development and tests.
package storage
