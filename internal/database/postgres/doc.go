// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

// Package postgres reads recommendation inputs from the platform's primary
// PostgreSQL database through gorm.
//
// The tables are owned by the content platform and the training job; this
// package maps them read-only onto the engine's collaborator interfaces and
// never migrates them. Vectors are float8[] and tags text[] columns, scanned
// with lib/pq's array types.
package postgres
