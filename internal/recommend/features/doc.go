// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

// Package features turns candidates into fixed-schema feature vectors.
//
// Per-model similarities are copied from the candidate's model scores.
// Recency decays as 1/(1+days/scale) down to a floor. Trending, engagement
// and quality are divided by their maximum within the pool so each lies in
// [0, 1]. Category match is the user's affinity for the article category,
// or 0.5 when the user has no category profile.
package features
