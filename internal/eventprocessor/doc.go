// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

// Package eventprocessor consumes user interaction events from NATS
// JetStream through Watermill and keeps the recommendation cache honest.
//
// Events arrive on the interactions.recorded subject as JSON:
//
//	{"user_id": "u1", "article_id": "a9", "type": "like", "occurred_at": "2026-03-01T12:00:00Z"}
//
// For each event the InteractionHandler:
//
//  1. drops redeliveries already handled within the dedup window
//  2. decodes and validates the payload (malformed events are acked and counted)
//  3. optionally appends the interaction to the store
//  4. invalidates the user's cached result when the type is a strong signal
//
// A failed store or cache call nacks the message so JetStream redelivers it.
//
// # Message Flow
//
//	NATS JetStream ──► watermill Subscriber ──► message.Router
//	                                              │ Recoverer, Retry
//	                                              ▼
//	                                       InteractionHandler ──► Engine.Invalidate
//
// The Consumer implements suture.Service and rebuilds its router on every
// restart.
package eventprocessor
