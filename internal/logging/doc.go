// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

// Package logging provides centralized zerolog-based structured logging.
//
// # Quick Start
//
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	logging.Info().Str("addr", addr).Msg("server starting")
//	logging.Ctx(ctx).Warn().Err(err).Msg("cache write failed")
//
// Components take a zerolog.Logger by value and derive a child with a
// "component" field:
//
//	logger := logging.WithComponent("candidates")
//
// # Adapters
//
// Libraries that expect another logging interface are bridged to zerolog:
//
//   - SlogHandler implements slog.Handler for sutureslog
//   - WatermillAdapter implements watermill.LoggerAdapter for the NATS
//     interaction subscriber
//
// # Request Correlation
//
// The HTTP layer stores a request ID in the context with ContextWithRequestID
// and the handler logger with ContextWithLogger. Ctx adds the ID to every log
// line and the recommendation engine copies it into the result it returns.
package logging
