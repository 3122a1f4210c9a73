// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestRequestIDRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if got := RequestIDFromContext(ctx); got != "" {
		t.Errorf("RequestIDFromContext(empty) = %q, want empty", got)
	}

	ctx = ContextWithRequestID(ctx, "req-123")
	if got := RequestIDFromContext(ctx); got != "req-123" {
		t.Errorf("RequestIDFromContext = %q, want req-123", got)
	}
}

func TestGenerateRequestID(t *testing.T) {
	t.Parallel()

	a, b := GenerateRequestID(), GenerateRequestID()
	if a == "" || b == "" || a == b {
		t.Errorf("expected two distinct non-empty IDs, got %q and %q", a, b)
	}
}

func TestCtxAddsRequestID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), NewTestLogger(&buf))
	ctx = ContextWithRequestID(ctx, "req-abc")

	Ctx(ctx).Info().Msg("hello")

	out := buf.String()
	if !strings.Contains(out, `"request_id":"req-abc"`) {
		t.Errorf("expected request_id in output, got: %s", out)
	}
}

func TestLoggerFromContextFallsBackToGlobal(t *testing.T) {
	t.Parallel()

	logger := LoggerFromContext(context.Background())
	if logger.GetLevel() != Logger().GetLevel() {
		t.Error("expected global logger when none stored")
	}
}
