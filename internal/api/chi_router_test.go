// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tomtom215/recserve/internal/logging"
)

func TestRouter_NotFoundAndMethodNotAllowed(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&fakeRecommender{})

	rec, env := do(t, srv, http.MethodGet, "/api/v1/unknown", "")
	if rec.Code != http.StatusNotFound || env.Error == nil || env.Error.Code != ErrCodeNotFound {
		t.Errorf("unknown route = %d %+v", rec.Code, env.Error)
	}

	rec, env = do(t, srv, http.MethodPut, "/api/v1/recommendations/user-1", "")
	if rec.Code != http.StatusMethodNotAllowed || env.Error == nil || env.Error.Code != ErrCodeMethodNotAllowed {
		t.Errorf("PUT = %d %+v", rec.Code, env.Error)
	}
}

func TestRouter_SecurityHeaders(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/recommendations/user-1", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	rec := httptest.NewRecorder()
	newTestServer(&fakeRecommender{}).ServeHTTP(rec, req)

	for header, want := range map[string]string{
		"X-Content-Type-Options":    "nosniff",
		"X-Frame-Options":           "DENY",
		"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestRouter_RateLimit(t *testing.T) {
	t.Parallel()

	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitRequests = 2
	cfg.RateLimitWindow = time.Minute
	srv := NewRouter(NewHandler(&fakeRecommender{}, logging.NewTestLogger(io.Discard)), NewChiMiddleware(cfg))

	for i := 0; i < 2; i++ {
		rec, _ := do(t, srv, http.MethodGet, "/api/v1/recommendations/user-1", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, rec.Code)
		}
	}

	rec, env := do(t, srv, http.MethodGet, "/api/v1/recommendations/user-1", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if env.Error == nil || env.Error.Code != ErrCodeTooManyRequests {
		t.Errorf("error = %+v", env.Error)
	}

	// health has its own budget
	rec, _ = do(t, srv, http.MethodGet, "/api/v1/health/live", "")
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", rec.Code)
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	t.Parallel()

	cfg := DefaultChiMiddlewareConfig()
	cfg.CORSAllowedOrigins = []string{"https://news.example.com"}
	srv := NewRouter(NewHandler(&fakeRecommender{}, logging.NewTestLogger(io.Discard)), NewChiMiddleware(cfg))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/recommendations", nil)
	req.Header.Set("Origin", "https://news.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://news.example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestRouter_Metrics(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	newTestServer(&fakeRecommender{}).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
