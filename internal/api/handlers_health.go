// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/tomtom215/recserve/internal/recommend"
)

// Health statuses.
const (
	healthHealthy   = "healthy"
	healthUnhealthy = "unhealthy"
)

// HealthStatus is the data of GET /api/v1/health.
type HealthStatus struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	UptimeSeconds float64           `json:"uptime_seconds"`
	Checks        map[string]string `json:"checks"`
	Engine        recommend.Stats   `json:"engine"`
}

// Health serves GET /api/v1/health. Every registered check runs concurrently
// under its own timeout; any failure turns the response into a 503.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	status := HealthStatus{
		Status:        healthHealthy,
		Version:       h.version,
		UptimeSeconds: time.Since(h.startTime).Seconds(),
		Checks:        h.runChecks(r.Context()),
		Engine:        h.recommender.Stats(),
	}
	for _, result := range status.Checks {
		if result != "ok" {
			status.Status = healthUnhealthy
		}
	}

	code := http.StatusOK
	if status.Status != healthHealthy {
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, code, &APIResponse{
		Status: statusSuccess,
		Data:   status,
		Metadata: Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// Live serves GET /api/v1/health/live.
func (h *Handler) Live(w http.ResponseWriter, _ *http.Request) {
	respondSuccess(w, map[string]string{"status": "alive"}, time.Now(), false)
}

func (h *Handler) runChecks(ctx context.Context) map[string]string {
	results := make(map[string]string, len(h.checks))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, check := range h.checks {
		wg.Add(1)
		go func(check HealthCheck) {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, h.checkTimeout)
			defer cancel()

			result := "ok"
			if err := check.Check(checkCtx); err != nil {
				result = err.Error()
				h.logger.Warn().Err(err).Str("check", check.Name).Msg("health check failed")
			}
			mu.Lock()
			results[check.Name] = result
			mu.Unlock()
		}(check)
	}
	wg.Wait()
	return results
}
