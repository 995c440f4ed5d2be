package handlers

import (
	"context"
	"net/http"
	"time"
)

// HealthChecker is anything whose connectivity the readiness probe verifies.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	checkers map[string]HealthChecker
	started  time.Time
}

// NewHealthHandler constructs a HealthHandler over named dependency checkers.
func NewHealthHandler(checkers map[string]HealthChecker) *HealthHandler {
	return &HealthHandler{checkers: checkers, started: time.Now()}
}

// Liveness handles GET /healthz.
func (h *HealthHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(h.started).String(),
	})
}

// Readiness handles GET /readyz: every registered dependency must answer.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	results := make(map[string]string, len(h.checkers))
	healthy := true
	for name, checker := range h.checkers {
		if err := checker.HealthCheck(r.Context()); err != nil {
			results[name] = err.Error()
			healthy = false
		} else {
			results[name] = "ok"
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"ready":        healthy,
		"dependencies": results,
	})
}
