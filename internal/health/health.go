// SPDX-License-Identifier: MIT

// Package health serves liveness and readiness probes with per-component
// status.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ManuGH/tunebox/internal/log"
)

// Status represents the overall health/readiness status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult represents the result of a component health check
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse is the /healthz body.
type HealthResponse struct {
	Status    Status                 `json:"status"`
	Version   string                 `json:"version,omitempty"`
	Uptime    int64                  `json:"uptime_seconds"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// ReadinessResponse is the /readyz body.
type ReadinessResponse struct {
	Ready     bool                   `json:"ready"`
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker defines the interface for health checks
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Manager manages health and readiness checks
type Manager struct {
	version  string
	started  time.Time
	checkers []Checker
	now      func() time.Time
}

// NewManager creates a new health check manager
func NewManager(version string) *Manager {
	return &Manager{
		version:  version,
		started:  time.Now(),
		checkers: make([]Checker, 0),
		now:      time.Now,
	}
}

// RegisterChecker adds a health checker to the manager
func (m *Manager) RegisterChecker(checker Checker) {
	m.checkers = append(m.checkers, checker)
}

// runChecks evaluates every checker and folds their results into one status.
func (m *Manager) runChecks(ctx context.Context) (Status, map[string]CheckResult) {
	checks := make(map[string]CheckResult, len(m.checkers))
	overall := StatusHealthy
	for _, checker := range m.checkers {
		result := checker.Check(ctx)
		checks[checker.Name()] = result
		switch result.Status {
		case StatusUnhealthy:
			overall = StatusUnhealthy
		case StatusDegraded:
			if overall == StatusHealthy {
				overall = StatusDegraded
			}
		}
	}
	return overall, checks
}

// Health performs a liveness check. It always reports the process as alive;
// component checks are only evaluated when verbose is set.
func (m *Manager) Health(ctx context.Context, verbose bool) HealthResponse {
	now := m.now()
	resp := HealthResponse{
		Status:    StatusHealthy,
		Version:   m.version,
		Uptime:    int64(now.Sub(m.started).Seconds()),
		Timestamp: now,
	}
	if verbose && len(m.checkers) > 0 {
		resp.Status, resp.Checks = m.runChecks(ctx)
	}
	return resp
}

// Ready reports whether every component can serve traffic. Degraded
// components keep the service ready.
func (m *Manager) Ready(ctx context.Context) ReadinessResponse {
	resp := ReadinessResponse{
		Ready:     true,
		Status:    StatusHealthy,
		Timestamp: m.now(),
	}
	if len(m.checkers) == 0 {
		return resp
	}
	resp.Status, resp.Checks = m.runChecks(ctx)
	resp.Ready = resp.Status != StatusUnhealthy
	return resp
}

// ServeHealth handles HTTP health check requests
func (m *Manager) ServeHealth(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "health")
	verbose := r.URL.Query().Get("verbose") == "true"

	resp := m.Health(r.Context(), verbose)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK) // Always 200 for liveness

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "health.encode_error").Msg("failed to encode health response")
	}
}

// ServeReady handles HTTP readiness check requests
func (m *Manager) ServeReady(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "readiness")

	resp := m.Ready(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if resp.Ready {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "readiness.encode_error").Msg("failed to encode readiness response")
	}

	logger.Debug().
		Str(log.FieldEvent, "readiness.checked").
		Str("status", string(resp.Status)).
		Bool("ready", resp.Ready).
		Msg("readiness check performed")
}
