// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ManuGH/tunebox/internal/config"
	"github.com/ManuGH/tunebox/internal/library"
	"github.com/ManuGH/tunebox/internal/tunnel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockChecker struct {
	name   string
	status Status
}

func (m *mockChecker) Name() string { return m.name }

func (m *mockChecker) Check(context.Context) CheckResult {
	return CheckResult{Status: m.status}
}

type fakeRoots struct {
	roots []library.Root
	err   error
}

func (f fakeRoots) Roots(context.Context) ([]library.Root, error) { return f.roots, f.err }

type fakeTunnels []tunnel.Status

func (f fakeTunnels) Status() []tunnel.Status { return f }

func TestManager_Health_NoCheckers(t *testing.T) {
	m := NewManager("v1.0.0")
	start := m.started
	m.now = func() time.Time { return start.Add(90 * time.Second) }

	resp := m.Health(context.Background(), false)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "v1.0.0", resp.Version)
	assert.Equal(t, int64(90), resp.Uptime)
	assert.Nil(t, resp.Checks)
}

func TestManager_Health_WithCheckers(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(&mockChecker{name: "healthy", status: StatusHealthy})
	m.RegisterChecker(&mockChecker{name: "degraded", status: StatusDegraded})

	resp := m.Health(context.Background(), false)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Nil(t, resp.Checks)

	resp = m.Health(context.Background(), true)
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Len(t, resp.Checks, 2)
}

func TestManager_Ready(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []Status
		wantReady bool
		want      Status
	}{
		{"none", nil, true, StatusHealthy},
		{"degraded stays ready", []Status{StatusHealthy, StatusDegraded}, true, StatusDegraded},
		{"unhealthy wins", []Status{StatusUnhealthy, StatusDegraded}, false, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager("test")
			for i, s := range tt.statuses {
				m.RegisterChecker(&mockChecker{name: string(rune('a' + i)), status: s})
			}
			resp := m.Ready(context.Background())
			assert.Equal(t, tt.wantReady, resp.Ready)
			assert.Equal(t, tt.want, resp.Status)
		})
	}
}

func TestServeHealth_AlwaysOK(t *testing.T) {
	m := NewManager("v2")
	m.RegisterChecker(&mockChecker{name: "down", status: StatusUnhealthy})

	rec := httptest.NewRecorder()
	m.ServeHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz?verbose=true", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, StatusUnhealthy, body.Status)
	assert.Equal(t, "v2", body.Version)
}

func TestServeReady_Unavailable(t *testing.T) {
	m := NewManager("v2")
	m.RegisterChecker(&mockChecker{name: "down", status: StatusUnhealthy})

	rec := httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLibraryChecker(t *testing.T) {
	ok := library.Root{ID: "a", LastScanStatus: library.RootStatusOK}
	bad := library.Root{ID: "b", LastScanStatus: library.RootStatusFailed}

	res := NewLibraryChecker(fakeRoots{roots: []library.Root{ok}}).Check(context.Background())
	assert.Equal(t, StatusHealthy, res.Status)

	res = NewLibraryChecker(fakeRoots{roots: []library.Root{ok, bad}}).Check(context.Background())
	assert.Equal(t, StatusDegraded, res.Status)
	assert.Contains(t, res.Message, "b")

	res = NewLibraryChecker(fakeRoots{err: errors.New("db closed")}).Check(context.Background())
	assert.Equal(t, StatusUnhealthy, res.Status)
	assert.Equal(t, "db closed", res.Error)
}

func TestTunnelChecker(t *testing.T) {
	c := NewTunnelChecker(fakeTunnels{{Domain: "a.ngrok.app", State: tunnel.StateRunning}})
	assert.Equal(t, StatusHealthy, c.Check(context.Background()).Status)

	c = NewTunnelChecker(fakeTunnels{{Domain: "b.ngrok.app", State: tunnel.StateFailed}})
	res := c.Check(context.Background())
	assert.Equal(t, StatusDegraded, res.Status)
	assert.Contains(t, res.Message, "b.ngrok.app")
}

func TestPerformStartupChecks(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = filepath.Join(t.TempDir(), "nested", "data")
	cfg.Directories = []string{filepath.Join(t.TempDir(), "missing")}

	require.NoError(t, PerformStartupChecks(context.Background(), cfg))
	info, err := os.Stat(cfg.DataDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestPerformStartupChecks_DataDirIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	cfg := config.Default()
	cfg.DataDir = file
	assert.Error(t, PerformStartupChecks(context.Background(), cfg))
}
