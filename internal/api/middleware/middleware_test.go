// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/tunebox/internal/log"
)

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestRecoverer_ReturnsJSON500(t *testing.T) {
	h := RequestID(Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "req-1", body["request_id"])
}

func TestRequestID(t *testing.T) {
	var seen, corr string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = log.RequestIDFromContext(r.Context())
		corr = log.CorrelationIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(HeaderRequestID))
	assert.Equal(t, seen, corr, "correlation defaults to the request ID")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "client-id")
	req.Header.Set(HeaderCorrelationID, "batch-7")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "client-id", seen)
	assert.Equal(t, "batch-7", corr)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, strings.Repeat("x", 200))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Len(t, seen, 36, "oversized client IDs are replaced by a UUID")
}

func TestRateLimit_EnforcesLimit(t *testing.T) {
	h := RateLimit(RateLimitConfig{RequestLimit: 3, WindowSize: time.Second})(http.HandlerFunc(okHandler))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate_limit_exceeded"}`, rec.Body.String())

	other := httptest.NewRequest(http.MethodGet, "/test", nil)
	other.RemoteAddr = "10.0.0.2:1"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code, "limits are per IP")
}

func TestSameOrigin(t *testing.T) {
	h := SameOrigin(http.HandlerFunc(okHandler))
	tests := []struct {
		name    string
		method  string
		origin  string
		referer string
		want    int
	}{
		{"get passes", http.MethodGet, "https://evil.example", "", http.StatusOK},
		{"same origin", http.MethodPost, "http://example.com", "", http.StatusOK},
		{"no headers", http.MethodPost, "", "", http.StatusOK},
		{"cross origin", http.MethodPost, "https://evil.example", "", http.StatusForbidden},
		{"referer fallback", http.MethodPost, "", "https://evil.example/page", http.StatusForbidden},
		{"referer same host", http.MethodPost, "", "http://example.com/", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "http://example.com/update", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.referer != "" {
				req.Header.Set("Referer", tt.referer)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders("")(http.HandlerFunc(okHandler))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, DefaultCSP, rec.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))
}

func httpRequestCount(t *testing.T, route, status string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "tunebox_http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["route"] == route && labels["status"] == status {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestStack_RecordsRoutePattern(t *testing.T) {
	r := NewRouter(StackConfig{EnableMetrics: true, EnableLogging: true})
	r.Get("/things/{id}", okHandler)

	before := httpRequestCount(t, "/things/{id}", "200")
	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/things/"+id, nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))
	}
	assert.Equal(t, before+2, httpRequestCount(t, "/things/{id}", "200"))
}
