// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(promhttp.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestPromhttpExposure(t *testing.T) {
	IncFileDenied("traversal")
	RecordScan("music-0a1b2c3d", "ok", 12, 50*time.Millisecond)

	body := scrape(t)
	assert.Contains(t, body, `tunebox_file_requests_denied_total{reason="traversal"}`)
	assert.Contains(t, body, `tunebox_library_items{root="music-0a1b2c3d"} 12`)
}

func TestRecordScan(t *testing.T) {
	before := testutil.ToFloat64(libraryScans.WithLabelValues("degraded"))
	RecordScan("r1", "degraded", 3, time.Second)
	assert.Equal(t, before+1, testutil.ToFloat64(libraryScans.WithLabelValues("degraded")))
	assert.Equal(t, 3.0, testutil.ToFloat64(libraryItems.WithLabelValues("r1")))

	ForgetRoot("r1")
	assert.NotContains(t, scrape(t), `tunebox_library_items{root="r1"}`)
}

func TestRecordConfigReload(t *testing.T) {
	ok := testutil.ToFloat64(configReloads.WithLabelValues("success"))
	bad := testutil.ToFloat64(configReloads.WithLabelValues("failure"))

	RecordConfigReload(nil)
	RecordConfigReload(errors.New("boom"))

	assert.Equal(t, ok+1, testutil.ToFloat64(configReloads.WithLabelValues("success")))
	assert.Equal(t, bad+1, testutil.ToFloat64(configReloads.WithLabelValues("failure")))
}

func TestRecordHTTPRequest(t *testing.T) {
	before := testutil.ToFloat64(httpRequests.WithLabelValues("/api/roots", "GET", "200"))
	RecordHTTPRequest("/api/roots", "GET", 200, 10*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues("/api/roots", "GET", "200")))
}
