// SPDX-License-Identifier: MIT

// Package metrics declares the tunebox Prometheus metric families.
// All collectors register with the default registry via promauto.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// File server
	fileRequestsAllowed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tunebox_file_requests_allowed_total",
		Help: "Audio file requests that passed all checks",
	})
	fileRequestsDenied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tunebox_file_requests_denied_total",
		Help: "Audio file requests rejected, by reason",
	}, []string{"reason"}) // reason=method|traversal|unknown_root|not_found|directory|extension|symlink
	fileCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tunebox_file_cache_hits_total",
		Help: "Conditional file requests answered with 304",
	})
	fileCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tunebox_file_cache_misses_total",
		Help: "File requests served with a body",
	})

	// Library
	libraryScans = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tunebox_library_scans_total",
		Help: "Library root scans by final status",
	}, []string{"status"}) // status=ok|degraded|failed
	libraryScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tunebox_library_scan_duration_seconds",
		Help:    "Duration of library root scans",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
	})
	libraryItems = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tunebox_library_items",
		Help: "Indexed audio files per root (last scan)",
	}, []string{"root"})

	// Tunnels
	tunnelStarts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tunebox_tunnel_starts_total",
		Help: "Tunnel processes started",
	})
	tunnelRestarts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tunebox_tunnel_restarts_total",
		Help: "Tunnel processes restarted after an unexpected exit",
	})
	tunnelFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tunebox_tunnel_failures_total",
		Help: "Tunnel failures by stage",
	}, []string{"stage"}) // stage=start|exhausted
	tunnelsRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tunebox_tunnels_running",
		Help: "Tunnel processes currently running",
	})

	// Process groups
	processSignals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tunebox_process_signals_total",
		Help: "Signals sent to child process groups",
	}, []string{"signal"}) // signal=SIGTERM|SIGKILL|interrupt

	// HTTP
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tunebox_http_requests_total",
		Help: "HTTP requests by route, method and status",
	}, []string{"route", "method", "status"})
	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tunebox_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	// Config
	configReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tunebox_config_reloads_total",
		Help: "Configuration reloads by outcome",
	}, []string{"outcome"}) // outcome=success|failure
)

func IncFileAllowed()               { fileRequestsAllowed.Inc() }
func IncFileDenied(reason string)   { fileRequestsDenied.WithLabelValues(reason).Inc() }
func IncFileCacheHit()              { fileCacheHits.Inc() }
func IncFileCacheMiss()             { fileCacheMisses.Inc() }
func IncTunnelStart()               { tunnelStarts.Inc() }
func IncTunnelRestart()             { tunnelRestarts.Inc() }
func IncTunnelFailure(stage string) { tunnelFailures.WithLabelValues(stage).Inc() }
func SetTunnelsRunning(n int)       { tunnelsRunning.Set(float64(n)) }
func IncProcessSignal(sig string)   { processSignals.WithLabelValues(sig).Inc() }

// RecordScan records one finished library scan.
func RecordScan(rootID, status string, items int, d time.Duration) {
	libraryScans.WithLabelValues(status).Inc()
	libraryScanDuration.Observe(d.Seconds())
	libraryItems.WithLabelValues(rootID).Set(float64(items))
}

// ForgetRoot drops per-root series for a root that is no longer configured.
func ForgetRoot(rootID string) { libraryItems.DeleteLabelValues(rootID) }

// RecordHTTPRequest records one served request. route is the chi route
// pattern, never the raw path.
func RecordHTTPRequest(route, method string, status int, d time.Duration) {
	httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

// RecordConfigReload records a config reload outcome.
func RecordConfigReload(err error) {
	if err != nil {
		configReloads.WithLabelValues("failure").Inc()
		return
	}
	configReloads.WithLabelValues("success").Inc()
}
