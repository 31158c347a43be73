// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/tunebox/internal/metrics"
)

// Metrics records request count and latency per chi route pattern.
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			mw := &metricsWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(mw, r)

			// Route patterns keep label cardinality bounded.
			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			metrics.RecordHTTPRequest(route, r.Method, mw.statusCode, time.Since(start))
		})
	}
}

type metricsWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (mw *metricsWriter) WriteHeader(statusCode int) {
	if !mw.written {
		mw.statusCode = statusCode
		mw.written = true
	}
	mw.ResponseWriter.WriteHeader(statusCode)
}

func (mw *metricsWriter) Write(b []byte) (int, error) {
	if !mw.written {
		mw.WriteHeader(http.StatusOK)
	}
	return mw.ResponseWriter.Write(b)
}

func (mw *metricsWriter) Unwrap() http.ResponseWriter {
	return mw.ResponseWriter
}
