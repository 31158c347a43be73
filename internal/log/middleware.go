// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"net/http"
	"time"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Middleware logs one structured line per HTTP request once the handler returns.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}

			logger := WithComponentFromContext(r.Context(), "http")
			ctx := logger.WithContext(r.Context())

			next.ServeHTTP(rec, r.WithContext(ctx))

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}

			evt := logger.Info()
			if status >= http.StatusInternalServerError {
				evt = logger.Error()
			}
			evt.
				Str(FieldEvent, "request.handled").
				Str(FieldMethod, r.Method).
				Str(FieldPath, r.URL.Path).
				Int(FieldStatus, status).
				Int(FieldBytes, rec.bytes).
				Int64(FieldDurationMS, time.Since(start).Milliseconds()).
				Str(FieldRemoteAddr, r.RemoteAddr).
				Msg("request handled")
		})
	}
}
