// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package middleware holds the HTTP ingress middleware shared by the
// tunebox routers.
package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"strings"
	"unicode/utf8"

	"github.com/ManuGH/tunebox/internal/log"
)

// Recoverer turns panics in downstream handlers into a logged 500 JSON
// response.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			buf := make([]byte, 8192)
			n := runtime.Stack(buf, false)

			reqID := log.RequestIDFromContext(r.Context())
			pathLabel := r.URL.Path
			if !utf8.ValidString(pathLabel) {
				pathLabel = strings.ToValidUTF8(pathLabel, "")
			}

			logger := log.WithComponentFromContext(r.Context(), "panic-recovery")
			logger.Error().
				Str(log.FieldEvent, "panic.recovered").
				Str(log.FieldMethod, r.Method).
				Str(log.FieldPath, pathLabel).
				Str(log.FieldRemoteAddr, r.RemoteAddr).
				Interface("panic_value", rec).
				Str("stack_trace", string(buf[:n])).
				Msg("panic recovered in HTTP handler")

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error":      "internal server error",
				"request_id": reqID,
			})
		}()

		next.ServeHTTP(w, r)
	})
}
