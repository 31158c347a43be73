// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ManuGH/tunebox/internal/library"
	"github.com/ManuGH/tunebox/internal/log"
)

// retryAfterScan is the Retry-After hint while a root is being scanned.
const retryAfterScan = "5"

// errorBody is the JSON shape of every API error.
type errorBody struct {
	Error     string `json:"error"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, r *http.Request, code int, errCode, detail string) {
	writeJSON(w, code, errorBody{
		Error:     errCode,
		Detail:    detail,
		RequestID: log.RequestIDFromContext(r.Context()),
	})
}

// writeError maps library sentinels to status codes. Anything unknown is
// logged and reported as a 500 without internals.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, library.ErrRootNotFound):
		writeProblem(w, r, http.StatusNotFound, "root_not_found", err.Error())
	case errors.Is(err, library.ErrScanRunning):
		w.Header().Set("Retry-After", retryAfterScan)
		writeProblem(w, r, http.StatusServiceUnavailable, "scan_running", err.Error())
	default:
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "api.internal_error").
			Str(log.FieldPath, r.URL.Path).
			Msg("request failed")
		writeProblem(w, r, http.StatusInternalServerError, "internal_error", "")
	}
}
