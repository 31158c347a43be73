// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/ManuGH/tunebox/internal/log"
)

// HeaderRequestID carries the request ID in both directions.
const HeaderRequestID = "X-Request-ID"

// HeaderCorrelationID lets a client tie several requests together. It
// defaults to the request ID.
const HeaderCorrelationID = "X-Correlation-ID"

// maxRequestIDLen bounds client supplied IDs.
const maxRequestIDLen = 128

// RequestID adds a unique ID to every request, reusing a sane client value.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := clientID(r, HeaderRequestID)
		if reqID == "" {
			reqID = uuid.New().String()
		}
		corrID := clientID(r, HeaderCorrelationID)
		if corrID == "" {
			corrID = reqID
		}
		w.Header().Set(HeaderRequestID, reqID)
		ctx := log.ContextWithRequestID(r.Context(), reqID)
		ctx = log.ContextWithCorrelationID(ctx, corrID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientID(r *http.Request, header string) string {
	id := r.Header.Get(header)
	if len(id) > maxRequestIDLen {
		return ""
	}
	return id
}
