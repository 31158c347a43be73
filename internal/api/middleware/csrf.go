// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"net/http"
	"net/url"
	"strings"
)

// SameOrigin rejects state-changing browser requests whose Origin (or
// Referer) host differs from the request host. Requests carrying neither
// header come from non-browser clients and pass.
func SameOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		origin := requestOrigin(r)
		if origin != "" && !strings.EqualFold(origin, r.Host) {
			http.Error(w, "Forbidden: cross-origin request not allowed", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestOrigin returns the host of Origin, falling back to Referer.
func requestOrigin(r *http.Request) string {
	raw := r.Header.Get("Origin")
	if raw == "" || raw == "null" {
		raw = r.Header.Get("Referer")
	}
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "invalid"
	}
	return u.Host
}
