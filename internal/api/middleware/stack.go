// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/tunebox/internal/log"
)

// StackConfig configures the ingress middleware stack.
type StackConfig struct {
	EnableSecurityHeaders bool
	CSP                   string
	EnableMetrics         bool
	EnableLogging         bool
	// EnableTracing wraps requests in OpenTelemetry server spans.
	EnableTracing bool
	ServiceName   string
}

// NewRouter constructs a chi router with the middleware stack applied.
func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()
	ApplyStack(r, cfg)
	return r
}

// ApplyStack applies the middleware stack to r, outermost first.
func ApplyStack(r chi.Router, cfg StackConfig) {
	r.Use(Recoverer)
	if cfg.EnableTracing {
		name := cfg.ServiceName
		if name == "" {
			name = "tunebox"
		}
		r.Use(OTelHTTP(name))
	}
	r.Use(RequestID)
	if cfg.EnableSecurityHeaders {
		r.Use(SecurityHeaders(cfg.CSP))
	}
	if cfg.EnableMetrics {
		r.Use(Metrics())
	}
	if cfg.EnableLogging {
		r.Use(log.Middleware())
	}
}
