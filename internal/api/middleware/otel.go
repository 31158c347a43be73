// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/tunebox/internal/telemetry"
)

// OTelHTTP wraps the handler with OpenTelemetry HTTP instrumentation.
// Spans are named after the matched chi route, so file paths never end
// up in span names.
func OTelHTTP(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(
			routeSpanName(next),
			serviceName,
			otelhttp.WithTracerProvider(otel.GetTracerProvider()),
			otelhttp.WithSpanOptions(trace.WithAttributes(semconv.ServiceName(serviceName))),
			otelhttp.WithFilter(shouldTrace),
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return "HTTP " + r.Method
			}),
		)
	}
}

// routeSpanName renames the server span once chi has matched a route.
func routeSpanName(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		span := trace.SpanFromContext(r.Context())
		span.SetName("HTTP " + r.Method + " " + route)
		span.SetAttributes(attribute.String(telemetry.HTTPRouteKey, route))
	})
}

// shouldTrace skips probes.
func shouldTrace(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/readyz", "/metrics":
		return false
	}
	return true
}

// ExtractTraceContext returns the trace and span IDs of the active span, or
// empty strings when none is recording.
func ExtractTraceContext(r *http.Request) (traceID, spanID string) {
	spanCtx := trace.SpanContextFromContext(r.Context())
	if !spanCtx.IsValid() {
		return "", ""
	}
	return spanCtx.TraceID().String(), spanCtx.SpanID().String()
}
