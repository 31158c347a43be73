// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package log provides structured logging utilities.
package log

import (
	"context"

	"github.com/rs/zerolog"
)

type fieldsKey struct{}

// scope holds the identifiers that follow a request or scan through the
// call chain. Each With* helper stores a modified copy.
type scope struct {
	requestID     string
	correlationID string
	rootID        string
}

func scopeFrom(ctx context.Context) scope {
	if ctx == nil {
		return scope{}
	}
	s, _ := ctx.Value(fieldsKey{}).(scope)
	return s
}

func withScope(ctx context.Context, edit func(*scope)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	s := scopeFrom(ctx)
	edit(&s)
	return context.WithValue(ctx, fieldsKey{}, s)
}

// ContextWithRequestID stores the request ID in ctx.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return withScope(ctx, func(s *scope) { s.requestID = id })
}

// ContextWithCorrelationID stores an ID shared by related requests.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return withScope(ctx, func(s *scope) { s.correlationID = id })
}

// ContextWithRootID tags ctx with the library root being worked on.
func ContextWithRootID(ctx context.Context, id string) context.Context {
	return withScope(ctx, func(s *scope) { s.rootID = id })
}

// RequestIDFromContext returns the request ID, or "".
func RequestIDFromContext(ctx context.Context) string { return scopeFrom(ctx).requestID }

// CorrelationIDFromContext returns the correlation ID, or "".
func CorrelationIDFromContext(ctx context.Context) string { return scopeFrom(ctx).correlationID }

// RootIDFromContext returns the library root ID, or "".
func RootIDFromContext(ctx context.Context) string { return scopeFrom(ctx).rootID }

// WithContext adds the identifiers stored in ctx to logger.
func WithContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	s := scopeFrom(ctx)
	if s == (scope{}) {
		return logger
	}
	b := logger.With()
	if s.requestID != "" {
		b = b.Str(FieldRequestID, s.requestID)
	}
	if s.correlationID != "" {
		b = b.Str(FieldCorrelationID, s.correlationID)
	}
	if s.rootID != "" {
		b = b.Str(FieldRootID, s.rootID)
	}
	return b.Logger()
}

// WithComponentFromContext is WithComponent enriched with the identifiers
// stored in ctx.
func WithComponentFromContext(ctx context.Context, component string) zerolog.Logger {
	return WithContext(ctx, WithComponent(component))
}
