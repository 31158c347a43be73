// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimitConfig holds configuration for rate limiting middleware.
type RateLimitConfig struct {
	// RequestLimit is the maximum number of requests allowed in the window
	RequestLimit int
	// WindowSize is the time window for rate limiting
	WindowSize time.Duration
	// KeyFunc extracts the rate limit key, defaulting to the client IP
	KeyFunc httprate.KeyFunc
}

// RateLimit creates a sliding window rate limiter that answers 429 with a
// JSON body and Retry-After.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = httprate.KeyByIP
	}
	retryAfter := strconv.Itoa(max(1, int(cfg.WindowSize.Seconds())))

	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowSize,
		httprate.WithKeyFuncs(keyFunc),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", retryAfter)
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate_limit_exceeded"}`))
		}),
	)
}

// UpdateRateLimit guards config-changing endpoints: 10 requests per minute per IP.
func UpdateRateLimit() func(http.Handler) http.Handler {
	return RateLimit(RateLimitConfig{RequestLimit: 10, WindowSize: time.Minute})
}

// APIRateLimit guards the JSON API: 600 requests per minute per IP.
func APIRateLimit() func(http.Handler) http.Handler {
	return RateLimit(RateLimitConfig{RequestLimit: 600, WindowSize: time.Minute})
}
