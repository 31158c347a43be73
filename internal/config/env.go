// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/tunebox/internal/log"
	"github.com/rs/zerolog"
)

// Environment keys. Each overrides the matching file value.
const (
	EnvListen         = "TUNEBOX_LISTEN"
	EnvDataDir        = "TUNEBOX_DATA"
	EnvLogLevel       = "TUNEBOX_LOG_LEVEL"
	EnvStaticDir      = "TUNEBOX_STATIC_DIR"
	EnvTemplatesDir   = "TUNEBOX_TEMPLATES_DIR"
	EnvTunnelBin      = "TUNEBOX_TUNNEL_BIN"
	EnvTunnelsEnabled = "TUNEBOX_TUNNELS_ENABLED"
	EnvMetricsAddr    = "TUNEBOX_METRICS_ADDR"
	EnvStyles         = "TUNEBOX_STYLES"

	EnvServerReadTimeout     = "TUNEBOX_SERVER_READ_TIMEOUT"
	EnvServerWriteTimeout    = "TUNEBOX_SERVER_WRITE_TIMEOUT"
	EnvServerIdleTimeout     = "TUNEBOX_SERVER_IDLE_TIMEOUT"
	EnvServerMaxHeaderBytes  = "TUNEBOX_SERVER_MAX_HEADER_BYTES"
	EnvServerShutdownTimeout = "TUNEBOX_SERVER_SHUTDOWN_TIMEOUT"

	EnvTracingEnabled  = "TUNEBOX_TRACING_ENABLED"
	EnvTracingExporter = "TUNEBOX_TRACING_EXPORTER"
	EnvOTLPEndpoint    = "TUNEBOX_OTLP_ENDPOINT"
	EnvSamplingRate    = "TUNEBOX_SAMPLING_RATE"
	EnvEnvironment     = "TUNEBOX_ENVIRONMENT"
)

// EnvPrefix is shared by every tunebox environment variable.
const EnvPrefix = "TUNEBOX_"

// ParseString reads a string from environment variable or returns default value.
// It logs the source (environment or default) for observability.
func ParseString(key, defaultValue string) string {
	return parseEnv(key, defaultValue, func(v string) (string, bool) { return v, true },
		func(e *zerolog.Event, v string) *zerolog.Event { return e.Str("value", v) })
}

// ParseInt reads an integer from environment variable or returns default value.
// It falls back to default on parse errors.
func ParseInt(key string, defaultValue int) int {
	return parseEnv(key, defaultValue, func(v string) (int, bool) {
		i, err := strconv.Atoi(v)
		return i, err == nil
	}, func(e *zerolog.Event, v int) *zerolog.Event { return e.Int("value", v) })
}

// ParseDuration reads a duration in Go duration format (e.g. "5s").
// It falls back to default on parse errors or empty variables.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	return parseEnv(key, defaultValue, func(v string) (time.Duration, bool) {
		d, err := time.ParseDuration(v)
		return d, err == nil
	}, func(e *zerolog.Event, v time.Duration) *zerolog.Event { return e.Dur("value", v) })
}

// ParseFloat reads a float from environment variable or returns default value.
func ParseFloat(key string, defaultValue float64) float64 {
	return parseEnv(key, defaultValue, func(v string) (float64, bool) {
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}, func(e *zerolog.Event, v float64) *zerolog.Event { return e.Float64("value", v) })
}

// ParseBool reads a boolean from environment variable or returns default value.
// It accepts "true", "false", "1", "0", "yes", "no" (case-insensitive).
func ParseBool(key string, defaultValue bool) bool {
	return parseEnv(key, defaultValue, func(v string) (bool, bool) {
		switch strings.ToLower(v) {
		case "true", "1", "yes":
			return true, true
		case "false", "0", "no":
			return false, true
		}
		return false, false
	}, func(e *zerolog.Event, v bool) *zerolog.Event { return e.Bool("value", v) })
}

func parseEnv[T any](key string, defaultValue T, parse func(string) (T, bool), field func(*zerolog.Event, T) *zerolog.Event) T {
	logger := log.WithComponent("config")
	raw, ok := os.LookupEnv(key)
	if !ok {
		field(logger.Debug().Str("key", key).Str("source", "default"), defaultValue).
			Msg("using default value")
		return defaultValue
	}
	if raw == "" {
		field(logger.Debug().Str("key", key).Str("source", "default"), defaultValue).
			Msg("using default value (environment variable is empty)")
		return defaultValue
	}
	v, ok := parse(raw)
	if !ok {
		field(logger.Warn().Str("key", key).Str("raw", raw), defaultValue).
			Msg("invalid value in environment variable, using default")
		return defaultValue
	}
	field(logger.Debug().Str("key", key).Str("source", "environment"), v).
		Msg("using environment variable")
	return v
}

// mergeEnv applies TUNEBOX_* overrides on top of cfg.
func mergeEnv(cfg *AppConfig) {
	cfg.ListenAddr = ParseString(EnvListen, cfg.ListenAddr)
	cfg.DataDir = ParseString(EnvDataDir, cfg.DataDir)
	cfg.LogLevel = ParseString(EnvLogLevel, cfg.LogLevel)
	cfg.StaticDir = ParseString(EnvStaticDir, cfg.StaticDir)
	cfg.TemplatesDir = ParseString(EnvTemplatesDir, cfg.TemplatesDir)
	cfg.TunnelBin = ParseString(EnvTunnelBin, cfg.TunnelBin)
	cfg.TunnelsEnabled = ParseBool(EnvTunnelsEnabled, cfg.TunnelsEnabled)
	cfg.MetricsAddr = ParseString(EnvMetricsAddr, cfg.MetricsAddr)
	cfg.StylesPath = ParseString(EnvStyles, cfg.StylesPath)
}
