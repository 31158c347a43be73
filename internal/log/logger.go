// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config captures options for configuring the global logger.
type Config struct {
	Level   string    // optional log level ("debug", "info", etc.)
	Output  io.Writer // optional writer (defaults to os.Stdout)
	Service string    // optional service name attached to every log entry
	Version string    // optional build version attached to every log entry
}

var (
	mu   sync.RWMutex
	base zerolog.Logger
)

// Configure (re)initialises the global zerolog logger.
// The daemon calls it once with safe defaults and again after the config is loaded.
func Configure(cfg Config) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		if parsed, err := zerolog.ParseLevel(cfg.Level); err == nil {
			level = parsed
		}
	} else if env := os.Getenv("LOG_LEVEL"); env != "" {
		if parsed, err := zerolog.ParseLevel(env); err == nil {
			level = parsed
		}
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	writer := cfg.Output
	if writer == nil {
		writer = os.Stdout
	}

	service := cfg.Service
	if service == "" {
		service = os.Getenv("LOG_SERVICE")
		if service == "" {
			service = "tunebox"
		}
	}

	version := cfg.Version
	if version == "" {
		version = os.Getenv("VERSION")
	}

	l := zerolog.New(writer).With().
		Timestamp().
		Str(FieldService, service).
		Str(FieldVersion, version).
		Logger()

	mu.Lock()
	base = l
	mu.Unlock()
}

// SetLevel changes the global level without rebuilding the base logger,
// so component loggers created earlier follow it.
func SetLevel(level string) error {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(parsed)
	return nil
}

func logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Base returns the configured base logger instance.
func Base() zerolog.Logger {
	return logger()
}

// L returns a pointer to a copy of the base logger for one-off call sites.
func L() *zerolog.Logger {
	l := logger()
	return &l
}

// WithComponent returns a child logger annotated with the given component name.
func WithComponent(component string) zerolog.Logger {
	return logger().With().Str(FieldComponent, component).Logger()
}

// Derive attaches arbitrary fields to a child logger using the provided builder function.
func Derive(build func(*zerolog.Context)) zerolog.Logger {
	ctx := logger().With()
	if build != nil {
		build(&ctx)
	}
	return ctx.Logger()
}

func init() {
	Configure(Config{})
}
