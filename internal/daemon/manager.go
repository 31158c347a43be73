// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package daemon runs the tunebox HTTP servers and orders their shutdown.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/tunebox/internal/config"
	"github.com/ManuGH/tunebox/internal/log"
)

// ShutdownHook is a function that performs cleanup during graceful shutdown.
// Hooks are executed in reverse registration order (LIFO).
type ShutdownHook func(ctx context.Context) error

// Manager manages the daemon lifecycle: starting servers, handling shutdown.
type Manager interface {
	// Start starts all configured servers and blocks until shutdown
	Start(ctx context.Context) error

	// Shutdown gracefully shuts down all servers
	Shutdown(ctx context.Context) error

	// RegisterShutdownHook registers a function to be called during shutdown
	RegisterShutdownHook(name string, hook ShutdownHook)
}

type manager struct {
	serverCfg config.ServerConfig
	deps      Deps

	apiServer     *http.Server
	metricsServer *http.Server

	shutdownHooks []namedHook

	started  bool
	stopping bool
	mu       sync.Mutex

	logger zerolog.Logger
}

type namedHook struct {
	name string
	hook ShutdownHook
}

// NewManager creates a new daemon manager with the given configuration and dependencies.
func NewManager(serverCfg config.ServerConfig, deps Deps) (Manager, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}

	return &manager{
		serverCfg:     serverCfg,
		deps:          deps,
		logger:        deps.Logger.With().Str(log.FieldComponent, "manager").Logger(),
		shutdownHooks: make([]namedHook, 0),
	}, nil
}

// Start binds the listeners, serves until ctx ends or a server fails, then
// shuts down. Bind errors are returned before anything is served.
func (m *manager) Start(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("start context is nil")
	}

	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.started = true
	m.mu.Unlock()

	m.logger.Info().
		Str("listen", m.serverCfg.ListenAddr).
		Dur("read_timeout", m.serverCfg.ReadTimeout).
		Dur("write_timeout", m.serverCfg.WriteTimeout).
		Dur("shutdown_timeout", m.serverCfg.ShutdownTimeout).
		Msg("starting daemon manager")

	errChan := make(chan error, 2)

	if m.deps.MetricsHandler != nil && m.deps.MetricsAddr != "" {
		srv := &http.Server{
			Handler:           m.deps.MetricsHandler,
			ReadHeaderTimeout: 5 * time.Second,
		}
		if err := m.serve("metrics", m.deps.MetricsAddr, srv, errChan); err != nil {
			m.abortStart(ctx)
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		m.setServer(&m.metricsServer, srv)
	}

	api := &http.Server{
		Handler:           m.deps.APIHandler,
		ReadTimeout:       m.serverCfg.ReadTimeout,
		ReadHeaderTimeout: m.serverCfg.ReadTimeout / 2,
		WriteTimeout:      m.serverCfg.WriteTimeout,
		IdleTimeout:       m.serverCfg.IdleTimeout,
		MaxHeaderBytes:    m.serverCfg.MaxHeaderBytes,
	}
	if err := m.serve("api", m.serverCfg.ListenAddr, api, errChan); err != nil {
		m.abortStart(ctx)
		return fmt.Errorf("failed to start API server: %w", err)
	}
	m.setServer(&m.apiServer, api)

	select {
	case err := <-errChan:
		m.logger.Error().Err(err).Msg("server error, initiating shutdown")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if shutdownErr := m.Shutdown(shutdownCtx); shutdownErr != nil {
			return fmt.Errorf("server error and shutdown failure: %w", errors.Join(err, shutdownErr))
		}
		return err
	case <-ctx.Done():
		m.logger.Info().Msg("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		return m.Shutdown(shutdownCtx)
	}
}

// serve binds addr synchronously and serves srv in the background. Runtime
// failures are reported on errChan.
func (m *manager) serve(name, addr string, srv *http.Server, errChan chan<- error) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	m.logger.Info().
		Str(log.FieldEvent, name+".server.listening").
		Str("addr", ln.Addr().String()).
		Msgf("%s server listening", name)

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error().
				Err(err).
				Str(log.FieldEvent, name+".server.failed").
				Msgf("%s server failed", name)
			errChan <- fmt.Errorf("%s server: %w", name, err)
		}
	}()
	return nil
}

func (m *manager) setServer(dst **http.Server, srv *http.Server) {
	m.mu.Lock()
	*dst = srv
	m.mu.Unlock()
}

// abortStart releases whatever already started when a later bind fails.
func (m *manager) abortStart(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	_ = m.Shutdown(shutdownCtx)
}

func (m *manager) Shutdown(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("shutdown context is nil")
	}

	m.mu.Lock()
	if m.stopping {
		m.mu.Unlock()
		return nil
	}
	if !m.started {
		m.mu.Unlock()
		return ErrManagerNotStarted
	}
	m.stopping = true
	apiServer, metricsServer := m.apiServer, m.metricsServer
	hooks := append([]namedHook(nil), m.shutdownHooks...)
	m.mu.Unlock()

	m.logger.Info().Msg("shutting down daemon manager")

	timeout := m.serverCfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	var errs []error

	if apiServer != nil {
		m.logger.Debug().Msg("shutting down API server")
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("API server shutdown: %w", err))
		}
	}
	if metricsServer != nil {
		m.logger.Debug().Msg("shutting down metrics server")
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	for i := len(hooks) - 1; i >= 0; i-- {
		hook := hooks[i]
		hookStart := time.Now()
		if err := hook.hook(shutdownCtx); err != nil {
			m.logger.Error().
				Err(err).
				Str("hook", hook.name).
				Dur("duration", time.Since(hookStart)).
				Msg("shutdown hook failed")
			errs = append(errs, fmt.Errorf("hook %s: %w", hook.name, err))
			continue
		}
		m.logger.Debug().
			Str("hook", hook.name).
			Dur("duration", time.Since(hookStart)).
			Msg("shutdown hook completed")
	}

	if len(errs) > 0 {
		m.logger.Error().Int("error_count", len(errs)).Msg("shutdown completed with errors")
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	m.logger.Info().Msg("daemon manager stopped cleanly")
	return nil
}

// RegisterShutdownHook registers a cleanup function to be called during shutdown.
// Hooks are executed in reverse registration order (LIFO).
func (m *manager) RegisterShutdownHook(name string, hook ShutdownHook) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.shutdownHooks = append(m.shutdownHooks, namedHook{name: name, hook: hook})
	m.logger.Debug().Str("hook", name).Msg("registered shutdown hook")
}
