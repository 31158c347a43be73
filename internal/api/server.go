// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api is the tunebox HTTP surface: the index page, the config
// update form, the music file server and the JSON API.
package api

import (
	"context"
	"errors"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ManuGH/tunebox/internal/api/middleware"
	"github.com/ManuGH/tunebox/internal/config"
	"github.com/ManuGH/tunebox/internal/health"
	"github.com/ManuGH/tunebox/internal/library"
	"github.com/ManuGH/tunebox/internal/log"
	"github.com/ManuGH/tunebox/internal/styleconfig"
	"github.com/ManuGH/tunebox/internal/tunnel"
)

// Library is the music index the handlers read and scan.
type Library interface {
	Roots(ctx context.Context) ([]library.Root, error)
	Root(ctx context.Context, rootID string) (*library.Root, error)
	RootPath(rootID string) (string, bool)
	Items(ctx context.Context, rootID string, limit, offset int) ([]library.Item, int, error)
	TriggerScan(ctx context.Context, rootID string) (*library.ScanResult, error)
	Sync(ctx context.Context, dirs []string) error
}

// Tunnels starts and reports tunnel processes.
type Tunnels interface {
	Ensure(ctx context.Context, domain string) error
	Status() []tunnel.Status
}

// ConfigSource yields the live configuration.
type ConfigSource interface {
	Get() config.AppConfig
	Reload(ctx context.Context) error
}

// ConfigEditor persists additions made through the update form.
type ConfigEditor interface {
	AddDirectory(dir string) (bool, error)
	AddTunnelDomain(domain string) (bool, error)
}

// ScriptSource resolves bundled entry points to script URLs.
type ScriptSource interface {
	Entries() []string
	Scripts(entryPoint string) ([]string, error)
}

// Deps are the collaborators of a Server. Assets and Health are optional.
type Deps struct {
	Config  ConfigSource
	Editor  ConfigEditor
	Library Library
	Tunnels Tunnels
	Styles  styleconfig.Config
	Assets  ScriptSource
	Health  *health.Manager
	Version string
	// Tracing wraps requests in OpenTelemetry server spans.
	Tracing bool
}

// ErrMissingDependency is returned by New when a required collaborator is nil.
var ErrMissingDependency = errors.New("api: missing dependency")

// Server holds the router and the parsed index template.
type Server struct {
	deps   Deps
	logger zerolog.Logger
	index  *template.Template
	router chi.Router
}

// New wires the routes. Templates are parsed once; a TemplatesDir in the
// config replaces the embedded ones.
func New(deps Deps) (*Server, error) {
	switch {
	case deps.Config == nil:
		return nil, errors.Join(ErrMissingDependency, errors.New("config"))
	case deps.Editor == nil:
		return nil, errors.Join(ErrMissingDependency, errors.New("config editor"))
	case deps.Library == nil:
		return nil, errors.Join(ErrMissingDependency, errors.New("library"))
	case deps.Tunnels == nil:
		return nil, errors.Join(ErrMissingDependency, errors.New("tunnels"))
	}
	if deps.Health == nil {
		deps.Health = health.NewManager(deps.Version)
	}

	cfg := deps.Config.Get()
	index, err := loadTemplates(cfg.TemplatesDir)
	if err != nil {
		return nil, err
	}

	s := &Server{
		deps:   deps,
		logger: log.WithComponent("api"),
		index:  index,
	}
	s.router = s.routes(cfg)
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes(cfg config.AppConfig) chi.Router {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		EnableLogging:         true,
		EnableTracing:         s.deps.Tracing,
		ServiceName:           cfg.LogService,
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	r.Get("/", s.handleIndex)
	r.With(middleware.SameOrigin, middleware.UpdateRateLimit()).Post("/update", s.handleUpdate)

	r.Handle("/files/{root}/*", http.HandlerFunc(s.handleFile))
	r.Handle("/static/*", http.StripPrefix("/static/", staticHandler(cfg.StaticDir)))

	r.Get("/healthz", s.deps.Health.ServeHealth)
	r.Get("/readyz", s.deps.Health.ServeReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIRateLimit())
		r.Get("/roots", s.handleRoots)
		r.Get("/roots/{id}", s.handleRoot)
		r.Get("/roots/{id}/items", s.handleItems)
		r.With(middleware.SameOrigin).Post("/roots/{id}/scan", s.handleScan)
		r.Get("/tunnels", s.handleTunnels)
		r.Get("/styles", s.handleStyles)
	})
	return r
}
