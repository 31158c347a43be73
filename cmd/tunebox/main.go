// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command tunebox serves local music directories over HTTP and exposes them
// through ngrok tunnels.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ManuGH/tunebox/internal/api"
	"github.com/ManuGH/tunebox/internal/assets"
	"github.com/ManuGH/tunebox/internal/config"
	"github.com/ManuGH/tunebox/internal/daemon"
	"github.com/ManuGH/tunebox/internal/health"
	"github.com/ManuGH/tunebox/internal/library"
	xglog "github.com/ManuGH/tunebox/internal/log"
	"github.com/ManuGH/tunebox/internal/styleconfig"
	"github.com/ManuGH/tunebox/internal/telemetry"
	"github.com/ManuGH/tunebox/internal/tunnel"
	"github.com/ManuGH/tunebox/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", config.DefaultFilename, "path to config file (JSON or YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	os.Exit(run(*configPath, flag.Args(), os.Stdout, os.Stderr))
}

// run dispatches subcommands; without one it serves until SIGINT or SIGTERM.
func run(configPath string, args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 {
		switch args[0] {
		case "config":
			return runConfigCLI(configPath, args[1:], stdout, stderr)
		case "styles":
			return runStylesCLI(cliConfig(configPath).StylesPath, args[1:], stdout, stderr)
		case "assets":
			return runAssetsCLI(cliConfig(configPath).StaticDir, args[1:], stdout, stderr)
		case "serve":
		default:
			fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintln(stderr, "Commands: serve (default), config, styles, assets")
			return 2
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, configPath); err != nil {
		logger := xglog.WithComponent("daemon")
		logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "daemon.failed").
			Msg("tunebox stopped with error")
		return 1
	}
	return 0
}

// cliConfig is the config subcommands resolve paths against. A missing
// file falls back to defaults plus environment.
func cliConfig(path string) config.AppConfig {
	cfg, err := config.NewLoader(path, version.Version).Load()
	if err != nil {
		cfg, _ = config.NewLoader("", version.Version).Load()
	}
	return cfg
}

func serve(ctx context.Context, configPath string) error {
	// Safe defaults until the config is loaded.
	xglog.Configure(xglog.Config{
		Level:   "info",
		Service: config.DefaultLogService,
		Version: version.Version,
	})
	logger := xglog.WithComponent("daemon")

	cfg, created, err := config.LoadOrCreate(configPath, version.Version)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	xglog.Configure(xglog.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
		Version: cfg.Version,
	})
	logger = xglog.WithComponent("daemon")
	logger.Info().
		Str(xglog.FieldEvent, "config.loaded").
		Str(xglog.FieldConfigPath, configPath).
		Bool("created", created).
		Int("directories", len(cfg.Directories)).
		Int("tunnel_domains", len(cfg.TunnelDomains)).
		Msg("loaded configuration")

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		return fmt.Errorf("startup checks: %w", err)
	}

	tracingCfg := config.ParseTracingConfig()
	if err := config.ValidateTracing(tracingCfg); err != nil {
		return fmt.Errorf("invalid tracing configuration: %w", err)
	}
	tracing, err := telemetry.NewProvider(ctx, telemetry.FromConfig(tracingCfg, cfg.LogService, version.Version))
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	if tracing.Enabled() {
		logger.Info().Str(xglog.FieldEvent, "tracing.enabled").Msg("exporting traces over OTLP")
	}

	store, err := library.NewStore(filepath.Join(cfg.DataDir, "library.db"))
	if err != nil {
		return fmt.Errorf("open library store: %w", err)
	}
	lib := library.NewService(store, library.Options{MaxDepth: cfg.ScanMaxDepth})
	if err := lib.Sync(ctx, cfg.Directories); err != nil {
		_ = store.Close()
		return fmt.Errorf("sync library roots: %w", err)
	}
	if err := lib.ScanAll(ctx); err != nil {
		// Failed roots are recorded and shown; serving continues.
		logger.Warn().Err(err).Str(xglog.FieldEvent, "library.initial_scan_failed").Msg("initial scan finished with errors")
	}

	serverCfg := config.ParseServerConfig(cfg)
	port, err := config.ListenPort(serverCfg.ListenAddr)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("listen address: %w", err)
	}
	tunnels := tunnel.NewManager(tunnel.Options{
		Bin:      cfg.TunnelBin,
		Port:     port,
		Disabled: !cfg.TunnelsEnabled,
	})
	ensureTunnels(ctx, logger, tunnels, cfg.TunnelDomains)

	styles := loadServeStyles(logger, cfg.StylesPath)

	pipeline := assets.New(assets.DefaultConfig(".", cfg.StaticDir))
	if err := pipeline.Load(); err != nil && !errors.Is(err, assets.ErrNotBuilt) {
		logger.Warn().Err(err).Str(xglog.FieldEvent, "assets.load_failed").Msg("ignoring unreadable bundle metadata")
	}

	hm := health.NewManager(version.Version)
	hm.RegisterChecker(health.NewLibraryChecker(lib))
	hm.RegisterChecker(health.NewTunnelChecker(tunnels))

	holder := config.NewHolder(cfg, config.NewLoader(configPath, version.Version))
	srv, err := api.New(api.Deps{
		Config:  holder,
		Editor:  config.NewManager(configPath),
		Library: lib,
		Tunnels: tunnels,
		Styles:  styles,
		Assets:  pipeline,
		Health:  hm,
		Version: version.Version,
		Tracing: tracing.Enabled(),
	})
	if err != nil {
		_ = tunnels.Close(ctx)
		_ = store.Close()
		return fmt.Errorf("build api server: %w", err)
	}

	mgr, err := daemon.NewManager(serverCfg, daemon.Deps{
		Logger:         logger,
		APIHandler:     srv.Handler(),
		MetricsHandler: promhttp.Handler(),
		MetricsAddr:    cfg.MetricsAddr,
	})
	if err != nil {
		_ = tunnels.Close(ctx)
		_ = store.Close()
		return fmt.Errorf("create daemon manager: %w", err)
	}
	// LIFO: tunnels stop before the store closes and spans flush last.
	mgr.RegisterShutdownHook("tracing", tracing.Shutdown)
	mgr.RegisterShutdownHook("library-store", func(context.Context) error { return store.Close() })
	mgr.RegisterShutdownHook("tunnels", tunnels.Close)

	logger.Info().
		Str(xglog.FieldEvent, "startup").
		Str("version", version.String()).
		Str("addr", serverCfg.ListenAddr).
		Msg("starting tunebox")

	apply := func(ctx context.Context, next config.AppConfig) {
		if err := xglog.SetLevel(next.LogLevel); err != nil {
			logger.Warn().Err(err).Str("level", next.LogLevel).Msg("ignoring invalid log level")
		}
		if err := lib.Sync(ctx, next.Directories); err != nil {
			logger.Error().Err(err).Str(xglog.FieldEvent, "library.sync_failed").Msg("failed to sync library roots")
			return
		}
		if err := lib.ScanAll(ctx); err != nil {
			logger.Warn().Err(err).Str(xglog.FieldEvent, "library.rescan_failed").Msg("rescan finished with errors")
		}
		ensureTunnels(ctx, logger, tunnels, next.TunnelDomains)
	}

	return daemon.NewApp(logger, mgr, holder, apply).Run(ctx)
}

func ensureTunnels(ctx context.Context, logger zerolog.Logger, tunnels *tunnel.Manager, domains []string) {
	for _, d := range domains {
		if err := tunnels.Ensure(ctx, d); err != nil {
			logger.Warn().Err(err).Str(xglog.FieldDomain, d).Msg("tunnel did not start")
		}
	}
}

// loadServeStyles reads the style config served at /api/styles. Problems
// are logged and the shipped default is used.
func loadServeStyles(logger zerolog.Logger, path string) styleconfig.Config {
	cfg, err := loadStyles(path)
	if err != nil {
		logger.Warn().Err(err).Str(xglog.FieldPath, path).Msg("invalid style config, using default")
		return styleconfig.Default()
	}
	return cfg
}
