// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/tunebox/internal/config"
	"github.com/ManuGH/tunebox/internal/log"
)

// ConfigWatcher is the part of config.Holder the App drives.
type ConfigWatcher interface {
	Watch(ctx context.Context) error
	Stop()
	Subscribe(ch chan<- config.AppConfig)
	Reload(ctx context.Context) error
}

// ApplyFunc reacts to a reloaded configuration.
type ApplyFunc func(ctx context.Context, cfg config.AppConfig)

// App owns the long-lived runtime lifecycle (watcher, reload wiring)
// and delegates server management to Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	holder       ConfigWatcher
	apply        ApplyFunc
	reloadSignal os.Signal
}

// NewApp creates a new App orchestrator. holder and apply may be nil.
func NewApp(logger zerolog.Logger, manager Manager, holder ConfigWatcher, apply ApplyFunc) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		holder:       holder,
		apply:        apply,
		reloadSignal: syscall.SIGHUP,
	}
}

// Run starts all owned background subsystems and blocks until ctx is cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, ctx := errgroup.WithContext(ctx)

	if a.holder != nil {
		// Best effort: a missing watcher only disables hot reload.
		if err := a.holder.Watch(ctx); err != nil {
			a.logger.Warn().Err(err).Str(log.FieldEvent, "config.watcher_start_failed").Msg("failed to start config watcher")
		}
		defer a.holder.Stop()
	}

	if a.holder != nil && a.apply != nil {
		applyCh := make(chan config.AppConfig, 1)
		a.holder.Subscribe(applyCh)

		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case cfg := <-applyCh:
					a.apply(ctx, cfg)
				}
			}
		})
	}

	if a.holder != nil && a.reloadSignal != nil {
		g.Go(func() error {
			hupChan := make(chan os.Signal, 1)
			signal.Notify(hupChan, a.reloadSignal)
			defer signal.Stop(hupChan)

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-hupChan:
					a.logger.Info().
						Str(log.FieldEvent, "config.reload_signal").
						Str("signal", a.reloadSignal.String()).
						Msg("received reload signal, reloading config")

					if err := a.holder.Reload(ctx); err != nil {
						a.logger.Warn().
							Err(err).
							Str(log.FieldEvent, "config.reload_failed").
							Msg("config reload failed")
					}
				}
			}
		})
	}

	g.Go(func() error {
		err := a.manager.Start(ctx)
		if err != nil {
			_ = a.manager.Shutdown(context.Background())
		}
		return err
	})

	return g.Wait()
}
