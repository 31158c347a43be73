// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/ManuGH/tunebox/internal/log"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const reloadDebounce = 500 * time.Millisecond

// Holder holds configuration with atomic reloading capability.
// It provides thread-safe access and hot reloading from the file watcher or
// a manual trigger.
type Holder struct {
	mu      sync.RWMutex
	current AppConfig
	loader  *Loader
	logger  zerolog.Logger

	watchMu sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}

	subMu       sync.RWMutex
	subscribers []chan<- AppConfig
}

// NewHolder creates a holder seeded with initial.
func NewHolder(initial AppConfig, loader *Loader) *Holder {
	return &Holder{
		current: initial.Clone(),
		loader:  loader,
		logger:  log.WithComponent("config"),
	}
}

// Get returns a copy of the current configuration.
func (h *Holder) Get() AppConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current.Clone()
}

// Reload reloads configuration from file and validates it.
// On any failure the previous configuration stays active.
func (h *Holder) Reload(_ context.Context) error {
	h.logger.Info().Str(log.FieldEvent, "config.reload_start").Msg("reloading configuration")

	next, err := h.loader.Load()
	if err != nil {
		h.logger.Error().
			Err(err).
			Str(log.FieldEvent, "config.reload_failed").
			Msg("failed to load new configuration")
		return fmt.Errorf("load config: %w", err)
	}
	if err := Validate(next); err != nil {
		h.logger.Error().
			Err(err).
			Str(log.FieldEvent, "config.validation_failed").
			Msg("new configuration failed validation")
		return fmt.Errorf("validate config: %w", err)
	}

	h.mu.Lock()
	prev := h.current
	h.current = next
	h.mu.Unlock()

	h.logChanges(prev, next)
	h.notify(next)

	h.logger.Info().
		Str(log.FieldEvent, "config.reload_success").
		Msg("configuration reloaded successfully")
	return nil
}

// Watch starts watching the config file until ctx ends or Stop is called.
// Without a config path this is a no-op.
func (h *Holder) Watch(ctx context.Context) error {
	path := h.loader.Path()
	if path == "" {
		h.logger.Info().
			Str(log.FieldEvent, "config.watcher_disabled").
			Msg("config file watcher disabled (using ENV-only configuration)")
		return nil
	}

	h.watchMu.Lock()
	defer h.watchMu.Unlock()
	if h.watcher != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory: atomic saves replace the file inode.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}
	h.watcher = watcher
	h.done = make(chan struct{})

	h.logger.Info().
		Str(log.FieldEvent, "config.watcher_started").
		Str(log.FieldConfigPath, path).
		Msg("watching config file for changes")

	go h.watchLoop(ctx, watcher, h.done, filepath.Clean(path))
	return nil
}

func (h *Holder) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, done chan struct{}, path string) {
	defer close(done)
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Str(log.FieldEvent, "config.watcher_stopped").Msg("config watcher stopped")
			_ = watcher.Close()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			h.logger.Debug().
				Str(log.FieldEvent, "config.file_changed").
				Str("op", event.Op.String()).
				Msg("config file changed")
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, func() {
				if err := h.Reload(ctx); err != nil {
					h.logger.Error().
						Err(err).
						Str(log.FieldEvent, "config.auto_reload_failed").
						Msg("automatic config reload failed")
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().
				Err(err).
				Str(log.FieldEvent, "config.watcher_error").
				Msg("config watcher error")
		}
	}
}

// Stop stops the watcher and waits for its goroutine to exit.
func (h *Holder) Stop() {
	h.watchMu.Lock()
	watcher, done := h.watcher, h.done
	h.watcher, h.done = nil, nil
	h.watchMu.Unlock()

	if watcher == nil {
		return
	}
	_ = watcher.Close()
	<-done
}

// Subscribe registers ch to receive every successfully reloaded config.
// Sends never block; a full channel misses the update.
func (h *Holder) Subscribe(ch chan<- AppConfig) {
	h.subMu.Lock()
	defer h.subMu.Unlock()
	h.subscribers = append(h.subscribers, ch)
}

func (h *Holder) notify(cfg AppConfig) {
	h.subMu.RLock()
	defer h.subMu.RUnlock()
	for _, ch := range h.subscribers {
		select {
		case ch <- cfg.Clone():
		default:
			h.logger.Warn().
				Str(log.FieldEvent, "config.listener_skip").
				Msg("skipped notifying listener (channel full)")
		}
	}
}

func (h *Holder) logChanges(prev, next AppConfig) {
	if !slices.Equal(prev.Directories, next.Directories) {
		h.logger.Info().
			Strs("old", prev.Directories).
			Strs("new", next.Directories).
			Msg("config changed: Directories")
	}
	if !slices.Equal(prev.TunnelDomains, next.TunnelDomains) {
		h.logger.Info().
			Strs("old", prev.TunnelDomains).
			Strs("new", next.TunnelDomains).
			Msg("config changed: TunnelDomains")
	}
	if prev.LogLevel != next.LogLevel {
		h.logger.Info().
			Str("old", prev.LogLevel).
			Str("new", next.LogLevel).
			Msg("config changed: LogLevel")
	}
	if prev.ListenAddr != next.ListenAddr {
		h.logger.Warn().
			Str("old", prev.ListenAddr).
			Str("new", next.ListenAddr).
			Msg("config changed: ListenAddr (takes effect after restart)")
	}
}
