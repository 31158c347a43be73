// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/tunebox/internal/config"
	"github.com/ManuGH/tunebox/internal/log"
)

type fakeManager struct {
	startErr  error
	started   chan struct{}
	shutdowns atomic.Int32
}

func newFakeManager(startErr error) *fakeManager {
	return &fakeManager{startErr: startErr, started: make(chan struct{})}
}

func (m *fakeManager) Start(ctx context.Context) error {
	close(m.started)
	if m.startErr != nil {
		return m.startErr
	}
	<-ctx.Done()
	return nil
}

func (m *fakeManager) Shutdown(context.Context) error {
	m.shutdowns.Add(1)
	return nil
}

func (m *fakeManager) RegisterShutdownHook(string, ShutdownHook) {}

type fakeWatcher struct {
	mu       sync.Mutex
	watchErr error
	subs     []chan<- config.AppConfig
	watching bool
	stopped  bool
}

func (w *fakeWatcher) Watch(context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.watching = w.watchErr == nil
	return w.watchErr
}

func (w *fakeWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
}

func (w *fakeWatcher) Subscribe(ch chan<- config.AppConfig) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.subs = append(w.subs, ch)
}

func (w *fakeWatcher) Reload(context.Context) error { return nil }

func (w *fakeWatcher) publish(cfg config.AppConfig) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, ch := range w.subs {
		ch <- cfg
	}
}

func (w *fakeWatcher) isStopped() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stopped
}

func TestApp_RunRequiresManager(t *testing.T) {
	app := NewApp(log.WithComponent("test"), nil, nil, nil)
	assert.ErrorIs(t, app.Run(context.Background()), ErrMissingManager)
}

func TestApp_AppliesReloadedConfig(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent(), goleak.IgnoreAnyFunction("os/signal.loop"))

	mgr := newFakeManager(nil)
	watcher := &fakeWatcher{}
	applied := make(chan config.AppConfig, 1)
	app := NewApp(log.WithComponent("test"), mgr, watcher, func(_ context.Context, cfg config.AppConfig) {
		applied <- cfg
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- app.Run(ctx) }()
	<-mgr.started

	next := config.Default()
	next.LogLevel = "debug"
	watcher.publish(next)

	select {
	case got := <-applied:
		assert.Equal(t, "debug", got.LogLevel)
	case <-time.After(2 * time.Second):
		t.Fatal("reloaded config was not applied")
	}

	cancel()
	require.NoError(t, <-errCh)
	assert.True(t, watcher.isStopped())
}

func TestApp_WatchFailureIsNotFatal(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent(), goleak.IgnoreAnyFunction("os/signal.loop"))

	mgr := newFakeManager(nil)
	watcher := &fakeWatcher{watchErr: errors.New("inotify exhausted")}
	app := NewApp(log.WithComponent("test"), mgr, watcher, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- app.Run(ctx) }()
	<-mgr.started

	cancel()
	assert.NoError(t, <-errCh)
}

func TestApp_ManagerFailureStopsRun(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent(), goleak.IgnoreAnyFunction("os/signal.loop"))

	bindErr := errors.New("address in use")
	mgr := newFakeManager(bindErr)
	app := NewApp(log.WithComponent("test"), mgr, &fakeWatcher{}, func(context.Context, config.AppConfig) {})

	err := app.Run(context.Background())
	require.ErrorIs(t, err, bindErr)
	assert.Equal(t, int32(1), mgr.shutdowns.Load())
}
