// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/tunebox/internal/config"
	"github.com/ManuGH/tunebox/internal/log"
)

func reserveListenAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err, "failed to reserve listen addr")
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}

func waitForListen(addr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	return errors.New("listen timeout")
}

func testServerConfig(addr string) config.ServerConfig {
	return config.ServerConfig{
		ListenAddr:      addr,
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		IdleTimeout:     10 * time.Second,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: 2 * time.Second,
	}
}

func okHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, body)
	})
}

func httpGet(t *testing.T, url string) (int, string) {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	// Drop the keep-alive connection so goleak sees no client goroutines.
	client.CloseIdleConnections()
	return resp.StatusCode, string(body)
}

func TestNewManager_ValidDeps(t *testing.T) {
	mgr, err := NewManager(testServerConfig("127.0.0.1:0"), Deps{
		Logger:     log.WithComponent("test"),
		APIHandler: http.NotFoundHandler(),
	})
	require.NoError(t, err)
	assert.NotNil(t, mgr)
}

func TestNewManager_MissingLogger(t *testing.T) {
	_, err := NewManager(testServerConfig("127.0.0.1:0"), Deps{
		Logger:     zerolog.Nop(),
		APIHandler: http.NotFoundHandler(),
	})
	require.ErrorIs(t, err, ErrMissingLogger)
	assert.Contains(t, err.Error(), "logger is required")
}

func TestNewManager_MissingAPIHandler(t *testing.T) {
	_, err := NewManager(testServerConfig("127.0.0.1:0"), Deps{
		Logger: log.WithComponent("test"),
	})
	require.ErrorIs(t, err, ErrMissingAPIHandler)
	assert.Contains(t, err.Error(), "API handler is required")
}

func TestManager_StartStop_OK(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	addr := reserveListenAddr(t)
	mgr, err := NewManager(testServerConfig(addr), Deps{
		Logger:     log.WithComponent("test"),
		APIHandler: okHandler("OK"),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- mgr.Start(ctx) }()

	require.NoError(t, waitForListen(addr, 2*time.Second))
	code, body := httpGet(t, "http://"+addr+"/")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "OK", body)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("manager did not stop after context cancel")
	}
}

func TestManager_StartTwice(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	addr := reserveListenAddr(t)
	mgr, err := NewManager(testServerConfig(addr), Deps{
		Logger:     log.WithComponent("test"),
		APIHandler: okHandler("OK"),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- mgr.Start(ctx) }()
	require.NoError(t, waitForListen(addr, 2*time.Second))

	assert.ErrorIs(t, mgr.Start(ctx), ErrAlreadyStarted)

	cancel()
	assert.NoError(t, <-errCh)
}

func TestManager_BindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	mgr, err := NewManager(testServerConfig(ln.Addr().String()), Deps{
		Logger:     log.WithComponent("test"),
		APIHandler: okHandler("OK"),
	})
	require.NoError(t, err)

	err = mgr.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start API server")
}

func TestManager_MetricsServer(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	apiAddr := reserveListenAddr(t)
	metricsAddr := reserveListenAddr(t)
	mgr, err := NewManager(testServerConfig(apiAddr), Deps{
		Logger:         log.WithComponent("test"),
		APIHandler:     okHandler("api"),
		MetricsHandler: okHandler("metrics"),
		MetricsAddr:    metricsAddr,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- mgr.Start(ctx) }()

	require.NoError(t, waitForListen(apiAddr, 2*time.Second))
	require.NoError(t, waitForListen(metricsAddr, 2*time.Second))

	_, body := httpGet(t, "http://"+metricsAddr+"/")
	assert.Equal(t, "metrics", body)
	_, body = httpGet(t, "http://"+apiAddr+"/")
	assert.Equal(t, "api", body)

	cancel()
	assert.NoError(t, <-errCh)
}

func TestManager_ShutdownNotStarted(t *testing.T) {
	mgr, err := NewManager(testServerConfig("127.0.0.1:0"), Deps{
		Logger:     log.WithComponent("test"),
		APIHandler: http.NotFoundHandler(),
	})
	require.NoError(t, err)

	assert.ErrorIs(t, mgr.Shutdown(context.Background()), ErrManagerNotStarted)
}

func TestManager_ShutdownHooksRunLIFO(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	addr := reserveListenAddr(t)
	mgr, err := NewManager(testServerConfig(addr), Deps{
		Logger:     log.WithComponent("test"),
		APIHandler: okHandler("OK"),
	})
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		order []string
	)
	record := func(name string, err error) ShutdownHook {
		return func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return err
		}
	}
	hookErr := errors.New("store close failed")
	mgr.RegisterShutdownHook("tunnels", record("tunnels", nil))
	mgr.RegisterShutdownHook("store", record("store", hookErr))
	mgr.RegisterShutdownHook("last", record("last", nil))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- mgr.Start(ctx) }()
	require.NoError(t, waitForListen(addr, 2*time.Second))

	cancel()
	err = <-errCh
	require.ErrorIs(t, err, hookErr)
	assert.Contains(t, err.Error(), "hook store")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"last", "store", "tunnels"}, order)

	// A second shutdown is a no-op.
	assert.NoError(t, mgr.Shutdown(context.Background()))
}
