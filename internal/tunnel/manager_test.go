// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build unix

package tunnel

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeBin writes an executable shell script standing in for ngrok.
func fakeBin(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ngrok")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func closeManager(t *testing.T, m *Manager) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Close(ctx))
}

func statusOf(m *Manager, domain string) Status {
	for _, s := range m.Status() {
		if s.Domain == domain {
			return s
		}
	}
	return Status{}
}

func TestEnsure_StartsOncePerDomain(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args")
	bin := fakeBin(t, fmt.Sprintf(`echo "$@" >> %q; exec sleep 30`, argsFile))

	m := NewManager(Options{Bin: bin, Port: 8080, Grace: time.Second})
	ctx := context.Background()

	require.NoError(t, m.Ensure(ctx, "Tunes.ngrok.app"))
	require.NoError(t, m.Ensure(ctx, "tunes.ngrok.app "))

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(argsFile)
		return err == nil && strings.Count(string(data), "\n") == 1
	}, 2*time.Second, 20*time.Millisecond)

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Equal(t, "http --domain=tunes.ngrok.app 8080\n", string(data))

	st := statusOf(m, "tunes.ngrok.app")
	assert.Equal(t, StateRunning, st.State)
	assert.Positive(t, st.PID)
	assert.NotNil(t, st.StartedAt)

	closeManager(t, m)
	st = statusOf(m, "tunes.ngrok.app")
	assert.Equal(t, StateStopped, st.State)
	assert.Zero(t, st.PID)
}

func TestEnsure_MultipleDomainsSorted(t *testing.T) {
	bin := fakeBin(t, "exec sleep 30")
	m := NewManager(Options{Bin: bin, Port: 9000})
	ctx := context.Background()

	require.NoError(t, m.Ensure(ctx, "b.ngrok.app"))
	require.NoError(t, m.Ensure(ctx, "a.ngrok.app"))

	got := m.Status()
	require.Len(t, got, 2)
	assert.Equal(t, "a.ngrok.app", got[0].Domain)
	assert.Equal(t, "b.ngrok.app", got[1].Domain)
	closeManager(t, m)
}

func TestSupervise_RestartsThenGivesUp(t *testing.T) {
	bin := fakeBin(t, `echo "authentication failed" >&2; exit 1`)
	m := NewManager(Options{
		Bin:          bin,
		Port:         8080,
		RestartDelay: 10 * time.Millisecond,
		RestartEvery: time.Hour,
		RestartBurst: 2,
	})

	require.NoError(t, m.Ensure(context.Background(), "flaky.ngrok.app"))

	require.Eventually(t, func() bool {
		return statusOf(m, "flaky.ngrok.app").State == StateFailed
	}, 5*time.Second, 20*time.Millisecond)

	st := statusOf(m, "flaky.ngrok.app")
	assert.Equal(t, 2, st.Restarts)
	assert.Contains(t, st.LastError, "authentication failed")
	closeManager(t, m)
}

func TestEnsure_RestartsFailedTunnel(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "healthy")
	bin := fakeBin(t, fmt.Sprintf(`[ -f %q ] && exec sleep 30; exit 1`, marker))
	m := NewManager(Options{Bin: bin, RestartDelay: 10 * time.Millisecond, RestartEvery: time.Hour, RestartBurst: 1})
	ctx := context.Background()

	require.NoError(t, m.Ensure(ctx, "x.ngrok.app"))
	require.Eventually(t, func() bool {
		return statusOf(m, "x.ngrok.app").State == StateFailed
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(marker, nil, 0o644))
	require.NoError(t, m.Ensure(ctx, "x.ngrok.app"))
	assert.Equal(t, StateRunning, statusOf(m, "x.ngrok.app").State)
	closeManager(t, m)
}

func TestEnsure_StartFailureIsReturned(t *testing.T) {
	m := NewManager(Options{Bin: filepath.Join(t.TempDir(), "missing-ngrok")})

	err := m.Ensure(context.Background(), "down.ngrok.app")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "down.ngrok.app")

	st := statusOf(m, "down.ngrok.app")
	assert.Equal(t, StateFailed, st.State)
	assert.NotEmpty(t, st.LastError)
	closeManager(t, m)
}

func TestEnsure_Disabled(t *testing.T) {
	m := NewManager(Options{Bin: "/nonexistent", Disabled: true})
	require.NoError(t, m.Ensure(context.Background(), "off.ngrok.app"))
	assert.Equal(t, StateDisabled, statusOf(m, "off.ngrok.app").State)
	closeManager(t, m)
}

func TestEnsure_Validation(t *testing.T) {
	m := NewManager(Options{})
	assert.ErrorIs(t, m.Ensure(context.Background(), "  "), ErrInvalidDomain)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Ensure(ctx, "a.ngrok.app"), context.Canceled)

	closeManager(t, m)
	assert.ErrorIs(t, m.Ensure(context.Background(), "a.ngrok.app"), ErrClosed)
	assert.NoError(t, m.Close(context.Background()), "close is idempotent")
}

func TestCloseTerminatesStubbornProcess(t *testing.T) {
	bin := fakeBin(t, `trap "" TERM; sleep 30 & wait`)
	m := NewManager(Options{Bin: bin, Grace: 100 * time.Millisecond})
	require.NoError(t, m.Ensure(context.Background(), "stubborn.ngrok.app"))
	time.Sleep(100 * time.Millisecond)

	start := time.Now()
	closeManager(t, m)
	assert.Less(t, time.Since(start), 3*time.Second)
	assert.Equal(t, StateStopped, statusOf(m, "stubborn.ngrok.app").State)
}

func TestNgrokArgs(t *testing.T) {
	assert.Equal(t, []string{"http", "--domain=a.b.c", "8080"}, NgrokArgs("a.b.c", 8080))
}

func TestTailBuffer(t *testing.T) {
	b := &tailBuffer{max: 4}
	_, _ = b.Write([]byte("hello"))
	_, _ = b.Write([]byte(" world"))
	assert.Equal(t, "orld", b.String())
}
