// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build unix

package procgroup

import (
	"errors"
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startGroup(t *testing.T, script string) (*exec.Cmd, <-chan error) {
	t.Helper()
	cmd := exec.Command("sh", "-c", script)
	Set(cmd)
	require.NoError(t, cmd.Start())

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	// let the shell spawn its children
	time.Sleep(100 * time.Millisecond)
	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	require.NoError(t, err)
	require.Equal(t, cmd.Process.Pid, pgid, "process should be group leader")
	return cmd, waitCh
}

func signalOf(err error) (syscall.Signal, bool) {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return 0, false
	}
	status, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok || !status.Signaled() {
		return 0, false
	}
	return status.Signal(), true
}

func assertGroupGone(t *testing.T, pgid int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return errors.Is(syscall.Kill(-pgid, syscall.Signal(0)), syscall.ESRCH)
	}, 2*time.Second, 20*time.Millisecond, "process group %d still exists", pgid)
}

func TestTerminate_SIGTERMStopsGroup(t *testing.T) {
	cmd, waitCh := startGroup(t, "sleep 30 & sleep 30")
	pgid := cmd.Process.Pid

	err := Terminate(cmd, waitCh, 2*time.Second)
	require.Error(t, err)
	sig, ok := signalOf(err)
	require.True(t, ok, "expected signal exit, got %v", err)
	assert.Equal(t, syscall.SIGTERM, sig)
	assertGroupGone(t, pgid)
}

func TestTerminate_EscalatesToSIGKILL(t *testing.T) {
	cmd, waitCh := startGroup(t, `trap "" TERM; sleep 30 & sleep 30`)
	pgid := cmd.Process.Pid

	start := time.Now()
	err := Terminate(cmd, waitCh, 200*time.Millisecond)
	require.Error(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
	sig, ok := signalOf(err)
	require.True(t, ok, "expected signal exit, got %v", err)
	assert.Equal(t, syscall.SIGKILL, sig)
	assertGroupGone(t, pgid)
}

func TestTerminate_AlreadyExited(t *testing.T) {
	cmd := exec.Command("sh", "-c", "exit 0")
	Set(cmd)
	require.NoError(t, cmd.Start())
	waitCh := make(chan error, 1)
	waitCh <- cmd.Wait()

	assert.NoError(t, Terminate(cmd, waitCh, time.Second))
}

func TestTerminate_NilCommand(t *testing.T) {
	assert.NoError(t, Terminate(nil, nil, time.Second))
	assert.NoError(t, Kill(&exec.Cmd{}, syscall.SIGTERM))
}
