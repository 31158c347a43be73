// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package procgroup starts child processes in their own process group and
// tears the whole group down on shutdown.
package procgroup

import (
	"os/exec"
	"syscall"
	"time"

	"github.com/ManuGH/tunebox/internal/log"
	"github.com/ManuGH/tunebox/internal/metrics"
)

// Terminate gracefully stops the process group of cmd.
// It sends SIGTERM, waits for the process to exit via waitCh, and sends
// SIGKILL if it is still running after grace. It always drains waitCh and
// returns its error. It is safe to call on nil commands.
func Terminate(cmd *exec.Cmd, waitCh <-chan error, grace time.Duration) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	logger := log.WithComponent("procgroup")
	pid := cmd.Process.Pid

	logger.Debug().Int(log.FieldPID, pid).Msg("sending SIGTERM to process group")
	if err := Kill(cmd, syscall.SIGTERM); err != nil {
		logger.Debug().Err(err).Int(log.FieldPID, pid).Msg("SIGTERM failed")
	}
	metrics.IncProcessSignal("SIGTERM")

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case err := <-waitCh:
		return err
	case <-timer.C:
	}

	logger.Warn().Int(log.FieldPID, pid).Msg("SIGTERM grace period exceeded, sending SIGKILL to process group")
	if err := Kill(cmd, syscall.SIGKILL); err != nil {
		logger.Debug().Err(err).Int(log.FieldPID, pid).Msg("SIGKILL failed")
	}
	metrics.IncProcessSignal("SIGKILL")
	return <-waitCh
}
