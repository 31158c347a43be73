// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/ManuGH/tunebox/internal/config"
	"github.com/ManuGH/tunebox/internal/log"
	"github.com/rs/zerolog"
)

// PerformStartupChecks validates the environment before the server starts.
// Missing music directories only warn; they show up as failed roots.
func PerformStartupChecks(_ context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")

	if err := checkDataDir(logger, cfg.DataDir); err != nil {
		return fmt.Errorf("data directory check failed: %w", err)
	}

	for _, dir := range cfg.Directories {
		info, err := os.Stat(dir)
		switch {
		case err != nil:
			logger.Warn().Err(err).Str(log.FieldPath, dir).Msg("music directory not accessible")
		case !info.IsDir():
			logger.Warn().Str(log.FieldPath, dir).Msg("music directory is not a directory")
		}
	}

	if cfg.TunnelsEnabled && len(cfg.TunnelDomains) > 0 {
		if _, err := exec.LookPath(cfg.TunnelBin); err != nil {
			logger.Warn().Err(err).Str("bin", cfg.TunnelBin).Msg("tunnel binary not found; tunnels will fail to start")
		}
	}
	return nil
}

// checkDataDir creates the data directory if needed and probes that it is
// writable.
func checkDataDir(logger zerolog.Logger, path string) error {
	if err := os.MkdirAll(path, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	testFile := filepath.Join(path, ".write_test")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("directory is not writable: %s: %w", path, err)
	}
	_ = os.Remove(testFile)

	logger.Debug().Str(log.FieldPath, path).Msg("data directory is writable")
	return nil
}
