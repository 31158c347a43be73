// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ManuGH/tunebox/internal/log"
)

// Loader resolves the AppConfig from defaults, the config file and the environment.
type Loader struct {
	configPath string
	version    string
}

// NewLoader creates a loader for configPath. An empty path means ENV and
// defaults only.
func NewLoader(configPath, version string) *Loader {
	return &Loader{configPath: configPath, version: version}
}

// Path returns the config file path.
func (l *Loader) Path() string { return l.configPath }

// Load builds the configuration with precedence ENV > file > defaults.
// A missing file is an error; use LoadOrCreate to bootstrap one.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Default()
	cfg.Version = l.version

	if l.configPath != "" {
		fc, err := LoadFileConfig(l.configPath)
		if err != nil {
			return AppConfig{}, fmt.Errorf("load config file %s: %w", l.configPath, err)
		}
		if err := mergeFile(&cfg, fc, filepath.Dir(l.configPath)); err != nil {
			return AppConfig{}, fmt.Errorf("config file %s: %w", l.configPath, err)
		}
	}

	mergeEnv(&cfg)
	return cfg, nil
}

// LoadOrCreate loads the config at path, writing a default file first if
// none exists. created reports whether the file was written.
func LoadOrCreate(path, version string) (cfg AppConfig, created bool, err error) {
	if _, statErr := os.Stat(path); errors.Is(statErr, fs.ErrNotExist) {
		if err := NewManager(path).Save(Default()); err != nil {
			return AppConfig{}, false, fmt.Errorf("create default config: %w", err)
		}
		created = true
		logger := log.WithComponent("config")
		logger.Info().
			Str("event", "config.created").
			Str(log.FieldConfigPath, path).
			Msg("created default config file")
	} else if statErr != nil {
		return AppConfig{}, false, fmt.Errorf("stat config: %w", statErr)
	}

	cfg, err = NewLoader(path, version).Load()
	if err != nil {
		return AppConfig{}, created, err
	}
	return cfg, created, nil
}
