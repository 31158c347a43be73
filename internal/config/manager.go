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
	"sync"

	"github.com/google/renameio/v2"
)

// Manager handles configuration persistence.
// Edits operate on the file's own values so environment overrides are never
// written back to disk.
type Manager struct {
	mu         sync.Mutex
	configPath string
}

// NewManager creates a new configuration manager.
func NewManager(configPath string) *Manager {
	return &Manager{configPath: configPath}
}

// Path returns the managed file path.
func (m *Manager) Path() string { return m.configPath }

// Save writes cfg to disk atomically (temp file, fsync, rename).
func (m *Manager) Save(cfg AppConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.write(toFileConfig(cfg))
}

// AddDirectory appends dir to the persisted music roots. Blank and duplicate
// values are ignored; changed reports whether the file was rewritten.
func (m *Manager) AddDirectory(dir string) (changed bool, err error) {
	return m.update(func(fc *FileConfig) bool {
		var added bool
		fc.Directories, added = appendUnique(fc.Directories, normalizeDirectory(dir, filepath.Dir(m.configPath)))
		return added
	})
}

// AddTunnelDomain appends domain to the persisted tunnel domains. Blank and
// duplicate values are ignored; changed reports whether the file was rewritten.
func (m *Manager) AddTunnelDomain(domain string) (changed bool, err error) {
	return m.update(func(fc *FileConfig) bool {
		var added bool
		fc.TunnelDomains, added = appendUnique(fc.TunnelDomains, NormalizeDomain(domain))
		return added
	})
}

func (m *Manager) update(mutate func(*FileConfig) bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fc, err := LoadFileConfig(m.configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		base := toFileConfig(Default())
		fc = &base
	case err != nil:
		return false, fmt.Errorf("load config for update: %w", err)
	}

	// Entries already stored relative stay comparable with new absolute ones.
	base := filepath.Dir(m.configPath)
	for i, d := range fc.Directories {
		fc.Directories[i] = normalizeDirectory(d, base)
	}

	if !mutate(fc) {
		return false, nil
	}
	if err := m.write(*fc); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Manager) write(fc FileConfig) error {
	format, err := formatFor(m.configPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(m.configPath), 0750); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	data, err := encodeFileConfig(fc, format)
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(m.configPath, data, 0600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
