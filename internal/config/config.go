// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Defaults applied before the file and the environment are merged.
const (
	DefaultFilename     = "config.json"
	DefaultListenAddr   = ":8080"
	DefaultDataDir      = "data"
	DefaultLogLevel     = "info"
	DefaultLogService   = "tunebox"
	DefaultStaticDir    = "static"
	DefaultTunnelBin    = "ngrok"
	DefaultStylesPath   = "tailwind.config.js"
	DefaultScanMaxDepth = 0
)

// AppConfig is the resolved runtime configuration.
type AppConfig struct {
	Version string

	// Directories are the music roots served under /files/.
	Directories []string
	// TunnelDomains are reserved ngrok domains, one tunnel each.
	TunnelDomains []string

	ListenAddr   string
	DataDir      string
	LogLevel     string
	LogService   string
	StaticDir    string
	TemplatesDir string // empty: embedded templates

	TunnelBin      string
	TunnelsEnabled bool

	MetricsAddr string // empty: disabled
	StylesPath  string

	ScanMaxDepth int // 0: unlimited

	Server ServerRuntimeConfig
}

// ServerRuntimeConfig holds HTTP server timeouts from the file.
type ServerRuntimeConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	MaxHeaderBytes  int
	ShutdownTimeout time.Duration
}

// Default returns the configuration used when no file and no environment
// overrides exist.
func Default() AppConfig {
	return AppConfig{
		Directories:    []string{},
		TunnelDomains:  []string{},
		ListenAddr:     DefaultListenAddr,
		DataDir:        DefaultDataDir,
		LogLevel:       DefaultLogLevel,
		LogService:     DefaultLogService,
		StaticDir:      DefaultStaticDir,
		TunnelBin:      DefaultTunnelBin,
		TunnelsEnabled: true,
		StylesPath:     DefaultStylesPath,
		ScanMaxDepth:   DefaultScanMaxDepth,
	}
}

// Clone returns a deep copy of cfg.
func (cfg AppConfig) Clone() AppConfig {
	out := cfg
	out.Directories = slices.Clone(cfg.Directories)
	out.TunnelDomains = slices.Clone(cfg.TunnelDomains)
	return out
}

// normalizeDirectory trims dir and makes it absolute relative to base.
// Blank input yields "".
func normalizeDirectory(dir, base string) string {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return ""
	}
	if !filepath.IsAbs(dir) && base != "" {
		dir = filepath.Join(base, dir)
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return filepath.Clean(dir)
}

// NormalizeDomain lowercases a tunnel domain and strips a scheme or
// trailing slash pasted from a browser.
func NormalizeDomain(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	domain = strings.TrimPrefix(domain, "https://")
	domain = strings.TrimPrefix(domain, "http://")
	return strings.TrimSuffix(domain, "/")
}

// appendUnique appends value unless it is blank or already present.
func appendUnique(values []string, value string) ([]string, bool) {
	if value == "" || slices.Contains(values, value) {
		return values, false
	}
	return append(values, value), true
}
