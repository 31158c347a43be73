// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk representation. Keys mirror the historical
// config.json, so directories and ngrok_domains keep their names.
type FileConfig struct {
	Directories    []string          `json:"directories" yaml:"directories"`
	TunnelDomains  []string          `json:"ngrok_domains" yaml:"ngrok_domains"`
	ListenAddr     string            `json:"listen_addr,omitempty" yaml:"listen_addr,omitempty"`
	DataDir        string            `json:"data_dir,omitempty" yaml:"data_dir,omitempty"`
	LogLevel       string            `json:"log_level,omitempty" yaml:"log_level,omitempty"`
	LogService     string            `json:"log_service,omitempty" yaml:"log_service,omitempty"`
	StaticDir      string            `json:"static_dir,omitempty" yaml:"static_dir,omitempty"`
	TemplatesDir   string            `json:"templates_dir,omitempty" yaml:"templates_dir,omitempty"`
	TunnelBin      string            `json:"tunnel_bin,omitempty" yaml:"tunnel_bin,omitempty"`
	TunnelsEnabled *bool             `json:"tunnels_enabled,omitempty" yaml:"tunnels_enabled,omitempty"`
	MetricsAddr    string            `json:"metrics_addr,omitempty" yaml:"metrics_addr,omitempty"`
	StylesPath     string            `json:"styles_path,omitempty" yaml:"styles_path,omitempty"`
	ScanMaxDepth   *int              `json:"scan_max_depth,omitempty" yaml:"scan_max_depth,omitempty"`
	Server         *ServerFileConfig `json:"server,omitempty" yaml:"server,omitempty"`
}

// ServerFileConfig holds server timeouts as Go duration strings.
type ServerFileConfig struct {
	ReadTimeout     string `json:"read_timeout,omitempty" yaml:"read_timeout,omitempty"`
	WriteTimeout    string `json:"write_timeout,omitempty" yaml:"write_timeout,omitempty"`
	IdleTimeout     string `json:"idle_timeout,omitempty" yaml:"idle_timeout,omitempty"`
	MaxHeaderBytes  int    `json:"max_header_bytes,omitempty" yaml:"max_header_bytes,omitempty"`
	ShutdownTimeout string `json:"shutdown_timeout,omitempty" yaml:"shutdown_timeout,omitempty"`
}

type fileFormat int

const (
	formatJSON fileFormat = iota
	formatYAML
)

func formatFor(path string) (fileFormat, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return formatJSON, nil
	case ".yaml", ".yml":
		return formatYAML, nil
	default:
		return 0, fmt.Errorf("%w: %q (use .json, .yaml or .yml)", ErrUnsupportedFormat, ext)
	}
}

// LoadFileConfig reads and strictly decodes the config file at path.
func LoadFileConfig(path string) (*FileConfig, error) {
	format, err := formatFor(path)
	if err != nil {
		return nil, err
	}
	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return decodeFileConfig(data, format)
}

func decodeFileConfig(data []byte, format fileFormat) (*FileConfig, error) {
	var fc FileConfig
	switch format {
	case formatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&fc); err != nil {
			if errors.Is(err, io.EOF) {
				return &FileConfig{}, nil
			}
			if strings.Contains(err.Error(), "unknown field") {
				return nil, fmt.Errorf("%w: %v", ErrUnknownConfigField, err)
			}
			return nil, fmt.Errorf("strict config parse error: %w", err)
		}
		if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
			return nil, ErrTrailingContent
		}
	case formatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&fc); err != nil {
			if errors.Is(err, io.EOF) {
				return &FileConfig{}, nil
			}
			if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
				return nil, fmt.Errorf("%w: %v", ErrUnknownConfigField, err)
			}
			return nil, fmt.Errorf("strict config parse error: %w", err)
		}
		if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
			return nil, ErrTrailingContent
		}
	}
	return &fc, nil
}

func encodeFileConfig(fc FileConfig, format fileFormat) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case formatYAML:
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(fc); err != nil {
			return nil, fmt.Errorf("encode config: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("close encoder: %w", err)
		}
	default:
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(fc); err != nil {
			return nil, fmt.Errorf("encode config: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// mergeFile copies every value set in fc onto cfg. Relative directories
// resolve against baseDir.
func mergeFile(cfg *AppConfig, fc *FileConfig, baseDir string) error {
	if fc.Directories != nil {
		cfg.Directories = cfg.Directories[:0]
		for _, d := range fc.Directories {
			cfg.Directories, _ = appendUnique(cfg.Directories, normalizeDirectory(d, baseDir))
		}
	}
	if fc.TunnelDomains != nil {
		cfg.TunnelDomains = cfg.TunnelDomains[:0]
		for _, d := range fc.TunnelDomains {
			cfg.TunnelDomains, _ = appendUnique(cfg.TunnelDomains, NormalizeDomain(d))
		}
	}
	setString(&cfg.ListenAddr, fc.ListenAddr)
	setString(&cfg.DataDir, fc.DataDir)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.LogService, fc.LogService)
	setString(&cfg.StaticDir, fc.StaticDir)
	setString(&cfg.TemplatesDir, fc.TemplatesDir)
	setString(&cfg.TunnelBin, fc.TunnelBin)
	setString(&cfg.MetricsAddr, fc.MetricsAddr)
	setString(&cfg.StylesPath, fc.StylesPath)
	if fc.TunnelsEnabled != nil {
		cfg.TunnelsEnabled = *fc.TunnelsEnabled
	}
	if fc.ScanMaxDepth != nil {
		cfg.ScanMaxDepth = *fc.ScanMaxDepth
	}
	if s := fc.Server; s != nil {
		var err error
		if cfg.Server.ReadTimeout, err = parseFileDuration("server.read_timeout", s.ReadTimeout, cfg.Server.ReadTimeout); err != nil {
			return err
		}
		if cfg.Server.WriteTimeout, err = parseFileDuration("server.write_timeout", s.WriteTimeout, cfg.Server.WriteTimeout); err != nil {
			return err
		}
		if cfg.Server.IdleTimeout, err = parseFileDuration("server.idle_timeout", s.IdleTimeout, cfg.Server.IdleTimeout); err != nil {
			return err
		}
		if cfg.Server.ShutdownTimeout, err = parseFileDuration("server.shutdown_timeout", s.ShutdownTimeout, cfg.Server.ShutdownTimeout); err != nil {
			return err
		}
		if s.MaxHeaderBytes > 0 {
			cfg.Server.MaxHeaderBytes = s.MaxHeaderBytes
		}
	}
	return nil
}

// toFileConfig maps cfg back to its on-disk form.
func toFileConfig(cfg AppConfig) FileConfig {
	enabled := cfg.TunnelsEnabled
	depth := cfg.ScanMaxDepth
	fc := FileConfig{
		Directories:    nonNil(cfg.Directories),
		TunnelDomains:  nonNil(cfg.TunnelDomains),
		ListenAddr:     cfg.ListenAddr,
		DataDir:        cfg.DataDir,
		LogLevel:       cfg.LogLevel,
		LogService:     cfg.LogService,
		StaticDir:      cfg.StaticDir,
		TemplatesDir:   cfg.TemplatesDir,
		TunnelBin:      cfg.TunnelBin,
		TunnelsEnabled: &enabled,
		MetricsAddr:    cfg.MetricsAddr,
		StylesPath:     cfg.StylesPath,
	}
	if depth != 0 {
		fc.ScanMaxDepth = &depth
	}
	if cfg.Server != (ServerRuntimeConfig{}) {
		fc.Server = &ServerFileConfig{
			ReadTimeout:     formatDuration(cfg.Server.ReadTimeout),
			WriteTimeout:    formatDuration(cfg.Server.WriteTimeout),
			IdleTimeout:     formatDuration(cfg.Server.IdleTimeout),
			MaxHeaderBytes:  cfg.Server.MaxHeaderBytes,
			ShutdownTimeout: formatDuration(cfg.Server.ShutdownTimeout),
		}
	}
	return fc
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func parseFileDuration(field, raw string, current time.Duration) (time.Duration, error) {
	if strings.TrimSpace(raw) == "" {
		return current, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
