// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// ReadTimeout is the maximum duration for reading the entire request, including the body
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes.
	// Zero disables it, which audio downloads need.
	WriteTimeout time.Duration

	// IdleTimeout is the maximum amount of time to wait for the next request when keep-alives are enabled
	IdleTimeout time.Duration

	// MaxHeaderBytes controls the maximum number of bytes the server will read parsing the request header's keys and values
	MaxHeaderBytes int

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown
	ShutdownTimeout time.Duration
}

const (
	defaultReadTimeout     = 60 * time.Second
	defaultWriteTimeout    = 0
	defaultIdleTimeout     = 120 * time.Second
	defaultMaxHeaderBytes  = 1 << 20
	defaultShutdownTimeout = 15 * time.Second
	minShutdownTimeout     = 3 * time.Second
)

// ParseServerConfig resolves server config with explicit precedence:
// ENV > AppConfig (file + defaults) > built-in default.
func ParseServerConfig(cfg AppConfig) ServerConfig {
	base := ServerRuntimeConfig{
		ReadTimeout:     defaultReadTimeout,
		WriteTimeout:    defaultWriteTimeout,
		IdleTimeout:     defaultIdleTimeout,
		MaxHeaderBytes:  defaultMaxHeaderBytes,
		ShutdownTimeout: defaultShutdownTimeout,
	}
	if cfg.Server.ReadTimeout > 0 {
		base.ReadTimeout = cfg.Server.ReadTimeout
	}
	if cfg.Server.WriteTimeout > 0 {
		base.WriteTimeout = cfg.Server.WriteTimeout
	}
	if cfg.Server.IdleTimeout > 0 {
		base.IdleTimeout = cfg.Server.IdleTimeout
	}
	if cfg.Server.MaxHeaderBytes > 0 {
		base.MaxHeaderBytes = cfg.Server.MaxHeaderBytes
	}
	if cfg.Server.ShutdownTimeout > 0 {
		base.ShutdownTimeout = cfg.Server.ShutdownTimeout
	}

	listen := strings.TrimSpace(cfg.ListenAddr)
	if listen == "" {
		listen = DefaultListenAddr
	}

	maxHeaderBytes := ParseInt(EnvServerMaxHeaderBytes, base.MaxHeaderBytes)
	if maxHeaderBytes <= 0 {
		maxHeaderBytes = base.MaxHeaderBytes
	}
	shutdownTimeout := ParseDuration(EnvServerShutdownTimeout, base.ShutdownTimeout)
	if shutdownTimeout < minShutdownTimeout {
		shutdownTimeout = minShutdownTimeout
	}

	return ServerConfig{
		ListenAddr:      listen,
		ReadTimeout:     ParseDuration(EnvServerReadTimeout, base.ReadTimeout),
		WriteTimeout:    ParseDuration(EnvServerWriteTimeout, base.WriteTimeout),
		IdleTimeout:     ParseDuration(EnvServerIdleTimeout, base.IdleTimeout),
		MaxHeaderBytes:  maxHeaderBytes,
		ShutdownTimeout: shutdownTimeout,
	}
}

// ListenPort extracts the numeric port from a listen address such as
// ":8080" or "127.0.0.1:9000". Tunnels forward to this port.
func ListenPort(addr string) (int, error) {
	_, port, err := net.SplitHostPort(strings.TrimSpace(addr))
	if err != nil {
		return 0, fmt.Errorf("parse listen address %q: %w", addr, err)
	}
	n, err := strconv.Atoi(port)
	if err != nil || n <= 0 || n > 65535 {
		return 0, fmt.Errorf("listen address %q has no usable port", addr)
	}
	return n, nil
}
