// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"strings"

	"github.com/ManuGH/tunebox/internal/validate"
)

// Validate checks a resolved configuration. All problems are reported
// together as a validate.ValidationError.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.ListenAddr("ListenAddr", cfg.ListenAddr)
	if strings.TrimSpace(cfg.MetricsAddr) != "" {
		v.ListenAddr("MetricsAddr", cfg.MetricsAddr)
	}

	for i, dir := range cfg.Directories {
		v.AbsoluteDir(fmt.Sprintf("Directories[%d]", i), dir)
	}
	v.Unique("Directories", cfg.Directories)

	for i, domain := range cfg.TunnelDomains {
		v.Hostname(fmt.Sprintf("TunnelDomains[%d]", i), domain)
	}
	v.Unique("TunnelDomains", cfg.TunnelDomains)

	v.NotEmpty("DataDir", cfg.DataDir)
	v.NotEmpty("StaticDir", cfg.StaticDir)
	v.NotEmpty("StylesPath", cfg.StylesPath)
	if cfg.TunnelsEnabled && len(cfg.TunnelDomains) > 0 {
		v.NotEmpty("TunnelBin", cfg.TunnelBin)
	}

	v.LogLevel("LogLevel", cfg.LogLevel)
	v.NonNegative("ScanMaxDepth", cfg.ScanMaxDepth)
	v.NonNegative("Server.MaxHeaderBytes", cfg.Server.MaxHeaderBytes)

	return v.Err()
}
