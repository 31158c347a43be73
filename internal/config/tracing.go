// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"

	"github.com/ManuGH/tunebox/internal/validate"
)

// TracingConfig selects the OTLP trace exporter. Tracing is configured from
// the environment only and is never persisted.
type TracingConfig struct {
	Enabled      bool
	Exporter     string // "grpc" or "http"
	Endpoint     string
	SamplingRate float64
	Environment  string
}

// ParseTracingConfig reads the TUNEBOX_TRACING_* and TUNEBOX_OTLP_* variables.
func ParseTracingConfig() TracingConfig {
	return TracingConfig{
		Enabled:      ParseBool(EnvTracingEnabled, false),
		Exporter:     ParseString(EnvTracingExporter, "grpc"),
		Endpoint:     ParseString(EnvOTLPEndpoint, "localhost:4317"),
		SamplingRate: ParseFloat(EnvSamplingRate, 1.0),
		Environment:  ParseString(EnvEnvironment, "production"),
	}
}

// ValidateTracing checks an enabled tracing config. A disabled config is
// always valid so stray variables cannot block startup.
func ValidateTracing(tc TracingConfig) error {
	if !tc.Enabled {
		return nil
	}
	v := validate.New()
	v.OneOf("TracingExporter", tc.Exporter, []string{"grpc", "http"})
	v.NotEmpty("OTLPEndpoint", tc.Endpoint)
	if tc.SamplingRate < 0 || tc.SamplingRate > 1 {
		v.AddError("SamplingRate", fmt.Sprintf("must be between 0 and 1, got %g", tc.SamplingRate), tc.SamplingRate)
	}
	return v.Err()
}
