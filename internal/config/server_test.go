// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/tunebox/internal/validate"
)

func TestParseServerConfig_Defaults(t *testing.T) {
	cfg := ParseServerConfig(Default())

	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, defaultReadTimeout, cfg.ReadTimeout)
	assert.Equal(t, time.Duration(0), cfg.WriteTimeout)
	assert.Equal(t, defaultIdleTimeout, cfg.IdleTimeout)
	assert.Equal(t, defaultMaxHeaderBytes, cfg.MaxHeaderBytes)
	assert.Equal(t, defaultShutdownTimeout, cfg.ShutdownTimeout)
}

func TestParseServerConfig_Precedence(t *testing.T) {
	app := Default()
	app.ListenAddr = "127.0.0.1:9000"
	app.Server.ReadTimeout = 10 * time.Second
	app.Server.IdleTimeout = 30 * time.Second

	t.Setenv(EnvServerIdleTimeout, "45s")
	t.Setenv(EnvServerShutdownTimeout, "1s")
	t.Setenv(EnvServerMaxHeaderBytes, "-5")

	cfg := ParseServerConfig(app)
	assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddr)
	assert.Equal(t, 10*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 45*time.Second, cfg.IdleTimeout)
	assert.Equal(t, minShutdownTimeout, cfg.ShutdownTimeout, "shutdown timeout is clamped")
	assert.Equal(t, defaultMaxHeaderBytes, cfg.MaxHeaderBytes)
}

func TestListenPort(t *testing.T) {
	tests := []struct {
		addr    string
		want    int
		wantErr bool
	}{
		{":8080", 8080, false},
		{"127.0.0.1:9000", 9000, false},
		{"[::1]:443", 443, false},
		{"8080", 0, true},
		{":0", 0, true},
		{":http", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			got, err := ListenPort(tt.addr)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseEnvHelpers(t *testing.T) {
	t.Setenv("TUNEBOX_TEST_BOOL", "YES")
	t.Setenv("TUNEBOX_TEST_INT", "abc")
	t.Setenv("TUNEBOX_TEST_DUR", "90s")

	assert.True(t, ParseBool("TUNEBOX_TEST_BOOL", false))
	assert.Equal(t, 7, ParseInt("TUNEBOX_TEST_INT", 7))
	assert.Equal(t, 90*time.Second, ParseDuration("TUNEBOX_TEST_DUR", time.Second))
	assert.Equal(t, "fallback", ParseString("TUNEBOX_TEST_UNSET", "fallback"))
}

func TestParseTracingConfig(t *testing.T) {
	def := ParseTracingConfig()
	assert.False(t, def.Enabled)
	assert.Equal(t, "grpc", def.Exporter)
	assert.InDelta(t, 1.0, def.SamplingRate, 1e-9)

	t.Setenv(EnvTracingEnabled, "yes")
	t.Setenv(EnvTracingExporter, "http")
	t.Setenv(EnvOTLPEndpoint, "collector:4318")
	t.Setenv(EnvSamplingRate, "0.25")
	cfg := ParseTracingConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "http", cfg.Exporter)
	assert.Equal(t, "collector:4318", cfg.Endpoint)
	assert.InDelta(t, 0.25, cfg.SamplingRate, 1e-9)

	t.Setenv(EnvSamplingRate, "lots")
	assert.InDelta(t, 1.0, ParseTracingConfig().SamplingRate, 1e-9)
}

func TestValidateTracing(t *testing.T) {
	assert.NoError(t, ValidateTracing(TracingConfig{Exporter: "kafka"}), "disabled config is not checked")

	ok := TracingConfig{Enabled: true, Exporter: "http", Endpoint: "collector:4318", SamplingRate: 0.25}
	assert.NoError(t, ValidateTracing(ok))

	bad := TracingConfig{Enabled: true, Exporter: "kafka", SamplingRate: 1.5}
	err := ValidateTracing(bad)
	require.Error(t, err)
	var verr validate.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Errors(), 3)
}
