// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/ManuGH/tunebox/internal/config"
)

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{ServiceName: "tunebox", ExporterType: "grpc"})
	require.NoError(t, err)
	assert.False(t, provider.Enabled())

	_, span := otel.Tracer("test").Start(context.Background(), "noop-check")
	assert.False(t, span.IsRecording(), "noop tracer spans must not record")
	span.End()

	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestNewProvider_InvalidExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: true, ExporterType: "carrier-pigeon"})
	require.ErrorIs(t, err, ErrUnsupportedExporter)
	assert.Contains(t, err.Error(), `"carrier-pigeon"`)
}

func TestNewProvider_HTTPExporterShutsDown(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{
		Enabled:      true,
		ServiceName:  "tunebox",
		ExporterType: "http",
		Endpoint:     "127.0.0.1:1",
		SamplingRate: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = NewProvider(context.Background(), Config{}) })
	assert.True(t, provider.Enabled())

	// Nothing was recorded, so flushing has nothing to send.
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), sampler(1.5).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), sampler(0).Description())
	assert.Equal(t, sdktrace.TraceIDRatioBased(0.5).Description(), sampler(0.5).Description())
}

func TestFromConfig(t *testing.T) {
	cfg := FromConfig(config.TracingConfig{
		Enabled:      true,
		Exporter:     "http",
		Endpoint:     "collector:4318",
		SamplingRate: 0.1,
		Environment:  "test",
	}, "tunebox", "1.2.3")

	assert.Equal(t, Config{
		Enabled:        true,
		ServiceName:    "tunebox",
		ServiceVersion: "1.2.3",
		Environment:    "test",
		ExporterType:   "http",
		Endpoint:       "collector:4318",
		SamplingRate:   0.1,
	}, cfg)
}
