// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package telemetry provides OpenTelemetry tracing for tunebox.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ManuGH/tunebox/internal/config"
)

// ErrUnsupportedExporter is returned for exporter names other than grpc and http.
var ErrUnsupportedExporter = errors.New("unsupported exporter type")

// Config holds telemetry configuration.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Environment    string

	// ExporterType is "grpc" or "http".
	ExporterType string

	// Endpoint is the OTLP collector, e.g. "localhost:4317" for gRPC.
	Endpoint string

	// SamplingRate is the head sampling ratio in [0, 1].
	SamplingRate float64
}

// FromConfig maps the environment-derived tracing settings.
func FromConfig(tc config.TracingConfig, service, version string) Config {
	return Config{
		Enabled:        tc.Enabled,
		ServiceName:    service,
		ServiceVersion: version,
		Environment:    tc.Environment,
		ExporterType:   tc.Exporter,
		Endpoint:       tc.Endpoint,
		SamplingRate:   tc.SamplingRate,
	}
}

// Provider manages the OpenTelemetry tracer provider.
type Provider struct {
	tp *sdktrace.TracerProvider
}

// NewProvider installs the global tracer provider. A disabled config
// installs a noop provider.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return &Provider{}, nil
	}

	var (
		exporter sdktrace.SpanExporter
		err      error
	)
	switch cfg.ExporterType {
	case "grpc":
		exporter, err = otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(cfg.Endpoint),
			otlptracegrpc.WithInsecure(),
		)
	case "http":
		exporter, err = otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(cfg.Endpoint),
			otlptracehttp.WithInsecure(),
		)
	default:
		return nil, fmt.Errorf("%w: %q (supported: grpc, http)", ErrUnsupportedExporter, cfg.ExporterType)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s exporter: %w", cfg.ExporterType, err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.SamplingRate)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{tp: tp}, nil
}

func sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1.0:
		return sdktrace.AlwaysSample()
	case rate <= 0.0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

// Enabled reports whether spans are exported.
func (p *Provider) Enabled() bool {
	return p != nil && p.tp != nil
}

// Shutdown flushes pending spans. It is a no-op for the noop provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.tp.Shutdown(shutdownCtx)
}

// Tracer returns a tracer for the given name.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
