// Package telemetry wires OpenTelemetry tracing for backend calls and poll
// attempts.
package telemetry

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ShutdownFunc flushes and stops a provider.
type ShutdownFunc func(context.Context) error

type state struct {
	provider trace.TracerProvider
	shutdown ShutdownFunc
}

var current atomic.Pointer[state]

func noopShutdown(context.Context) error { return nil }

// InitProvider installs the provider described by cfg, both for this
// package's span helpers and as the otel global. The returned function
// flushes pending spans.
func InitProvider(ctx context.Context, cfg Config) (ShutdownFunc, error) {
	if !cfg.Enabled {
		install(noop.NewTracerProvider(), noopShutdown)
		return noopShutdown, nil
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.sampler()))),
	}
	if cfg.Endpoint != "" {
		exporter, err := newExporter(ctx, cfg)
		if err != nil {
			return nil, err
		}
		// Short timeout: a CLI run rarely lasts long enough to fill a batch.
		opts = append(opts, sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(2*time.Second)))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	install(tp, tp.Shutdown)
	return tp.Shutdown, nil
}

func newResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceNameKey.String(cfg.ServiceName),
		semconv.ServiceVersionKey.String(cfg.ServiceVersion),
	}
	if cfg.BackendURL != "" {
		attrs = append(attrs, attribute.String("taleyport.backend_url", cfg.BackendURL))
	}
	return resource.New(ctx, resource.WithAttributes(attrs...), resource.WithTelemetrySDK())
}

func newExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithCompression(otlptracehttp.GzipCompression),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter for %s: %w", cfg.Endpoint, err)
	}
	return exp, nil
}

func install(tp trace.TracerProvider, shutdown ShutdownFunc) {
	current.Store(&state{provider: tp, shutdown: shutdown})
	otel.SetTracerProvider(tp)
}

// Shutdown flushes the installed provider, if any.
func Shutdown(ctx context.Context) error {
	if s := current.Load(); s != nil && s.shutdown != nil {
		return s.shutdown(ctx)
	}
	return nil
}

// GetTracerProvider returns the installed provider, or a noop one.
func GetTracerProvider() trace.TracerProvider {
	if s := current.Load(); s != nil && s.provider != nil {
		return s.provider
	}
	return noop.NewTracerProvider()
}

// SetTracerProvider replaces the provider used by the span helpers without
// touching the otel global. Passing nil restores the noop provider.
func SetTracerProvider(tp trace.TracerProvider) {
	if tp == nil {
		current.Store(nil)
		return
	}
	current.Store(&state{provider: tp})
}
