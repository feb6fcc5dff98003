package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartCommandSpan creates a span for a CLI command execution.
//
// Usage:
//
//	ctx, span := telemetry.StartCommandSpan(ctx, "video")
//	defer span.End()
func StartCommandSpan(ctx context.Context, cmdName string) (context.Context, trace.Span) {
	tracer := GetTracerProvider().Tracer("commands")
	ctx, span := tracer.Start(ctx, "command."+cmdName)

	span.SetAttributes(
		attribute.String("command", cmdName),
		attribute.String("component", "cli"),
	)

	return ctx, span
}

// StartBackendSpan creates a client span for a backend API call.
func StartBackendSpan(ctx context.Context, operation, method, path string) (context.Context, trace.Span) {
	tracer := GetTracerProvider().Tracer("backend")
	ctx, span := tracer.Start(ctx, "backend."+operation, trace.WithSpanKind(trace.SpanKindClient))

	span.SetAttributes(
		attribute.String("operation", operation),
		attribute.String("http.method", method),
		attribute.String("http.route", path),
		attribute.String("component", "backend"),
	)

	return ctx, span
}

// StartPollSpan creates a span for one status poll of a batch.
func StartPollSpan(ctx context.Context, storyID string, attempt, pending int) (context.Context, trace.Span) {
	tracer := GetTracerProvider().Tracer("poller")
	ctx, span := tracer.Start(ctx, "poller.attempt")

	span.SetAttributes(
		attribute.String("story_id", storyID),
		attribute.Int("attempt", attempt),
		attribute.Int("pending_tasks", pending),
		attribute.String("component", "poller"),
	)

	return ctx, span
}

// RecordSuccess marks a span as successful with optional result attributes.
func RecordSuccess(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
	span.SetStatus(codes.Ok, "")
}

// RecordError records an error in a span and sets error status.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.Bool("error", true))
}

// RecordDuration records the duration of an operation as a span attribute.
func RecordDuration(span trace.Span, name string, duration time.Duration) {
	span.SetAttributes(attribute.Int64(name+"_ms", duration.Milliseconds()))
}
