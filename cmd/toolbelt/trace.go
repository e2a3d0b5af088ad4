package main

import (
	"context"
	"log/slog"
	"os"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// logSpanExporter writes finished spans to a structured log.
type logSpanExporter struct {
	logger *slog.Logger
}

func newLogSpanExporter(logger *slog.Logger) *logSpanExporter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &logSpanExporter{logger: logger}
}

func (e *logSpanExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, span := range spans {
		args := []any{
			"span", span.Name(),
			"duration", span.EndTime().Sub(span.StartTime()),
			"status", span.Status().Code.String(),
		}
		for _, kv := range span.Attributes() {
			args = append(args, string(kv.Key), kv.Value.Emit())
		}
		e.logger.InfoContext(ctx, "trace", args...)
	}
	return nil
}

func (e *logSpanExporter) Shutdown(ctx context.Context) error { return nil }

// newTracerProvider exports spans synchronously to the log.
func newTracerProvider(logger *slog.Logger) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(newLogSpanExporter(logger))),
	)
}
