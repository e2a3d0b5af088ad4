package server

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/michaelbrown/toolbelt/internal/storage"
)

const instrumentationName = "github.com/michaelbrown/toolbelt/internal/server"

// WithTracerProvider sets where reload spans go. The default is the global
// provider, which drops them unless the program installs one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Server) { s.tracer = tp.Tracer(instrumentationName) }
}

// WithMeterProvider sets where load metrics go. The default is the global
// provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Server) { s.meter = mp.Meter(instrumentationName) }
}

// loadMetrics holds the instruments recorded on every reload.
type loadMetrics struct {
	count    metric.Int64Counter
	duration metric.Float64Histogram
	servers  metric.Int64Gauge
}

func defaultTracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(instrumentationName)
}

func defaultMeter() metric.Meter {
	return otel.GetMeterProvider().Meter(instrumentationName)
}

func newLoadMetrics(meter metric.Meter) (*loadMetrics, error) {
	m := &loadMetrics{}
	var err error

	m.count, err = meter.Int64Counter(
		"toolbelt.load.count",
		metric.WithDescription("Document loads attempted, by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create load counter: %w", err)
	}

	m.duration, err = meter.Float64Histogram(
		"toolbelt.load.duration",
		metric.WithDescription("Time to fetch and load the document"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("create load duration histogram: %w", err)
	}

	m.servers, err = meter.Int64Gauge(
		"toolbelt.servers",
		metric.WithDescription("Servers in the current descriptor set"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create servers gauge: %w", err)
	}

	return m, nil
}

// startReloadSpan opens the span covering one reload.
func (s *Server) startReloadSpan(ctx context.Context, source string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "toolbelt.reload", trace.WithAttributes(
		attribute.String("document.source", source),
		attribute.String("document.policy", s.loader.Policy().String()),
	))
}

// recordLoad finishes the reload span and records metrics for rec.
func (s *Server) recordLoad(ctx context.Context, span trace.Span, rec *storage.LoadRecord, elapsed time.Duration) {
	span.SetAttributes(
		attribute.String("load.id", rec.ID),
		attribute.String("load.status", string(rec.Status)),
		attribute.Int("load.servers", len(rec.Servers)),
		attribute.Int("load.problems", len(rec.Problems)),
	)
	if rec.Status == storage.StatusOK {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetStatus(codes.Error, fmt.Sprintf("%d problem(s)", len(rec.Problems)))
		for _, p := range rec.Problems {
			span.AddEvent("problem", trace.WithAttributes(attribute.String("message", p)))
		}
	}

	if s.metrics == nil {
		return
	}
	status := metric.WithAttributes(attribute.String("status", string(rec.Status)))
	s.metrics.count.Add(ctx, 1, status)
	s.metrics.duration.Record(ctx, float64(elapsed.Microseconds())/1000, status)
	if rec.Status == storage.StatusOK {
		s.metrics.servers.Record(ctx, int64(len(rec.Servers)))
	}
}

func (s *Server) initMetrics() {
	m, err := newLoadMetrics(s.meter)
	if err != nil {
		log.Printf("Warning: load metrics disabled: %v", err)
		return
	}
	s.metrics = m
}
