package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"
	"goa.design/clue/log"
)

// instrumentationName is the OTEL instrumentation scope every tracer/meter
// created by this package registers under.
const instrumentationName = "goa.design/llmcore"

// otelTracer wraps an OTEL trace.Tracer as a Tracer.
type otelTracer struct{ tracer oteltrace.Tracer }

// otelSpan wraps an OTEL trace.Span as a Span.
type otelSpan struct{ span oteltrace.Span }

// clueLogger delegates to goa.design/clue/log, reading formatting/debug
// settings from the context the same way the teacher's runtime does.
type clueLogger struct{}

// otelMetrics wraps an OTEL metric.Meter as a Metrics.
type otelMetrics struct{ meter metric.Meter }

// NewOtelTracer constructs a Tracer backed by the global OTEL
// TracerProvider (configure it via clue.ConfigureOpenTelemetry or
// otel.SetTracerProvider before use).
func NewOtelTracer() Tracer {
	return &otelTracer{tracer: otel.Tracer(instrumentationName)}
}

// NewOtelMetrics constructs a Metrics recorder backed by the global OTEL
// MeterProvider.
func NewOtelMetrics() Metrics {
	return &otelMetrics{meter: otel.Meter(instrumentationName)}
}

// NewClueLogger constructs a Logger that delegates to goa.design/clue/log.
func NewClueLogger() Logger { return clueLogger{} }

func (t *otelTracer) Start(ctx context.Context, name string, opts ...oteltrace.SpanStartOption) (context.Context, Span) {
	newCtx, span := t.tracer.Start(ctx, name, opts...)
	return newCtx, &otelSpan{span: span}
}

func (s *otelSpan) SetAttributes(attrs ...KV)    { s.span.SetAttributes(attrs...) }
func (s *otelSpan) AddEvent(name string, attrs ...KV) {
	s.span.AddEvent(name, oteltrace.WithAttributes(attrs...))
}
func (s *otelSpan) SetStatus(code codes.Code, description string) { s.span.SetStatus(code, description) }
func (s *otelSpan) RecordError(err error)                        { s.span.RecordError(err) }
func (s *otelSpan) End()                                         { s.span.End() }

func (clueLogger) Debug(ctx context.Context, msg string, keyvals ...any) {
	log.Debug(ctx, append([]log.Fielder{log.KV{K: "msg", V: msg}}, kvToFielders(keyvals)...)...)
}
func (clueLogger) Info(ctx context.Context, msg string, keyvals ...any) {
	log.Info(ctx, append([]log.Fielder{log.KV{K: "msg", V: msg}}, kvToFielders(keyvals)...)...)
}
func (clueLogger) Warn(ctx context.Context, msg string, keyvals ...any) {
	log.Warn(ctx, append([]log.Fielder{log.KV{K: "msg", V: msg}}, kvToFielders(keyvals)...)...)
}
func (clueLogger) Error(ctx context.Context, msg string, keyvals ...any) {
	log.Error(ctx, nil, append([]log.Fielder{log.KV{K: "msg", V: msg}}, kvToFielders(keyvals)...)...)
}

func kvToFielders(keyvals []any) []log.Fielder {
	var out []log.Fielder
	for i := 0; i+1 < len(keyvals); i += 2 {
		k, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		out = append(out, log.KV{K: k, V: keyvals[i+1]})
	}
	return out
}

func (m *otelMetrics) IncCounter(name string, value float64, tags ...string) {
	c, err := m.meter.Float64Counter(name)
	if err != nil {
		return
	}
	c.Add(context.Background(), value, metric.WithAttributes(tagsToAttrs(tags)...))
}

func (m *otelMetrics) RecordTimer(name string, d time.Duration, tags ...string) {
	h, err := m.meter.Float64Histogram(name)
	if err != nil {
		return
	}
	h.Record(context.Background(), d.Seconds(), metric.WithAttributes(tagsToAttrs(tags)...))
}

func tagsToAttrs(tags []string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(tags)/2)
	for i := 0; i+1 < len(tags); i += 2 {
		attrs = append(attrs, attribute.String(tags[i], tags[i+1]))
	}
	return attrs
}
