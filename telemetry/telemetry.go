// Package telemetry implements OtelService (spec.md §4.12): conversation,
// LLM-call, and tool-call spans plus counter/histogram metrics following the
// gen_ai.* semantic conventions, a pluggable structured logger, and a
// redaction policy for prompt/response/tool-argument content.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// KV is the attribute.KeyValue alias OtelService and its callers use to
// attach gen_ai.* attributes to spans without every caller importing OTEL's
// attribute package directly.
type KV = attribute.KeyValue

// Logger is the structured logger an OtelService carries. No code in the
// core writes to it: retries (retry.Manager) and iteration limits are not
// logged. Deliberately small so tests can supply a stub without depending
// on clue or OTEL.
type Logger interface {
	Debug(ctx context.Context, msg string, keyvals ...any)
	Info(ctx context.Context, msg string, keyvals ...any)
	Warn(ctx context.Context, msg string, keyvals ...any)
	Error(ctx context.Context, msg string, keyvals ...any)
}

// Metrics exposes the counter/histogram primitives OtelService builds the
// gen_ai.* metrics from.
type Metrics interface {
	IncCounter(name string, value float64, tags ...string)
	RecordTimer(name string, duration time.Duration, tags ...string)
}

// Tracer abstracts span creation so OtelService stays agnostic of whichever
// concrete TracerProvider a Caller was configured with.
type Tracer interface {
	Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span)
}

// Span represents one in-flight span. Attributes must be attached before End
// is called: per spec.md §9, recognition by downstream LLM observability
// backends (Langfuse, Opik) requires attributes to be present at span end,
// not added afterward.
type Span interface {
	SetAttributes(attrs ...KV)
	AddEvent(name string, attrs ...KV)
	SetStatus(code codes.Code, description string)
	RecordError(err error)
	End()
}
