package telemetry

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"goa.design/llmcore/model"
)

// gen_ai.* attribute keys, per the OpenTelemetry semantic conventions for
// generative AI spec.md §4.12 requires this service to emit.
const (
	AttrRequestModel       = "gen_ai.request.model"
	AttrRequestMaxTokens   = "gen_ai.request.max_tokens"
	AttrRequestTemperature = "gen_ai.request.temperature"
	AttrResponseModel      = "gen_ai.response.model"
	AttrResponseFinishReas = "gen_ai.response.finish_reasons"
	AttrUsageInputTokens   = "gen_ai.usage.input_tokens"
	AttrUsageOutputTokens  = "gen_ai.usage.output_tokens"
	AttrToolName           = "gen_ai.tool.name"
	AttrToolCallID         = "gen_ai.tool.call.id"
	AttrSystem             = "gen_ai.system"
)

// RedactionPolicy controls which content OtelService attaches to spans
// verbatim versus redacts, per spec.md §4.12. Prompt/response events are
// recorded separately from span attributes (spec.md §9) precisely so a
// redaction toggle can drop the event payload without losing the structural
// attributes (model, finish reason, usage) a dashboard needs.
type RedactionPolicy struct {
	RedactPrompts    bool
	RedactResponses  bool
	RedactToolArgs   bool
	MaxContentLength int // 0 means unbounded

	// PIIDetection, when true, runs PIIDetector over content that would
	// otherwise be attached verbatim. The core ships no detector of its own
	// (spec.md's Non-goals keep arbitrary content scanning out of scope);
	// callers wire a real implementation through PIIDetector.
	PIIDetection bool
	PIIDetector  func(string) string
}

func (p RedactionPolicy) redact(content string, suppressed bool) string {
	if suppressed {
		return "[redacted]"
	}
	if p.PIIDetection && p.PIIDetector != nil {
		content = p.PIIDetector(content)
	}
	if p.MaxContentLength > 0 && len(content) > p.MaxContentLength {
		content = content[:p.MaxContentLength] + "...[truncated]"
	}
	return content
}

// OtelService is UsageTracker's telemetry counterpart (spec.md §4.12): it
// creates one conversation span per Caller.Call/Stream invocation, one
// LLM-call span per provider request within it, and one tool-call span per
// executed tool, attaching gen_ai.* attributes and driving the matching
// counter/histogram metrics.
type OtelService struct {
	Tracer   Tracer
	Metrics  Metrics
	Logger   Logger
	Redact   RedactionPolicy
	System   string // provider name, attached as gen_ai.system
}

// NewOtelService constructs an OtelService. Any nil dependency defaults to
// its no-op implementation so a Caller can always construct one without
// requiring a configured OTEL SDK.
func NewOtelService(tracer Tracer, metrics Metrics, logger Logger) *OtelService {
	if tracer == nil {
		tracer = NewNoopTracer()
	}
	if metrics == nil {
		metrics = NewNoopMetrics()
	}
	if logger == nil {
		logger = NewNoopLogger()
	}
	return &OtelService{Tracer: tracer, Metrics: metrics, Logger: logger}
}

// StartConversation opens the top-level span wrapping one Caller.Call or
// Caller.Stream invocation, embedding parent (caller-supplied context,
// already possibly carrying an ambient span) per spec.md §4.12's "supports
// a parent context for embedding."
func (o *OtelService) StartConversation(ctx context.Context, callerID string) (context.Context, Span) {
	ctx, span := o.Tracer.Start(ctx, "gen_ai.conversation")
	if callerID != "" {
		span.SetAttributes(attribute.String("gen_ai.conversation.id", callerID))
	}
	if o.System != "" {
		span.SetAttributes(attribute.String(AttrSystem, o.System))
	}
	return ctx, span
}

// StartCall opens one provider-call span nested under a conversation span,
// attaching request attributes before the call and returning a function the
// caller invokes with the completed response (or an error) to attach
// response attributes and usage metrics before End, per spec.md §9's
// "attributes before span end" requirement.
func (o *OtelService) StartCall(ctx context.Context, modelName string, params model.Params) (context.Context, func(resp model.Response, callErr error)) {
	ctx, span := o.Tracer.Start(ctx, "gen_ai.chat")
	span.SetAttributes(attribute.String(AttrRequestModel, modelName))
	if params.Settings.MaxTokens != nil {
		span.SetAttributes(attribute.Int(AttrRequestMaxTokens, *params.Settings.MaxTokens))
	}
	if params.Settings.Temperature != nil {
		span.SetAttributes(attribute.Float64(AttrRequestTemperature, *params.Settings.Temperature))
	}
	if !o.Redact.RedactPrompts {
		span.AddEvent("gen_ai.content.prompt", attribute.String("content", o.Redact.redact(lastMessageText(params.Messages), false)))
	}

	start := time.Now()
	return ctx, func(resp model.Response, callErr error) {
		defer span.End()
		o.Metrics.RecordTimer("gen_ai.client.operation.duration", time.Since(start), "gen_ai.request.model", modelName)
		if callErr != nil {
			span.SetStatus(codes.Error, callErr.Error())
			span.RecordError(callErr)
			return
		}
		span.SetAttributes(
			attribute.String(AttrResponseModel, resp.Metadata.Model),
			attribute.String(AttrResponseFinishReas, string(resp.Metadata.FinishReason)),
		)
		if resp.Metadata.Usage != nil {
			u := resp.Metadata.Usage
			span.SetAttributes(
				attribute.Int(AttrUsageInputTokens, u.Tokens.Input.Total),
				attribute.Int(AttrUsageOutputTokens, u.Tokens.Output.Total),
			)
			o.Metrics.IncCounter("gen_ai.client.token.usage", float64(u.Tokens.Total), "gen_ai.request.model", modelName)
		}
		if !o.Redact.RedactResponses && resp.Content != nil {
			span.AddEvent("gen_ai.content.completion", attribute.String("content", o.Redact.redact(*resp.Content, false)))
		} else if o.Redact.RedactResponses {
			span.AddEvent("gen_ai.content.completion", attribute.String("content", o.Redact.redact("", true)))
		}
	}
}

// StartTool opens one tool-call span (spec.md §4.12's "one tool-call span
// per executed tool"), attaching tool identity and (when not redacted) its
// arguments; the returned function attaches the result or error before End.
func (o *OtelService) StartTool(ctx context.Context, name, toolCallID string, args map[string]any) (context.Context, func(err error)) {
	ctx, span := o.Tracer.Start(ctx, "gen_ai.execute_tool")
	span.SetAttributes(attribute.String(AttrToolName, name))
	if toolCallID != "" {
		span.SetAttributes(attribute.String(AttrToolCallID, toolCallID))
	}
	if !o.Redact.RedactToolArgs {
		span.AddEvent("gen_ai.tool.arguments", attribute.String("content", o.Redact.redact(renderArgs(args), false)))
	}

	start := time.Now()
	return ctx, func(err error) {
		defer span.End()
		o.Metrics.RecordTimer("gen_ai.tool.execution.duration", time.Since(start), AttrToolName, name)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
			o.Metrics.IncCounter("gen_ai.tool.execution.errors", 1, AttrToolName, name)
			return
		}
		o.Metrics.IncCounter("gen_ai.tool.execution.count", 1, AttrToolName, name)
	}
}

func lastMessageText(msgs []model.Message) string {
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1].Content.Text()
}

func renderArgs(args map[string]any) string {
	b, err := json.Marshal(args)
	if err != nil {
		return ""
	}
	return string(b)
}
