// Package stream implements the StreamPipeline: composable stages over a
// sequence of provider.StreamChunk that reassemble content, tool-call
// argument deltas, JSON structured output, and reasoning text into the
// UniversalStreamResponse sequence StreamController yields.
package stream

import (
	"time"

	js "github.com/santhosh-tekuri/jsonschema/v6"

	"goa.design/llmcore/history"
	"goa.design/llmcore/model"
	"goa.design/llmcore/provider"
	"goa.design/llmcore/schema"
)

// Options configures the stages a Pipeline runs. Every field is optional;
// a zero Options runs only content/tool-call accumulation.
type Options struct {
	// WantJSON enables the JSON accumulator: contentText is parsed (with
	// repair) into ContentObject once the stream completes.
	WantJSON   bool
	SchemaName string
	Compiled   *js.Schema

	// History, when non-nil, receives the final assistant message via the
	// HistoryCapturer stage, unless the response carries tool calls.
	History *history.Manager
}

// Pipeline drains one provider.Stream into a sequence of
// model.StreamResponse, in provider order, with exactly one IsComplete=true
// chunk at the end carrying the full accumulated text/object/usage. One
// Pipeline is used per stream — its ToolCallBuffer is not reusable across
// streams, per spec.md §3's lifecycle note.
type Pipeline struct {
	opts   Options
	buffer *ToolCallBuffer
	reason model.Reasoning
}

// NewPipeline constructs a Pipeline for one stream.
func NewPipeline(opts Options) *Pipeline {
	return &Pipeline{opts: opts, buffer: NewToolCallBuffer()}
}

// Process turns one raw provider stream chunk into zero-or-more
// UniversalStreamResponse chunks, intermediate or final. Callers drive this
// from StreamController's iteration loop (see controller.StreamController),
// passing the wall-clock time of receipt so the ToolCallBuffer's 10s
// force-completion window is driven by real elapsed time, not call count.
func (p *Pipeline) Process(chunk provider.StreamChunk, now time.Time) []model.StreamResponse {
	var out []model.StreamResponse

	completedCalls := p.buffer.Feed(chunk.Content, chunk.ToolCallChunks, now)
	if chunk.Reasoning != "" {
		p.reason.Accumulated += chunk.Reasoning
		p.reason.HasContent = true
	}

	if chunk.Content != "" || len(completedCalls) > 0 {
		out = append(out, model.StreamResponse{
			Role:       chunk.Role,
			Content:    chunk.Content,
			ToolCalls:  completedCalls,
			IsComplete: false,
		})
	}

	forcedByTimeout := p.buffer.Flush(now, false)
	if len(forcedByTimeout) > 0 {
		out = append(out, model.StreamResponse{Role: chunk.Role, ToolCalls: forcedByTimeout, IsComplete: false})
	}

	if chunk.FinishReason != nil {
		out = append(out, p.finalize(*chunk.FinishReason, chunk.Usage, now))
	}

	return out
}

// Flush is called once by StreamController after the upstream
// provider.Stream ends without ever delivering a FinishReason (a defensive
// completion path — well-behaved
// adapters always set FinishReason on their terminal chunk).
func (p *Pipeline) Flush(now time.Time) model.StreamResponse {
	return p.finalize(model.FinishStop, nil, now)
}

func (p *Pipeline) finalize(finish model.FinishReason, usage *model.Usage, now time.Time) model.StreamResponse {
	forced := p.buffer.Flush(now, true)

	text := p.buffer.Content()
	resp := model.StreamResponse{
		Role:        model.RoleAssistant,
		ToolCalls:   forced,
		IsComplete:  true,
		ContentText: text,
		Metadata: model.Metadata{
			FinishReason: finish,
			Usage:        usage,
		},
	}

	if p.reason.HasContent {
		reason := p.reason
		resp.Metadata.Reasoning = &reason
	}

	if p.opts.WantJSON {
		obj, meta, err := schema.ValidateResponse(text, p.opts.SchemaName, p.opts.Compiled, true)
		if err == nil {
			resp.ContentObject = obj
			resp.Metadata.JSONRepaired = meta.JSONRepaired
			resp.Metadata.OriginalContent = meta.OriginalContent
			resp.Metadata.ValidationErrors = meta.ValidationErrors
			if meta.FinishReason == model.FinishContentFilter {
				resp.Metadata.FinishReason = model.FinishContentFilter
			}
		}
	}

	if p.opts.History != nil && len(resp.ToolCalls) == 0 && finish != model.FinishToolCalls {
		p.opts.History.AddMessage(model.RoleAssistant, text)
	}

	return resp
}
