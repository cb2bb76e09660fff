package controller

import (
	"context"
	"strings"
	"time"

	js "github.com/santhosh-tekuri/jsonschema/v6"

	"goa.design/llmcore/history"
	"goa.design/llmcore/model"
	"goa.design/llmcore/provider"
	"goa.design/llmcore/retry"
	"goa.design/llmcore/schema"
	"goa.design/llmcore/stream"
	"goa.design/llmcore/telemetry"
)

// StreamController is the streaming counterpart of ChatController. Stream
// acquisition (the call that opens the provider's transport) is retried the
// same way ChatController retries a whole call; once a provider.Stream is in
// hand its chunks are drained without per-chunk retry, per spec.md §4.4.
type StreamController struct {
	Registry  *model.Registry
	Provider  *provider.Manager
	Retry     *retry.Manager
	History   *history.Manager
	Validator *schema.Validator

	// Telemetry, when set, opens one gen_ai.chat span per provider stream
	// request (spec.md §4.12), closing it once the stream's final response
	// is known so usage/finish-reason attributes land before span end.
	Telemetry *telemetry.OtelService
}

// minContentRetryLen is the below-this-many-characters heuristic spec.md
// §4.4 uses, alongside emptiness, to decide whether a completed stream's
// content warrants re-acquiring the stream from scratch.
const minContentRetryLen = 200

// CreateStream resolves modelName, validates JSON-mode compatibility, and
// returns a pull iterator (Go 1.23 range-over-func shape) yielding the
// UniversalStreamResponse sequence for one logical call. When
// Settings.ShouldRetryDueToContent (or the default empty/too-short
// heuristic) rejects a completed attempt's content, that attempt's chunks
// are discarded and a fresh stream is acquired; only the accepted attempt's
// chunks ever reach the caller.
func (c *StreamController) CreateStream(ctx context.Context, modelName string, params model.Params) func(yield func(model.StreamResponse, error) bool) {
	return func(yield func(model.StreamResponse, error) bool) {
		info, err := c.Registry.Get(modelName)
		if err != nil {
			yield(model.StreamResponse{}, err)
			return
		}

		decision, err := schema.ValidateJSONMode(info, params.Settings.JSONMode)
		if err != nil {
			yield(model.StreamResponse{}, err)
			return
		}
		if decision.UsePromptInjection {
			params = injectJSONInstruction(params)
		}

		wantJSON := params.ResponseFormat == model.ResponseFormatJSON
		schemaName := ""
		var compiled *js.Schema
		if wantJSON && params.JSONSchema != nil && params.JSONSchema.Schema != nil {
			cs, err := c.Validator.Compile(params.JSONSchema.Name, params.JSONSchema.Schema)
			if err != nil {
				yield(model.StreamResponse{}, err)
				return
			}
			compiled, schemaName = cs, params.JSONSchema.Name
		}

		maxAttempts := params.Settings.MaxRetries
		if maxAttempts <= 0 {
			maxAttempts = 2
		}

		for attempt := 0; ; attempt++ {
			chunks, final, err := c.runOneStream(ctx, modelName, params, wantJSON, schemaName, compiled)
			if err != nil {
				yield(model.StreamResponse{}, err)
				return
			}
			if attempt < maxAttempts && c.shouldRetryContent(params, final) {
				continue
			}
			if c.History != nil && len(final.ToolCalls) == 0 && final.Metadata.FinishReason != model.FinishToolCalls {
				c.History.AddMessage(model.RoleAssistant, final.ContentText)
			}
			for _, r := range chunks {
				if !yield(r, nil) {
					return
				}
			}
			return
		}
	}
}

// runOneStream acquires one provider.Stream (with retry.Manager covering
// only the acquisition call) and drains it fully through a stream.Pipeline.
// Chunks are buffered rather than yielded immediately: CreateStream's content
// retry heuristic (spec.md §4.4) needs the completed content before it can
// decide whether this attempt's chunks should ever reach the caller, so
// every streamed call, retried or not, trades true incremental delivery for
// that correctness: its chunks reach the caller only after the attempt has
// completed. When the upstream stream ends without a FinishReason, the
// pipeline's Flush supplies the final IsComplete chunk.
func (c *StreamController) runOneStream(
	ctx context.Context,
	modelName string,
	params model.Params,
	wantJSON bool,
	schemaName string,
	compiled *js.Schema,
) (chunks []model.StreamResponse, final model.StreamResponse, err error) {
	name, prov := c.Provider.Current()

	var endCall func(model.Response, error)
	streamCtx := ctx

	result, err := c.Retry.ExecuteWithRetry(ctx, func(ctx context.Context) (any, error) {
		if c.Telemetry != nil {
			ctx, endCall = c.Telemetry.StartCall(ctx, modelName, params)
		}
		s, err := prov.StreamCall(ctx, modelName, params)
		if err != nil {
			translated := provider.Translate("StreamController.CreateStream["+name+"]", err)
			if endCall != nil {
				endCall(model.Response{}, translated)
				endCall = nil
			}
			return nil, translated
		}
		streamCtx = ctx
		return s, nil
	}, func(err error, attempt int) bool {
		return retry.IsTransient(err)
	})
	if err != nil {
		return nil, model.StreamResponse{}, err
	}
	s := result.(provider.Stream)
	defer s.Close()

	// History is not wired into the pipeline here: a discarded (retried)
	// attempt must never leave a trace in the conversation log. CreateStream
	// appends the accepted attempt's final content itself, once chosen.
	pipeline := stream.NewPipeline(stream.Options{
		WantJSON:   wantJSON,
		SchemaName: schemaName,
		Compiled:   compiled,
	})

	for {
		chunk, more, err := s.Next(streamCtx)
		if err != nil {
			translated := provider.Translate("StreamController.CreateStream["+name+"]", err)
			if endCall != nil {
				endCall(model.Response{}, translated)
			}
			return nil, model.StreamResponse{}, translated
		}
		if !more {
			break
		}
		for _, r := range pipeline.Process(chunk, time.Now()) {
			if r.IsComplete {
				final = r
			}
			chunks = append(chunks, r)
		}
	}

	if !final.IsComplete {
		final = pipeline.Flush(time.Now())
		chunks = append(chunks, final)
	}

	if endCall != nil {
		content := final.ContentText
		endCall(model.Response{Content: &content, Metadata: final.Metadata}, nil)
	}

	return chunks, final, nil
}

// shouldRetryContent implements spec.md §4.4's post-stream content heuristic.
// When Settings.ShouldRetryDueToContent is set, its verdict alone decides;
// otherwise empty content, or non-JSON content shorter than
// minContentRetryLen, triggers one more stream acquisition. There is no
// built-in forbidden-phrase check.
func (c *StreamController) shouldRetryContent(params model.Params, final model.StreamResponse) bool {
	if params.Settings.ShouldRetryDueToContent != nil {
		return params.Settings.ShouldRetryDueToContent(final.ContentText)
	}
	text := strings.TrimSpace(final.ContentText)
	if text == "" {
		return true
	}
	if params.ResponseFormat != model.ResponseFormatJSON && len(text) < minContentRetryLen {
		return true
	}
	return false
}
