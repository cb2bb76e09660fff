// Package controller implements ChatController, StreamController, and
// ChunkController: the synchronous and streaming call paths, and the
// oversized-input chunk iteration wrapper around both.
package controller

import (
	"context"

	js "github.com/santhosh-tekuri/jsonschema/v6"

	"goa.design/llmcore/errs"
	"goa.design/llmcore/history"
	"goa.design/llmcore/model"
	"goa.design/llmcore/provider"
	"goa.design/llmcore/retry"
	"goa.design/llmcore/schema"
	"goa.design/llmcore/telemetry"
)

// ChatController is the synchronous counterpart of StreamController.
type ChatController struct {
	Registry  *model.Registry
	Provider  *provider.Manager
	Retry     *retry.Manager
	History   *history.Manager
	Validator *schema.Validator

	// Telemetry, when set, opens one gen_ai.chat span per provider request
	// (spec.md §4.12), attaching request/response attributes and usage
	// metrics before the span closes. Nil is a valid no-telemetry mode.
	Telemetry *telemetry.OtelService
}

// Execute resolves modelName, validates JSON-mode compatibility, wraps the
// provider call in retry, and post-processes the response via
// ResponseProcessor, per spec.md §4.3.
func (c *ChatController) Execute(ctx context.Context, modelName string, params model.Params) (model.Response, error) {
	info, err := c.Registry.Get(modelName)
	if err != nil {
		return model.Response{}, err
	}

	decision, err := schema.ValidateJSONMode(info, params.Settings.JSONMode)
	if err != nil {
		return model.Response{}, err
	}
	if decision.UsePromptInjection {
		params = injectJSONInstruction(params)
	}

	name, prov := c.Provider.Current()

	shouldRetry := func(err error, attempt int) bool {
		if retry.IsTransient(err) {
			return true
		}
		_, isContentRetry := err.(*contentRetrySignal)
		return isContentRetry
	}

	result, err := c.Retry.ExecuteWithRetry(ctx, func(ctx context.Context) (any, error) {
		var endCall func(model.Response, error)
		if c.Telemetry != nil {
			ctx, endCall = c.Telemetry.StartCall(ctx, modelName, params)
		}

		resp, err := prov.ChatCall(ctx, modelName, params)
		if err != nil {
			translated := provider.Translate("ChatController.Execute["+name+"]", err)
			if endCall != nil {
				endCall(model.Response{}, translated)
			}
			return nil, translated
		}
		if endCall != nil {
			endCall(resp, nil)
		}
		if params.Settings.ShouldRetryDueToContent != nil && resp.Content != nil &&
			params.Settings.ShouldRetryDueToContent(*resp.Content) {
			return nil, &contentRetrySignal{resp: resp}
		}
		return resp, nil
	}, shouldRetry)

	if err != nil {
		// Per spec.md §4.4's content-retry policy, exhausting retries on
		// unsatisfactory content is not itself a failure: the last response
		// is returned unchanged rather than thrown.
		if sig, ok := err.(*contentRetrySignal); ok {
			return c.postProcess(sig.resp, params)
		}
		return model.Response{}, err
	}
	resp := result.(model.Response)

	return c.postProcess(resp, params)
}

// contentRetrySignal carries the last (unsatisfactory) response through
// RetryManager's error channel so ExecuteWithRetry's uniform retry/backoff
// loop covers both transport errors and content-quality retries.
type contentRetrySignal struct{ resp model.Response }

func (s *contentRetrySignal) Error() string { return "response content failed shouldRetryDueToContent" }

// postProcess runs ResponseProcessor.validateResponse (spec.md §4.9) over a
// completed response: JSON parse/repair/unwrap/validate. Schema-validation
// failures do not propagate as errors — they set finishReason=content-filter
// with validationErrors attached; a schema that fails to compile or content
// that is not repairable JSON returns an error.
func (c *ChatController) postProcess(resp model.Response, params model.Params) (model.Response, error) {
	if params.ResponseFormat != model.ResponseFormatJSON || resp.Content == nil {
		return resp, nil
	}

	var compiled *js.Schema
	if params.JSONSchema != nil && params.JSONSchema.Schema != nil {
		cs, err := c.Validator.Compile(params.JSONSchema.Name, params.JSONSchema.Schema)
		if err != nil {
			return model.Response{}, errs.Wrap(errs.KindSchema, "ChatController.postProcess", "failed to compile schema", err)
		}
		compiled = cs
	}

	schemaName := ""
	if params.JSONSchema != nil {
		schemaName = params.JSONSchema.Name
	}

	obj, meta, err := schema.ValidateResponse(*resp.Content, schemaName, compiled, true)
	if err != nil {
		return model.Response{}, err
	}

	resp.ContentObject = obj
	if meta.FinishReason != "" {
		resp.Metadata.FinishReason = meta.FinishReason
	}
	resp.Metadata.JSONRepaired = meta.JSONRepaired
	resp.Metadata.OriginalContent = meta.OriginalContent
	resp.Metadata.ValidationErrors = meta.ValidationErrors
	return resp, nil
}

func injectJSONInstruction(params model.Params) model.Params {
	const instruction = "\n\nRespond with valid JSON only, matching the requested shape."
	if len(params.Messages) == 0 {
		return params
	}
	last := len(params.Messages) - 1
	msgs := append([]model.Message(nil), params.Messages...)
	msgs[last].Content = model.NewTextContent(msgs[last].Content.Text() + instruction)
	params.Messages = msgs
	return params
}
