package controller

import (
	"context"

	"goa.design/llmcore/errs"
	"goa.design/llmcore/history"
	"goa.design/llmcore/model"
	"goa.design/llmcore/request"
)

// ChunkController iterates an oversized input's chunked prompts (produced by
// request.Compose) through ChatController or StreamController, one prompt at
// a time, per spec.md §4.6. It exists so a caller never has to reason about
// chunking directly: LLMCaller always goes through ChunkController, even
// when request.Compose produced only a single prompt.
type ChunkController struct {
	Chat          *ChatController
	Stream        *StreamController
	Registry      *model.Registry
	History       *history.Manager
	MaxIterations int // default 20 when zero
}

func (c *ChunkController) maxIterations() int {
	if c.MaxIterations > 0 {
		return c.MaxIterations
	}
	return 20
}

// ProcessChunks runs prompts sequentially through ChatController, adding
// each prompt's text as a user message to history before invoking it, and
// returns one UniversalChatResponse per prompt.
func (c *ChunkController) ProcessChunks(ctx context.Context, modelName string, prompts []request.Prompt, params model.Params) ([]model.Response, error) {
	if len(prompts) > c.maxIterations() {
		return nil, errs.New(errs.KindChunkIterationLimit, "ChunkController.ProcessChunks",
			"prompt count exceeds chunk iteration limit")
	}

	info, err := c.Registry.Get(modelName)
	if err != nil {
		return nil, err
	}

	responses := make([]model.Response, 0, len(prompts))
	for _, p := range prompts {
		c.History.AddMessage(model.RoleUser, p.Text)
		callParams := params
		callParams.Messages = c.History.Messages(info)

		resp, err := c.Chat.Execute(ctx, modelName, callParams)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

// StreamChunks runs prompts sequentially through StreamController. Every
// chunk from every prompt except the very last chunk of the very last
// prompt has its IsComplete forced to false, so a caller iterating the
// combined sequence only ever sees one true "end of response" marker, at
// the very end of the whole multi-prompt call.
func (c *ChunkController) StreamChunks(ctx context.Context, modelName string, prompts []request.Prompt, params model.Params) func(yield func(model.StreamResponse, error) bool) {
	return func(yield func(model.StreamResponse, error) bool) {
		if len(prompts) > c.maxIterations() {
			yield(model.StreamResponse{}, errs.New(errs.KindChunkIterationLimit, "ChunkController.StreamChunks",
				"prompt count exceeds chunk iteration limit"))
			return
		}

		info, err := c.Registry.Get(modelName)
		if err != nil {
			yield(model.StreamResponse{}, err)
			return
		}

		for i, p := range prompts {
			isLastPrompt := i == len(prompts)-1
			c.History.AddMessage(model.RoleUser, p.Text)
			callParams := params
			callParams.Messages = c.History.Messages(info)

			aborted := false
			c.Stream.CreateStream(ctx, modelName, callParams)(func(r model.StreamResponse, err error) bool {
				if err != nil {
					aborted = !yield(model.StreamResponse{}, err)
					return false
				}
				if r.IsComplete && !isLastPrompt {
					r.IsComplete = false
				}
				if !yield(r, nil) {
					aborted = true
					return false
				}
				return true
			})
			if aborted {
				return
			}
		}
	}
}
