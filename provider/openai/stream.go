package openai

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/ssestream"

	"goa.design/llmcore/model"
	"goa.design/llmcore/provider"
)

// streamAdapter reshapes openai-go's chat-completion-chunk SSE stream into
// the provider.Stream pull interface.
type streamAdapter struct {
	stream *ssestream.Stream[openai.ChatCompletionChunk]
}

func (s *streamAdapter) Next(ctx context.Context) (provider.StreamChunk, bool, error) {
	if !s.stream.Next() {
		if err := s.stream.Err(); err != nil {
			return provider.StreamChunk{}, false, translateError(err)
		}
		return provider.StreamChunk{}, false, nil
	}

	chunk := s.stream.Current()
	if len(chunk.Choices) == 0 {
		return provider.StreamChunk{}, true, nil
	}
	choice := chunk.Choices[0]

	out := provider.StreamChunk{Role: model.RoleAssistant, Content: choice.Delta.Content}
	for _, tc := range choice.Delta.ToolCalls {
		out.ToolCallChunks = append(out.ToolCallChunks, model.ToolCallChunk{
			ID:             tc.ID,
			Index:          int(tc.Index),
			Name:           tc.Function.Name,
			ArgumentsChunk: tc.Function.Arguments,
		})
	}
	if choice.FinishReason != "" {
		fr := convertFinishReason(choice.FinishReason)
		out.FinishReason = &fr
	}
	if chunk.Usage.TotalTokens > 0 {
		out.Usage = &model.Usage{
			Tokens: model.TokenCounts{
				Input:  model.TokenSide{Total: int(chunk.Usage.PromptTokens)},
				Output: model.TokenSide{Total: int(chunk.Usage.CompletionTokens)},
				Total:  int(chunk.Usage.TotalTokens),
			},
		}
	}
	return out, true, nil
}

func (s *streamAdapter) Close() error {
	return s.stream.Close()
}
