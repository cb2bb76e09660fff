package bedrock

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"goa.design/llmcore/model"
	"goa.design/llmcore/provider"
)

// eventStream is the subset of bedrockruntime's ConverseStream event-stream
// reader this adapter depends on, kept narrow for testability.
type eventStream interface {
	Events() <-chan types.ConverseStreamOutput
	Close() error
	Err() error
}

// streamAdapter reshapes Bedrock's ConverseStream event channel into the
// provider.Stream pull interface.
type streamAdapter struct {
	events eventStream
}

func (s *streamAdapter) Next(ctx context.Context) (provider.StreamChunk, bool, error) {
	select {
	case <-ctx.Done():
		return provider.StreamChunk{}, false, ctx.Err()
	case event, ok := <-s.events.Events():
		if !ok {
			if err := s.events.Err(); err != nil {
				return provider.StreamChunk{}, false, translateError(err)
			}
			return provider.StreamChunk{}, false, nil
		}
		return convertStreamEvent(event), true, nil
	}
}

func (s *streamAdapter) Close() error {
	return s.events.Close()
}

func convertStreamEvent(event types.ConverseStreamOutput) provider.StreamChunk {
	switch v := event.(type) {
	case *types.ConverseStreamOutputMemberContentBlockDelta:
		switch d := v.Value.Delta.(type) {
		case *types.ContentBlockDeltaMemberText:
			return provider.StreamChunk{Role: model.RoleAssistant, Content: d.Value}
		case *types.ContentBlockDeltaMemberToolUse:
			return provider.StreamChunk{
				Role: model.RoleAssistant,
				ToolCallChunks: []model.ToolCallChunk{{
					Index:          int(aws.ToInt32(v.Value.ContentBlockIndex)),
					ArgumentsChunk: aws.ToString(d.Value.Input),
				}},
			}
		}
	case *types.ConverseStreamOutputMemberMessageStop:
		finish := convertFinishReason(v.Value.StopReason)
		return provider.StreamChunk{Role: model.RoleAssistant, FinishReason: &finish}
	case *types.ConverseStreamOutputMemberMetadata:
		usage := model.Usage{}
		if v.Value.Usage != nil {
			usage.Tokens.Input.Total = int(aws.ToInt32(v.Value.Usage.InputTokens))
			usage.Tokens.Output.Total = int(aws.ToInt32(v.Value.Usage.OutputTokens))
			usage.Tokens.Total = int(aws.ToInt32(v.Value.Usage.TotalTokens))
		}
		return provider.StreamChunk{Usage: &usage}
	}
	return provider.StreamChunk{}
}
