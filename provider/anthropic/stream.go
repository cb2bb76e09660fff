package anthropic

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"goa.design/llmcore/model"
	"goa.design/llmcore/provider"
)

// streamAdapter reshapes anthropic-sdk-go's server-sent-event stream into
// the provider.Stream pull interface.
type streamAdapter struct {
	stream  *ssestream.Stream[anthropic.MessageStreamEventUnion]
	message anthropic.Message
}

func (s *streamAdapter) Next(ctx context.Context) (provider.StreamChunk, bool, error) {
	if !s.stream.Next() {
		if err := s.stream.Err(); err != nil {
			return provider.StreamChunk{}, false, translateError(err)
		}
		return provider.StreamChunk{}, false, nil
	}

	event := s.stream.Current()
	if err := s.message.Accumulate(event); err != nil {
		return provider.StreamChunk{}, false, translateError(err)
	}

	switch delta := event.AsAny().(type) {
	case anthropic.ContentBlockDeltaEvent:
		switch d := delta.Delta.AsAny().(type) {
		case anthropic.TextDelta:
			return provider.StreamChunk{Role: model.RoleAssistant, Content: d.Text}, true, nil
		case anthropic.InputJSONDelta:
			return provider.StreamChunk{
				Role:           model.RoleAssistant,
				ToolCallChunks: []model.ToolCallChunk{{Index: int(delta.Index), ArgumentsChunk: d.PartialJSON}},
			}, true, nil
		}
	case anthropic.MessageStopEvent:
		finish := model.FinishStop
		resp := convertFromProviderResponse(&s.message)
		finish = resp.Metadata.FinishReason
		return provider.StreamChunk{
			Role:         model.RoleAssistant,
			FinishReason: &finish,
			Usage:        resp.Metadata.Usage,
		}, true, nil
	}

	return provider.StreamChunk{}, true, nil
}

func (s *streamAdapter) Close() error {
	return s.stream.Close()
}
