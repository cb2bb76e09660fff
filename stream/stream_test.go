package stream_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goa.design/llmcore/model"
	"goa.design/llmcore/provider"
	"goa.design/llmcore/stream"
)

func TestPipeline_AccumulatesContentAndEmitsFinalChunk(t *testing.T) {
	p := stream.NewPipeline(stream.Options{})
	t0 := time.Now()

	out1 := p.Process(provider.StreamChunk{Role: model.RoleAssistant, Content: "Hello, "}, t0)
	out2 := p.Process(provider.StreamChunk{Role: model.RoleAssistant, Content: "world"}, t0)
	finish := model.FinishStop
	out3 := p.Process(provider.StreamChunk{FinishReason: &finish}, t0)

	require.Len(t, out1, 1)
	assert.False(t, out1[0].IsComplete)
	require.Len(t, out2, 1)
	require.Len(t, out3, 1)
	assert.True(t, out3[0].IsComplete)
	assert.Equal(t, "Hello, world", out3[0].ContentText)
}

func TestPipeline_ReassemblesToolCallDeltas(t *testing.T) {
	p := stream.NewPipeline(stream.Options{})
	t0 := time.Now()

	out1 := p.Process(provider.StreamChunk{
		ToolCallChunks: []model.ToolCallChunk{{ID: "call_1", Name: "getTime", ArgumentsChunk: `{"tz":`}},
	}, t0)
	assert.Empty(t, collectToolCalls(out1))

	out2 := p.Process(provider.StreamChunk{
		ToolCallChunks: []model.ToolCallChunk{{ID: "call_1", ArgumentsChunk: `"Asia/Tokyo"}`}},
	}, t0)
	calls := collectToolCalls(out2)
	require.Len(t, calls, 1)
	assert.Equal(t, "getTime", calls[0].Name)
	assert.Equal(t, "Asia/Tokyo", calls[0].Arguments["tz"])
}

func TestPipeline_ForceCompletesUnbalancedToolCallAfterTimeout(t *testing.T) {
	p := stream.NewPipeline(stream.Options{})
	t0 := time.Now()

	out1 := p.Process(provider.StreamChunk{
		ToolCallChunks: []model.ToolCallChunk{{ID: "call_1", Name: "broken", ArgumentsChunk: `{"a":1`}},
	}, t0)
	assert.Empty(t, collectToolCalls(out1))

	later := t0.Add(11 * time.Second)
	out2 := p.Process(provider.StreamChunk{}, later)
	calls := collectToolCalls(out2)
	require.Len(t, calls, 1)
	assert.Equal(t, `{"a":1`, calls[0].Arguments["value"])
}

func TestPipeline_AccumulatesReasoning(t *testing.T) {
	p := stream.NewPipeline(stream.Options{})
	t0 := time.Now()

	p.Process(provider.StreamChunk{Reasoning: "thinking about it"}, t0)
	finish := model.FinishStop
	out := p.Process(provider.StreamChunk{FinishReason: &finish}, t0)

	require.Len(t, out, 1)
	require.NotNil(t, out[0].Metadata.Reasoning)
	assert.True(t, out[0].Metadata.Reasoning.HasContent)
	assert.Equal(t, "thinking about it", out[0].Metadata.Reasoning.Accumulated)
}

func collectToolCalls(responses []model.StreamResponse) []model.ToolCall {
	var out []model.ToolCall
	for _, r := range responses {
		out = append(out, r.ToolCalls...)
	}
	return out
}
