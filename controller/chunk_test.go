package controller_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goa.design/llmcore/controller"
	"goa.design/llmcore/history"
	"goa.design/llmcore/model"
	"goa.design/llmcore/provider"
	"goa.design/llmcore/request"
	"goa.design/llmcore/retry"
	"goa.design/llmcore/schema"
)

func newChunkController(p provider.Provider) (*controller.ChunkController, *model.Registry, *history.Manager) {
	reg := model.NewRegistry("stub")
	reg.Add(newInfo("m1"))
	h := history.NewManager(model.HistoryModeFull)
	retryMgr := retry.NewManager(retry.WithMaxRetries(2), retry.WithBaseDelay(time.Millisecond), retry.WithMaxDelay(time.Millisecond))
	chat := &controller.ChatController{Registry: reg, Provider: provider.NewManager(p), Retry: retryMgr, History: h, Validator: schema.NewValidator()}
	strm := &controller.StreamController{Registry: reg, Provider: provider.NewManager(p), Retry: retryMgr, History: h, Validator: schema.NewValidator()}
	return &controller.ChunkController{Chat: chat, Stream: strm, Registry: reg, History: h}, reg, h
}

func TestChunkController_ProcessChunks_SequentialAndTracksHistory(t *testing.T) {
	p := &stubProvider{respond: func(attempt int) (model.Response, error) {
		return textResp("ack"), nil
	}}
	cc, _, h := newChunkController(p)

	prompts := []request.Prompt{
		{Text: "part one", ChunkIndex: 0, TotalChunks: 2},
		{Text: "part two", ChunkIndex: 1, TotalChunks: 2},
	}
	responses, err := cc.ProcessChunks(context.Background(), "m1", prompts, model.Params{})
	require.NoError(t, err)
	require.Len(t, responses, 2)
	assert.Equal(t, 2, p.calls)
	assert.Len(t, h.GetMessages(), 2)
}

func TestChunkController_ProcessChunks_ExceedsIterationLimit(t *testing.T) {
	p := &stubProvider{respond: func(attempt int) (model.Response, error) { return textResp("ack"), nil }}
	cc, _, _ := newChunkController(p)
	cc.MaxIterations = 1

	prompts := []request.Prompt{{Text: "a"}, {Text: "b"}}
	_, err := cc.ProcessChunks(context.Background(), "m1", prompts, model.Params{})
	require.Error(t, err)
	assert.Equal(t, 0, p.calls)
}

func TestChunkController_StreamChunks_OnlyLastChunkOfLastPromptIsComplete(t *testing.T) {
	p := &stubStreamProvider{attempts: [][]provider.StreamChunk{
		{{Role: model.RoleAssistant, Content: "first response, long enough to clear the default retry length heuristic: it runs well past the two hundred character minimum that the content retry check applies to plain text answers, so no second stream is acquired."}, finishChunk(model.FinishStop)},
		{{Role: model.RoleAssistant, Content: "second response, long enough to clear the default retry length heuristic: it runs well past the two hundred character minimum that the content retry check applies to plain text answers, so no third stream is acquired."}, finishChunk(model.FinishStop)},
	}}
	cc, _, _ := newChunkController(p)

	prompts := []request.Prompt{
		{Text: "part one", ChunkIndex: 0, TotalChunks: 2},
		{Text: "part two", ChunkIndex: 1, TotalChunks: 2},
	}

	var out []model.StreamResponse
	cc.StreamChunks(context.Background(), "m1", prompts, model.Params{})(func(r model.StreamResponse, err error) bool {
		require.NoError(t, err)
		out = append(out, r)
		return true
	})

	require.NotEmpty(t, out)
	completeCount := 0
	for _, r := range out {
		if r.IsComplete {
			completeCount++
		}
	}
	assert.Equal(t, 1, completeCount)
	assert.True(t, out[len(out)-1].IsComplete)
}
