package llmcore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmcore "goa.design/llmcore"
	"goa.design/llmcore/model"
	"goa.design/llmcore/provider"
)

// fakeProvider is a minimal provider.Provider double: ChatCall returns the
// fixed chatContent as the assistant's content (or, on the first call when
// toolCall is set, that tool call instead) so tests can assert on known text
// without a real LLM backend.
type fakeProvider struct {
	name        string
	chatContent string
	chatCalls   int
	toolCall    *model.ToolCall // when set, the first ChatCall response carries this tool call instead
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) ChatCall(ctx context.Context, modelName string, params model.Params) (model.Response, error) {
	f.chatCalls++
	if f.toolCall != nil && f.chatCalls == 1 {
		tc := *f.toolCall
		return model.Response{
			Role:      model.RoleAssistant,
			ToolCalls: []model.ToolCall{tc},
			Metadata:  model.Metadata{FinishReason: model.FinishToolCalls},
		}, nil
	}
	content := f.chatContent
	return model.Response{
		Role:    model.RoleAssistant,
		Content: &content,
		Metadata: model.Metadata{
			FinishReason: model.FinishStop,
			Model:        modelName,
			Usage:        &model.Usage{Tokens: model.TokenCounts{Total: 12}},
		},
	}, nil
}

func (f *fakeProvider) StreamCall(ctx context.Context, modelName string, params model.Params) (provider.Stream, error) {
	return nil, nil
}
func (f *fakeProvider) ImageCall(ctx context.Context, modelName string, params model.Params) (model.Response, error) {
	return model.Response{}, nil
}
func (f *fakeProvider) EmbeddingsCall(ctx context.Context, modelName string, input []string) ([][]float64, error) {
	return nil, nil
}
func (f *fakeProvider) SupportsImageGeneration() bool { return false }
func (f *fakeProvider) SupportsEmbeddings() bool       { return false }

func testModel() model.Info {
	return model.Info{
		Name:                  "fake-model",
		InputPricePerMillion:  1,
		OutputPricePerMillion: 5,
		MaxRequestTokens:      8000,
		MaxResponseTokens:     1000,
		Capabilities: model.Capabilities{
			Output: model.OutputCapability{TextOutputFormats: []string{"text"}},
		},
	}
}

func newTestCaller(t *testing.T, prov provider.Provider) *llmcore.Caller {
	t.Helper()
	caller, err := llmcore.New("fake", "fake-model", "You are a test assistant.", llmcore.Options{
		Provider: prov,
		Models:   []model.Info{testModel()},
	})
	require.NoError(t, err)
	return caller
}

func TestCaller_CallReturnsAssistantResponse(t *testing.T) {
	caller := newTestCaller(t, &fakeProvider{name: "fake", chatContent: "hello there"})

	responses, err := caller.Call(context.Background(), llmcore.Input{Text: "hi"})
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Equal(t, "hello there", *responses[0].Content)
	assert.Equal(t, model.FinishStop, responses[0].Metadata.FinishReason)
}

func TestCaller_CallResubmitsAfterToolCall(t *testing.T) {
	prov := &fakeProvider{
		name:        "fake",
		chatContent: "done",
		toolCall:    &model.ToolCall{ID: "1", Name: "get_time", Arguments: map[string]any{}},
	}
	caller := newTestCaller(t, prov)
	caller.AddTool(model.ToolDefinition{
		Name: "get_time",
		CallFunction: func(params map[string]any) (any, error) {
			return "10:00", nil
		},
	})

	responses, err := caller.Call(context.Background(), llmcore.Input{Text: "what time is it"})
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Equal(t, "done", *responses[0].Content)
	assert.Equal(t, 2, prov.chatCalls, "tool call should trigger exactly one resubmission")
}

func TestCaller_AddModelAndGetModel(t *testing.T) {
	caller := newTestCaller(t, &fakeProvider{name: "fake"})
	caller.AddModel(model.Info{Name: "other-model", Capabilities: model.Capabilities{
		Output: model.OutputCapability{TextOutputFormats: []string{"text"}},
	}})

	info, err := caller.GetModel("other-model", model.Requirements{})
	require.NoError(t, err)
	assert.Equal(t, "other-model", info.Name)
}

func TestCaller_HistoryRoundTrip(t *testing.T) {
	caller := newTestCaller(t, &fakeProvider{name: "fake", chatContent: "ok"})
	caller.AddMessage(model.RoleUser, "remember this")

	data, err := caller.SerializeHistory()
	require.NoError(t, err)

	caller2 := newTestCaller(t, &fakeProvider{name: "fake", chatContent: "ok"})
	require.NoError(t, caller2.DeserializeHistory(data))
	assert.Equal(t, caller.GetHistoricalMessages(), caller2.GetHistoricalMessages())
}

func TestCaller_ListToolsReflectsAddAndRemove(t *testing.T) {
	caller := newTestCaller(t, &fakeProvider{name: "fake"})
	caller.AddTool(model.ToolDefinition{Name: "a"})
	caller.AddTool(model.ToolDefinition{Name: "b"})
	assert.Len(t, caller.ListTools(), 2)

	caller.RemoveTool("a")
	assert.Len(t, caller.ListTools(), 1)
}
