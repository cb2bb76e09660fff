package tools_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"goa.design/llmcore/controller"
	"goa.design/llmcore/history"
	"goa.design/llmcore/model"
	"goa.design/llmcore/provider"
	"goa.design/llmcore/retry"
	"goa.design/llmcore/schema"
	"goa.design/llmcore/telemetry"
	"goa.design/llmcore/tools"
)

type countingTracer struct {
	starts int
	telemetry.Tracer
}

func (c *countingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, telemetry.Span) {
	c.starts++
	return c.Tracer.Start(ctx, name, opts...)
}

func TestManager_AddGetRemoveUpdate(t *testing.T) {
	m := tools.NewManager()
	m.Add(model.ToolDefinition{Name: "getTime", Description: "returns the time"})

	def, ok := m.Get("getTime")
	require.True(t, ok)
	assert.Equal(t, "returns the time", def.Description)

	require.NoError(t, m.Update("getTime", func(d *model.ToolDefinition) { d.Description = "updated" }))
	def, _ = m.Get("getTime")
	assert.Equal(t, "updated", def.Description)

	m.Remove("getTime")
	_, ok = m.Get("getTime")
	assert.False(t, ok)
}

func TestParseToolCalls_NativeTakesPrecedenceOverInlineMarkers(t *testing.T) {
	native := []model.ToolCall{{ID: "1", Name: "search", Arguments: map[string]any{"q": "go"}}}
	content := `Let me check. <tool>getTime:{"tz":"UTC"}</tool> done.`

	calls := tools.ParseToolCalls(content, native)
	require.Len(t, calls, 1)
	assert.Equal(t, "search", calls[0].Name)

	inline := tools.ParseToolCalls(content, nil)
	require.Len(t, inline, 1)
	assert.Equal(t, "getTime", inline[0].Name)
	assert.Equal(t, "UTC", inline[0].Arguments["tz"])
}

func TestStripInlineMarkers(t *testing.T) {
	content := `Visible text. <tool>getTime:{"tz":"UTC"}</tool> more text.`
	assert.Equal(t, "Visible text.  more text.", tools.StripInlineMarkers(content))
}

func TestController_Execute_ToolNotFound(t *testing.T) {
	c := &tools.Controller{Local: tools.NewManager()}
	result := c.Execute(context.Background(), model.ToolCall{Name: "missing"})
	require.Error(t, result.Err)
}

func TestController_Execute_RunsLocalTool(t *testing.T) {
	mgr := tools.NewManager()
	mgr.Add(model.ToolDefinition{
		Name: "double",
		CallFunction: func(params map[string]any) (any, error) {
			n := params["n"].(float64)
			return n * 2, nil
		},
	})
	c := &tools.Controller{Local: mgr}

	result := c.Execute(context.Background(), model.ToolCall{Name: "double", Arguments: map[string]any{"n": 21.0}})
	require.NoError(t, result.Err)
	assert.Equal(t, 42.0, result.Value)
}

func TestController_Execute_OpensToolSpanWhenTelemetrySet(t *testing.T) {
	mgr := tools.NewManager()
	mgr.Add(model.ToolDefinition{
		Name: "double",
		CallFunction: func(params map[string]any) (any, error) {
			return params["n"].(float64) * 2, nil
		},
	})
	tracer := &countingTracer{Tracer: telemetry.NewNoopTracer()}
	c := &tools.Controller{
		Local:     mgr,
		Telemetry: telemetry.NewOtelService(tracer, telemetry.NewNoopMetrics(), telemetry.NewNoopLogger()),
	}

	result := c.Execute(context.Background(), model.ToolCall{Name: "double", Arguments: map[string]any{"n": 21.0}})
	require.NoError(t, result.Err)
	assert.Equal(t, 1, tracer.starts)
}

type orchestratorProvider struct {
	responses []model.Response
	calls     int
}

func (p *orchestratorProvider) Name() string { return "stub" }
func (p *orchestratorProvider) ChatCall(ctx context.Context, modelName string, params model.Params) (model.Response, error) {
	r := p.responses[p.calls]
	p.calls++
	return r, nil
}
func (p *orchestratorProvider) StreamCall(ctx context.Context, modelName string, params model.Params) (provider.Stream, error) {
	return nil, nil
}
func (p *orchestratorProvider) ImageCall(ctx context.Context, modelName string, params model.Params) (model.Response, error) {
	return model.Response{}, nil
}
func (p *orchestratorProvider) EmbeddingsCall(ctx context.Context, modelName string, input []string) ([][]float64, error) {
	return nil, nil
}
func (p *orchestratorProvider) SupportsImageGeneration() bool { return false }
func (p *orchestratorProvider) SupportsEmbeddings() bool       { return false }

func textResponse(s string) model.Response {
	return model.Response{Role: model.RoleAssistant, Content: &s, Metadata: model.Metadata{FinishReason: model.FinishStop}}
}

func TestOrchestrator_Run_ResubmitsUntilNoToolCalls(t *testing.T) {
	toolResp := model.Response{
		Role:     model.RoleAssistant,
		ToolCalls: []model.ToolCall{{ID: "1", Name: "double", Arguments: map[string]any{"n": 10.0}}},
		Metadata: model.Metadata{FinishReason: model.FinishToolCalls},
	}
	final := textResponse("the answer is 20")

	p := &orchestratorProvider{responses: []model.Response{final}}

	reg := model.NewRegistry("stub")
	reg.Add(model.Info{Name: "m1", MaxRequestTokens: 8000})

	h := history.NewManager(model.HistoryModeFull)
	chat := &controller.ChatController{
		Registry: reg, Provider: provider.NewManager(p),
		Retry:     retry.NewManager(retry.WithMaxRetries(1), retry.WithBaseDelay(time.Millisecond), retry.WithMaxDelay(time.Millisecond)),
		History:   h, Validator: schema.NewValidator(),
	}

	mgr := tools.NewManager()
	mgr.Add(model.ToolDefinition{
		Name: "double",
		CallFunction: func(params map[string]any) (any, error) {
			return params["n"].(float64) * 2, nil
		},
	})

	orch := &tools.Orchestrator{
		Chat:     chat,
		Tools:    &tools.Controller{Local: mgr},
		History:  h,
		Registry: reg,
	}

	resp, err := orch.Run(context.Background(), "m1", model.Params{}, toolResp)
	require.NoError(t, err)
	assert.Equal(t, "the answer is 20", *resp.Content)
	assert.Equal(t, 1, p.calls)

	msgs := h.GetMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, model.RoleTool, msgs[0].Role)
	assert.Equal(t, "double", msgs[0].Name)
}

func TestOrchestrator_Run_AppendsAssistantMessageBeforeToolMessages(t *testing.T) {
	visible := `Let me check that for you. <tool>double:{"n":10}</tool>`
	toolResp := model.Response{
		Role:      model.RoleAssistant,
		Content:   &visible,
		ToolCalls: []model.ToolCall{{ID: "1", Name: "double", Arguments: map[string]any{"n": 10.0}}},
		Metadata:  model.Metadata{FinishReason: model.FinishToolCalls},
	}
	final := textResponse("the answer is 20")

	p := &orchestratorProvider{responses: []model.Response{final}}

	reg := model.NewRegistry("stub")
	reg.Add(model.Info{Name: "m1", MaxRequestTokens: 8000})

	h := history.NewManager(model.HistoryModeFull)
	chat := &controller.ChatController{
		Registry: reg, Provider: provider.NewManager(p),
		Retry:     retry.NewManager(retry.WithMaxRetries(1), retry.WithBaseDelay(time.Millisecond), retry.WithMaxDelay(time.Millisecond)),
		History:   h, Validator: schema.NewValidator(),
	}

	mgr := tools.NewManager()
	mgr.Add(model.ToolDefinition{
		Name: "double",
		CallFunction: func(params map[string]any) (any, error) {
			return params["n"].(float64) * 2, nil
		},
	})

	orch := &tools.Orchestrator{
		Chat:     chat,
		Tools:    &tools.Controller{Local: mgr},
		History:  h,
		Registry: reg,
	}

	resp, err := orch.Run(context.Background(), "m1", model.Params{}, toolResp)
	require.NoError(t, err)
	assert.Equal(t, "the answer is 20", *resp.Content)

	msgs := h.GetMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleAssistant, msgs[0].Role, "assistant message must be appended before tool messages")
	assert.Equal(t, model.RoleTool, msgs[1].Role)
	assert.Equal(t, "double", msgs[1].Name)
}

func TestOrchestrator_Run_IterationLimitFails(t *testing.T) {
	toolResp := model.Response{
		Role:      model.RoleAssistant,
		ToolCalls: []model.ToolCall{{ID: "1", Name: "loopy", Arguments: map[string]any{}}},
		Metadata:  model.Metadata{FinishReason: model.FinishToolCalls},
	}
	p := &orchestratorProvider{responses: []model.Response{toolResp, toolResp, toolResp}}

	reg := model.NewRegistry("stub")
	reg.Add(model.Info{Name: "m1", MaxRequestTokens: 8000})
	h := history.NewManager(model.HistoryModeFull)
	chat := &controller.ChatController{
		Registry: reg, Provider: provider.NewManager(p),
		Retry:     retry.NewManager(retry.WithMaxRetries(1), retry.WithBaseDelay(time.Millisecond), retry.WithMaxDelay(time.Millisecond)),
		History:   h, Validator: schema.NewValidator(),
	}
	mgr := tools.NewManager()
	mgr.Add(model.ToolDefinition{Name: "loopy", CallFunction: func(params map[string]any) (any, error) { return "ok", nil }})

	orch := &tools.Orchestrator{
		Chat: chat, Tools: &tools.Controller{Local: mgr}, History: h, Registry: reg,
		MaxIterations: 2,
	}

	_, err := orch.Run(context.Background(), "m1", model.Params{}, toolResp)
	require.Error(t, err)
}
