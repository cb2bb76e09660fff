package mcpadapter

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goa.design/llmcore/model"
)

type fakeMCPClient struct {
	resources         *mcp.ListResourcesResult
	resourcesErr      error
	resourceContents  *mcp.ReadResourceResult
	resourceErr       error
	resourceTemplates *mcp.ListResourceTemplatesResult
	templatesErr      error
	prompts           *mcp.ListPromptsResult
	promptsErr        error
	prompt            *mcp.GetPromptResult
	promptErr         error
}

func (f *fakeMCPClient) Initialize(ctx context.Context, req mcp.InitializeRequest) (*mcp.InitializeResult, error) {
	return &mcp.InitializeResult{}, nil
}
func (f *fakeMCPClient) ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error) {
	return &mcp.ListToolsResult{}, nil
}
func (f *fakeMCPClient) CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return &mcp.CallToolResult{}, nil
}
func (f *fakeMCPClient) ListResources(ctx context.Context, req mcp.ListResourcesRequest) (*mcp.ListResourcesResult, error) {
	return f.resources, f.resourcesErr
}
func (f *fakeMCPClient) ReadResource(ctx context.Context, req mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	return f.resourceContents, f.resourceErr
}
func (f *fakeMCPClient) ListResourceTemplates(ctx context.Context, req mcp.ListResourceTemplatesRequest) (*mcp.ListResourceTemplatesResult, error) {
	return f.resourceTemplates, f.templatesErr
}
func (f *fakeMCPClient) ListPrompts(ctx context.Context, req mcp.ListPromptsRequest) (*mcp.ListPromptsResult, error) {
	return f.prompts, f.promptsErr
}
func (f *fakeMCPClient) GetPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return f.prompt, f.promptErr
}
func (f *fakeMCPClient) Close() error { return nil }

func adapterWithFake(key string, c mcpClient) *Adapter {
	a := New()
	a.servers[key] = &serverConn{client: c, transport: "stdio", tools: map[string]model.ToolDefinition{}}
	return a
}

func TestAdapter_ListResources_ReturnsServerResources(t *testing.T) {
	a := adapterWithFake("srv", &fakeMCPClient{
		resources: &mcp.ListResourcesResult{Resources: []mcp.Resource{{URI: "file:///a.txt", Name: "a"}}},
	})

	got, err := a.ListResources(context.Background(), "srv")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "file:///a.txt", got[0].URI)
}

func TestAdapter_ListResources_MethodNotSupportedReturnsEmpty(t *testing.T) {
	a := adapterWithFake("srv", &fakeMCPClient{
		resourcesErr: &RPCError{Code: JSONRPCMethodNotFound, Message: "method not found"},
	})

	got, err := a.ListResources(context.Background(), "srv")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAdapter_ListResources_UnknownServerFails(t *testing.T) {
	a := New()
	_, err := a.ListResources(context.Background(), "missing")
	require.Error(t, err)
}

func TestAdapter_ReadResource_MethodNotSupportedReturnsEmpty(t *testing.T) {
	a := adapterWithFake("srv", &fakeMCPClient{
		resourceErr: &RPCError{Code: JSONRPCMethodNotFound, Message: "unsupported"},
	})

	got, err := a.ReadResource(context.Background(), "srv", "file:///a.txt")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAdapter_ListPrompts_ReturnsServerPrompts(t *testing.T) {
	a := adapterWithFake("srv", &fakeMCPClient{
		prompts: &mcp.ListPromptsResult{Prompts: []mcp.Prompt{{Name: "greeting"}}},
	})

	got, err := a.ListPrompts(context.Background(), "srv")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "greeting", got[0].Name)
}

func TestAdapter_GetPrompt_MethodNotSupportedReturnsMarker(t *testing.T) {
	a := adapterWithFake("srv", &fakeMCPClient{
		promptErr: &RPCError{Code: JSONRPCMethodNotFound, Message: "method not found"},
	})

	got, err := a.GetPrompt(context.Background(), "srv", "greeting", nil)
	require.NoError(t, err)
	marker, ok := got.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, marker["_mcpMethodNotSupported"])
}

func TestAdapter_GetPrompt_ReturnsServerPrompt(t *testing.T) {
	a := adapterWithFake("srv", &fakeMCPClient{
		prompt: &mcp.GetPromptResult{Description: "says hi"},
	})

	got, err := a.GetPrompt(context.Background(), "srv", "greeting", nil)
	require.NoError(t, err)
	result, ok := got.(*mcp.GetPromptResult)
	require.True(t, ok)
	assert.Equal(t, "says hi", result.Description)
}

func TestAdapter_CompleteAuthentication_FailsWithoutOAuthConfigured(t *testing.T) {
	a := adapterWithFake("srv", &fakeMCPClient{})
	err := a.CompleteAuthentication(context.Background(), "srv", "some-code")
	require.Error(t, err)
}

func TestAdapter_CompleteAuthentication_UnknownServerFails(t *testing.T) {
	a := New()
	err := a.CompleteAuthentication(context.Background(), "missing", "some-code")
	require.Error(t, err)
}
