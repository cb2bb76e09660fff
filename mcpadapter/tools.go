package mcpadapter

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"goa.design/llmcore/errs"
	"goa.design/llmcore/model"
)

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9_]`)

// rewriteName applies spec.md §4.8's tool name rewrite: serverKey_toolName
// with every non-alphanumeric character (in either half) replaced by "_", so
// tool names stay valid across every provider's function-call naming rules.
func rewriteName(serverKey, toolName string) string {
	return nonAlnum.ReplaceAllString(serverKey, "_") + "_" + nonAlnum.ReplaceAllString(toolName, "_")
}

// fetchTools lists c's tools and converts each into a model.ToolDefinition
// keyed by its rewritten name, with the server's original name preserved in
// Metadata so ExecuteTool can dispatch back to it.
func fetchTools(ctx context.Context, c mcpClient, serverKey string) (map[string]model.ToolDefinition, error) {
	result, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, errs.Wrap(errs.KindMCPConnection, "mcpadapter.fetchTools",
			"failed to list tools for "+serverKey, err)
	}

	defs := make(map[string]model.ToolDefinition, len(result.Tools))
	for _, t := range result.Tools {
		rewritten := rewriteName(serverKey, t.Name)
		defs[rewritten] = model.ToolDefinition{
			Name:        rewritten,
			Description: t.Description,
			Parameters:  inputSchemaToParameters(t.InputSchema),
			Metadata: map[string]any{
				"serverKey":    serverKey,
				"originalName": t.Name,
			},
		}
	}
	return defs, nil
}

// inputSchemaToParameters converts mcp-go's ToolInputSchema (a JSON Schema
// object) into the JSON-Schema-shaped map model.ToolDefinition.Parameters
// expects, matching the shape every provider adapter's function-calling
// payload already sends.
func inputSchemaToParameters(schema mcp.ToolInputSchema) map[string]any {
	params := map[string]any{"type": "object"}
	if schema.Properties != nil {
		params["properties"] = schema.Properties
	}
	if len(schema.Required) > 0 {
		params["required"] = schema.Required
	}
	return params
}

// callTool sends toolName unchanged to conn's client, so it must be the
// server's original tool name, not the rewritten one; it retries transient failures and mapping JSON-RPC error codes to
// the errs taxonomy.
func (a *Adapter) callTool(ctx context.Context, conn *serverConn, toolName string, args map[string]any) (any, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = toolName
	req.Params.Arguments = sanitizeArgs(args)

	op := func(ctx context.Context) (any, error) {
		result, err := conn.client.CallTool(ctx, req)
		if err != nil {
			return nil, translateRPCError(toolName, err)
		}
		if result.IsError {
			return nil, errs.New(errs.KindMCPToolCall, "Adapter.callTool",
				"tool "+toolName+" returned an error result: "+contentText(result))
		}
		return contentText(result), nil
	}

	value, err := a.retryManager().ExecuteWithRetry(ctx, op, shouldRetryMCPCall)
	if err != nil {
		return nil, err
	}
	return value, nil
}

// sanitizeArgs strips stray quote/brace artifacts a model occasionally
// leaves in filesystem-tool path arguments and defaults an empty path to the
// working directory, per spec.md §4.8.
func sanitizeArgs(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		s, ok := v.(string)
		if !ok {
			out[k] = v
			continue
		}
		if isPathKey(k) {
			s = strings.Trim(s, `"'{} `)
			if s == "" {
				s = "./"
			}
		}
		out[k] = s
	}
	return out
}

func isPathKey(key string) bool {
	lower := strings.ToLower(key)
	return strings.Contains(lower, "path") || strings.Contains(lower, "file") || strings.Contains(lower, "dir")
}

func contentText(result *mcp.CallToolResult) string {
	var b strings.Builder
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

// translateRPCError maps a transport-level mcp-go error into the errs
// taxonomy, preserving the underlying JSON-RPC code (when present) behind
// AsRPCError for shouldRetryMCPCall to branch on.
func translateRPCError(toolName string, err error) error {
	if rpc, ok := extractRPCError(err); ok {
		switch rpc.Code {
		case JSONRPCMethodNotFound:
			return errs.Wrap(errs.KindToolNotFound, "Adapter.callTool", "tool "+toolName+" not found", rpc)
		case JSONRPCInvalidParams:
			return errs.Wrap(errs.KindValidation, "Adapter.callTool", "invalid parameters for tool "+toolName, rpc)
		default:
			return errs.Wrap(errs.KindMCPToolCall, "Adapter.callTool", "tool "+toolName+" call failed", rpc)
		}
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "auth") || strings.Contains(msg, "unauthorized") || strings.Contains(msg, "401") {
		return errs.Wrap(errs.KindMCPAuth, "Adapter.callTool", "authentication failed for tool "+toolName, err)
	}
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline") {
		return errs.Wrap(errs.KindMCPTimeout, "Adapter.callTool", "tool "+toolName+" call timed out", err)
	}
	return errs.Wrap(errs.KindMCPToolCall, "Adapter.callTool", "tool "+toolName+" call failed", err)
}

// extractRPCError best-effort parses a *mcp.JSONRPCErrorDetails-shaped
// failure out of mcp-go's transport error, which wraps the code/message as
// the error string rather than a typed value. Falls back to no match.
func extractRPCError(err error) (*RPCError, bool) {
	if rpc, ok := AsRPCError(err); ok {
		return rpc, true
	}
	var probe struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	msg := err.Error()
	idx := strings.Index(msg, "{")
	if idx < 0 {
		return nil, false
	}
	if jsonErr := json.Unmarshal([]byte(msg[idx:]), &probe); jsonErr != nil || probe.Code == 0 {
		return nil, false
	}
	return &RPCError{Code: probe.Code, Message: probe.Message}, true
}
