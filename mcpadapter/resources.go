package mcpadapter

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"goa.design/llmcore/errs"
)

// methodNotSupportedMarker is the {_mcpMethodNotSupported:true} sentinel
// spec.md §4.8 requires the resources/prompts passthrough to return instead
// of failing when a connected server's transport doesn't implement the
// method, used for operations with no natural "empty" result shape.
func methodNotSupportedMarker() map[string]any {
	return map[string]any{"_mcpMethodNotSupported": true}
}

func (a *Adapter) conn(key string) (*serverConn, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	conn, ok := a.servers[key]
	if !ok {
		return nil, errs.New(errs.KindMCPConnection, "Adapter", "server "+key+" not connected")
	}
	return conn, nil
}

// ListResources passes through to key's server (spec.md §4.8's "Resources &
// prompts" list), returning an empty slice rather than failing when the
// server doesn't implement the method.
func (a *Adapter) ListResources(ctx context.Context, key string) ([]mcp.Resource, error) {
	conn, err := a.conn(key)
	if err != nil {
		return nil, err
	}
	result, err := conn.client.ListResources(ctx, mcp.ListResourcesRequest{})
	if err != nil {
		if isMethodNotSupported(err) {
			return nil, nil
		}
		return nil, translateRPCError("listResources", err)
	}
	return result.Resources, nil
}

// ReadResource passes through to key's server, returning an empty slice
// rather than failing when the server doesn't implement the method.
func (a *Adapter) ReadResource(ctx context.Context, key, uri string) ([]mcp.ResourceContents, error) {
	conn, err := a.conn(key)
	if err != nil {
		return nil, err
	}
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri
	result, err := conn.client.ReadResource(ctx, req)
	if err != nil {
		if isMethodNotSupported(err) {
			return nil, nil
		}
		return nil, translateRPCError("readResource", err)
	}
	return result.Contents, nil
}

// ListResourceTemplates passes through to key's server, returning an empty
// slice rather than failing when the server doesn't implement the method.
func (a *Adapter) ListResourceTemplates(ctx context.Context, key string) ([]mcp.ResourceTemplate, error) {
	conn, err := a.conn(key)
	if err != nil {
		return nil, err
	}
	result, err := conn.client.ListResourceTemplates(ctx, mcp.ListResourceTemplatesRequest{})
	if err != nil {
		if isMethodNotSupported(err) {
			return nil, nil
		}
		return nil, translateRPCError("listResourceTemplates", err)
	}
	return result.ResourceTemplates, nil
}

// ListPrompts passes through to key's server, returning an empty slice
// rather than failing when the server doesn't implement the method.
func (a *Adapter) ListPrompts(ctx context.Context, key string) ([]mcp.Prompt, error) {
	conn, err := a.conn(key)
	if err != nil {
		return nil, err
	}
	result, err := conn.client.ListPrompts(ctx, mcp.ListPromptsRequest{})
	if err != nil {
		if isMethodNotSupported(err) {
			return nil, nil
		}
		return nil, translateRPCError("listPrompts", err)
	}
	return result.Prompts, nil
}

// GetPrompt passes through to key's server. A single-prompt fetch has no
// natural "empty" shape, so an unsupported method returns the
// {_mcpMethodNotSupported:true} marker instead, per spec.md §4.8.
func (a *Adapter) GetPrompt(ctx context.Context, key, name string, args map[string]string) (any, error) {
	conn, err := a.conn(key)
	if err != nil {
		return nil, err
	}
	req := mcp.GetPromptRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	result, err := conn.client.GetPrompt(ctx, req)
	if err != nil {
		if isMethodNotSupported(err) {
			return methodNotSupportedMarker(), nil
		}
		return nil, translateRPCError("getPrompt", err)
	}
	return result, nil
}

// isMethodNotSupported reports whether err looks like the "method not
// found / unsupported" class spec.md §4.8 says passthrough operations
// should absorb rather than propagate.
func isMethodNotSupported(err error) bool {
	if rpc, ok := extractRPCError(err); ok {
		return rpc.Code == JSONRPCMethodNotFound
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not supported") || strings.Contains(msg, "method not found") || strings.Contains(msg, "unsupported")
}
