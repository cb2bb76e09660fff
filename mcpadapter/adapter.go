package mcpadapter

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"goa.design/llmcore/errs"
	"goa.design/llmcore/model"
	"goa.design/llmcore/retry"
)

// Adapter manages a set of keyed MCP server connections: one mcpClient, its
// transport kind, and its tool cache per server key.
type Adapter struct {
	mu      sync.RWMutex
	servers map[string]*serverConn

	Retry *retry.Manager // defaults to retry.NewManager() when nil
}

type serverConn struct {
	client    mcpClient
	transport string
	tools     map[string]model.ToolDefinition // rewritten name -> definition
	oauth     oauthHandler                     // non-nil when cfg.Auth configured an OAuth provider
}

// New constructs an empty Adapter.
func New() *Adapter {
	return &Adapter{servers: make(map[string]*serverConn), Retry: retry.NewManager()}
}

// Connect establishes a transport to cfg's server, runs the MCP initialize
// handshake, fetches and caches its tool schemas (rewritten per spec.md
// §4.8), and registers the connection under cfg.Key.
func (a *Adapter) Connect(ctx context.Context, cfg ServerConfig) error {
	c, transport, oauth, err := connect(ctx, cfg)
	if err != nil {
		return err
	}

	tools, err := fetchTools(ctx, c, cfg.Key)
	if err != nil {
		_ = c.Close()
		return err
	}

	conn := &serverConn{client: c, transport: transport, tools: tools, oauth: oauth}
	for name, def := range tools {
		original, _ := def.Metadata["originalName"].(string)
		def.Origin = cfg.Key
		def.CallFunction = func(args map[string]any) (any, error) {
			return a.callTool(context.Background(), conn, original, args)
		}
		tools[name] = def
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.servers[cfg.Key] = conn
	return nil
}

// Disconnect closes one server's connection, following spec.md §4.8's stdio
// shutdown sequence (SIGTERM, wait 100ms, SIGKILL if still alive — handled
// internally by the mcp-go stdio transport's Close), and clears its tool
// cache. A no-op for an unknown key.
func (a *Adapter) Disconnect(key string) error {
	a.mu.Lock()
	conn, ok := a.servers[key]
	delete(a.servers, key)
	a.mu.Unlock()
	if !ok {
		return nil
	}
	return conn.client.Close()
}

// DisconnectAll closes every connected server concurrently, since each
// server's shutdown sequence (spec.md §4.8's SIGTERM/wait/SIGKILL for
// stdio transports) can itself take up to 100ms and servers are otherwise
// independent of one another.
func (a *Adapter) DisconnectAll() error {
	a.mu.Lock()
	keys := make([]string, 0, len(a.servers))
	for k := range a.servers {
		keys = append(keys, k)
	}
	a.mu.Unlock()

	var g errgroup.Group
	for _, k := range keys {
		g.Go(func() error { return a.Disconnect(k) })
	}
	return g.Wait()
}

// Get implements tools.Executor: it looks up a rewritten tool name across
// every connected server's cache.
func (a *Adapter) Get(name string) (model.ToolDefinition, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, conn := range a.servers {
		if def, ok := conn.tools[name]; ok {
			return def, true
		}
	}
	return model.ToolDefinition{}, false
}

// ToolSchemas returns every cached tool definition across all connected
// servers, e.g. for GetMcpServerToolSchemas on the root façade.
func (a *Adapter) ToolSchemas() []model.ToolDefinition {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []model.ToolDefinition
	for _, conn := range a.servers {
		for _, def := range conn.tools {
			out = append(out, def)
		}
	}
	return out
}

func (a *Adapter) serverFor(name string) (*serverConn, string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for key, conn := range a.servers {
		if _, ok := conn.tools[name]; ok {
			return conn, key, true
		}
	}
	return nil, "", false
}

// ExecuteTool calls toolName (the server's original, un-rewritten name) on
// the server registered under serverKey, through the same client, retry
// policy, and JSON-RPC error mapping that the CallFunction Connect sets on
// each cached definition uses. It exists as a direct entry point (spec.md
// §4.8's executeTool(serverKey, toolName, args, stream?)) for callers that
// already know the server key and original tool name.
func (a *Adapter) ExecuteTool(ctx context.Context, serverKey, toolName string, args map[string]any) (any, error) {
	conn, err := a.conn(serverKey)
	if err != nil {
		return nil, err
	}
	return a.callTool(ctx, conn, toolName, args)
}

func (a *Adapter) retryManager() *retry.Manager {
	if a.Retry != nil {
		return a.Retry
	}
	return retry.NewManager()
}

func shouldRetryMCPCall(err error, attempt int) bool {
	if rpc, ok := AsRPCError(err); ok {
		switch rpc.Code {
		case JSONRPCInvalidParams, JSONRPCMethodNotFound:
			return false
		}
	}
	if errs.Is(err, errs.KindMCPAuth) {
		return false
	}
	return retry.IsTransient(err) || errs.Is(err, errs.KindMCPTimeout) || errs.Is(err, errs.KindMCPConnection)
}
