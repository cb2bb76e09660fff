// Package llmcore is the orchestration engine described in spec.md: a
// unified façade in front of heterogeneous LLM providers. Caller wires the
// model registry, request chunker, chat/stream controllers, tool
// orchestrator, MCP adapter, usage tracker, and telemetry service together
// behind the single entry point spec.md §6 describes, grounded on the
// teacher's top-level plugin.go / runtime wiring style: one constructor
// assembling every collaborator, no global state.
package llmcore

import (
	"context"
	"iter"

	"github.com/mark3labs/mcp-go/mcp"

	"goa.design/llmcore/controller"
	"goa.design/llmcore/errs"
	"goa.design/llmcore/history"
	"goa.design/llmcore/mcpadapter"
	"goa.design/llmcore/model"
	"goa.design/llmcore/provider"
	"goa.design/llmcore/provider/anthropic"
	"goa.design/llmcore/provider/openai"
	"goa.design/llmcore/request"
	"goa.design/llmcore/retry"
	"goa.design/llmcore/schema"
	"goa.design/llmcore/telemetry"
	"goa.design/llmcore/tools"
	"goa.design/llmcore/usage"
)

// Options configures a Caller at construction time. All fields are
// optional; zero values fall back to a sane default (a fresh in-memory
// registry, no-op telemetry, the package's own retry defaults).
type Options struct {
	// APIKey is forwarded to the built-in anthropic/openai adapters. Ignored
	// when Provider is set.
	APIKey string

	// Provider overrides the adapter New resolves from ProviderName,
	// required for providers this module doesn't construct directly (e.g.
	// bedrock, which needs an aws.Config) or for test doubles.
	Provider provider.Provider

	// Models seeds the model registry at construction time; additional
	// models can be registered later via Caller.AddModel.
	Models []model.Info

	CallerID      string
	UsageCallback usage.Callback
	Settings      model.Settings
	Telemetry     *telemetry.OtelService

	MaxChunkIterations int
	MaxToolIterations  int
	MaxHistoryLength   int
}

// Caller is the LLMCaller façade spec.md §6 describes. A single instance's
// Call/Stream must not be invoked concurrently with each other or with
// itself (HistoryManager and the tool controller's iteration counters are
// shared, unsynchronized state per spec.md §5's serialization contract);
// distinct Caller instances are fully independent and safe to run in
// parallel.
type Caller struct {
	registry   *model.Registry
	providers  *provider.Manager
	history    *history.Manager
	validator  *schema.Validator
	retryMgr   *retry.Manager
	chat       *controller.ChatController
	stream     *controller.StreamController
	chunk      *controller.ChunkController
	toolsMgr   *tools.Manager
	toolsCtl   *tools.Controller
	orch       *tools.Orchestrator
	mcp        *mcpadapter.Adapter
	usage      *usage.Tracker
	telemetry  *telemetry.OtelService
	callerID   string
	defaultSel string // model name or alias passed to New
	settings   model.Settings
}

// New constructs a Caller for providerName (e.g. "anthropic", "openai"),
// defaulting subsequent calls to modelOrAlias (a concrete model name or one
// of model.AliasCheap/Fast/Balanced/Premium) unless overridden per call via
// Input.Model. systemMessage, if non-empty, is pinned as HistoryManager's
// system message.
func New(providerName, modelOrAlias, systemMessage string, opts Options) (*Caller, error) {
	prov := opts.Provider
	if prov == nil {
		var err error
		prov, err = builtinProvider(providerName, opts.APIKey)
		if err != nil {
			return nil, err
		}
	}

	registry := model.NewRegistry(providerName)
	for _, info := range opts.Models {
		registry.Add(info)
	}

	hist := history.NewManager(opts.Settings.HistoryMode)
	if systemMessage != "" {
		hist.SetSystem(systemMessage)
	}

	validator := schema.NewValidator()
	retryMgr := retry.NewManager()
	providers := provider.NewManager(prov)

	tel := opts.Telemetry
	if tel == nil {
		tel = telemetry.NewOtelService(nil, nil, nil)
	}

	chat := &controller.ChatController{Registry: registry, Provider: providers, Retry: retryMgr, History: hist, Validator: validator, Telemetry: tel}
	streamCtl := &controller.StreamController{Registry: registry, Provider: providers, Retry: retryMgr, History: hist, Validator: validator, Telemetry: tel}
	chunkCtl := &controller.ChunkController{Chat: chat, Stream: streamCtl, Registry: registry, History: hist, MaxIterations: opts.MaxChunkIterations}

	toolsMgr := tools.NewManager()
	mcp := mcpadapter.New()
	toolsCtl := &tools.Controller{Local: toolsMgr, MCP: mcp, MaxIterations: opts.MaxToolIterations, Telemetry: tel}
	orch := &tools.Orchestrator{Chat: chat, Tools: toolsCtl, History: hist, Registry: registry, MaxIterations: opts.MaxToolIterations, MaxHistoryLength: opts.MaxHistoryLength}

	return &Caller{
		registry: registry, providers: providers, history: hist, validator: validator,
		retryMgr: retryMgr, chat: chat, stream: streamCtl, chunk: chunkCtl,
		toolsMgr: toolsMgr, toolsCtl: toolsCtl, orch: orch, mcp: mcp,
		usage: usage.NewTracker(opts.UsageCallback), telemetry: tel,
		callerID: opts.CallerID, defaultSel: modelOrAlias, settings: opts.Settings,
	}, nil
}

func builtinProvider(providerName, apiKey string) (provider.Provider, error) {
	switch providerName {
	case "anthropic":
		return anthropic.New(apiKey), nil
	case "openai":
		return openai.New(apiKey), nil
	default:
		return nil, errs.New(errs.KindValidation, "New",
			"provider "+providerName+" has no built-in constructor; pass Options.Provider")
	}
}

// Input is the caller-facing {message, data?, endingMessage?, ...} shape
// accepted by Call/Stream, spec.md §6.
type Input struct {
	Text          string
	Data          any
	EndingMessage string

	Model          string // overrides the Caller's default model/alias for this call
	Requirements   model.Requirements
	Tools          []model.ToolDefinition
	JSONSchema     *model.JSONSchema
	ResponseFormat model.ResponseFormat
	HistoryMode    model.HistoryMode
	Settings       *model.Settings // overrides Caller-level settings when set
}

// resolveModel picks the concrete model name for in: in.Model if set,
// otherwise the Caller's default (resolved through ModelSelector when it
// names an alias rather than a literal registered model).
func (c *Caller) resolveModel(in Input) (string, model.Info, error) {
	name := in.Model
	if name == "" {
		name = c.defaultSel
	}
	if info, err := c.registry.Get(name); err == nil {
		return name, info, nil
	}
	selected, err := model.SelectModel(c.registry.All(), model.Alias(name), in.Requirements)
	if err != nil {
		return "", model.Info{}, err
	}
	info, err := c.registry.Get(selected)
	return selected, info, err
}

func (c *Caller) buildParams(in Input, modelName string) model.Params {
	settings := c.settings
	if in.Settings != nil {
		settings = *in.Settings
	}
	toolDefs := append([]model.ToolDefinition(nil), c.toolsMgr.Definitions()...)
	toolDefs = append(toolDefs, in.Tools...)
	return model.Params{
		Model:          modelName,
		Settings:       settings,
		Tools:          toolDefs,
		JSONSchema:     in.JSONSchema,
		ResponseFormat: in.ResponseFormat,
		CallerID:       c.callerID,
	}
}

// Call is the synchronous entry point: compose in into one or more prompts,
// run each through ChatController via ChunkController, and resubmit through
// ToolOrchestrator whenever the model requests tool calls. Always returns a
// slice, even for a single response, per spec.md §6/§7.
func (c *Caller) Call(ctx context.Context, in Input) ([]model.Response, error) {
	modelName, info, err := c.resolveModel(in)
	if err != nil {
		return nil, err
	}
	params := c.buildParams(in, modelName)

	ctx, endConv := c.telemetry.StartConversation(ctx, c.callerID)
	defer endConv.End()

	maxResponseTokens := info.MaxResponseTokens
	prompts := request.Compose(request.Input{Message: in.Text, Data: in.Data, EndingMessage: in.EndingMessage}, info, maxResponseTokens)

	responses, err := c.chunk.ProcessChunks(ctx, modelName, prompts, params)
	if err != nil {
		return nil, err
	}

	for i, resp := range responses {
		final, err := c.orch.Run(ctx, modelName, params, resp)
		if err != nil {
			return nil, err
		}
		responses[i] = final
		if final.Metadata.Usage != nil {
			c.usage.Record(*final.Metadata.Usage)
		}
	}
	return responses, nil
}

// Stream is the streaming entry point: symmetric to Call, routed through
// StreamController/ChunkController.StreamChunks. Tool calls surfaced mid
// stream are not auto-resubmitted the way Call's ToolOrchestrator does;
// spec.md §4.4/§4.5 describe StreamBuffer emitting ToolCalls for the caller
// to execute and resubmit as a new Stream/Call, consistent with "exactly
// one emitted ToolCall" being an observation, not an action.
func (c *Caller) Stream(ctx context.Context, in Input) iter.Seq2[model.StreamResponse, error] {
	modelName, info, err := c.resolveModel(in)
	if err != nil {
		return func(yield func(model.StreamResponse, error) bool) { yield(model.StreamResponse{}, err) }
	}
	params := c.buildParams(in, modelName)
	maxResponseTokens := info.MaxResponseTokens
	prompts := request.Compose(request.Input{Message: in.Text, Data: in.Data, EndingMessage: in.EndingMessage}, info, maxResponseTokens)

	return func(yield func(model.StreamResponse, error) bool) {
		ctx, endConv := c.telemetry.StartConversation(ctx, c.callerID)
		defer endConv.End()

		c.chunk.StreamChunks(ctx, modelName, prompts, params)(func(r model.StreamResponse, err error) bool {
			if err == nil && r.Metadata.Usage != nil {
				c.usage.RecordStreamDelta(*r.Metadata.Usage)
			}
			return yield(r, err)
		})
	}
}

// AddTool registers a local tool definition.
func (c *Caller) AddTool(def model.ToolDefinition) { c.toolsMgr.Add(def) }

// AddTools registers multiple local tool definitions at once.
func (c *Caller) AddTools(defs []model.ToolDefinition) { c.toolsMgr.AddAll(defs) }

// RemoveTool unregisters a local tool by name.
func (c *Caller) RemoveTool(name string) { c.toolsMgr.Remove(name) }

// UpdateTool mutates an existing local tool's definition.
func (c *Caller) UpdateTool(name string, fn func(*model.ToolDefinition)) error {
	return c.toolsMgr.Update(name, fn)
}

// GetTool looks up a local tool by name.
func (c *Caller) GetTool(name string) (model.ToolDefinition, bool) { return c.toolsMgr.Get(name) }

// ListTools returns every registered local tool.
func (c *Caller) ListTools() []model.ToolDefinition { return c.toolsMgr.List() }

// ConnectToMcpServer establishes a connection to a configured MCP server and
// caches its tool schemas, after which its tools participate in ToolCalls
// the same as local ones (looked up by rewritten name).
func (c *Caller) ConnectToMcpServer(ctx context.Context, cfg mcpadapter.ServerConfig) error {
	return c.mcp.Connect(ctx, cfg)
}

// CallMcpTool invokes one MCP tool directly by server key and original
// (pre-rewrite) tool name, bypassing the ToolController dispatch path.
func (c *Caller) CallMcpTool(ctx context.Context, serverKey, toolName string, args map[string]any) (any, error) {
	ctx, done := c.telemetry.StartTool(ctx, toolName, "", args)
	value, err := c.mcp.ExecuteTool(ctx, serverKey, toolName, args)
	done(err)
	return value, err
}

// GetMcpServerToolSchemas returns every cached tool definition across all
// connected MCP servers.
func (c *Caller) GetMcpServerToolSchemas() []model.ToolDefinition { return c.mcp.ToolSchemas() }

// DisconnectMcpServers closes every connected MCP server.
func (c *Caller) DisconnectMcpServers() error { return c.mcp.DisconnectAll() }

// ListMcpResources lists the resources exposed by a connected MCP server.
func (c *Caller) ListMcpResources(ctx context.Context, serverKey string) ([]mcp.Resource, error) {
	return c.mcp.ListResources(ctx, serverKey)
}

// ReadMcpResource reads one resource by URI from a connected MCP server.
func (c *Caller) ReadMcpResource(ctx context.Context, serverKey, uri string) ([]mcp.ResourceContents, error) {
	return c.mcp.ReadResource(ctx, serverKey, uri)
}

// ListMcpResourceTemplates lists the resource templates exposed by a
// connected MCP server.
func (c *Caller) ListMcpResourceTemplates(ctx context.Context, serverKey string) ([]mcp.ResourceTemplate, error) {
	return c.mcp.ListResourceTemplates(ctx, serverKey)
}

// ListMcpPrompts lists the prompts exposed by a connected MCP server.
func (c *Caller) ListMcpPrompts(ctx context.Context, serverKey string) ([]mcp.Prompt, error) {
	return c.mcp.ListPrompts(ctx, serverKey)
}

// GetMcpPrompt fetches one named prompt, with its arguments filled in, from
// a connected MCP server.
func (c *Caller) GetMcpPrompt(ctx context.Context, serverKey, name string, args map[string]string) (any, error) {
	return c.mcp.GetPrompt(ctx, serverKey, name, args)
}

// CompleteMcpAuthentication finishes the OAuth authorization-code flow for
// a server connected with an OAuthConfig.
func (c *Caller) CompleteMcpAuthentication(ctx context.Context, serverKey, code string) error {
	return c.mcp.CompleteAuthentication(ctx, serverKey, code)
}

// GetModel resolves nameOrAlias against the registry (literal name or
// ModelSelector alias) without performing a call.
func (c *Caller) GetModel(nameOrAlias string, requirements model.Requirements) (model.Info, error) {
	if info, err := c.registry.Get(nameOrAlias); err == nil {
		return info, nil
	}
	name, err := model.SelectModel(c.registry.All(), model.Alias(nameOrAlias), requirements)
	if err != nil {
		return model.Info{}, err
	}
	return c.registry.Get(name)
}

// GetAvailableModels returns every model registered with this Caller.
func (c *Caller) GetAvailableModels() []model.Info { return c.registry.All() }

// AddModel registers a new model's info.
func (c *Caller) AddModel(info model.Info) { c.registry.Add(info) }

// UpdateModel mutates an existing model's info via fn.
func (c *Caller) UpdateModel(name string, fn func(*model.Info)) error {
	return c.registry.Update(name, fn)
}

// SetModel hot-swaps the active provider (when prov is non-nil) and/or the
// Caller's default model-or-alias selector.
func (c *Caller) SetModel(prov provider.Provider, nameOrAlias string) {
	if prov != nil {
		c.providers.SwitchProvider(prov)
	}
	if nameOrAlias != "" {
		c.defaultSel = nameOrAlias
	}
}

// AddMessage appends a message to the conversation history directly,
// bypassing Call/Stream (e.g. to seed few-shot examples).
func (c *Caller) AddMessage(role model.Role, content string, extras ...func(*model.Message)) {
	c.history.AddMessage(role, content, extras...)
}

// GetMessages returns the provider-ready message list HistoryManager would
// send on the next call, including the pinned system message.
func (c *Caller) GetMessages() []model.Message {
	_, info, err := c.resolveModel(Input{})
	if err != nil {
		info = model.Info{}
	}
	return c.history.Messages(info)
}

// GetHistoricalMessages returns the raw (untruncated) conversation, not
// including the system message.
func (c *Caller) GetHistoricalMessages() []model.Message { return c.history.GetMessages() }

// ClearHistory drops every non-system message.
func (c *Caller) ClearHistory() { c.history.Clear() }

// SetHistoricalMessages replaces the conversation wholesale.
func (c *Caller) SetHistoricalMessages(msgs []model.Message) { c.history.SetHistoricalMessages(msgs) }

// SerializeHistory encodes the conversation (not the system message) to JSON.
func (c *Caller) SerializeHistory() ([]byte, error) { return c.history.SerializeHistory() }

// DeserializeHistory decodes and installs a conversation previously produced
// by SerializeHistory.
func (c *Caller) DeserializeHistory(data []byte) error { return c.history.DeserializeHistory(data) }

// SetCallerID changes the caller identifier attached to subsequent calls'
// telemetry and Params.CallerID.
func (c *Caller) SetCallerID(id string) { c.callerID = id }

// SetUsageCallback replaces the usage-tracking callback.
func (c *Caller) SetUsageCallback(cb usage.Callback) { c.usage.SetCallback(cb) }

// UpdateSettings replaces the Caller-level default Settings used by Call/
// Stream when Input.Settings is nil.
func (c *Caller) UpdateSettings(settings model.Settings) { c.settings = settings }
