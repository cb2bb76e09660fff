package tools

import (
	"context"
	"encoding/json"
	"regexp"

	"goa.design/llmcore/errs"
	"goa.design/llmcore/model"
	"goa.design/llmcore/telemetry"
)

// inlineToolMarker matches the <tool>NAME:JSON_ARGS</tool> textual surface
// spec.md §4.7 requires ToolController to parse alongside native structured
// tool calls. The pattern is fixed: no field or option replaces it.
var inlineToolMarker = regexp.MustCompile(`(?s)<tool>([A-Za-z0-9_]+):(.*?)</tool>`)

// Executor looks up and runs one tool call by name. Manager implements it
// for local tools; mcpadapter.Adapter implements it for MCP-origin tools
// (ToolDefinition.Origin is the MCP server key in that case).
type Executor interface {
	Get(name string) (model.ToolDefinition, bool)
}

// Result is the {toolCallId, name, parameters, result|error} record
// spec.md §4.7 requires ToolController to collect per executed call.
type Result struct {
	ToolCallID string
	Name       string
	Parameters map[string]any
	Value      any
	Err        error
}

// Controller is ToolController: parses a response's native and inline tool
// calls, dispatches each to the registry or MCP adapter that owns it, and
// runs execution.
type Controller struct {
	Local         Executor
	MCP           Executor // may be nil when no MCP servers are connected
	MaxIterations int      // default 10 when zero

	// Telemetry, when set, opens one gen_ai.execute_tool span per executed
	// call (spec.md §4.12), mirroring the span Caller.CallMcpTool already
	// opens for direct MCP invocations.
	Telemetry *telemetry.OtelService
}

func (c *Controller) maxIterations() int {
	if c.MaxIterations > 0 {
		return c.MaxIterations
	}
	return 10
}

// ParseToolCalls returns a response's tool calls. Native tool calls take
// precedence: when native is non-empty it is returned as is (in provider
// order) and inline markers in content are ignored. Otherwise the inline
// <tool>NAME:JSON_ARGS</tool> markers found in content are returned in
// textual order.
func ParseToolCalls(content string, native []model.ToolCall) []model.ToolCall {
	calls := append([]model.ToolCall(nil), native...)
	if len(calls) > 0 {
		return calls
	}
	for _, m := range inlineToolMarker.FindAllStringSubmatch(content, -1) {
		name, rawArgs := m[1], m[2]
		var args map[string]any
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			args = map[string]any{"value": rawArgs}
		}
		calls = append(calls, model.ToolCall{Name: name, Arguments: args})
	}
	return calls
}

// StripInlineMarkers removes every <tool>...</tool> marker from content,
// returning the user-visible text surrounding them.
func StripInlineMarkers(content string) string {
	return inlineToolMarker.ReplaceAllString(content, "")
}

// Execute runs one parsed tool call against whichever registry owns its
// name (Local is searched first, then MCP; Origin is not consulted),
// coercing arguments isn't performed here beyond the JSON decode already
// done by ParseToolCalls — schema coercion against the declared parameter
// schema happens in CallFunction implementations themselves, which is where
// the teacher's generated tool codecs (runtime/agent/tools.JSONCodec) do the
// analogous decode-and-validate step.
func (c *Controller) Execute(ctx context.Context, call model.ToolCall) Result {
	var endTool func(error)
	if c.Telemetry != nil {
		_, endTool = c.Telemetry.StartTool(ctx, call.Name, call.ID, call.Arguments)
	}

	def, ok := c.lookup(call.Name)
	if !ok {
		err := errs.New(errs.KindToolNotFound, "Controller.Execute", "tool "+call.Name+" not registered")
		if endTool != nil {
			endTool(err)
		}
		return Result{ToolCallID: call.ID, Name: call.Name, Parameters: call.Arguments, Err: err}
	}
	if def.CallFunction == nil {
		err := errs.New(errs.KindToolExecution, "Controller.Execute", "tool "+call.Name+" has no executable function")
		if endTool != nil {
			endTool(err)
		}
		return Result{ToolCallID: call.ID, Name: call.Name, Parameters: call.Arguments, Err: err}
	}
	value, err := def.CallFunction(call.Arguments)
	if err != nil {
		wrapped := errs.Wrap(errs.KindToolExecution, "Controller.Execute", "tool "+call.Name+" execution failed", err)
		if endTool != nil {
			endTool(wrapped)
		}
		return Result{ToolCallID: call.ID, Name: call.Name, Parameters: call.Arguments, Err: wrapped}
	}
	if endTool != nil {
		endTool(nil)
	}
	return Result{ToolCallID: call.ID, Name: call.Name, Parameters: call.Arguments, Value: value}
}

func (c *Controller) lookup(name string) (model.ToolDefinition, bool) {
	if c.Local != nil {
		if def, ok := c.Local.Get(name); ok {
			return def, ok
		}
	}
	if c.MCP != nil {
		if def, ok := c.MCP.Get(name); ok {
			return def, ok
		}
	}
	return model.ToolDefinition{}, false
}

// ProcessToolCalls parses and executes every tool call carried by resp,
// returning one Result per call in parse order.
func (c *Controller) ProcessToolCalls(ctx context.Context, resp model.Response) []Result {
	content := ""
	if resp.Content != nil {
		content = *resp.Content
	}
	calls := ParseToolCalls(content, resp.ToolCalls)
	results := make([]Result, 0, len(calls))
	for _, call := range calls {
		results = append(results, c.Execute(ctx, call))
	}
	return results
}
