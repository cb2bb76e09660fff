package tools

import (
	"context"
	"encoding/json"
	"strings"

	"goa.design/llmcore/controller"
	"goa.design/llmcore/errs"
	"goa.design/llmcore/history"
	"goa.design/llmcore/model"
)

// Orchestrator is ToolOrchestrator (spec.md §4.7): resubmits tool results to
// the model in a loop until it answers without further tool calls or the
// iteration limit is reached.
type Orchestrator struct {
	Chat       *controller.ChatController
	Tools      *Controller
	History    *history.Manager
	Registry   *model.Registry

	MaxIterations int // default 10 when zero
	// MaxHistoryLength bounds the conversation log the orchestrator keeps
	// resubmitting; once exceeded, history is trimmed to the system message
	// plus the most recent MaxHistoryLength messages. Default 50 when zero,
	// an Open Question spec.md §4.7 leaves unspecified (see DESIGN.md).
	MaxHistoryLength int
}

func (o *Orchestrator) maxIterations() int {
	if o.MaxIterations > 0 {
		return o.MaxIterations
	}
	return 10
}

func (o *Orchestrator) maxHistoryLength() int {
	if o.MaxHistoryLength > 0 {
		return o.MaxHistoryLength
	}
	return 50
}

// Run drives the loop described in spec.md §4.7 starting from an initial
// response already produced by one ChatController.Execute call.
func (o *Orchestrator) Run(ctx context.Context, modelName string, params model.Params, initial model.Response) (model.Response, error) {
	resp := initial
	for iteration := 0; ; iteration++ {
		results := o.Tools.ProcessToolCalls(ctx, resp)
		if len(results) == 0 {
			return resp, nil
		}
		if iteration >= o.maxIterations() {
			return model.Response{}, errs.New(errs.KindToolIterationLimit, "Orchestrator.Run",
				"tool call loop exceeded max iterations")
		}

		if resp.Content != nil {
			if visible := strings.TrimSpace(StripInlineMarkers(*resp.Content)); visible != "" {
				o.History.AddMessage(model.RoleAssistant, *resp.Content)
			}
		}

		for _, r := range results {
			o.History.AddMessage(model.RoleTool, toolResultText(r), func(m *model.Message) {
				m.Name = r.Name
				m.ToolCallID = r.ToolCallID
			})
		}

		o.trimHistory()

		info, err := o.Registry.Get(modelName)
		if err != nil {
			return model.Response{}, err
		}
		nextParams := params
		nextParams.Messages = o.History.Messages(info)

		resp, err = o.Chat.Execute(ctx, modelName, nextParams)
		if err != nil {
			return model.Response{}, err
		}
	}
}

// toolResultText renders a Result as the string content of its tool-role
// history message: the value on success, the error text on failure so a
// tool error propagates to the model as ordinary tool output rather than
// aborting the loop, per spec.md §4.7's "tool error that propagates as
// message (continue)" terminal condition.
func toolResultText(r Result) string {
	if r.Err != nil {
		return r.Err.Error()
	}
	if s, ok := r.Value.(string); ok {
		return s
	}
	b, err := json.Marshal(r.Value)
	if err != nil {
		return ""
	}
	return string(b)
}

func (o *Orchestrator) trimHistory() {
	msgs := o.History.GetMessages()
	if len(msgs) <= o.maxHistoryLength() {
		return
	}
	o.History.SetHistoricalMessages(msgs[len(msgs)-o.maxHistoryLength():])
}
