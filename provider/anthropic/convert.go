package anthropic

import (
	"github.com/anthropics/anthropic-sdk-go"

	"goa.design/llmcore/model"
	"goa.design/llmcore/provider"
)

// convertToProviderParams is a pure function translating the universal
// params into the shape anthropic-sdk-go expects. Per spec.md §6, provider
// conversion functions carry no I/O and no retry logic.
func convertToProviderParams(modelName string, params model.Params) anthropic.MessageNewParams {
	req := anthropic.MessageNewParams{
		Model:     anthropic.Model(modelName),
		MaxTokens: defaultMaxTokens(params),
	}

	for _, msg := range params.Messages {
		if msg.Role == model.RoleSystem {
			req.System = []anthropic.TextBlockParam{{Text: msg.Content.Text()}}
			continue
		}
		req.Messages = append(req.Messages, convertMessage(msg))
	}

	if params.Settings.Temperature != nil {
		req.Temperature = anthropic.Float(*params.Settings.Temperature)
	}
	if params.Settings.TopP != nil {
		req.TopP = anthropic.Float(*params.Settings.TopP)
	}
	if len(params.Settings.Stop) > 0 {
		req.StopSequences = params.Settings.Stop
	}

	for _, t := range params.Tools {
		req.Tools = append(req.Tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
			},
		})
	}

	return req
}

func defaultMaxTokens(params model.Params) int64 {
	if params.Settings.MaxTokens != nil {
		return int64(*params.Settings.MaxTokens)
	}
	return 4096
}

func convertMessage(msg model.Message) anthropic.MessageParam {
	role := anthropic.MessageParamRoleUser
	if msg.Role == model.RoleAssistant {
		role = anthropic.MessageParamRoleAssistant
	}
	return anthropic.MessageParam{
		Role:    role,
		Content: []anthropic.ContentBlockParamUnion{{OfText: &anthropic.TextBlockParam{Text: msg.Content.Text()}}},
	}
}

// convertFromProviderResponse is a pure function translating an Anthropic
// Message back into the universal envelope.
func convertFromProviderResponse(msg *anthropic.Message) model.Response {
	var text string
	var toolCalls []model.ToolCall
	for _, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			text += v.Text
		case anthropic.ToolUseBlock:
			args, _ := v.Input.(map[string]any)
			toolCalls = append(toolCalls, model.ToolCall{ID: v.ID, Name: v.Name, Arguments: args})
		}
	}

	finish := model.FinishStop
	switch msg.StopReason {
	case anthropic.StopReasonMaxTokens:
		finish = model.FinishLength
	case anthropic.StopReasonToolUse:
		finish = model.FinishToolCalls
	}

	content := text
	return model.Response{
		Role:      model.RoleAssistant,
		Content:   &content,
		ToolCalls: toolCalls,
		Metadata: model.Metadata{
			FinishReason: finish,
			Model:        string(msg.Model),
			Usage: &model.Usage{
				Tokens: model.TokenCounts{
					Input:  model.TokenSide{Total: int(msg.Usage.InputTokens), Cached: int(msg.Usage.CacheReadInputTokens)},
					Output: model.TokenSide{Total: int(msg.Usage.OutputTokens)},
					Total:  int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
				},
			},
		},
	}
}

func translateError(err error) error {
	return provider.NewError("anthropic", provider.KindUnknown, 0, "anthropic request failed", err)
}
