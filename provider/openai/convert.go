package openai

import (
	"encoding/json"

	"github.com/openai/openai-go"

	"goa.design/llmcore/model"
)

// convertToProviderParams is a pure function translating the universal
// params into openai-go's request shape.
func convertToProviderParams(modelName string, params model.Params) openai.ChatCompletionNewParams {
	req := openai.ChatCompletionNewParams{Model: openai.ChatModel(modelName)}

	for _, msg := range params.Messages {
		req.Messages = append(req.Messages, convertMessage(msg))
	}

	if params.Settings.Temperature != nil {
		req.Temperature = openai.Float(*params.Settings.Temperature)
	}
	if params.Settings.TopP != nil {
		req.TopP = openai.Float(*params.Settings.TopP)
	}
	if params.Settings.MaxTokens != nil {
		req.MaxTokens = openai.Int(int64(*params.Settings.MaxTokens))
	}
	if len(params.Settings.Stop) > 0 {
		req.Stop = openai.ChatCompletionNewParamsStopUnion{OfStringArray: params.Settings.Stop}
	}

	if params.ResponseFormat == model.ResponseFormatJSON {
		req.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		}
	}

	for _, t := range params.Tools {
		req.Tools = append(req.Tools, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  toFunctionParameters(t.Parameters),
			},
		})
	}

	return req
}

func toFunctionParameters(schema any) openai.FunctionParameters {
	b, err := json.Marshal(schema)
	if err != nil {
		return openai.FunctionParameters{}
	}
	var params openai.FunctionParameters
	_ = json.Unmarshal(b, &params)
	return params
}

func convertMessage(msg model.Message) openai.ChatCompletionMessageParamUnion {
	switch msg.Role {
	case model.RoleSystem:
		return openai.SystemMessage(msg.Content.Text())
	case model.RoleAssistant:
		return openai.AssistantMessage(msg.Content.Text())
	case model.RoleTool:
		return openai.ToolMessage(msg.Content.Text(), msg.ToolCallID)
	default:
		return openai.UserMessage(msg.Content.Text())
	}
}

// convertFromProviderResponse is a pure function translating an OpenAI
// ChatCompletion back into the universal envelope.
func convertFromProviderResponse(resp *openai.ChatCompletion) model.Response {
	if len(resp.Choices) == 0 {
		return model.Response{Role: model.RoleAssistant, Metadata: model.Metadata{FinishReason: model.FinishNull}}
	}
	choice := resp.Choices[0]

	var toolCalls []model.ToolCall
	for _, tc := range choice.Message.ToolCalls {
		var args map[string]any
		_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
		toolCalls = append(toolCalls, model.ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: args})
	}

	content := choice.Message.Content
	return model.Response{
		Role:      model.RoleAssistant,
		Content:   &content,
		ToolCalls: toolCalls,
		Metadata: model.Metadata{
			FinishReason: convertFinishReason(choice.FinishReason),
			Model:        resp.Model,
			Usage: &model.Usage{
				Tokens: model.TokenCounts{
					Input:  model.TokenSide{Total: int(resp.Usage.PromptTokens)},
					Output: model.TokenSide{Total: int(resp.Usage.CompletionTokens)},
					Total:  int(resp.Usage.TotalTokens),
				},
			},
		},
	}
}

func convertFinishReason(r string) model.FinishReason {
	switch r {
	case "length":
		return model.FinishLength
	case "tool_calls":
		return model.FinishToolCalls
	case "content_filter":
		return model.FinishContentFilter
	case "stop":
		return model.FinishStop
	default:
		return model.FinishNull
	}
}
