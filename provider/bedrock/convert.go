package bedrock

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"goa.design/llmcore/model"
)

func convertToProviderParams(modelName string, params model.Params) *bedrockruntime.ConverseInput {
	input := &bedrockruntime.ConverseInput{ModelId: aws.String(modelName)}

	for _, msg := range params.Messages {
		if msg.Role == model.RoleSystem {
			input.System = append(input.System, &types.SystemContentBlockMemberText{Value: msg.Content.Text()})
			continue
		}
		input.Messages = append(input.Messages, convertMessage(msg))
	}

	cfg := &types.InferenceConfiguration{}
	if params.Settings.Temperature != nil {
		t := float32(*params.Settings.Temperature)
		cfg.Temperature = &t
	}
	if params.Settings.MaxTokens != nil {
		mt := int32(*params.Settings.MaxTokens)
		cfg.MaxTokens = &mt
	}
	input.InferenceConfig = cfg

	return input
}

func convertToProviderStreamParams(modelName string, params model.Params) *bedrockruntime.ConverseStreamInput {
	chat := convertToProviderParams(modelName, params)
	return &bedrockruntime.ConverseStreamInput{
		ModelId:         chat.ModelId,
		Messages:        chat.Messages,
		System:          chat.System,
		InferenceConfig: chat.InferenceConfig,
	}
}

func convertMessage(msg model.Message) types.Message {
	role := types.ConversationRoleUser
	if msg.Role == model.RoleAssistant {
		role = types.ConversationRoleAssistant
	}
	return types.Message{
		Role:    role,
		Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: msg.Content.Text()}},
	}
}

func convertFromProviderResponse(out *bedrockruntime.ConverseOutput) model.Response {
	var text string
	if msgOut, ok := out.Output.(*types.ConverseOutputMemberMessage); ok {
		for _, block := range msgOut.Value.Content {
			if tb, ok := block.(*types.ContentBlockMemberText); ok {
				text += tb.Value
			}
		}
	}

	finish := convertFinishReason(out.StopReason)
	content := text
	usage := model.Usage{}
	if out.Usage != nil {
		usage.Tokens.Input.Total = int(aws.ToInt32(out.Usage.InputTokens))
		usage.Tokens.Output.Total = int(aws.ToInt32(out.Usage.OutputTokens))
		usage.Tokens.Total = int(aws.ToInt32(out.Usage.TotalTokens))
	}

	return model.Response{
		Role:     model.RoleAssistant,
		Content:  &content,
		Metadata: model.Metadata{FinishReason: finish, Usage: &usage},
	}
}

func convertFinishReason(r types.StopReason) model.FinishReason {
	switch r {
	case types.StopReasonMaxTokens:
		return model.FinishLength
	case types.StopReasonToolUse:
		return model.FinishToolCalls
	case types.StopReasonContentFiltered:
		return model.FinishContentFilter
	case types.StopReasonEndTurn, types.StopReasonStopSequence:
		return model.FinishStop
	default:
		return model.FinishNull
	}
}
