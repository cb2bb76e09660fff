// Package anthropic adapts Anthropic's Messages API to the provider.Provider
// interface using the official anthropic-sdk-go client.
package anthropic

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"goa.design/llmcore/model"
	"goa.design/llmcore/provider"
)

// Adapter implements provider.Provider over anthropic-sdk-go.
type Adapter struct {
	client anthropic.Client
}

// New constructs an Adapter. apiKey may be empty to use the SDK's default
// ANTHROPIC_API_KEY environment lookup.
func New(apiKey string) *Adapter {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	return &Adapter{client: anthropic.NewClient(opts...)}
}

func (a *Adapter) Name() string { return "anthropic" }

func (a *Adapter) ChatCall(ctx context.Context, modelName string, params model.Params) (model.Response, error) {
	req := convertToProviderParams(modelName, params)
	msg, err := a.client.Messages.New(ctx, req)
	if err != nil {
		return model.Response{}, translateError(err)
	}
	return convertFromProviderResponse(msg), nil
}

func (a *Adapter) StreamCall(ctx context.Context, modelName string, params model.Params) (provider.Stream, error) {
	req := convertToProviderParams(modelName, params)
	stream := a.client.Messages.NewStreaming(ctx, req)
	return &streamAdapter{stream: stream}, nil
}

func (a *Adapter) ImageCall(ctx context.Context, modelName string, params model.Params) (model.Response, error) {
	return model.Response{}, provider.NewError(a.Name(), provider.KindInvalidRequest, 0, "anthropic adapter does not support image generation", nil)
}

func (a *Adapter) EmbeddingsCall(ctx context.Context, modelName string, input []string) ([][]float64, error) {
	return nil, provider.NewError(a.Name(), provider.KindInvalidRequest, 0, "anthropic adapter does not support embeddings", nil)
}

func (a *Adapter) SupportsImageGeneration() bool { return false }
func (a *Adapter) SupportsEmbeddings() bool       { return false }
