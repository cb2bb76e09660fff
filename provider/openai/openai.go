// Package openai adapts the Chat Completions API to the provider.Provider
// interface using the official openai-go client.
package openai

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"goa.design/llmcore/model"
	"goa.design/llmcore/provider"
)

// Adapter implements provider.Provider over openai-go.
type Adapter struct {
	client openai.Client
}

// New constructs an Adapter. apiKey may be empty to use the SDK's default
// OPENAI_API_KEY environment lookup.
func New(apiKey string) *Adapter {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	return &Adapter{client: openai.NewClient(opts...)}
}

func (a *Adapter) Name() string { return "openai" }

func (a *Adapter) ChatCall(ctx context.Context, modelName string, params model.Params) (model.Response, error) {
	req := convertToProviderParams(modelName, params)
	resp, err := a.client.Chat.Completions.New(ctx, req)
	if err != nil {
		return model.Response{}, translateError(err)
	}
	return convertFromProviderResponse(resp), nil
}

func (a *Adapter) StreamCall(ctx context.Context, modelName string, params model.Params) (provider.Stream, error) {
	req := convertToProviderParams(modelName, params)
	stream := a.client.Chat.Completions.NewStreaming(ctx, req)
	return &streamAdapter{stream: stream}, nil
}

func (a *Adapter) ImageCall(ctx context.Context, modelName string, params model.Params) (model.Response, error) {
	return model.Response{}, provider.NewError(a.Name(), provider.KindInvalidRequest, 0, "openai adapter does not implement image generation", nil)
}

func (a *Adapter) EmbeddingsCall(ctx context.Context, modelName string, input []string) ([][]float64, error) {
	resp, err := a.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: modelName,
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: input},
	})
	if err != nil {
		return nil, translateError(err)
	}
	out := make([][]float64, len(resp.Data))
	for i, d := range resp.Data {
		out[i] = d.Embedding
	}
	return out, nil
}

func (a *Adapter) SupportsImageGeneration() bool { return false }
func (a *Adapter) SupportsEmbeddings() bool       { return true }

func translateError(err error) error {
	return provider.NewError("openai", provider.KindUnknown, 0, "openai request failed", err)
}
