// Package bedrock adapts AWS Bedrock's Converse API to the
// provider.Provider interface using aws-sdk-go-v2.
package bedrock

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"goa.design/llmcore/model"
	"goa.design/llmcore/provider"
)

// Adapter implements provider.Provider over bedrockruntime.Client, using the
// Converse/ConverseStream operations so a single code path covers every
// Bedrock-hosted foundation model rather than one branch per vendor.
type Adapter struct {
	client *bedrockruntime.Client
}

// New constructs an Adapter from an already-resolved AWS config.
func New(cfg aws.Config) *Adapter {
	return &Adapter{client: bedrockruntime.NewFromConfig(cfg)}
}

func (a *Adapter) Name() string { return "bedrock" }

func (a *Adapter) ChatCall(ctx context.Context, modelName string, params model.Params) (model.Response, error) {
	input := convertToProviderParams(modelName, params)
	out, err := a.client.Converse(ctx, input)
	if err != nil {
		return model.Response{}, translateError(err)
	}
	return convertFromProviderResponse(out), nil
}

func (a *Adapter) StreamCall(ctx context.Context, modelName string, params model.Params) (provider.Stream, error) {
	input := convertToProviderStreamParams(modelName, params)
	out, err := a.client.ConverseStream(ctx, input)
	if err != nil {
		return nil, translateError(err)
	}
	return &streamAdapter{events: out.GetStream()}, nil
}

func (a *Adapter) ImageCall(ctx context.Context, modelName string, params model.Params) (model.Response, error) {
	return model.Response{}, provider.NewError(a.Name(), provider.KindInvalidRequest, 0, "bedrock adapter does not implement image generation", nil)
}

func (a *Adapter) EmbeddingsCall(ctx context.Context, modelName string, input []string) ([][]float64, error) {
	return nil, provider.NewError(a.Name(), provider.KindInvalidRequest, 0, "bedrock adapter does not implement embeddings", nil)
}

func (a *Adapter) SupportsImageGeneration() bool { return false }
func (a *Adapter) SupportsEmbeddings() bool       { return false }

func translateError(err error) error {
	var throttling *types.ThrottlingException
	if errors.As(err, &throttling) {
		return provider.NewError("bedrock", provider.KindRateLimited, 429, "bedrock throttled the request", err)
	}
	var accessDenied *types.AccessDeniedException
	if errors.As(err, &accessDenied) {
		return provider.NewError("bedrock", provider.KindAuth, 403, "bedrock denied access", err)
	}
	return provider.NewError("bedrock", provider.KindUnknown, 0, "bedrock request failed", err)
}
