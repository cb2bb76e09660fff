package provider_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goa.design/llmcore/errs"
	"goa.design/llmcore/model"
	"goa.design/llmcore/provider"
)

type stubProvider struct{ name string }

func (s stubProvider) Name() string { return s.name }
func (s stubProvider) ChatCall(ctx context.Context, modelName string, params model.Params) (model.Response, error) {
	return model.Response{}, nil
}
func (s stubProvider) StreamCall(ctx context.Context, modelName string, params model.Params) (provider.Stream, error) {
	return nil, nil
}
func (s stubProvider) ImageCall(ctx context.Context, modelName string, params model.Params) (model.Response, error) {
	return model.Response{}, nil
}
func (s stubProvider) EmbeddingsCall(ctx context.Context, modelName string, input []string) ([][]float64, error) {
	return nil, nil
}
func (s stubProvider) SupportsImageGeneration() bool { return false }
func (s stubProvider) SupportsEmbeddings() bool       { return false }

func TestManager_SwitchProvider(t *testing.T) {
	m := provider.NewManager(stubProvider{name: "a"})
	name, _ := m.Current()
	assert.Equal(t, "a", name)

	m.SwitchProvider(stubProvider{name: "b"})
	name, _ = m.Current()
	assert.Equal(t, "b", name)
}

func TestTranslate_ProviderErrorMapsKind(t *testing.T) {
	pe := provider.NewError("anthropic", provider.KindRateLimited, 429, "too many requests", nil)
	err := provider.Translate("ChatController.execute", pe)

	kind, ok := errs.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, errs.KindRateLimit, kind)
}

func TestTranslate_BareErrorBecomesNetwork(t *testing.T) {
	err := provider.Translate("ChatController.execute", errors.New("dial tcp: timeout"))
	kind, ok := errs.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, errs.KindNetwork, kind)
}
