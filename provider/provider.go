// Package provider defines the fixed interface every LLM provider adapter
// implements, plus ProviderManager (hot-swappable current-provider holder)
// and the ProviderError taxonomy adapters raise at their boundary.
package provider

import (
	"context"

	"goa.design/llmcore/model"
)

// StreamChunk is the provider-specific incremental unit a Provider's
// StreamCall yields before it has been reshaped by the stream pipeline into
// a model.StreamResponse.
type StreamChunk struct {
	Role           model.Role
	Content        string
	ToolCallChunks []model.ToolCallChunk
	Image          *model.Image
	Reasoning      string
	FinishReason   *model.FinishReason
	Usage          *model.Usage
}

// Stream is a pull-based sequence of provider stream chunks. Next returns
// (chunk, true, nil) for each chunk, (zero, false, nil) at natural end of
// stream, and (zero, false, err) on failure. Close releases the underlying
// transport; callers must always call it, typically via defer.
type Stream interface {
	Next(ctx context.Context) (StreamChunk, bool, error)
	Close() error
}

// Provider is the fixed interface every adapter (anthropic, openai, bedrock,
// ...) implements. Conversion methods are pure: no I/O, no retry, no
// telemetry — those concerns live in ChatController/StreamController and
// RetryManager, which wrap Provider calls.
type Provider interface {
	// Name identifies the provider for telemetry and error attribution.
	Name() string

	ChatCall(ctx context.Context, modelName string, params model.Params) (model.Response, error)
	StreamCall(ctx context.Context, modelName string, params model.Params) (Stream, error)

	// ImageCall and EmbeddingsCall are optional; a provider that doesn't
	// support them returns errs.KindValidation (checked by the caller via
	// SupportsImageGeneration / SupportsEmbeddings first).
	ImageCall(ctx context.Context, modelName string, params model.Params) (model.Response, error)
	EmbeddingsCall(ctx context.Context, modelName string, input []string) ([][]float64, error)

	SupportsImageGeneration() bool
	SupportsEmbeddings() bool
}

// Manager holds the currently active Provider and its name, and allows a
// caller to hot-swap it (e.g. via LLMCaller.setModel({provider: ...})).
//
// Not safe for concurrent Call/Stream + SwitchProvider: per the library's
// concurrency model, a single Caller's operations are already serialized by
// contract, so Manager carries no internal lock.
type Manager struct {
	name     string
	provider Provider
}

// NewManager constructs a Manager around an initial provider.
func NewManager(p Provider) *Manager {
	return &Manager{name: p.Name(), provider: p}
}

// Current returns the active provider and its name.
func (m *Manager) Current() (string, Provider) { return m.name, m.provider }

// SwitchProvider hot-swaps the active provider.
func (m *Manager) SwitchProvider(p Provider) {
	m.name = p.Name()
	m.provider = p
}
