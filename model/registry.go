package model

import (
	"fmt"
	"sync"

	"goa.design/llmcore/errs"
)

// ToolStreamingMode describes whether/how a model emits tool calls while
// streaming.
type ToolStreamingMode string

const (
	ToolStreamingNone     ToolStreamingMode = "none"
	ToolStreamingOnComplete ToolStreamingMode = "onComplete"
	ToolStreamingDeltas   ToolStreamingMode = "deltas"
)

// ToolCapability describes a model's tool-calling support. A model with no
// tool support at all sets Supported=false; streamingMode is only meaningful
// when Supported is true.
type ToolCapability struct {
	Supported     bool
	StreamingMode ToolStreamingMode
}

// ImageOutputCapability enumerates which image-generation operations a model
// supports.
type ImageOutputCapability struct {
	Generate    bool
	Edit        bool
	EditWithMask bool
}

// OutputCapability describes a model's output modalities.
type OutputCapability struct {
	// TextOutputFormats is empty when the model has no text output at all;
	// otherwise it lists the supported text output formats ("text", "json", ...).
	TextOutputFormats []string
	Image             *ImageOutputCapability
	EmbeddingDims     []int
}

// InputCapability describes a model's input modalities.
type InputCapability struct {
	Text  bool
	Image bool
}

// Capabilities is the declarative capability set a ModelSelector filters on.
type Capabilities struct {
	Streaming        bool
	ToolCalls        ToolCapability
	ParallelToolCalls bool
	Reasoning        bool
	Input            InputCapability
	Output           OutputCapability
}

// Characteristics are the ranking signals a ModelSelector scores on.
type Characteristics struct {
	// QualityIndex is in [0,100].
	QualityIndex float64
	// OutputSpeed is in tokens/sec.
	OutputSpeed float64
	// FirstTokenLatency is in milliseconds.
	FirstTokenLatency float64
}

// Info is the ModelInfo record held in the ModelRegistry: prices, limits,
// capabilities, and characteristics for one model.
type Info struct {
	Name                      string
	InputPricePerMillion      float64
	InputCachedPricePerMillion *float64
	OutputPricePerMillion     float64
	MaxRequestTokens          int
	MaxResponseTokens         int
	TokenizationModel        string
	Capabilities             Capabilities
	Characteristics          Characteristics
}

// Registry is an in-memory, per-provider map from model name to Info.
// Mutation only happens through explicit Add/Update calls; ModelInfo is
// otherwise treated as immutable once registered.
type Registry struct {
	mu       sync.RWMutex
	provider string
	models   map[string]Info
}

// NewRegistry constructs an empty Registry scoped to one provider name.
func NewRegistry(provider string) *Registry {
	return &Registry{provider: provider, models: make(map[string]Info)}
}

// Provider returns the provider name this registry is scoped to.
func (r *Registry) Provider() string { return r.provider }

// Add registers model info, replacing any existing entry with the same name.
func (r *Registry) Add(info Info) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[info.Name] = info
}

// Update mutates an existing model's info via fn. Returns model-not-found if
// the model is not registered.
func (r *Registry) Update(name string, fn func(*Info)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.models[name]
	if !ok {
		return errs.New(errs.KindModelNotFound, "Registry.Update", fmt.Sprintf("model %q not registered", name))
	}
	fn(&info)
	r.models[name] = info
	return nil
}

// Get looks up a single model by name.
func (r *Registry) Get(name string) (Info, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.models[name]
	if !ok {
		return Info{}, errs.New(errs.KindModelNotFound, "Registry.Get", fmt.Sprintf("model %q not registered", name))
	}
	return info, nil
}

// All returns a snapshot slice of every registered model, in an unspecified
// but stable-per-call order (callers that need determinism should sort).
func (r *Registry) All() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(r.models))
	for _, info := range r.models {
		out = append(out, info)
	}
	return out
}
