package model

// JSONMode controls how the core requests JSON-shaped output from a model
// that may or may not natively support structured output.
type JSONMode string

const (
	// JSONModeNativeOnly fails fast when the resolved model lacks native JSON
	// output support rather than degrading to prompt injection.
	JSONModeNativeOnly JSONMode = "native-only"
	// JSONModeFallback injects a JSON instruction into the prompt only when
	// the resolved model lacks native JSON output support.
	JSONModeFallback JSONMode = "fallback"
	// JSONModeForcePrompt always injects a JSON instruction regardless of
	// native capability.
	JSONModeForcePrompt JSONMode = "force-prompt"
)

// HistoryMode selects how HistoryManager exposes accumulated messages.
type HistoryMode string

const (
	// HistoryModeFull exposes the entire accumulated history.
	HistoryModeFull HistoryMode = "full"
	// HistoryModeDynamic drops the oldest non-system messages until the
	// remaining history fits the model's request-token budget.
	HistoryModeDynamic HistoryMode = "dynamic"
)

// ResponseFormat selects the shape of UniversalChatResponse.Content.
type ResponseFormat string

const (
	ResponseFormatText ResponseFormat = "text"
	ResponseFormatJSON ResponseFormat = "json"
)

// ToolChoice controls whether/which tools the model should call.
type ToolChoice string

const (
	ToolChoiceAuto     ToolChoice = "auto"
	ToolChoiceNone     ToolChoice = "none"
	ToolChoiceRequired ToolChoice = "required"
)

// JSONSchema names and describes the structured output schema a caller wants
// the response validated and (optionally) unwrapped against.
type JSONSchema struct {
	Name   string
	Schema any
}

// Settings carries generation controls, library controls, and provider
// pass-through keys for a single call. Zero values mean "use the provider's
// or the library's default".
type Settings struct {
	// Generation controls, forwarded to the provider when supported.
	Temperature      *float64
	MaxTokens        *int
	TopP             *float64
	FrequencyPenalty *float64
	PresencePenalty  *float64
	Seed             *int64
	User             string
	ToolChoiceValue  ToolChoice
	ReasoningEffort  string
	Verbosity       string
	Stop            []string

	// Library controls.
	MaxRetries              int
	ShouldRetryDueToContent func(content string) bool
	JSONMode                JSONMode
	HistoryMode              HistoryMode
	MaxChunkIterations       int
	MaxToolIterations        int

	// ProviderParams carries arbitrary provider-specific keys that the core
	// passes through unexamined to convertToProviderParams.
	ProviderParams map[string]any
}

// Params is the UniversalChatParams passed to ChatController/StreamController.
type Params struct {
	Messages     []Message
	Model        string
	Settings     Settings
	Tools        []ToolDefinition
	JSONSchema   *JSONSchema
	ResponseFormat ResponseFormat
	CallerID     string
}

// ToolDefinition describes a callable tool exposed to the model.
//
// Invariant: Name matches [A-Za-z0-9_]+ (MCP tool names have dots rewritten
// to underscores by the MCP adapter before reaching this type).
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  any // structured-schema description (JSON Schema-shaped map or *jsonschema.Schema)
	CallFunction func(params map[string]any) (any, error)
	Origin      string // "local" or an MCP server key
	Metadata    map[string]any
}
