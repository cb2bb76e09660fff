// Package model defines the universal envelope exchanged between callers,
// the orchestration core, and provider adapters: messages, chat parameters,
// responses (sync and streamed), tool definitions/calls, and usage.
//
// The envelope is intentionally provider-agnostic. Adapters translate it to
// and from a specific provider's wire format; the core never assumes a
// particular provider's shape once a message has crossed into this package.
package model

import (
	"encoding/json"

	"goa.design/llmcore/errs"
)

// Role identifies the speaker of a UniversalMessage.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleFunction  Role = "function"
)

// ContentPartKind discriminates the members of the Content sum type.
type ContentPartKind string

const (
	ContentPartText  ContentPartKind = "text"
	ContentPartImage ContentPartKind = "image"
	ContentPartFile  ContentPartKind = "file"
)

// ContentPart is one block of structured message content. Exactly one of the
// payload fields is populated, selected by Kind.
type ContentPart struct {
	Kind ContentPartKind `json:"kind"`

	// Text holds the payload when Kind is ContentPartText.
	Text string `json:"text,omitempty"`

	// ImageURL or ImageData/MimeType holds the payload when Kind is
	// ContentPartImage. Exactly one of ImageURL or ImageData should be set.
	ImageURL  string `json:"imageUrl,omitempty"`
	ImageData []byte `json:"imageData,omitempty"`
	MimeType  string `json:"mimeType,omitempty"`

	// FileURL/FileData/FileName holds the payload when Kind is ContentPartFile.
	FileURL  string `json:"fileUrl,omitempty"`
	FileData []byte `json:"fileData,omitempty"`
	FileName string `json:"fileName,omitempty"`
}

// Content is the sum type for UniversalMessage.Content: either a plain string
// or an ordered sequence of typed ContentParts. Exactly one of Text or Parts
// is meaningful; IsStructured reports which.
type Content struct {
	text       string
	parts      []ContentPart
	structured bool
}

// NewTextContent wraps a plain string as Content.
func NewTextContent(text string) Content { return Content{text: text} }

// NewPartsContent wraps an ordered list of parts as structured Content.
func NewPartsContent(parts []ContentPart) Content {
	return Content{parts: parts, structured: true}
}

// IsStructured reports whether the content is a parts sequence rather than a
// plain string.
func (c Content) IsStructured() bool { return c.structured }

// Text returns the plain string form. If the content is structured, it
// concatenates the text of every ContentPartText part, which is a lossy but
// useful approximation for logging, token counting, and content-length
// heuristics.
func (c Content) Text() string {
	if !c.structured {
		return c.text
	}
	out := ""
	for _, p := range c.parts {
		if p.Kind == ContentPartText {
			out += p.Text
		}
	}
	return out
}

// Parts returns the structured parts, or nil if the content is a plain string.
func (c Content) Parts() []ContentPart {
	if !c.structured {
		return nil
	}
	return c.parts
}

// IsEmpty reports whether the content carries no text and no parts.
func (c Content) IsEmpty() bool {
	if c.structured {
		return len(c.parts) == 0
	}
	return c.text == ""
}

// MarshalJSON renders plain-string content as a bare JSON string and
// structured content as an array of parts, mirroring what provider wire
// formats and the TypeScript original both do for "string | structured".
func (c Content) MarshalJSON() ([]byte, error) {
	if c.structured {
		return json.Marshal(c.parts)
	}
	return json.Marshal(c.text)
}

// UnmarshalJSON accepts either a bare string or an array of parts.
func (c *Content) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = Content{text: s}
		return nil
	}
	var parts []ContentPart
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	*c = Content{parts: parts, structured: true}
	return nil
}

// ToolCall is a single tool invocation requested by the assistant, either
// parsed from native provider tool-call structures or from an inline
// <tool>NAME:ARGS</tool> marker.
type ToolCall struct {
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolCallChunk is an incremental fragment of a ToolCall observed while
// streaming, before argument JSON has balanced into a complete object.
type ToolCallChunk struct {
	ID             string `json:"id,omitempty"`
	Index          int    `json:"index"`
	Name           string `json:"name,omitempty"`
	ArgumentsChunk string `json:"argumentsChunk,omitempty"`
}

// Message is a UniversalMessage: one turn in the conversation log.
//
// Invariant: a non-empty Content or a non-empty ToolCalls list is required.
// Function-role messages must carry Name.
type Message struct {
	Role       Role       `json:"role"`
	Content    Content    `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCallID string     `json:"toolCallId,omitempty"`
	ToolCalls  []ToolCall `json:"toolCalls,omitempty"`
}

// Validate enforces the UniversalMessage invariant.
func (m Message) Validate() error {
	if m.Content.IsEmpty() && len(m.ToolCalls) == 0 {
		return errs.New(errs.KindValidation, "Message.Validate", "message must carry non-empty content or at least one tool call")
	}
	if m.Role == RoleFunction && m.Name == "" {
		return errs.New(errs.KindValidation, "Message.Validate", "function-role message requires Name")
	}
	return nil
}
