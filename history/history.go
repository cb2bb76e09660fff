// Package history implements HistoryManager: an ordered conversation log
// with a pinned system message, dynamic token-budget truncation, and
// serialize/deserialize round-tripping.
package history

import (
	"encoding/json"

	"goa.design/llmcore/model"
	"goa.design/llmcore/tokens"
)

// Manager holds a pinned system message plus an append-only (until Clear or
// SetHistoricalMessages) ordered list of conversation messages.
//
// Not safe for concurrent use by multiple goroutines: per spec's concurrency
// model, a single Caller instance's Call/Stream are already serialized, so
// Manager carries no internal lock.
type Manager struct {
	system   *model.Message
	messages []model.Message
	mode     model.HistoryMode
}

// NewManager constructs an empty Manager in the given history mode.
func NewManager(mode model.HistoryMode) *Manager {
	return &Manager{mode: mode}
}

// SetSystem pins the system message, replacing any previous one.
func (m *Manager) SetSystem(content string) {
	msg := model.Message{Role: model.RoleSystem, Content: model.NewTextContent(content)}
	m.system = &msg
}

// AddMessage appends a message built from role/content/extras.
func (m *Manager) AddMessage(role model.Role, content string, extras ...func(*model.Message)) {
	msg := model.Message{Role: role, Content: model.NewTextContent(content)}
	for _, e := range extras {
		e(&msg)
	}
	m.messages = append(m.messages, msg)
}

// Append appends an already-constructed message verbatim.
func (m *Manager) Append(msg model.Message) {
	m.messages = append(m.messages, msg)
}

// Clear drops all non-system messages.
func (m *Manager) Clear() {
	m.messages = nil
}

// SetHistoricalMessages replaces the message list wholesale.
func (m *Manager) SetHistoricalMessages(msgs []model.Message) {
	m.messages = append([]model.Message(nil), msgs...)
}

// Messages returns the messages that should be sent to the provider for the
// next call: the pinned system message (if any) followed by the
// conversation, truncated per the dynamic mode when active.
func (m *Manager) Messages(modelInfo model.Info) []model.Message {
	conv := m.messages
	if m.mode == model.HistoryModeDynamic {
		conv = m.truncateToFit(modelInfo)
	}

	out := make([]model.Message, 0, len(conv)+1)
	if m.system != nil {
		out = append(out, *m.system)
	}
	out = append(out, conv...)
	return out
}

// truncateToFit drops the oldest non-system messages until the remaining
// history's estimated token count fits maxRequestTokens minus a safety
// margin, per spec's dynamic history mode.
func (m *Manager) truncateToFit(modelInfo model.Info) []model.Message {
	const margin = 500
	budget := modelInfo.MaxRequestTokens - margin
	if budget < 0 {
		budget = 0
	}

	systemTokens := 0
	if m.system != nil {
		systemTokens = tokens.Count(m.system.Content.Text(), modelInfo.TokenizationModel)
	}
	budget -= systemTokens

	total := 0
	sizes := make([]int, len(m.messages))
	for i, msg := range m.messages {
		sizes[i] = tokens.Count(msg.Content.Text(), modelInfo.TokenizationModel)
		total += sizes[i]
	}

	start := 0
	for total > budget && start < len(m.messages) {
		total -= sizes[start]
		start++
	}
	return m.messages[start:]
}

// GetMessages returns a defensive copy of the raw (untruncated) conversation
// list, excluding the system message.
func (m *Manager) GetMessages() []model.Message {
	return append([]model.Message(nil), m.messages...)
}

// serializedHistory is the JSON round-trip shape for SerializeHistory /
// DeserializeHistory. The system message is kept separate, matching the
// spec's "system is separate" round-trip law.
type serializedHistory struct {
	Messages []model.Message `json:"messages"`
}

// SerializeHistory encodes the conversation (not the system message) to JSON.
func (m *Manager) SerializeHistory() ([]byte, error) {
	return json.Marshal(serializedHistory{Messages: m.messages})
}

// DeserializeHistory decodes and installs a conversation previously produced
// by SerializeHistory.
func (m *Manager) DeserializeHistory(data []byte) error {
	var s serializedHistory
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	m.messages = s.Messages
	return nil
}
