package stream

import (
	"encoding/json"
	"strconv"
	"time"

	"goa.design/llmcore/model"
)

// toolCallTimeout is the spec's fixed 10-second force-completion window: a
// buffered tool call whose arguments never balance is emitted as a raw-value
// ToolCall rather than buffered forever.
const toolCallTimeout = 10 * time.Second

type bufferedCall struct {
	name      string
	args      string
	startedAt time.Time
	complete  bool
}

// ToolCallBuffer reassembles tool-call argument deltas that arrive split
// across many stream chunks (StreamBuffer in spec.md §4.5). A buffered call
// is emitted at most once: either because its argument JSON balanced, or
// because it aged past toolCallTimeout without balancing.
type ToolCallBuffer struct {
	calls   map[string]*bufferedCall
	order   []string
	content string
}

// NewToolCallBuffer constructs an empty buffer, one per stream (per spec.md
// §3's lifecycle note: "StreamBuffer lives one stream").
func NewToolCallBuffer() *ToolCallBuffer {
	return &ToolCallBuffer{calls: make(map[string]*bufferedCall)}
}

// Feed appends the chunk's content to the accumulated content buffer and
// upserts any tool-call argument deltas, returning any ToolCalls that are
// now complete (balanced braces). now is the caller's clock reading, used
// only for bookkeeping startedAt — actual forced completion happens in
// Flush so callers control when the 10s window is evaluated.
func (b *ToolCallBuffer) Feed(content string, chunks []model.ToolCallChunk, now time.Time) []model.ToolCall {
	b.content += content

	touched := make(map[string]bool, len(chunks))
	for _, c := range chunks {
		id := c.ID
		if id == "" {
			id = syntheticID(c.Index)
		}
		call, ok := b.calls[id]
		if !ok {
			call = &bufferedCall{startedAt: now}
			b.calls[id] = call
			b.order = append(b.order, id)
		}
		if c.Name != "" {
			call.name = c.Name
		}
		call.args += c.ArgumentsChunk
		touched[id] = true
	}

	var completed []model.ToolCall
	for id := range touched {
		call := b.calls[id]
		if call.complete {
			continue
		}
		if !bracesBalanced(call.args) || call.args == "" {
			continue
		}
		var args map[string]any
		if err := json.Unmarshal([]byte(call.args), &args); err != nil {
			continue
		}
		call.complete = true
		completed = append(completed, model.ToolCall{ID: id, Name: call.name, Arguments: args})
	}
	return completed
}

// Flush force-completes any buffered call older than toolCallTimeout that
// never balanced, emitting it with its raw text under a "value" key, and
// force-completes (with best-effort parse, or the raw-value fallback) every
// remaining unfinished call at end-of-stream regardless of age.
func (b *ToolCallBuffer) Flush(now time.Time, endOfStream bool) []model.ToolCall {
	var out []model.ToolCall
	for _, id := range b.order {
		call := b.calls[id]
		if call.complete {
			continue
		}
		if !endOfStream && now.Sub(call.startedAt) < toolCallTimeout {
			continue
		}
		call.complete = true
		var args map[string]any
		if err := json.Unmarshal([]byte(call.args), &args); err != nil {
			args = map[string]any{"value": call.args}
		}
		out = append(out, model.ToolCall{ID: id, Name: call.name, Arguments: args})
	}
	return out
}

// Content returns the full accumulated content buffer.
func (b *ToolCallBuffer) Content() string { return b.content }

func syntheticID(index int) string {
	return "tool_" + strconv.Itoa(index)
}

// bracesBalanced counts brace/bracket depth ignoring characters inside
// string literals and escape sequences, per spec.md §4.5.
func bracesBalanced(s string) bool {
	depth := 0
	inString := false
	escaped := false
	seenOpen := false
	for _, r := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '{', '[':
			depth++
			seenOpen = true
		case '}', ']':
			depth--
		}
	}
	return seenOpen && depth == 0
}
