// Package request implements RequestProcessor: it composes a caller's
// {message, data, endingMessage} input into one or more concrete prompt
// strings, delegating to chunk.SplitIfNeeded whenever the data doesn't fit
// in a single request.
package request

import (
	"strings"

	"goa.design/llmcore/chunk"
	"goa.design/llmcore/model"
)

// Input mirrors the caller-facing {message, data?, endingMessage?} shape
// accepted by LLMCaller.call/stream.
type Input struct {
	Message       string
	Data          any
	EndingMessage string
}

// Prompt is one concrete prompt string produced from Input, paired with its
// position among siblings so ChunkController can track progress.
type Prompt struct {
	Text        string
	ChunkIndex  int
	TotalChunks int
}

// Compose turns in into one-or-many prompt strings. When the data fits the
// model's budget, it produces a single prompt that concatenates message,
// data (if any), and endingMessage. When it doesn't, it asks chunk.SplitIfNeeded
// for boundary-preserving data chunks and produces one prompt per chunk, each
// repeating message and endingMessage so every chunk stands alone as a valid
// request.
func Compose(in Input, modelInfo model.Info, maxResponseTokens int) []Prompt {
	if in.Data == nil {
		return []Prompt{{Text: joinNonEmpty(in.Message, "", in.EndingMessage), ChunkIndex: 0, TotalChunks: 1}}
	}

	chunks := chunk.SplitIfNeeded(chunk.Request{
		Message:           in.Message,
		Data:              in.Data,
		EndingMessage:     in.EndingMessage,
		Model:             modelInfo,
		MaxResponseTokens: maxResponseTokens,
	})

	prompts := make([]Prompt, len(chunks))
	for i, c := range chunks {
		prompts[i] = Prompt{
			Text:        joinNonEmpty(in.Message, c.Content, in.EndingMessage),
			ChunkIndex:  c.ChunkIndex,
			TotalChunks: c.TotalChunks,
		}
	}
	return prompts
}

func joinNonEmpty(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "\n\n")
}
