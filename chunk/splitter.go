// Package chunk implements DataSplitter: it slices an oversized input
// (string, ordered sequence, or mapping) into chunks that fit an available
// token budget while never splitting an atom (paragraph, array item, or
// map entry) across chunk boundaries.
package chunk

import (
	"sort"
	"strings"

	"goa.design/llmcore/model"
	"goa.design/llmcore/tokens"
)

// Chunk is one slice of a split input, annotated with its position among its
// siblings so callers can reassemble or report progress.
type Chunk struct {
	Content     string
	TokenCount  int
	ChunkIndex  int
	TotalChunks int
}

// Request bundles everything DataSplitter.SplitIfNeeded needs to size its
// budget and classify the input.
type Request struct {
	Message           string
	Data              any // string, []string, []any, or map[string]any
	EndingMessage     string
	Model             model.Info
	MaxResponseTokens int
	MaxCharsPerChunk  int // optional hard cap, 0 means unbounded
}

// SplitIfNeeded computes the available token budget and returns one chunk
// when the data fits, or several boundary-preserving chunks when it doesn't.
//
// Budget = maxRequestTokens - tokens(message) - tokens(endingMessage) -
// maxResponseTokens - 50. An atom that alone exceeds the budget is still
// emitted as a single (overrun) chunk; truncating it is the caller's
// responsibility, not the splitter's.
func SplitIfNeeded(req Request) []Chunk {
	tokenizer := req.Model.TokenizationModel
	budget := req.Model.MaxRequestTokens -
		tokens.Count(req.Message, tokenizer) -
		tokens.Count(req.EndingMessage, tokenizer) -
		req.MaxResponseTokens - 50
	if budget < 1 {
		budget = 1
	}

	dataTokens := tokens.Count(renderForCount(req.Data), tokenizer)
	if dataTokens <= budget {
		content := renderForCount(req.Data)
		return []Chunk{{Content: content, TokenCount: dataTokens, ChunkIndex: 0, TotalChunks: 1}}
	}

	switch v := req.Data.(type) {
	case string:
		return packParagraphs(v, budget, tokenizer)
	case []string:
		items := make([]string, len(v))
		copy(items, v)
		return packItems(items, budget, tokenizer)
	case []any:
		items := make([]string, len(v))
		for i, it := range v {
			items[i] = renderForCount(it)
		}
		return packItems(items, budget, tokenizer)
	case map[string]any:
		return packEntries(v, budget, tokenizer)
	default:
		return packParagraphs(renderForCount(req.Data), budget, tokenizer)
	}
}

func renderForCount(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []string:
		return strings.Join(t, "\n\n")
	default:
		return renderAny(t)
	}
}

// packParagraphs splits on blank-line paragraph boundaries and greedily packs
// paragraphs into chunks up to budget tokens, never splitting a paragraph.
func packParagraphs(s string, budget int, tokenizer string) []Chunk {
	paragraphs := strings.Split(s, "\n\n")
	var chunks []Chunk
	var cur []string
	curTokens := 0

	flush := func() {
		if len(cur) == 0 {
			return
		}
		content := strings.Join(cur, "\n\n")
		chunks = append(chunks, Chunk{Content: content, TokenCount: curTokens})
		cur = nil
		curTokens = 0
	}

	for _, p := range paragraphs {
		pt := tokens.Count(p, tokenizer)
		if len(cur) > 0 && curTokens+pt > budget {
			flush()
		}
		cur = append(cur, p)
		curTokens += pt
	}
	flush()
	return finalize(chunks)
}

// packItems greedily packs ordered items into chunks up to budget tokens,
// never splitting an item.
func packItems(items []string, budget int, tokenizer string) []Chunk {
	var chunks []Chunk
	var cur []string
	curTokens := 0

	flush := func() {
		if len(cur) == 0 {
			return
		}
		content := strings.Join(cur, "\n")
		chunks = append(chunks, Chunk{Content: content, TokenCount: curTokens})
		cur = nil
		curTokens = 0
	}

	for _, it := range items {
		it2 := it
		itTokens := tokens.Count(it2, tokenizer)
		if len(cur) > 0 && curTokens+itTokens > budget {
			flush()
		}
		cur = append(cur, it2)
		curTokens += itTokens
	}
	flush()
	return finalize(chunks)
}

// packEntries greedily packs map entries into chunks up to budget tokens,
// never splitting an entry. Keys are sorted so output is deterministic.
func packEntries(m map[string]any, budget int, tokenizer string) []Chunk {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var chunks []Chunk
	var cur []string
	curTokens := 0

	flush := func() {
		if len(cur) == 0 {
			return
		}
		content := strings.Join(cur, "\n")
		chunks = append(chunks, Chunk{Content: content, TokenCount: curTokens})
		cur = nil
		curTokens = 0
	}

	for _, k := range keys {
		entry := renderEntry(k, m[k])
		et := tokens.Count(entry, tokenizer)
		if len(cur) > 0 && curTokens+et > budget {
			flush()
		}
		cur = append(cur, entry)
		curTokens += et
	}
	flush()
	return finalize(chunks)
}

func finalize(chunks []Chunk) []Chunk {
	for i := range chunks {
		chunks[i].ChunkIndex = i
		chunks[i].TotalChunks = len(chunks)
	}
	if len(chunks) == 0 {
		return []Chunk{{ChunkIndex: 0, TotalChunks: 1}}
	}
	return chunks
}
