package chunk_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goa.design/llmcore/chunk"
	"goa.design/llmcore/model"
)

func smallModel() model.Info {
	return model.Info{
		Name:              "test-model",
		MaxRequestTokens:  200,
		MaxResponseTokens: 50,
	}
}

func TestSplitIfNeeded_FitsInOneChunk(t *testing.T) {
	chunks := chunk.SplitIfNeeded(chunk.Request{
		Message:           "summarize",
		Data:              "a short paragraph",
		Model:             smallModel(),
		MaxResponseTokens: 50,
	})
	require.Len(t, chunks, 1)
	assert.Equal(t, 1, chunks[0].TotalChunks)
}

func TestSplitIfNeeded_SplitsOnParagraphBoundaries(t *testing.T) {
	paragraphs := make([]string, 40)
	for i := range paragraphs {
		paragraphs[i] = strings.Repeat("word ", 20)
	}
	data := strings.Join(paragraphs, "\n\n")

	chunks := chunk.SplitIfNeeded(chunk.Request{
		Message:           "summarize",
		Data:              data,
		Model:             smallModel(),
		MaxResponseTokens: 10,
	})
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.NotEmpty(t, c.Content)
	}
	// Reassembling every chunk's paragraphs in order must reconstruct the
	// original paragraph count: no paragraph is dropped or duplicated.
	var total int
	for _, c := range chunks {
		total += len(strings.Split(c.Content, "\n\n"))
	}
	assert.Equal(t, len(paragraphs), total)
}

func TestSplitIfNeeded_NeverSplitsAnItem(t *testing.T) {
	items := make([]string, 30)
	for i := range items {
		items[i] = strings.Repeat("x", 40)
	}
	chunks := chunk.SplitIfNeeded(chunk.Request{
		Message:           "m",
		Data:              items,
		Model:             smallModel(),
		MaxResponseTokens: 10,
	})
	require.Greater(t, len(chunks), 1)
	var totalLines int
	for _, c := range chunks {
		totalLines += len(strings.Split(c.Content, "\n"))
	}
	assert.Equal(t, len(items), totalLines)
}
