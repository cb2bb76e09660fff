// Package tokens provides a single pure function for estimating how many
// tokens a string costs under a named tokenization model. It is the library's
// only dependency on a tokenizer implementation (github.com/pkoukk/tiktoken-go);
// callers elsewhere in the core never import tiktoken directly.
package tokens

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encodingCache   = map[string]*tiktoken.Tiktoken{}
	encodingCacheMu sync.Mutex
)

// Count returns the number of tokens s costs under tokenizationModel. Known
// OpenAI-family model names resolve to their exact BPE encoding via
// tiktoken-go. Unknown names fall back to a conservative heuristic
// (characters/4, rounded up) so callers never fail outright on an
// unrecognized tokenizer name — capacity planning degrades gracefully instead
// of blocking the call.
func Count(s string, tokenizationModel string) int {
	if s == "" {
		return 0
	}
	if enc, ok := encodingFor(tokenizationModel); ok {
		return len(enc.Encode(s, nil, nil))
	}
	return heuristicCount(s)
}

func encodingFor(model string) (*tiktoken.Tiktoken, bool) {
	if model == "" {
		return nil, false
	}
	encodingCacheMu.Lock()
	defer encodingCacheMu.Unlock()
	if enc, ok := encodingCache[model]; ok {
		return enc, enc != nil
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		encodingCache[model] = nil
		return nil, false
	}
	encodingCache[model] = enc
	return enc, true
}

// heuristicCount approximates tokens as roughly 4 characters per token, the
// same rule of thumb used throughout the ecosystem when no tokenizer is
// available, rounded up so budgets stay conservative.
func heuristicCount(s string) int {
	n := len([]rune(s))
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}
