// Package usage implements UsageTracker: per-call token/cost accounting and
// the incremental callback streaming calls fire every 100 output tokens, per
// spec.md §4.12.
package usage

import (
	"sync"

	"goa.design/llmcore/model"
)

// Callback receives a Usage snapshot: the whole-call total for a synchronous
// call, or the running total so far for a stream's incremental callbacks.
type Callback func(model.Usage)

// Tracker accumulates token and cost totals across every call made through
// one Caller instance and invokes Callback on each completed call, plus
// incrementally during a stream every streamCallbackEvery output tokens.
//
// Not safe for concurrent Record calls from multiple goroutines racing on
// the same Tracker; per the library's concurrency model a single Caller's
// operations are already serialized, but Tracker still guards its own state
// with a mutex since UsageCallback may be swapped at any time via
// Caller.SetUsageCallback from outside the serialized call path.
type Tracker struct {
	mu       sync.Mutex
	total    model.Usage
	callback Callback

	streamOutputSinceCallback int
}

// streamCallbackEvery is the output-token granularity at which a running
// stream fires its incremental usage callback, per spec.md §4.12.
const streamCallbackEvery = 100

// NewTracker constructs a Tracker with an optional initial callback (nil is
// valid; SetCallback installs one later).
func NewTracker(cb Callback) *Tracker {
	return &Tracker{callback: cb}
}

// SetCallback replaces the registered callback.
func (t *Tracker) SetCallback(cb Callback) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.callback = cb
}

// Record accumulates one completed call's usage into the running total and
// fires the callback with the call's own usage (not the running total),
// matching a per-call usage hook.
func (t *Tracker) Record(u model.Usage) {
	t.mu.Lock()
	t.total.Add(u)
	cb := t.callback
	t.mu.Unlock()
	if cb != nil {
		cb(u)
	}
}

// RecordStreamDelta accumulates one streamed chunk's incremental usage and
// fires the callback once at least streamCallbackEvery new output tokens
// have accrued since the last firing, resetting the counter each time. The
// final chunk's usage should still be reported via Record once the stream
// completes so the total reflects the whole call exactly.
func (t *Tracker) RecordStreamDelta(u model.Usage) {
	t.mu.Lock()
	t.total.Add(u)
	t.streamOutputSinceCallback += u.Tokens.Output.Total
	var fire bool
	var snapshot model.Usage
	if t.streamOutputSinceCallback >= streamCallbackEvery {
		t.streamOutputSinceCallback = 0
		fire = true
		snapshot = t.total
	}
	cb := t.callback
	t.mu.Unlock()
	if fire && cb != nil {
		cb(snapshot)
	}
}

// Total returns a snapshot of the accumulated usage across every Record call
// made on this Tracker so far.
func (t *Tracker) Total() model.Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// Compute prices a token breakdown against info's per-million rates,
// producing the Usage nested token/cost shape ChatController and
// StreamController attach to Metadata.Usage. Reasoning and image output
// tokens are priced at the same output rate as ordinary output tokens since
// ModelInfo carries no separate rate for them; cached input tokens use
// InputCachedPricePerMillion when present, otherwise the ordinary input rate.
func Compute(info model.Info, tokens model.TokenCounts) model.Usage {
	inputRate := info.InputPricePerMillion
	cachedRate := inputRate
	if info.InputCachedPricePerMillion != nil {
		cachedRate = *info.InputCachedPricePerMillion
	}
	outputRate := info.OutputPricePerMillion

	u := model.Usage{Tokens: tokens}
	u.Costs.Input.Total = perMillion(tokens.Input.Total, inputRate)
	u.Costs.Input.Cached = perMillion(tokens.Input.Cached, cachedRate)
	u.Costs.Output.Total = perMillion(tokens.Output.Total, outputRate)
	u.Costs.Output.Reasoning = perMillion(tokens.Output.Reasoning, outputRate)
	u.Costs.Output.Image = perMillion(tokens.Output.Image, outputRate)
	u.Costs.Total = u.Costs.Input.Total + u.Costs.Output.Total
	return u
}

func perMillion(count int, ratePerMillion float64) float64 {
	return float64(count) * ratePerMillion / 1_000_000
}
