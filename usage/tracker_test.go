package usage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"goa.design/llmcore/model"
	"goa.design/llmcore/usage"
)

func TestTracker_RecordFiresCallbackWithCallUsage(t *testing.T) {
	var got []model.Usage
	tr := usage.NewTracker(func(u model.Usage) { got = append(got, u) })

	tr.Record(model.Usage{Tokens: model.TokenCounts{Total: 10}})
	tr.Record(model.Usage{Tokens: model.TokenCounts{Total: 20}})

	assert.Len(t, got, 2)
	assert.Equal(t, 10, got[0].Tokens.Total)
	assert.Equal(t, 30, tr.Total().Tokens.Total)
}

func TestTracker_RecordStreamDeltaFiresEvery100OutputTokens(t *testing.T) {
	var calls int
	tr := usage.NewTracker(func(model.Usage) { calls++ })

	for i := 0; i < 9; i++ {
		tr.RecordStreamDelta(model.Usage{Tokens: model.TokenCounts{Output: model.TokenSide{Total: 10}}})
	}
	assert.Equal(t, 0, calls, "below threshold should not fire")

	tr.RecordStreamDelta(model.Usage{Tokens: model.TokenCounts{Output: model.TokenSide{Total: 10}}})
	assert.Equal(t, 1, calls, "crossing 100 output tokens should fire once")

	for i := 0; i < 10; i++ {
		tr.RecordStreamDelta(model.Usage{Tokens: model.TokenCounts{Output: model.TokenSide{Total: 10}}})
	}
	assert.Equal(t, 2, calls, "a second window of 100 should fire exactly once more")
}

func TestCompute_PricesInputOutputAndCachedTokens(t *testing.T) {
	cached := 0.5
	info := model.Info{
		InputPricePerMillion:       2.0,
		InputCachedPricePerMillion: &cached,
		OutputPricePerMillion:      10.0,
	}
	tokens := model.TokenCounts{
		Input:  model.TokenSide{Total: 1_000_000, Cached: 500_000},
		Output: model.TokenSide{Total: 1_000_000, Reasoning: 200_000},
		Total:  2_000_000,
	}

	u := usage.Compute(info, tokens)

	assert.InDelta(t, 2.0, u.Costs.Input.Total, 1e-9)
	assert.InDelta(t, 0.25, u.Costs.Input.Cached, 1e-9)
	assert.InDelta(t, 10.0, u.Costs.Output.Total, 1e-9)
	assert.InDelta(t, 2.0, u.Costs.Output.Reasoning, 1e-9)
	assert.InDelta(t, 12.0, u.Costs.Total, 1e-9)
}

func TestCompute_FallsBackToOrdinaryInputRateWithoutCachedPrice(t *testing.T) {
	info := model.Info{InputPricePerMillion: 4.0, OutputPricePerMillion: 8.0}
	tokens := model.TokenCounts{Input: model.TokenSide{Total: 1_000_000, Cached: 1_000_000}}

	u := usage.Compute(info, tokens)

	assert.InDelta(t, 4.0, u.Costs.Input.Cached, 1e-9)
}
