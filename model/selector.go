package model

import (
	"math"
	"sort"

	"goa.design/llmcore/errs"
)

// Alias is a symbolic model selector resolved against a capability-filtered
// model set.
type Alias string

const (
	AliasCheap    Alias = "cheap"
	AliasFast     Alias = "fast"
	AliasPremium  Alias = "premium"
	AliasBalanced Alias = "balanced"
)

// Requirements is a declarative predicate over Capabilities used to filter
// models before ranking. Zero-value fields are not required.
type Requirements struct {
	Streaming           bool
	ToolCalls           bool
	ToolStreamingMode   ToolStreamingMode // only checked when ToolCalls is true and non-empty
	TextOutputFormats   []string          // e.g. ["text"], ["json"], or both
	ImageInput          bool
	ImageOutputGenerate bool
	ImageOutputEdit     bool
	ImageOutputEditMask bool
	Reasoning           bool
	EmbeddingDims       int // 0 means "no embedding requirement"
}

// satisfies reports whether info meets every requirement in r.
func (r Requirements) satisfies(info Info) bool {
	caps := info.Capabilities
	if r.Streaming && !caps.Streaming {
		return false
	}
	if r.ToolCalls {
		if !caps.ToolCalls.Supported {
			return false
		}
		if r.ToolStreamingMode != "" && caps.ToolCalls.StreamingMode != r.ToolStreamingMode {
			return false
		}
	}
	for _, want := range r.TextOutputFormats {
		if !containsStr(caps.Output.TextOutputFormats, want) {
			return false
		}
	}
	if r.ImageInput && !caps.Input.Image {
		return false
	}
	if r.ImageOutputGenerate || r.ImageOutputEdit || r.ImageOutputEditMask {
		if caps.Output.Image == nil {
			return false
		}
		if r.ImageOutputGenerate && !caps.Output.Image.Generate {
			return false
		}
		if r.ImageOutputEdit && !caps.Output.Image.Edit {
			return false
		}
		if r.ImageOutputEditMask && !caps.Output.Image.EditWithMask {
			return false
		}
	}
	if r.Reasoning && !caps.Reasoning {
		return false
	}
	if r.EmbeddingDims > 0 && !containsInt(caps.Output.EmbeddingDims, r.EmbeddingDims) {
		return false
	}
	return true
}

func containsStr(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func containsInt(haystack []int, needle int) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

// SelectModel filters models to those satisfying requirements, then ranks the
// survivors per the alias's scoring rule. It is a pure function: the same
// inputs always produce the same output, and it never returns a model that
// fails requirements.
func SelectModel(models []Info, alias Alias, requirements Requirements) (string, error) {
	filtered := make([]Info, 0, len(models))
	for _, m := range models {
		if requirements.satisfies(m) {
			filtered = append(filtered, m)
		}
	}
	if len(filtered) == 0 {
		return "", errs.New(errs.KindNoCapableModel, "SelectModel", "no model satisfies the given requirements")
	}

	// Sort by name first so ties break deterministically regardless of the
	// input slice's order.
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].Name < filtered[j].Name })

	switch alias {
	case AliasCheap:
		return selectCheap(filtered)
	case AliasFast:
		return selectFast(filtered)
	case AliasPremium:
		return selectPremium(filtered)
	case AliasBalanced:
		return selectBalanced(filtered)
	default:
		return selectBalanced(filtered)
	}
}

func selectCheap(models []Info) (string, error) {
	best := models[0]
	bestScore := cheapScore(best)
	for _, m := range models[1:] {
		score := cheapScore(m)
		if score < bestScore || (score == bestScore && m.Characteristics.QualityIndex > best.Characteristics.QualityIndex) {
			best, bestScore = m, score
		}
	}
	return best.Name, nil
}

// cheapScore minimizes combined per-million price, with a small
// quality-weighted tiebreak folded in so two equally cheap models prefer the
// higher-quality one.
func cheapScore(m Info) float64 {
	price := m.InputPricePerMillion + m.OutputPricePerMillion
	return price - m.Characteristics.QualityIndex*1e-6
}

func selectFast(models []Info) (string, error) {
	best := models[0]
	bestScore := fastScore(best)
	for _, m := range models[1:] {
		if s := fastScore(m); s > bestScore {
			best, bestScore = m, s
		}
	}
	return best.Name, nil
}

func fastScore(m Info) float64 {
	latencyTerm := 1 - m.Characteristics.FirstTokenLatency/5000
	return 0.7*m.Characteristics.OutputSpeed + 0.3*latencyTerm
}

func selectPremium(models []Info) (string, error) {
	var candidates []Info
	for _, m := range models {
		if m.Characteristics.QualityIndex >= 80 {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		return "", errs.New(errs.KindNoCapableModel, "SelectModel", "no model meets the premium quality floor of 80")
	}
	best := candidates[0]
	for _, m := range candidates[1:] {
		if m.Characteristics.QualityIndex > best.Characteristics.QualityIndex {
			best = m
		}
	}
	return best.Name, nil
}

func selectBalanced(models []Info) (string, error) {
	var candidates []Info
	for _, m := range models {
		c := m.Characteristics
		if c.QualityIndex >= 70 && c.OutputSpeed >= 100 && c.FirstTokenLatency <= 25000 {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		return "", errs.New(errs.KindNoCapableModel, "SelectModel", "no model meets the balanced capability floor")
	}
	best := candidates[0]
	bestScore := balancedScore(best)
	for _, m := range candidates[1:] {
		if s := balancedScore(m); s > bestScore {
			best, bestScore = m, s
		}
	}
	return best.Name, nil
}

// balancedScore centers quality, speed, latency, and cost-balance around
// ideal targets (0.85, 0.75, 0.75, 0.75) and penalizes variance across the
// four normalized dimensions, so a model that is merely "okay" on all four
// axes beats one that is excellent on one and poor on the rest.
func balancedScore(m Info) float64 {
	quality := m.Characteristics.QualityIndex / 100
	speed := math.Min(m.Characteristics.OutputSpeed/200, 1)
	latency := 1 - math.Min(m.Characteristics.FirstTokenLatency/25000, 1)
	costBalance := 1 - math.Min((m.InputPricePerMillion+m.OutputPricePerMillion)/50, 1)

	targets := [4]float64{0.85, 0.75, 0.75, 0.75}
	values := [4]float64{quality, speed, latency, costBalance}

	var distSq, mean float64
	for i, v := range values {
		d := v - targets[i]
		distSq += d * d
		mean += v
	}
	mean /= 4
	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= 4

	return -distSq - 0.25*variance
}
