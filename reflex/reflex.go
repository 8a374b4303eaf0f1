// Package reflex computes acute nerve surges straight from raw stimuli and
// gland reserve status, bypassing blood transport entirely. This is the
// fight/flight path: sub-threshold stimuli produce nothing, supra-threshold
// stimuli produce large, immediate surges.
package reflex

import (
	"math"
	"sort"

	"github.com/pthm-cable/vitals/config"
	"github.com/pthm-cable/vitals/endocrine"
)

// Surge scaling factors by gland reserve status. A depleted gland cannot
// back a full-strength surge even when the nerve fires.
const (
	statusFactorActive    = 1.0
	statusFactorFatigued  = 0.6
	statusFactorExhausted = 0.2
)

// minResponse is the surge floor at the firing threshold; crossing the
// threshold is itself a large event, not the start of a ramp from zero.
const minResponse = 0.25

// Engine computes per-channel surges. It holds no mutable state: surges
// are a pure per-tick function of stimuli and gland status, so any
// persistence lives in the glands it reads from.
type Engine struct {
	cfg   config.ReflexConfig
	order []string
}

// NewEngine builds the engine from config.
func NewEngine(cfg config.ReflexConfig) *Engine {
	order := make([]string, 0, len(cfg.Channels))
	for ch := range cfg.Channels {
		order = append(order, ch)
	}
	sort.Strings(order)
	return &Engine{cfg: cfg, order: order}
}

// CalculateSurges returns surge strengths in [0,1] per channel. Only firing
// channels appear in the result; absent means zero. A channel fires when
// the peak of its source stimulus dimensions reaches the threshold, then
// ramps linearly from the threshold to full intensity, scaled by its
// backing gland's reserve status.
func (e *Engine) CalculateSurges(stimuli map[string]float64, glandStatus map[string]endocrine.Status, dt float64) map[string]float64 {
	_ = dt // surges are instantaneous; dt is part of the contract only

	surges := make(map[string]float64)
	threshold := e.cfg.Threshold

	for _, ch := range e.order {
		spec := e.cfg.Channels[ch]

		var peak float64
		for _, dim := range spec.Sources {
			peak = math.Max(peak, stimuli[dim])
		}
		if peak < threshold {
			continue
		}

		ramp := 1.0
		if threshold < 1.0 {
			ramp = (peak - threshold) / (1.0 - threshold)
		}
		surge := spec.Gain * (minResponse + (1.0-minResponse)*ramp)

		if spec.Gland != "" {
			if status, ok := glandStatus[spec.Gland]; ok {
				surge *= statusFactor(status.Label)
			}
		}

		if surge > 0 {
			surges[ch] = clamp01(surge)
		}
	}
	return surges
}

func statusFactor(label endocrine.StatusLabel) float64 {
	switch label {
	case endocrine.StatusExhausted:
		return statusFactorExhausted
	case endocrine.StatusFatigued:
		return statusFactorFatigued
	default:
		return statusFactorActive
	}
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
