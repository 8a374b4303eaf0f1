// Package autonomic integrates receptor signals and reflex surges into a
// sympathetic/parasympathetic balance and a derived heart-rate index. The
// engine is stateless per tick: the ANS state is a pure function of this
// tick's inputs, with no smoothing of its own.
package autonomic

import (
	"math"
	"sort"

	"github.com/pthm-cable/vitals/config"
)

// State is the pipeline's final output. Sympathetic and parasympathetic
// are each in [0,1] and need not sum to one.
type State struct {
	Sympathetic     float64 `json:"sympathetic"`
	Parasympathetic float64 `json:"parasympathetic"`
	HeartRateIndex  float64 `json:"heart_rate_index"` // [0,1] over the configured BPM range
	HeartRateBPM    float64 `json:"heart_rate_bpm"`
}

// Engine computes ANS state from receptor signals and reflex surges.
type Engine struct {
	cfg       config.AutonomicConfig
	symOrder  []string
	paraOrder []string
}

// NewEngine builds the engine from config.
func NewEngine(cfg config.AutonomicConfig) *Engine {
	e := &Engine{cfg: cfg}
	for ch := range cfg.Sympathetic {
		e.symOrder = append(e.symOrder, ch)
	}
	for ch := range cfg.Parasympathetic {
		e.paraOrder = append(e.paraOrder, ch)
	}
	sort.Strings(e.symOrder)
	sort.Strings(e.paraOrder)
	return e
}

// Step integrates one tick. Arousal-type receptor signals and reflex surges
// push sympathetic up; the two branches then inhibit each other
// reciprocally, so high arousal actively suppresses the parasympathetic
// channel rather than merely outweighing it.
func (e *Engine) Step(receptorSignals map[string]float64, reflexSurges map[string]float64, dt float64) State {
	_ = dt // stateless per tick; dt is part of the contract only

	var symIn, paraIn float64
	for _, ch := range e.symOrder {
		symIn += e.cfg.Sympathetic[ch] * receptorSignals[ch]
	}
	for _, ch := range e.paraOrder {
		paraIn += e.cfg.Parasympathetic[ch] * receptorSignals[ch]
	}

	// sorted iteration keeps float accumulation order stable across runs
	surgeChannels := make([]string, 0, len(reflexSurges))
	for ch := range reflexSurges {
		surgeChannels = append(surgeChannels, ch)
	}
	sort.Strings(surgeChannels)
	var surgeLoad float64
	for _, ch := range surgeChannels {
		surgeLoad += reflexSurges[ch]
	}
	symIn += e.cfg.SurgeWeight * clamp01(surgeLoad)

	symRaw := clamp01(symIn)
	paraRaw := clamp01(paraIn)

	sym := clamp01(symRaw * (1 - e.cfg.Reciprocal*paraRaw))
	para := clamp01(paraRaw * (1 - e.cfg.Reciprocal*symRaw))

	hrIndex := clamp01(sym - e.cfg.VagalBrake*para)
	bpm := e.cfg.HeartRate.RestBPM + (e.cfg.HeartRate.MaxBPM-e.cfg.HeartRate.RestBPM)*hrIndex

	return State{
		Sympathetic:     sym,
		Parasympathetic: para,
		HeartRateIndex:  hrIndex,
		HeartRateBPM:    bpm,
	}
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
