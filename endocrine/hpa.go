package endocrine

import (
	"math"
	"sort"

	"github.com/pthm-cable/vitals/config"
)

// axisDimension is the synthetic stimulus dimension exposing the HPA's own
// slow stress-load integrator to the drive tables.
const axisDimension = "axis"

// HPARegulator translates raw stimulus dimensions into per-hormone stimulus
// deltas, with a slow stress-load integrator and negative feedback from the
// configured feedback hormone's plasma level. Its deltas model homeostatic
// drift; the acute path is the reflex layer.
type HPARegulator struct {
	cfg      config.HPAConfig
	axisLoad float64 // slow stress integrator, [0,1]
	order    []string
}

// HPAState is the regulator's persistable state.
type HPAState struct {
	AxisLoad float64 `json:"axis_load"`
}

// NewHPARegulator builds the regulator from config.
func NewHPARegulator(cfg config.HPAConfig) *HPARegulator {
	order := make([]string, 0, len(cfg.Drive))
	for h := range cfg.Drive {
		order = append(order, h)
	}
	sort.Strings(order)
	return &HPARegulator{cfg: cfg, order: order}
}

// Step advances the axis load and returns per-hormone stimulus deltas in
// [-1,1]. Stress charges the axis; the axis relaxes with its time constant;
// a high plasma level of the feedback hormone damps all stress-axis drives.
func (r *HPARegulator) Step(stimuli map[string]float64, plasma map[string]float64, dt float64) map[string]float64 {
	stress := clamp(stimuli["stress"], 0, 1)

	r.axisLoad += stress * r.cfg.StressGain * dt
	if r.cfg.AxisTauSec > 0 {
		r.axisLoad *= math.Exp(-dt / r.cfg.AxisTauSec)
	}
	r.axisLoad = clamp(r.axisLoad, 0, 1)

	feedback := 0.0
	if r.cfg.FeedbackHormone != "" && r.cfg.FeedbackReference > 0 {
		level := plasma[r.cfg.FeedbackHormone]
		feedback = clamp(level/r.cfg.FeedbackReference, 0, 1) * r.cfg.FeedbackStrength
	}

	out := make(map[string]float64, len(r.order))
	for _, h := range r.order {
		weights := r.cfg.Drive[h]

		var drive float64
		stressAxis := false
		dims := make([]string, 0, len(weights))
		for dim := range weights {
			dims = append(dims, dim)
		}
		sort.Strings(dims)
		for _, dim := range dims {
			w := weights[dim]
			var v float64
			if dim == axisDimension {
				v = r.axisLoad
			} else {
				v = stimuli[dim]
			}
			drive += w * v
			if dim == "stress" || dim == axisDimension {
				stressAxis = true
			}
		}

		if stressAxis {
			drive *= 1.0 - feedback
		}
		out[h] = clamp(drive, -1, 1)
	}
	return out
}

// AxisLoad returns the current stress-load integrator value.
func (r *HPARegulator) AxisLoad() float64 {
	return r.axisLoad
}

// ExportState returns the regulator's persistable state.
func (r *HPARegulator) ExportState() HPAState {
	return HPAState{AxisLoad: r.axisLoad}
}

// LoadState restores the regulator's state.
func (r *HPARegulator) LoadState(s HPAState) {
	r.axisLoad = clamp(s.AxisLoad, 0, 1)
}
