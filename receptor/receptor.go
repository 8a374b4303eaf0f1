// Package receptor transduces plasma concentrations into normalized signal
// strengths per effector channel. Transduction follows a Hill curve of
// concentration, so signals are monotonic in hormone level; a slow
// sensitivity state downregulates channels under sustained high occupancy,
// and nerve surges may override the blood-derived signal outright.
package receptor

import (
	"math"
	"sort"

	"github.com/pthm-cable/vitals/config"
)

// Engine owns the per-channel sensitivity states.
type Engine struct {
	cfg   config.ReceptorConfig
	sens  map[string]float64 // per-channel sensitivity, [min,1]
	order []string
}

// StepResult is one transduction tick's output.
type StepResult struct {
	Signals     map[string]float64 `json:"signals"`     // normalized signal per channel, [0,1]
	Sensitivity map[string]float64 `json:"sensitivity"` // current adaptation state per channel
}

// NewEngine builds the engine with all channels at full sensitivity.
func NewEngine(cfg config.ReceptorConfig) *Engine {
	e := &Engine{
		cfg:  cfg,
		sens: make(map[string]float64, len(cfg.Channels)),
	}
	for ch := range cfg.Channels {
		e.sens[ch] = 1.0
		e.order = append(e.order, ch)
	}
	sort.Strings(e.order)
	return e
}

// Step transduces the given blood concentrations into signals. Surges from
// the reflex layer jump the queue: a surging channel's signal is at least
// the surge strength, regardless of how far its sensitivity has adapted
// down. Sensitivity then drifts: down under occupancy above the setpoint,
// slowly back up otherwise.
func (e *Engine) Step(bloodConcentrations map[string]float64, dt float64, nerveSurges map[string]float64) StepResult {
	ad := e.cfg.Adaptation

	signals := make(map[string]float64, len(e.order))
	sensitivity := make(map[string]float64, len(e.order))

	for _, ch := range e.order {
		spec := e.cfg.Channels[ch]
		sens := e.sens[ch]

		occupancy := hill(bloodConcentrations[spec.Hormone], spec.HalfSat, spec.Slope)
		signal := clamp01(spec.Gain * occupancy * sens)

		if spec.SurgeSource != "" {
			if surge := nerveSurges[spec.SurgeSource]; surge > signal {
				signal = clamp01(surge)
			}
		}

		// slow adaptation of sensitivity
		if occupancy > ad.Setpoint {
			sens -= (occupancy - ad.Setpoint) * ad.Rate * dt
		} else {
			sens += ad.RecoveryRate * dt
		}
		sens = clamp(sens, ad.Min, 1.0)

		e.sens[ch] = sens
		signals[ch] = signal
		sensitivity[ch] = sens
	}

	return StepResult{Signals: signals, Sensitivity: sensitivity}
}

// ExportSensitivity returns an independent copy of the adaptation state.
func (e *Engine) ExportSensitivity() map[string]float64 {
	out := make(map[string]float64, len(e.sens))
	for ch, s := range e.sens {
		out[ch] = s
	}
	return out
}

// LoadSensitivity restores adaptation state for known channels.
func (e *Engine) LoadSensitivity(sens map[string]float64) {
	ad := e.cfg.Adaptation
	for ch, s := range sens {
		if _, ok := e.sens[ch]; ok {
			e.sens[ch] = clamp(s, ad.Min, 1.0)
		}
	}
}

// hill is the Hill-Langmuir occupancy curve: zero at zero concentration,
// half at k, saturating toward one.
func hill(conc, k, n float64) float64 {
	if conc <= 0 {
		return 0
	}
	cn := math.Pow(conc, n)
	return cn / (math.Pow(k, n) + cn)
}

func clamp01(x float64) float64 {
	return clamp(x, 0, 1)
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
