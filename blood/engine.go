// Package blood models the shared plasma pool: hormone mass influx,
// flow-coupled exponential clearance toward baseline, and the global
// concentration safety clamp. Decay is evaluated lazily per hormone
// against an explicit simulation clock, so any read reflects the true
// elapsed simulation time since that hormone's last mutation.
package blood

import (
	"math"
	"sort"
	"time"

	"github.com/pthm-cable/vitals/config"
)

var ln2 = math.Log(2)

// Recovery toward baseline runs at one-fifth the clearance rate: falling
// back to calm is quicker than rebuilding a depleted hormone.
const recoveryRateFraction = 0.2

// HormoneSpec holds the plasma kinetics the engine needs per hormone.
type HormoneSpec struct {
	Baseline    float64
	HalfLifeSec float64
}

// StepResult is one blood tick's output.
type StepResult struct {
	SimTime       float64            // simulation clock after the step (seconds)
	EffectiveFlow float64            // clamped cardiac output (ml/sec)
	Plasma        map[string]float64 // concentration snapshot (pg/ml)
}

// Engine owns the plasma pool. Time is advanced only by Step(dt); the
// wall-clock Update path is a thin adapter for background loops.
type Engine struct {
	cfg   config.BloodConfig
	specs map[string]HormoneSpec

	plasma    map[string]float64
	lastDecay map[string]float64 // sim-time stamp per hormone
	order     []string           // sorted plasma keys

	simTime  float64
	clock    func() time.Time // wall clock, injectable for tests
	lastWall time.Time
}

// NewEngine creates an engine with an empty plasma pool.
func NewEngine(cfg config.BloodConfig) *Engine {
	return &Engine{
		cfg:       cfg,
		specs:     make(map[string]HormoneSpec),
		plasma:    make(map[string]float64),
		lastDecay: make(map[string]float64),
		clock:     time.Now,
	}
}

// SetClock replaces the wall clock used by Update.
func (e *Engine) SetClock(clock func() time.Time) {
	e.clock = clock
}

// LoadHormoneSpecs is one-time setup: every hormone's plasma entry starts
// at its configured baseline with a fresh decay stamp.
func (e *Engine) LoadHormoneSpecs(specs map[string]HormoneSpec) {
	e.specs = make(map[string]HormoneSpec, len(specs))
	for id, spec := range specs {
		e.specs[id] = spec
		e.plasma[id] = clampConc(spec.Baseline, e.cfg.Concentration)
		e.lastDecay[id] = e.simTime
	}
	e.rebuildOrder()
}

// ApplyHormoneInflux injects hormone mass (pg) into the plasma. Pending
// decay is applied first so the delta lands on an up-to-date value, then
// the concentration is clamped.
func (e *Engine) ApplyHormoneInflux(hormoneID string, massPg float64) {
	if _, ok := e.plasma[hormoneID]; !ok {
		e.plasma[hormoneID] = 0
		e.lastDecay[hormoneID] = e.simTime
		e.rebuildOrder()
	}
	e.applyDecay(hormoneID, e.cfg.Flow.BaseMLPerSec)

	delta := massPg / e.cfg.Transport.DistributionVolumeML
	e.plasma[hormoneID] = clampConc(e.plasma[hormoneID]+delta, e.cfg.Concentration)
}

// Step advances the simulation clock by dt seconds and applies decay to
// every tracked hormone at the flow-adjusted clearance rate.
func (e *Engine) Step(dt, flowFactor float64) StepResult {
	e.simTime += dt

	effFlow := clamp(e.cfg.Flow.BaseMLPerSec*flowFactor, e.cfg.Flow.MinMLPerSec, e.cfg.Flow.MaxMLPerSec)

	for _, id := range e.order {
		e.applyDecay(id, effFlow)
	}

	return StepResult{
		SimTime:       e.simTime,
		EffectiveFlow: effFlow,
		Plasma:        e.copyPlasma(),
	}
}

// Update is the wall-clock-driven legacy path: dt is measured since the
// previous Update call, clamped to max_dt_sec, then fed to Step. Simulation
// code should call Step directly.
func (e *Engine) Update(flowFactor float64) StepResult {
	now := e.clock()
	var dt float64
	if !e.lastWall.IsZero() {
		dt = clamp(now.Sub(e.lastWall).Seconds(), 0, e.cfg.MaxDTSec)
	}
	e.lastWall = now
	return e.Step(dt, flowFactor)
}

// ReadHormone returns one hormone's concentration after applying pending
// decay. Unknown hormones read as zero.
func (e *Engine) ReadHormone(hormoneID string) float64 {
	e.applyDecay(hormoneID, e.cfg.Flow.BaseMLPerSec)
	return e.plasma[hormoneID]
}

// Concentrations returns a snapshot of all concentrations after applying
// pending decay.
func (e *Engine) Concentrations() map[string]float64 {
	for _, id := range e.order {
		e.applyDecay(id, e.cfg.Flow.BaseMLPerSec)
	}
	return e.copyPlasma()
}

// SimTime returns the engine's simulation clock in seconds.
func (e *Engine) SimTime() float64 {
	return e.simTime
}

// ExportPlasma returns an independent copy of the plasma map for
// persistence.
func (e *Engine) ExportPlasma() map[string]float64 {
	return e.copyPlasma()
}

// LoadPlasma restores concentrations from a snapshot, clamped, with fresh
// decay stamps.
func (e *Engine) LoadPlasma(plasma map[string]float64) {
	for id, conc := range plasma {
		e.plasma[id] = clampConc(conc, e.cfg.Concentration)
		e.lastDecay[id] = e.simTime
	}
	e.rebuildOrder()
}

// applyDecay brings one hormone up to date with the simulation clock.
// Above baseline the excess decays exponentially with the hormone's
// clearance rate; below baseline it recovers at one-fifth that rate.
// Hormones without a spec are left untouched.
func (e *Engine) applyDecay(hormoneID string, flow float64) {
	spec, ok := e.specs[hormoneID]
	if !ok {
		return
	}

	dt := e.simTime - e.lastDecay[hormoneID]
	if dt <= 0 {
		return
	}

	halfLife := math.Max(1.0, spec.HalfLifeSec)
	k := ln2 / halfLife

	if e.cfg.Transport.FlowCoupledClearance && e.cfg.Flow.BaseMLPerSec > 0 {
		k *= clamp(flow/e.cfg.Flow.BaseMLPerSec, 0.5, 2.0)
	}

	current := e.plasma[hormoneID]
	switch {
	case current > spec.Baseline:
		excess := current - spec.Baseline
		current = spec.Baseline + excess*math.Exp(-k*dt)
	case current < spec.Baseline:
		recoveryK := k * recoveryRateFraction
		current += (spec.Baseline - current) * (1 - math.Exp(-recoveryK*dt))
	}

	e.plasma[hormoneID] = clampConc(current, e.cfg.Concentration)
	e.lastDecay[hormoneID] = e.simTime
}

func (e *Engine) copyPlasma() map[string]float64 {
	out := make(map[string]float64, len(e.plasma))
	for id, conc := range e.plasma {
		out[id] = conc
	}
	return out
}

func (e *Engine) rebuildOrder() {
	e.order = e.order[:0]
	for id := range e.plasma {
		e.order = append(e.order, id)
	}
	sort.Strings(e.order)
}

func clampConc(x float64, c config.ConcentrationConfig) float64 {
	return clamp(x, c.MinFloor, c.MaxCap)
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
