// Package physio wires the physiological engines into the fixed per-tick
// pipeline: regulation → endocrine → blood → reflex → receptor → autonomic.
// The Controller is the sole public entry point for advancing body state.
package physio

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/pthm-cable/vitals/autonomic"
	"github.com/pthm-cable/vitals/blood"
	"github.com/pthm-cable/vitals/config"
	"github.com/pthm-cable/vitals/endocrine"
	"github.com/pthm-cable/vitals/receptor"
	"github.com/pthm-cable/vitals/reflex"
	"github.com/pthm-cable/vitals/telemetry"
)

// MetricCategory labels dashboard metrics streamed by the controller.
const MetricCategory = "physiological_stream"

// heartRateMetricID is streamed alongside the configured core hormones.
const heartRateMetricID = "heart_rate_bpm"

// Options configures optional controller collaborators.
type Options struct {
	Sink telemetry.Sink           // dashboard metric sink; nil disables streaming
	Perf *telemetry.PerfCollector // pipeline phase timing; nil disables
}

// Controller owns one instance of every engine. Controllers are fully
// independent: nothing is shared between instances, and cross-session
// continuity goes through ExportState/LoadState only.
type Controller struct {
	cfg *config.Config

	endocrine *endocrine.Controller
	hpa       *endocrine.HPARegulator
	circadian *endocrine.CircadianController
	blood     *blood.Engine
	reflex    *reflex.Engine
	receptor  *receptor.Engine
	autonomic *autonomic.Engine

	sink telemetry.Sink
	perf *telemetry.PerfCollector

	tick    int64
	lastANS autonomic.State
}

// Snapshot is the composite per-tick output.
type Snapshot struct {
	Tick          int64                       `json:"tick"`
	SimTimeSec    float64                     `json:"sim_time_sec"`
	EffectiveFlow float64                     `json:"effective_flow_ml_sec"`
	Blood         map[string]float64          `json:"blood"`
	ReleasedPg    map[string]float64          `json:"released_pg"`
	Receptors     receptor.StepResult         `json:"receptors"`
	Reflex        map[string]float64          `json:"reflex"`
	Autonomic     autonomic.State             `json:"autonomic"`
	GlandStatus   map[string]endocrine.Status `json:"gland_status"`
	GlandState    map[string]endocrine.State  `json:"gland_state"`
}

// NewController builds a controller from a validated config. A hormone
// referenced anywhere without a gland spec fails construction.
func NewController(cfg *config.Config, opts Options) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("physio: %w", err)
	}

	endo := endocrine.NewControllerFromConfig(cfg)

	bloodEngine := blood.NewEngine(cfg.Blood)
	specs := make(map[string]blood.HormoneSpec, len(cfg.Glands))
	for id, spec := range endo.Specs() {
		specs[id] = blood.HormoneSpec{Baseline: spec.Baseline, HalfLifeSec: spec.HalfLifeSec}
	}
	bloodEngine.LoadHormoneSpecs(specs)

	return &Controller{
		cfg:       cfg,
		endocrine: endo,
		hpa:       endocrine.NewHPARegulator(cfg.Regulation.HPA),
		circadian: endocrine.NewCircadianController(cfg.Regulation.Circadian),
		blood:     bloodEngine,
		reflex:    reflex.NewEngine(cfg.Reflex),
		receptor:  receptor.NewEngine(cfg.Receptor),
		autonomic: autonomic.NewEngine(cfg.Autonomic),
		sink:      opts.Sink,
		perf:      opts.Perf,
	}, nil
}

// Step runs one full physiological tick. The stage order is load-bearing:
// reflex reads raw stimuli and pre-transduction gland status so it stays
// faster than blood transport, and the receptor layer sees post-decay
// blood, never pre-influx values.
func (c *Controller) Step(stimuli, zeitgebers map[string]float64, dt float64, now time.Time) Snapshot {
	if c.perf != nil {
		c.perf.StartTick()
		defer c.perf.EndTick()
	}

	// 1) Regulation layer (HPA + circadian)
	c.startPhase(telemetry.PhaseRegulation)
	plasmaSnapshot := c.blood.Concentrations()
	hpaMod := c.hpa.Step(stimuli, plasmaSnapshot, dt)
	circMod := c.circadian.Step(zeitgebers, now)
	endocrineStimuli := mergeModulation(hpaMod, circMod, c.endocrine.HormoneIDs())

	// 2) Endocrine production → blood influx
	c.startPhase(telemetry.PhaseEndocrine)
	endoOut := c.endocrine.Step(endocrineStimuli, dt)
	for _, id := range c.endocrine.HormoneIDs() {
		if mass, ok := endoOut.ReleasedPg[id]; ok {
			c.blood.ApplyHormoneInflux(id, mass)
		}
	}

	// 3) Blood transport / decay
	c.startPhase(telemetry.PhaseBlood)
	bloodOut := c.blood.Step(dt, 1.0)

	// 4) Fast reflex, straight from raw stimuli and gland reserves
	c.startPhase(telemetry.PhaseReflex)
	glandStatus := c.endocrine.StatusReport()
	reflexSurges := c.reflex.CalculateSurges(stimuli, glandStatus, dt)

	// 5) Receptor transduction
	c.startPhase(telemetry.PhaseReceptor)
	receptorOut := c.receptor.Step(bloodOut.Plasma, dt, reflexSurges)

	// 6) Autonomic integration
	c.startPhase(telemetry.PhaseAutonomic)
	ansState := c.autonomic.Step(receptorOut.Signals, reflexSurges, dt)

	c.tick++
	c.lastANS = ansState

	snapshot := Snapshot{
		Tick:          c.tick,
		SimTimeSec:    bloodOut.SimTime,
		EffectiveFlow: bloodOut.EffectiveFlow,
		Blood:         bloodOut.Plasma,
		ReleasedPg:    endoOut.ReleasedPg,
		Receptors:     receptorOut,
		Reflex:        reflexSurges,
		Autonomic:     ansState,
		GlandStatus:   glandStatus,
		GlandState:    endoOut.GlandState,
	}

	c.startPhase(telemetry.PhaseTelemetry)
	c.streamMetrics(snapshot)

	return snapshot
}

// GetSnapshot returns current body state without advancing time. Blood is
// read through the lazy-decay path; the ANS state is the one computed by
// the last Step.
func (c *Controller) GetSnapshot() Snapshot {
	return Snapshot{
		Tick:        c.tick,
		SimTimeSec:  c.blood.SimTime(),
		Blood:       c.blood.Concentrations(),
		Autonomic:   c.lastANS,
		GlandStatus: c.endocrine.StatusReport(),
		GlandState:  c.endocrine.ExportStates(),
	}
}

// Tick returns the number of completed steps.
func (c *Controller) Tick() int64 {
	return c.tick
}

// Blood exposes the blood engine for read access (tuning, tests).
func (c *Controller) Blood() *blood.Engine {
	return c.blood
}

// mergeModulation combines the HPA and circadian deltas into the endocrine
// stimulus map, clamped to [-1,1] per hormone. The two regulators may
// saturate the clamp under combined high stress and circadian peak; that
// saturation is accepted behavior.
func mergeModulation(hpaMod, circMod map[string]float64, order []string) map[string]float64 {
	merged := make(map[string]float64, len(order))
	for _, id := range order {
		h, okH := hpaMod[id]
		ci, okC := circMod[id]
		if !okH && !okC {
			continue
		}
		merged[id] = math.Max(-1, math.Min(1, h+ci))
	}
	return merged
}

// streamMetrics pushes core hormones and heart rate to the optional sink.
// Sink failures of any kind are logged and swallowed: metric reporting is
// strictly secondary to the tick's own correctness.
func (c *Controller) streamMetrics(snapshot Snapshot) {
	if c.sink == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("metric sink panicked", "panic", r)
		}
	}()

	for _, id := range c.cfg.Telemetry.DashboardHormones {
		if conc, ok := snapshot.Blood[id]; ok {
			if err := c.sink.RegisterDashboardMetric(id, conc, MetricCategory); err != nil {
				slog.Warn("metric sink rejected value", "metric", id, "error", err)
			}
		}
	}
	if err := c.sink.RegisterDashboardMetric(heartRateMetricID, snapshot.Autonomic.HeartRateBPM, MetricCategory); err != nil {
		slog.Warn("metric sink rejected value", "metric", heartRateMetricID, "error", err)
	}
}

func (c *Controller) startPhase(phase string) {
	if c.perf != nil {
		c.perf.StartPhase(phase)
	}
}
