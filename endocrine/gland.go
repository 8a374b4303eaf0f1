// Package endocrine models hormone production: per-hormone glands with
// inventory, adaptation and drive dynamics, plus the controllers that
// regulate them. Glands produce hormone mass (pg); plasma concentration,
// clearance and half-life belong to the blood package.
package endocrine

import (
	"math"

	"github.com/pthm-cable/vitals/config"
)

// Surge and secretion constants. The Hill curve midpoint/slope define the
// drive→intensity S-curve shared by all glands.
const (
	SurgeThreshold = 0.8 // stimulus intensity at or above which a nerve surge fires

	surgeFraction    = 0.40 // max inventory fraction dumped by a surge at full intensity
	surgeDriveBoost  = 5.0
	surgeAdaptDrop   = 0.15
	stimulusDeadzone = 0.05
	adaptDecayRate   = 0.05 // adaptation loss per unit stimulus per second
	adaptRecovery    = 0.02 // adaptation regained per second at rest
	driveChargeRate  = 2.0  // drive gained per unit stimulus per second
	driveEpsilon     = 1e-4

	hillMidpoint = 2.5
	hillSlope    = 3.0

	adaptationMax = 1.0
)

// StatusLabel classifies a gland's inventory reserve.
type StatusLabel string

const (
	StatusActive    StatusLabel = "active"
	StatusFatigued  StatusLabel = "fatigued"
	StatusExhausted StatusLabel = "exhausted"
)

// Spec holds one hormone's static parameters. Immutable once built.
type Spec struct {
	ID             string
	Name           string
	Baseline       float64 // steady-state plasma concentration (pg/ml)
	HalfLifeSec    float64 // plasma clearance half-life
	InventoryMax   float64 // pg
	RefillRate     float64 // pg/sec
	MaxRate        float64 // pg/sec at full drive and adaptation
	LatencySec     float64 // drive decay time constant
	DriveCap       float64
	AdaptationMin  float64
	FatiguedBelow  float64 // inventory fraction
	ExhaustedBelow float64 // inventory fraction
}

// SpecFromConfig builds a Spec from a loaded gland configuration.
func SpecFromConfig(id string, gc config.GlandConfig) Spec {
	return Spec{
		ID:             id,
		Name:           gc.Name,
		Baseline:       gc.Baseline,
		HalfLifeSec:    gc.HalfLifeSec,
		InventoryMax:   gc.Inventory.MaxCapacity,
		RefillRate:     gc.Inventory.RefillRate,
		MaxRate:        gc.Secretion.MaxRate,
		LatencySec:     math.Max(1.0, gc.Secretion.LatencySec),
		DriveCap:       gc.Secretion.DriveCap,
		AdaptationMin:  gc.Secretion.AdaptationMin,
		FatiguedBelow:  gc.Status.FatiguedBelow,
		ExhaustedBelow: gc.Status.ExhaustedBelow,
	}
}

// State is one gland's mutable state. It is a value type: gland methods
// take a State and return a new one, so every stored copy is independent.
type State struct {
	Inventory  float64 `json:"inventory"`
	Adaptation float64 `json:"adaptation"`
	Drive      float64 `json:"drive"`
	LastFluxPg float64 `json:"last_flux_pg"` // diagnostic only
}

// Status is the derived, human-readable gland condition.
type Status struct {
	Hormone      string      `json:"hormone"`
	InventoryPct float64     `json:"inventory_pct"`
	Adaptation   float64     `json:"adaptation"`
	Drive        float64     `json:"drive"`
	LastFluxPg   float64     `json:"last_flux_pg"`
	Label        StatusLabel `json:"state"`
}

// Gland is the production unit for one hormone.
type Gland struct {
	spec Spec
}

// NewGland creates a gland from its spec.
func NewGland(spec Spec) *Gland {
	return &Gland{spec: spec}
}

// Spec returns the gland's static parameters.
func (g *Gland) Spec() Spec {
	return g.spec
}

// InitialState returns the lifecycle-initial state: full inventory, no
// desensitization, no pent-up drive.
func (g *Gland) InitialState() State {
	return State{
		Inventory:  g.spec.InventoryMax,
		Adaptation: 1.0,
		Drive:      0.0,
		LastFluxPg: 0.0,
	}
}

// hillResponse maps drive level to secretion intensity in [0,1). The curve
// is near zero below the midpoint, rises steeply, then saturates.
func hillResponse(x float64) float64 {
	if x <= 0 {
		return 0
	}
	xn := math.Pow(x, hillSlope)
	return xn / (math.Pow(hillMidpoint, hillSlope) + xn)
}

// TriggerNerveSurge is the acute release path: stimulus at or above
// SurgeThreshold dumps up to 40% of current inventory, scaled by intensity
// and by the current adaptation factor. Below the threshold it is a no-op.
// Returns released mass (pg) and the updated state.
func (g *Gland) TriggerNerveSurge(s State, stimulusIntensity float64) (float64, State) {
	if stimulusIntensity < SurgeThreshold {
		return 0.0, s
	}

	potential := s.Inventory * surgeFraction * stimulusIntensity
	released := math.Min(potential*s.Adaptation, s.Inventory)

	s.Inventory -= released
	s.Drive = math.Min(g.spec.DriveCap, s.Drive+stimulusIntensity*surgeDriveBoost)
	// rapid desensitization
	s.Adaptation = math.Max(g.spec.AdaptationMin, s.Adaptation-stimulusIntensity*surgeAdaptDrop)
	s.LastFluxPg = released

	return released, g.clampState(s)
}

// ProcessStep is the tonic secretion path over dt seconds. Inventory
// refills linearly; sustained stimulus charges drive and erodes adaptation;
// output follows the Hill curve of drive and is bounded by inventory; drive
// then decays with the gland's latency time constant.
// Returns released mass (pg) and the updated state.
func (g *Gland) ProcessStep(s State, stimulus, dt float64) (float64, State) {
	s.Inventory = math.Min(g.spec.InventoryMax, s.Inventory+g.spec.RefillRate*dt)

	if stimulus > stimulusDeadzone {
		s.Adaptation = math.Max(g.spec.AdaptationMin, s.Adaptation-stimulus*adaptDecayRate*dt)
		s.Drive = math.Min(g.spec.DriveCap, s.Drive+stimulus*driveChargeRate*dt)
	} else {
		s.Adaptation = math.Min(adaptationMax, s.Adaptation+adaptRecovery*dt)
	}

	intensity := hillResponse(s.Drive)
	potential := g.spec.MaxRate * intensity * s.Adaptation * dt

	released := math.Min(potential, s.Inventory)
	s.Inventory -= released
	s.LastFluxPg = released

	s.Drive *= math.Exp(-dt / g.spec.LatencySec)
	if s.Drive < driveEpsilon {
		s.Drive = 0.0
	}

	return released, g.clampState(s)
}

// Status classifies the gland's inventory reserve. Observability only; no
// control decision reads the label.
func (g *Gland) Status(s State) Status {
	invPct := s.Inventory / math.Max(1.0, g.spec.InventoryMax)

	label := StatusActive
	switch {
	case invPct <= g.spec.ExhaustedBelow:
		label = StatusExhausted
	case invPct <= g.spec.FatiguedBelow:
		label = StatusFatigued
	}

	return Status{
		Hormone:      g.spec.ID,
		InventoryPct: invPct * 100.0,
		Adaptation:   s.Adaptation,
		Drive:        s.Drive,
		LastFluxPg:   s.LastFluxPg,
		Label:        label,
	}
}

// clampState enforces the gland invariants after every mutation:
// inventory in [0, max], adaptation in [min, 1], drive in [0, cap].
func (g *Gland) clampState(s State) State {
	s.Inventory = clamp(s.Inventory, 0, g.spec.InventoryMax)
	s.Adaptation = clamp(s.Adaptation, g.spec.AdaptationMin, adaptationMax)
	s.Drive = clamp(s.Drive, 0, g.spec.DriveCap)
	return s
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
