// Package config provides configuration loading and access for the
// physiological simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all physiology configuration parameters.
type Config struct {
	Glands     map[string]GlandConfig `yaml:"glands"`
	Blood      BloodConfig            `yaml:"blood"`
	Regulation RegulationConfig       `yaml:"regulation"`
	Receptor   ReceptorConfig         `yaml:"receptor"`
	Reflex     ReflexConfig           `yaml:"reflex"`
	Autonomic  AutonomicConfig        `yaml:"autonomic"`
	Telemetry  TelemetryConfig        `yaml:"telemetry"`
	Episodes   EpisodesConfig         `yaml:"episodes"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

/// GlandConfig holds one hormone's static parameters: plasma kinetics plus
// the gland's inventory and secretion dynamics.
type GlandConfig struct {
	Name        string          `yaml:"name"`
	Baseline    float64         `yaml:"baseline"`      // steady-state plasma concentration (pg/ml)
	HalfLifeSec float64         `yaml:"half_life_sec"` // plasma clearance half-life
	Inventory   InventoryConfig `yaml:"inventory"`
	Secretion   SecretionConfig `yaml:"secretion"`
	Status      StatusConfig    `yaml:"status"`
}

// InventoryConfig holds gland stockpile parameters.
type InventoryConfig struct {
	MaxCapacity float64 `yaml:"max_capacity"` // pg of pre-formed hormone
	RefillRate  float64 `yaml:"refill_rate"`  // pg regenerated per second
}

// SecretionConfig holds gland output dynamics.
type SecretionConfig struct {
	MaxRate       float64 `yaml:"max_rate"`       // pg/sec at full drive and adaptation
	LatencySec    float64 `yaml:"latency_sec"`    // drive decay time constant
	DriveCap      float64 `yaml:"drive_cap"`      // accumulator ceiling (default 10)
	AdaptationMin float64 `yaml:"adaptation_min"` // desensitization floor (default 0.2)
}

// StatusConfig holds the inventory fractions below which a gland is
// reported as fatigued or exhausted.
type StatusConfig struct {
	FatiguedBelow  float64 `yaml:"fatigued_below"`  // default 0.35
	ExhaustedBelow float64 `yaml:"exhausted_below"` // default 0.10
}

// BloodConfig holds plasma pool and hemodynamics parameters.
type BloodConfig struct {
	TotalVolumeML float64             `yaml:"total_volume_ml"`
	MaxDTSec      float64             `yaml:"max_dt_sec"` // wall-clock Update clamp
	Flow          FlowConfig          `yaml:"flow"`
	Transport     TransportConfig     `yaml:"transport"`
	Concentration ConcentrationConfig `yaml:"concentration"`
}

// FlowConfig holds cardiac output parameters.
type FlowConfig struct {
	BaseMLPerSec float64 `yaml:"base_ml_per_sec"`
	MinMLPerSec  float64 `yaml:"min_ml_per_sec"`
	MaxMLPerSec  float64 `yaml:"max_ml_per_sec"`
}

// TransportConfig holds hormone transport parameters.
type TransportConfig struct {
	DistributionVolumeML float64 `yaml:"distribution_volume_ml"` // mass → concentration divisor
	FlowCoupledClearance bool    `yaml:"flow_coupled_clearance"` // scale clearance with blood flow
}

// ConcentrationConfig holds the global plasma safety clamp.
type ConcentrationConfig struct {
	MinFloor float64 `yaml:"min_floor"`
	MaxCap   float64 `yaml:"max_cap"`
}

// RegulationConfig holds the upstream regulation layer parameters.
type RegulationConfig struct {
	HPA       HPAConfig       `yaml:"hpa"`
	Circadian CircadianConfig `yaml:"circadian"`
}

// HPAConfig holds stress-axis parameters. Drive maps each hormone to
// weights over stimulus dimensions; the synthetic "axis" dimension refers
// to the slow stress-load integrator.
type HPAConfig struct {
	StressGain        float64                       `yaml:"stress_gain"` // axis charge per unit stress per second
	AxisTauSec        float64                       `yaml:"axis_tau_sec"`
	FeedbackHormone   string                        `yaml:"feedback_hormone"`
	FeedbackReference float64                       `yaml:"feedback_reference"` // plasma level giving full feedback
	FeedbackStrength  float64                       `yaml:"feedback_strength"`  // 0..1 suppression at full feedback
	Drive             map[string]map[string]float64 `yaml:"drive"`              // hormone -> stimulus dim -> weight
}

// CircadianConfig holds per-hormone rhythm parameters.
type CircadianConfig struct {
	Rhythms map[string]RhythmConfig `yaml:"rhythms"`
}

// RhythmConfig shapes one hormone's circadian modulation.
type RhythmConfig struct {
	Amplitude float64 `yaml:"amplitude"` // clock-phase modulation depth
	PeakHour  float64 `yaml:"peak_hour"` // local hour of the phase peak
	Daylight  float64 `yaml:"daylight"`  // weight on the daylight zeitgeber (signed)
	Activity  float64 `yaml:"activity"`  // weight on the activity zeitgeber (signed)
}

// ReceptorConfig holds transduction channels and their shared adaptation law.
type ReceptorConfig struct {
	Channels   map[string]ChannelConfig `yaml:"channels"`
	Adaptation AdaptationConfig         `yaml:"adaptation"`
}

// ChannelConfig holds one receptor channel's Hill transduction parameters.
type ChannelConfig struct {
	Hormone     string  `yaml:"hormone"`
	HalfSat     float64 `yaml:"half_sat"` // concentration at half occupancy
	Slope       float64 `yaml:"slope"`    // Hill coefficient
	Gain        float64 `yaml:"gain"`
	SurgeSource string  `yaml:"surge_source"` // reflex channel that may override ("" = none)
}

// AdaptationConfig holds receptor sensitivity dynamics.
type AdaptationConfig struct {
	Setpoint     float64 `yaml:"setpoint"`      // occupancy above which sensitivity falls
	Rate         float64 `yaml:"rate"`          // downregulation per second at full excess
	RecoveryRate float64 `yaml:"recovery_rate"` // upregulation per second when below setpoint
	Min          float64 `yaml:"min"`
}

// ReflexConfig holds the acute nerve-surge layer parameters.
type ReflexConfig struct {
	Threshold float64                        `yaml:"threshold"` // stimulus intensity gate (default 0.8)
	Channels  map[string]ReflexChannelConfig `yaml:"channels"`
}

// ReflexChannelConfig holds one surge channel.
type ReflexChannelConfig struct {
	Sources []string `yaml:"sources"` // stimulus dimensions; peak value is taken
	Gain    float64  `yaml:"gain"`
	Gland   string   `yaml:"gland"` // gland whose status scales the surge ("" = none)
}

// AutonomicConfig holds sympathetic/parasympathetic integration weights.
type AutonomicConfig struct {
	Sympathetic     map[string]float64 `yaml:"sympathetic"`     // receptor channel -> weight
	Parasympathetic map[string]float64 `yaml:"parasympathetic"` // receptor channel -> weight
	SurgeWeight     float64            `yaml:"surge_weight"`    // reflex contribution to sympathetic input
	Reciprocal      float64            `yaml:"reciprocal"`      // cross-inhibition strength
	VagalBrake      float64            `yaml:"vagal_brake"`     // parasympathetic pull on heart rate
	HeartRate       HeartRateConfig    `yaml:"heart_rate"`
}

// HeartRateConfig holds the derived heart-rate range.
type HeartRateConfig struct {
	RestBPM float64 `yaml:"rest_bpm"`
	MaxBPM  float64 `yaml:"max_bpm"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindowSec     float64  `yaml:"stats_window_sec"`
	EpisodeHistorySize int      `yaml:"episode_history_size"`
	DashboardCapacity  int      `yaml:"dashboard_capacity"`
	PerfWindow         int      `yaml:"perf_window"`
	DashboardHormones  []string `yaml:"dashboard_hormones"` // streamed per tick when a sink is present
}

// EpisodesConfig holds episode detection thresholds.
type EpisodesConfig struct {
	SpikeMultiplier float64 `yaml:"spike_multiplier"` // p90 vs rolling mean ratio
	ExhaustionPct   float64 `yaml:"exhaustion_pct"`   // min inventory fraction triggering exhaustion
	ReboundDrop     float64 `yaml:"rebound_drop"`     // sympathetic drop from recent peak
	ReboundPara     float64 `yaml:"rebound_para"`     // parasympathetic floor for a rebound
	StableWindows   int     `yaml:"stable_windows"`
	StableCV        float64 `yaml:"stable_cv"` // heart-rate CV threshold for stability
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	HormoneIDs []string // sorted gland keys, the canonical iteration order
	ChannelIDs []string // sorted receptor channel keys
	SurgeIDs   []string // sorted reflex channel keys
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults
// if path is empty. Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyDefaults()
	cfg.computeDerived()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults fills per-gland fields omitted from the file.
func (c *Config) applyDefaults() {
	for id, g := range c.Glands {
		if g.Name == "" {
			g.Name = id
		}
		if g.Secretion.DriveCap == 0 {
			g.Secretion.DriveCap = 10.0
		}
		if g.Secretion.AdaptationMin == 0 {
			g.Secretion.AdaptationMin = 0.2
		}
		if g.Status.FatiguedBelow == 0 {
			g.Status.FatiguedBelow = 0.35
		}
		if g.Status.ExhaustedBelow == 0 {
			g.Status.ExhaustedBelow = 0.10
		}
		c.Glands[id] = g
	}
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.HormoneIDs = sortedKeys(c.Glands)
	c.Derived.ChannelIDs = sortedKeys(c.Receptor.Channels)
	c.Derived.SurgeIDs = sortedKeys(c.Reflex.Channels)
}

// Validate checks cross-references and numeric sanity. A hormone referenced
// anywhere without a gland spec is fatal: the engines cannot run without it.
func (c *Config) Validate() error {
	if len(c.Glands) == 0 {
		return fmt.Errorf("config: no glands defined")
	}
	for _, id := range sortedKeys(c.Glands) {
		g := c.Glands[id]
		if g.HalfLifeSec <= 0 {
			return fmt.Errorf("config: gland %q: half_life_sec must be > 0", id)
		}
		if g.Baseline < 0 {
			return fmt.Errorf("config: gland %q: baseline must be >= 0", id)
		}
		if g.Inventory.MaxCapacity <= 0 {
			return fmt.Errorf("config: gland %q: inventory.max_capacity must be > 0", id)
		}
		if g.Secretion.LatencySec <= 0 {
			return fmt.Errorf("config: gland %q: secretion.latency_sec must be > 0", id)
		}
	}
	if c.Blood.Concentration.MaxCap <= c.Blood.Concentration.MinFloor {
		return fmt.Errorf("config: blood concentration clamp is empty: [%v, %v]",
			c.Blood.Concentration.MinFloor, c.Blood.Concentration.MaxCap)
	}
	if c.Blood.Transport.DistributionVolumeML <= 0 {
		return fmt.Errorf("config: blood transport.distribution_volume_ml must be > 0")
	}
	for _, ch := range sortedKeys(c.Receptor.Channels) {
		spec := c.Receptor.Channels[ch]
		if _, ok := c.Glands[spec.Hormone]; !ok {
			return fmt.Errorf("config: receptor channel %q references unknown hormone %q", ch, spec.Hormone)
		}
		if spec.HalfSat <= 0 || spec.Slope <= 0 {
			return fmt.Errorf("config: receptor channel %q: half_sat and slope must be > 0", ch)
		}
	}
	for _, ch := range sortedKeys(c.Reflex.Channels) {
		spec := c.Reflex.Channels[ch]
		if spec.Gland != "" {
			if _, ok := c.Glands[spec.Gland]; !ok {
				return fmt.Errorf("config: reflex channel %q references unknown gland %q", ch, spec.Gland)
			}
		}
	}
	for _, h := range sortedKeys(c.Regulation.HPA.Drive) {
		if _, ok := c.Glands[h]; !ok {
			return fmt.Errorf("config: hpa drive references unknown hormone %q", h)
		}
	}
	for _, h := range sortedKeys(c.Regulation.Circadian.Rhythms) {
		if _, ok := c.Glands[h]; !ok {
			return fmt.Errorf("config: circadian rhythm references unknown hormone %q", h)
		}
	}
	if fb := c.Regulation.HPA.FeedbackHormone; fb != "" {
		if _, ok := c.Glands[fb]; !ok {
			return fmt.Errorf("config: hpa feedback_hormone %q has no gland spec", fb)
		}
	}
	for _, weights := range []map[string]float64{c.Autonomic.Sympathetic, c.Autonomic.Parasympathetic} {
		for _, ch := range sortedKeys(weights) {
			if _, ok := c.Receptor.Channels[ch]; !ok {
				return fmt.Errorf("config: autonomic weight references unknown receptor channel %q", ch)
			}
		}
	}
	for _, h := range c.Telemetry.DashboardHormones {
		if _, ok := c.Glands[h]; !ok {
			return fmt.Errorf("config: telemetry dashboard hormone %q has no gland spec", h)
		}
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
