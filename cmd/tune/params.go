// Package main fits a single gland's secretion and clearance parameters
// to a recorded plasma concentration trace.
package main

import (
	"github.com/pthm-cable/vitals/config"
)

// ParamSpec defines a single tunable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the tunable parameters for one gland.
type ParamVector struct {
	Gland string
	Specs []ParamSpec
}

// NewParamVector creates the tunable parameter set for the named gland,
// seeded with that gland's current config values.
func NewParamVector(gland string, gc config.GlandConfig) *ParamVector {
	return &ParamVector{
		Gland: gland,
		Specs: []ParamSpec{
			{Name: "max_rate", Path: "glands." + gland + ".secretion.max_rate", Min: 0.5, Max: 200.0, Default: gc.Secretion.MaxRate},
			{Name: "latency_sec", Path: "glands." + gland + ".secretion.latency_sec", Min: 1.0, Max: 600.0, Default: gc.Secretion.LatencySec},
			{Name: "refill_rate", Path: "glands." + gland + ".inventory.refill_rate", Min: 0.1, Max: 100.0, Default: gc.Inventory.RefillRate},
			{Name: "half_life_sec", Path: "glands." + gland + ".half_life_sec", Min: 10.0, Max: 7200.0, Default: gc.HalfLifeSec},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		val := v[i]
		if val < spec.Min {
			val = spec.Min
		}
		if val > spec.Max {
			val = spec.Max
		}
		clamped[i] = val
	}
	return clamped
}

// ApplyToConfig applies parameter values to the gland's config entry.
// Order must match Specs order.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)

	gc := cfg.Glands[pv.Gland]
	gc.Secretion.MaxRate = clamped[0]
	gc.Secretion.LatencySec = clamped[1]
	gc.Inventory.RefillRate = clamped[2]
	gc.HalfLifeSec = clamped[3]
	cfg.Glands[pv.Gland] = gc
}
