package reflex

import (
	"math"
	"testing"

	"github.com/pthm-cable/vitals/config"
	"github.com/pthm-cable/vitals/endocrine"
)

func testReflexConfig() config.ReflexConfig {
	return config.ReflexConfig{
		Threshold: 0.8,
		Channels: map[string]config.ReflexChannelConfig{
			"sympathetic_burst": {Sources: []string{"stress", "arousal"}, Gain: 1.0, Gland: "adrenaline"},
			"startle":           {Sources: []string{"stress"}, Gain: 0.8},
		},
	}
}

func activeStatus() map[string]endocrine.Status {
	return map[string]endocrine.Status{
		"adrenaline": {Hormone: "adrenaline", Label: endocrine.StatusActive},
	}
}

func TestCalculateSurgesThresholdGate(t *testing.T) {
	e := NewEngine(testReflexConfig())

	tests := []struct {
		name   string
		stress float64
		fires  bool
	}{
		{"calm", 0.0, false},
		{"moderate", 0.5, false},
		{"just under", 0.79999, false},
		{"at threshold", 0.8, true},
		{"full", 1.0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			surges := e.CalculateSurges(map[string]float64{"stress": tt.stress}, activeStatus(), 1.0)
			_, ok := surges["sympathetic_burst"]
			if ok != tt.fires {
				t.Errorf("stress %v: fired=%v, want %v", tt.stress, ok, tt.fires)
			}
		})
	}
}

func TestCalculateSurgesLargeAtThreshold(t *testing.T) {
	e := NewEngine(testReflexConfig())

	// crossing the threshold is itself a large event, not a ramp from zero
	surges := e.CalculateSurges(map[string]float64{"stress": 0.8}, activeStatus(), 1.0)
	if got := surges["sympathetic_burst"]; got < 0.2 {
		t.Errorf("surge at threshold = %v, want a substantial response", got)
	}

	full := e.CalculateSurges(map[string]float64{"stress": 1.0}, activeStatus(), 1.0)
	if math.Abs(full["sympathetic_burst"]-1.0) > 0.001 {
		t.Errorf("surge at full intensity = %v, want 1.0", full["sympathetic_burst"])
	}
	if full["sympathetic_burst"] <= surges["sympathetic_burst"] {
		t.Error("surge should grow with stimulus intensity above the threshold")
	}
}

func TestCalculateSurgesPeakOverSources(t *testing.T) {
	e := NewEngine(testReflexConfig())

	// arousal alone can fire sympathetic_burst but not startle
	surges := e.CalculateSurges(map[string]float64{"arousal": 0.9}, activeStatus(), 1.0)
	if _, ok := surges["sympathetic_burst"]; !ok {
		t.Error("sympathetic_burst should fire on arousal")
	}
	if _, ok := surges["startle"]; ok {
		t.Error("startle should not fire without stress")
	}
}

func TestCalculateSurgesGlandStatusScaling(t *testing.T) {
	e := NewEngine(testReflexConfig())
	stimuli := map[string]float64{"stress": 1.0}

	tests := []struct {
		name   string
		label  endocrine.StatusLabel
		factor float64
	}{
		{"active", endocrine.StatusActive, 1.0},
		{"fatigued", endocrine.StatusFatigued, 0.6},
		{"exhausted", endocrine.StatusExhausted, 0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := map[string]endocrine.Status{
				"adrenaline": {Hormone: "adrenaline", Label: tt.label},
			}
			surges := e.CalculateSurges(stimuli, status, 1.0)
			if math.Abs(surges["sympathetic_burst"]-tt.factor) > 0.001 {
				t.Errorf("surge = %v, want %v", surges["sympathetic_burst"], tt.factor)
			}
			// startle has no backing gland and always fires at full strength
			if math.Abs(surges["startle"]-0.8) > 0.001 {
				t.Errorf("startle = %v, want 0.8 regardless of gland status", surges["startle"])
			}
		})
	}
}

func TestCalculateSurgesBounded(t *testing.T) {
	cfg := testReflexConfig()
	ch := cfg.Channels["sympathetic_burst"]
	ch.Gain = 10.0
	cfg.Channels["sympathetic_burst"] = ch
	e := NewEngine(cfg)

	surges := e.CalculateSurges(map[string]float64{"stress": 1.0}, activeStatus(), 1.0)
	if got := surges["sympathetic_burst"]; got > 1.0 {
		t.Errorf("surge = %v, want clamped to 1.0", got)
	}
}
