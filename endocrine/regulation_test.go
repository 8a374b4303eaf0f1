package endocrine

import (
	"math"
	"testing"
	"time"

	"github.com/pthm-cable/vitals/config"
)

func testHPAConfig() config.HPAConfig {
	return config.HPAConfig{
		StressGain:        0.1,
		AxisTauSec:        600,
		FeedbackHormone:   "cortisol",
		FeedbackReference: 0.9,
		FeedbackStrength:  0.6,
		Drive: map[string]map[string]float64{
			"adrenaline": {"stress": 1.0, "arousal": 0.35},
			"cortisol":   {"stress": 0.7, "axis": 0.5},
			"dopamine":   {"valence": 0.8},
		},
	}
}

func TestHPAStepDriveMapping(t *testing.T) {
	r := NewHPARegulator(testHPAConfig())

	out := r.Step(map[string]float64{"stress": 0.5, "arousal": 0.4}, nil, 1.0)

	// adrenaline: 1.0*0.5 + 0.35*0.4 (no feedback hormone in plasma)
	want := 0.5 + 0.14
	if math.Abs(out["adrenaline"]-want) > 0.01 {
		t.Errorf("adrenaline drive = %v, want ~%v", out["adrenaline"], want)
	}
	// dopamine has no stress term and no valence input
	if out["dopamine"] != 0 {
		t.Errorf("dopamine drive = %v, want 0", out["dopamine"])
	}
}

func TestHPAAxisLoadChargesAndRelaxes(t *testing.T) {
	r := NewHPARegulator(testHPAConfig())

	r.Step(map[string]float64{"stress": 1.0}, nil, 10.0)
	charged := r.AxisLoad()
	if charged <= 0 {
		t.Fatalf("axis load = %v, want > 0 after stress", charged)
	}

	// long quiet stretch: the axis relaxes toward zero
	for i := 0; i < 20; i++ {
		r.Step(nil, nil, 600.0)
	}
	if r.AxisLoad() >= charged/2 {
		t.Errorf("axis load = %v, want well below %v after rest", r.AxisLoad(), charged)
	}
}

func TestHPANegativeFeedbackDampsStressDrives(t *testing.T) {
	low := NewHPARegulator(testHPAConfig())
	high := NewHPARegulator(testHPAConfig())

	stimuli := map[string]float64{"stress": 0.8}
	outLow := low.Step(stimuli, map[string]float64{"cortisol": 0.0}, 1.0)
	outHigh := high.Step(stimuli, map[string]float64{"cortisol": 2.0}, 1.0)

	if outHigh["adrenaline"] >= outLow["adrenaline"] {
		t.Errorf("high cortisol should damp adrenaline drive: %v vs %v",
			outHigh["adrenaline"], outLow["adrenaline"])
	}
	// feedback is capped: with plasma at 2x the reference, damping is exactly
	// the configured strength
	want := outLow["adrenaline"] * (1.0 - 0.6)
	if math.Abs(outHigh["adrenaline"]-want) > 0.001 {
		t.Errorf("damped adrenaline drive = %v, want %v", outHigh["adrenaline"], want)
	}
}

func TestHPADriveBounds(t *testing.T) {
	r := NewHPARegulator(testHPAConfig())

	out := r.Step(map[string]float64{"stress": 1.0, "arousal": 1.0, "valence": 5.0}, nil, 1.0)
	for h, v := range out {
		if v < -1 || v > 1 {
			t.Errorf("%s drive = %v, want within [-1,1]", h, v)
		}
	}
}

func TestHPAStateRoundTrip(t *testing.T) {
	r := NewHPARegulator(testHPAConfig())
	r.Step(map[string]float64{"stress": 1.0}, nil, 10.0)

	st := r.ExportState()
	fresh := NewHPARegulator(testHPAConfig())
	fresh.LoadState(st)

	if fresh.AxisLoad() != r.AxisLoad() {
		t.Errorf("axis load = %v, want %v after restore", fresh.AxisLoad(), r.AxisLoad())
	}
}

func testCircadianConfig() config.CircadianConfig {
	return config.CircadianConfig{
		Rhythms: map[string]config.RhythmConfig{
			"cortisol":  {Amplitude: 0.3, PeakHour: 8},
			"melatonin": {Amplitude: 0.5, PeakHour: 2, Daylight: -0.6},
			"serotonin": {Amplitude: 0.2, PeakHour: 14, Daylight: 0.3, Activity: 0.2},
		},
	}
}

func TestCircadianPeakAndTrough(t *testing.T) {
	c := NewCircadianController(testCircadianConfig())

	atPeak := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	atTrough := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)

	peak := c.Step(nil, atPeak)["cortisol"]
	trough := c.Step(nil, atTrough)["cortisol"]

	if math.Abs(peak-0.3) > 0.001 {
		t.Errorf("cortisol at peak hour = %v, want amplitude 0.3", peak)
	}
	if math.Abs(trough+0.3) > 0.001 {
		t.Errorf("cortisol at trough = %v, want -0.3", trough)
	}
}

func TestCircadianDaylightSuppression(t *testing.T) {
	c := NewCircadianController(testCircadianConfig())
	now := time.Date(2025, 6, 1, 2, 0, 0, 0, time.UTC)

	dark := c.Step(map[string]float64{ZeitgeberDaylight: 0.0}, now)["melatonin"]
	bright := c.Step(map[string]float64{ZeitgeberDaylight: 1.0}, now)["melatonin"]

	if bright >= dark {
		t.Errorf("daylight should suppress melatonin: bright=%v dark=%v", bright, dark)
	}
	if math.Abs(dark-0.5) > 0.001 {
		t.Errorf("melatonin in the dark at peak = %v, want 0.5", dark)
	}
}

func TestCircadianDeterministic(t *testing.T) {
	c := NewCircadianController(testCircadianConfig())
	now := time.Date(2025, 6, 1, 14, 30, 0, 0, time.UTC)
	z := map[string]float64{ZeitgeberDaylight: 0.7, ZeitgeberActivity: 0.4}

	first := c.Step(z, now)
	second := c.Step(z, now)
	for h, v := range first {
		if second[h] != v {
			t.Errorf("%s: %v != %v across identical calls", h, v, second[h])
		}
	}
}
