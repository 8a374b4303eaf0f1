package blood

import (
	"math"
	"testing"
	"time"

	"github.com/pthm-cable/vitals/config"
)

func testBloodConfig() config.BloodConfig {
	return config.BloodConfig{
		TotalVolumeML: 5000,
		MaxDTSec:      300,
		Flow: config.FlowConfig{
			BaseMLPerSec: 83,
			MinMLPerSec:  40,
			MaxMLPerSec:  200,
		},
		Transport: config.TransportConfig{
			DistributionVolumeML: 4200,
			FlowCoupledClearance: false,
		},
		Concentration: config.ConcentrationConfig{
			MinFloor: 0,
			MaxCap:   5,
		},
	}
}

func testEngine() *Engine {
	e := NewEngine(testBloodConfig())
	e.LoadHormoneSpecs(map[string]HormoneSpec{
		"cortisol":   {Baseline: 0.3, HalfLifeSec: 300},
		"adrenaline": {Baseline: 0.05, HalfLifeSec: 180},
	})
	return e
}

func TestLoadHormoneSpecsStartsAtBaseline(t *testing.T) {
	e := testEngine()

	if got := e.ReadHormone("cortisol"); got != 0.3 {
		t.Errorf("cortisol = %v, want baseline 0.3", got)
	}
	if got := e.ReadHormone("adrenaline"); got != 0.05 {
		t.Errorf("adrenaline = %v, want baseline 0.05", got)
	}
}

func TestApplyHormoneInflux(t *testing.T) {
	e := testEngine()

	// 4200 pg over 4200 ml of distribution volume = +1 pg/ml
	e.ApplyHormoneInflux("cortisol", 4200)
	want := 0.3 + 1.0
	if got := e.ReadHormone("cortisol"); math.Abs(got-want) > 1e-9 {
		t.Errorf("cortisol = %v, want %v", got, want)
	}
}

func TestHalfLifeDecay(t *testing.T) {
	e := testEngine()

	// push cortisol to 0.9, step one half-life: excess above baseline halves
	e.ApplyHormoneInflux("cortisol", 0.6*4200)
	e.Step(300, 1.0)

	// 0.3 + (0.9-0.3)/2
	if got := e.ReadHormone("cortisol"); math.Abs(got-0.6) > 0.001 {
		t.Errorf("cortisol after one half-life = %v, want 0.6", got)
	}
}

func TestDecayIsMonotonicTowardBaseline(t *testing.T) {
	e := testEngine()
	e.ApplyHormoneInflux("adrenaline", 2.0*4200)

	prev := e.ReadHormone("adrenaline")
	for i := 0; i < 50; i++ {
		e.Step(60, 1.0)
		got := e.ReadHormone("adrenaline")
		if got > prev+1e-12 {
			t.Fatalf("concentration rose during decay at step %d: %v -> %v", i, prev, got)
		}
		if got < 0.05-1e-9 {
			t.Fatalf("concentration fell below baseline at step %d: %v", i, got)
		}
		prev = got
	}
	if math.Abs(prev-0.05) > 0.01 {
		t.Errorf("adrenaline = %v, want settled near baseline 0.05", prev)
	}
}

func TestRecoveryFromBelowBaseline(t *testing.T) {
	e := testEngine()
	e.LoadPlasma(map[string]float64{"cortisol": 0.1})

	prev := e.ReadHormone("cortisol")
	for i := 0; i < 100; i++ {
		e.Step(300, 1.0)
		got := e.ReadHormone("cortisol")
		if got < prev-1e-12 {
			t.Fatalf("concentration fell during recovery at step %d: %v -> %v", i, prev, got)
		}
		if got > 0.3+1e-9 {
			t.Fatalf("recovery overshot baseline at step %d: %v", i, got)
		}
		prev = got
	}
	if math.Abs(prev-0.3) > 0.01 {
		t.Errorf("cortisol = %v, want recovered near baseline 0.3", prev)
	}
}

func TestRecoveryIsSlowerThanClearance(t *testing.T) {
	e := testEngine()
	e.LoadPlasma(map[string]float64{"cortisol": 0.1}) // 0.2 below baseline

	// same displacement above baseline on a second engine
	above := testEngine()
	above.LoadPlasma(map[string]float64{"cortisol": 0.5}) // 0.2 above baseline

	e.Step(300, 1.0)
	above.Step(300, 1.0)

	gained := e.ReadHormone("cortisol") - 0.1
	shed := 0.5 - above.ReadHormone("cortisol")
	if gained >= shed {
		t.Errorf("recovery gained %v, clearance shed %v; recovery should be slower", gained, shed)
	}
}

func TestConcentrationClamp(t *testing.T) {
	e := testEngine()

	// absurd influx pins at the cap rather than exploding
	e.ApplyHormoneInflux("cortisol", 1e12)
	if got := e.ReadHormone("cortisol"); got != 5.0 {
		t.Errorf("cortisol = %v, want clamped at cap 5.0", got)
	}

	e.LoadPlasma(map[string]float64{"adrenaline": -3.0})
	if got := e.ReadHormone("adrenaline"); got < 0 {
		t.Errorf("adrenaline = %v, want clamped at floor 0", got)
	}
}

func TestFlowCoupledClearance(t *testing.T) {
	cfg := testBloodConfig()
	cfg.Transport.FlowCoupledClearance = true

	slow := NewEngine(cfg)
	fast := NewEngine(cfg)
	specs := map[string]HormoneSpec{"cortisol": {Baseline: 0.3, HalfLifeSec: 300}}
	slow.LoadHormoneSpecs(specs)
	fast.LoadHormoneSpecs(specs)

	slow.ApplyHormoneInflux("cortisol", 0.6*4200)
	fast.ApplyHormoneInflux("cortisol", 0.6*4200)

	slow.Step(300, 0.5)
	fast.Step(300, 2.0)

	if fast.ReadHormone("cortisol") >= slow.ReadHormone("cortisol") {
		t.Errorf("high flow should clear faster: fast=%v slow=%v",
			fast.ReadHormone("cortisol"), slow.ReadHormone("cortisol"))
	}
}

func TestStepClampsEffectiveFlow(t *testing.T) {
	e := testEngine()

	tests := []struct {
		name       string
		flowFactor float64
		want       float64
	}{
		{"stalled", 0.0, 40},
		{"resting", 1.0, 83},
		{"racing", 10.0, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := e.Step(1.0, tt.flowFactor)
			if math.Abs(result.EffectiveFlow-tt.want) > 1e-9 {
				t.Errorf("EffectiveFlow = %v, want %v", result.EffectiveFlow, tt.want)
			}
		})
	}
}

func TestUnknownHormoneReadsZero(t *testing.T) {
	e := testEngine()
	if got := e.ReadHormone("nothing"); got != 0 {
		t.Errorf("unknown hormone = %v, want 0", got)
	}
}

func TestInfluxForUnknownHormoneIsTracked(t *testing.T) {
	e := testEngine()

	// no spec: the mass lands and sits there without decaying
	e.ApplyHormoneInflux("mystery", 4200)
	e.Step(10000, 1.0)
	if got := e.ReadHormone("mystery"); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("mystery = %v, want 1.0 with no clearance spec", got)
	}
}

func TestUpdateUsesWallClock(t *testing.T) {
	e := testEngine()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	e.SetClock(func() time.Time { return now })

	// first call establishes the reference point, dt = 0
	result := e.Update(1.0)
	if result.SimTime != 0 {
		t.Errorf("SimTime after first Update = %v, want 0", result.SimTime)
	}

	now = now.Add(60 * time.Second)
	result = e.Update(1.0)
	if math.Abs(result.SimTime-60) > 1e-9 {
		t.Errorf("SimTime = %v, want 60", result.SimTime)
	}

	// a stall longer than max_dt_sec is clamped
	now = now.Add(2 * time.Hour)
	result = e.Update(1.0)
	if math.Abs(result.SimTime-360) > 1e-9 {
		t.Errorf("SimTime = %v, want 360 after max_dt clamp", result.SimTime)
	}
}

func TestExportPlasmaIsACopy(t *testing.T) {
	e := testEngine()

	exported := e.ExportPlasma()
	exported["cortisol"] = 99

	if got := e.ReadHormone("cortisol"); got == 99 {
		t.Error("mutating an exported snapshot leaked into engine state")
	}
}
