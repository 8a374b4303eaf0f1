package receptor

import (
	"math"
	"testing"

	"github.com/pthm-cable/vitals/config"
)

func testReceptorConfig() config.ReceptorConfig {
	return config.ReceptorConfig{
		Channels: map[string]config.ChannelConfig{
			"beta_adrenergic": {Hormone: "adrenaline", HalfSat: 0.5, Slope: 2.0, Gain: 1.0, SurgeSource: "sympathetic_burst"},
			"glucocorticoid":  {Hormone: "cortisol", HalfSat: 0.8, Slope: 1.5, Gain: 1.0},
		},
		Adaptation: config.AdaptationConfig{
			Setpoint:     0.5,
			Rate:         0.01,
			RecoveryRate: 0.002,
			Min:          0.3,
		},
	}
}

func TestStepZeroConcentrationZeroSignal(t *testing.T) {
	e := NewEngine(testReceptorConfig())

	result := e.Step(map[string]float64{}, 1.0, nil)
	for ch, signal := range result.Signals {
		if signal != 0 {
			t.Errorf("%s signal = %v, want 0 at zero concentration", ch, signal)
		}
	}
}

func TestStepHalfSaturation(t *testing.T) {
	e := NewEngine(testReceptorConfig())

	result := e.Step(map[string]float64{"adrenaline": 0.5}, 0.0, nil)
	if got := result.Signals["beta_adrenergic"]; math.Abs(got-0.5) > 0.001 {
		t.Errorf("signal at half-sat = %v, want 0.5", got)
	}
}

func TestStepMonotonicInConcentration(t *testing.T) {
	prev := -1.0
	for _, conc := range []float64{0, 0.1, 0.3, 0.5, 1.0, 2.0, 5.0} {
		e := NewEngine(testReceptorConfig())
		result := e.Step(map[string]float64{"adrenaline": conc}, 0.0, nil)
		got := result.Signals["beta_adrenergic"]
		if got < prev {
			t.Fatalf("signal not monotonic at conc %v: %v < %v", conc, got, prev)
		}
		if got < 0 || got > 1 {
			t.Fatalf("signal out of bounds at conc %v: %v", conc, got)
		}
		prev = got
	}
}

func TestStepSurgeOverride(t *testing.T) {
	e := NewEngine(testReceptorConfig())

	// low blood level, strong nerve surge: the surge wins
	surges := map[string]float64{"sympathetic_burst": 0.9}
	result := e.Step(map[string]float64{"adrenaline": 0.05}, 1.0, surges)
	if got := result.Signals["beta_adrenergic"]; math.Abs(got-0.9) > 0.001 {
		t.Errorf("surged signal = %v, want 0.9", got)
	}

	// the surge is a floor, not a cap: a saturated blood signal stays
	e2 := NewEngine(testReceptorConfig())
	result = e2.Step(map[string]float64{"adrenaline": 5.0}, 1.0, map[string]float64{"sympathetic_burst": 0.1})
	if got := result.Signals["beta_adrenergic"]; got < 0.9 {
		t.Errorf("signal = %v, want the stronger blood signal kept", got)
	}

	// channels without a surge source ignore surges entirely
	result = e.Step(map[string]float64{}, 1.0, map[string]float64{"sympathetic_burst": 1.0})
	if got := result.Signals["glucocorticoid"]; got != 0 {
		t.Errorf("glucocorticoid = %v, want 0, surges must not leak across channels", got)
	}
}

func TestSensitivityDownregulation(t *testing.T) {
	e := NewEngine(testReceptorConfig())

	// sustained high occupancy drives sensitivity down toward the floor
	for i := 0; i < 500; i++ {
		e.Step(map[string]float64{"adrenaline": 5.0}, 1.0, nil)
	}
	sens := e.ExportSensitivity()
	if sens["beta_adrenergic"] > 0.31 {
		t.Errorf("sensitivity = %v, want near floor 0.3 after sustained saturation", sens["beta_adrenergic"])
	}
	if sens["beta_adrenergic"] < 0.3-1e-9 {
		t.Errorf("sensitivity = %v, below configured floor", sens["beta_adrenergic"])
	}

	// a desensitized channel transduces weaker signals
	fresh := NewEngine(testReceptorConfig())
	conc := map[string]float64{"adrenaline": 0.5}
	weakened := e.Step(conc, 0.0, nil).Signals["beta_adrenergic"]
	full := fresh.Step(conc, 0.0, nil).Signals["beta_adrenergic"]
	if weakened >= full {
		t.Errorf("desensitized signal %v should be below fresh signal %v", weakened, full)
	}
}

func TestSensitivityRecovery(t *testing.T) {
	e := NewEngine(testReceptorConfig())
	e.LoadSensitivity(map[string]float64{"beta_adrenergic": 0.5})

	// quiet plasma: sensitivity climbs back toward 1
	for i := 0; i < 500; i++ {
		e.Step(map[string]float64{}, 1.0, nil)
	}
	sens := e.ExportSensitivity()
	if math.Abs(sens["beta_adrenergic"]-1.0) > 0.001 {
		t.Errorf("sensitivity = %v, want recovered to 1.0", sens["beta_adrenergic"])
	}
}

func TestLoadSensitivityClampsAndIgnoresUnknown(t *testing.T) {
	e := NewEngine(testReceptorConfig())

	e.LoadSensitivity(map[string]float64{
		"beta_adrenergic": -5.0,
		"ghost":           0.7,
	})

	sens := e.ExportSensitivity()
	if sens["beta_adrenergic"] != 0.3 {
		t.Errorf("sensitivity = %v, want clamped to floor 0.3", sens["beta_adrenergic"])
	}
	if _, ok := sens["ghost"]; ok {
		t.Error("unknown channel should be ignored on load")
	}
}
