package telemetry

import (
	"math"
	"sort"

	"github.com/pthm-cable/vitals/autonomic"
	"github.com/pthm-cable/vitals/endocrine"
)

// Collector accumulates per-tick physiology samples within time windows
// and produces WindowStats.
type Collector struct {
	windowSec float64

	simTime     float64
	windowStart float64
	ticks       int

	surges     int
	releasedPg float64

	adrenaline []float64
	cortisol   []float64
	sym        []float64
	para       []float64
	heartRate  []float64

	minInventoryPct float64
	depletedGland   string
}

// NewCollector creates a collector flushing every windowSec simulated
// seconds.
func NewCollector(windowSec float64) *Collector {
	if windowSec <= 0 {
		windowSec = 60
	}
	c := &Collector{windowSec: windowSec}
	c.resetWindow(0)
	return c
}

// RecordTick records one tick's outputs.
func (c *Collector) RecordTick(dt float64, blood map[string]float64, surges map[string]float64, ans autonomic.State) {
	c.simTime += dt
	c.ticks++

	if len(surges) > 0 {
		c.surges++
	}

	c.adrenaline = append(c.adrenaline, blood["adrenaline"])
	c.cortisol = append(c.cortisol, blood["cortisol"])
	c.sym = append(c.sym, ans.Sympathetic)
	c.para = append(c.para, ans.Parasympathetic)
	c.heartRate = append(c.heartRate, ans.HeartRateBPM)
}

// RecordRelease records hormone mass released this tick.
func (c *Collector) RecordRelease(massPg float64) {
	c.releasedPg += massPg
}

// RecordGlandStatus tracks the lowest inventory reserve seen this window.
func (c *Collector) RecordGlandStatus(report map[string]endocrine.Status) {
	for _, id := range sortedStatusKeys(report) {
		st := report[id]
		pct := st.InventoryPct / 100.0
		if pct < c.minInventoryPct {
			c.minInventoryPct = pct
			c.depletedGland = id
		}
	}
}

// ShouldFlush reports whether a full window has elapsed.
func (c *Collector) ShouldFlush() bool {
	return c.simTime-c.windowStart >= c.windowSec
}

// Flush produces the current window's stats and starts a new window.
func (c *Collector) Flush() WindowStats {
	adr := ComputeTraceStats(c.adrenaline)
	cor := ComputeTraceStats(c.cortisol)
	sym := ComputeTraceStats(c.sym)
	para := ComputeTraceStats(c.para)
	hr := ComputeTraceStats(c.heartRate)

	hrCV := 0.0
	if hr.Mean > 0 {
		hrCV = hr.Std / hr.Mean
	}

	minInv := c.minInventoryPct
	if math.IsInf(minInv, 1) {
		minInv = 1.0
	}

	stats := WindowStats{
		WindowStartSec:  c.windowStart,
		WindowEndSec:    c.simTime,
		Ticks:           c.ticks,
		SurgesFired:     c.surges,
		TotalReleasedPg: c.releasedPg,
		AdrenalineMean:  adr.Mean,
		AdrenalineP90:   adr.P90,
		CortisolMean:    cor.Mean,
		CortisolP90:     cor.P90,
		SymMean:         sym.Mean,
		SymPeak:         sym.Max,
		ParaMean:        para.Mean,
		HeartRateMean:   hr.Mean,
		HeartRateMax:    hr.Max,
		HeartRateCV:     hrCV,
		MinInventoryPct: minInv,
		DepletedGland:   c.depletedGland,
	}

	c.resetWindow(c.simTime)
	return stats
}

func (c *Collector) resetWindow(start float64) {
	c.windowStart = start
	c.ticks = 0
	c.surges = 0
	c.releasedPg = 0
	c.adrenaline = c.adrenaline[:0]
	c.cortisol = c.cortisol[:0]
	c.sym = c.sym[:0]
	c.para = c.para[:0]
	c.heartRate = c.heartRate[:0]
	c.minInventoryPct = math.Inf(1)
	c.depletedGland = ""
}

func sortedStatusKeys(m map[string]endocrine.Status) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
