package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated physiology statistics for a time window.
type WindowStats struct {
	WindowStartSec float64 `csv:"-"`
	WindowEndSec   float64 `csv:"window_end"`
	Ticks          int     `csv:"ticks"`

	// Events during window
	SurgesFired     int     `csv:"surges_fired"`
	TotalReleasedPg float64 `csv:"total_released_pg"`

	// Stress axis plasma (sampled every tick)
	AdrenalineMean float64 `csv:"adrenaline_mean"`
	AdrenalineP90  float64 `csv:"adrenaline_p90"`
	CortisolMean   float64 `csv:"cortisol_mean"`
	CortisolP90    float64 `csv:"cortisol_p90"`

	// Autonomic output
	SymMean       float64 `csv:"sym_mean"`
	SymPeak       float64 `csv:"sym_peak"`
	ParaMean      float64 `csv:"para_mean"`
	HeartRateMean float64 `csv:"hr_mean"`
	HeartRateMax  float64 `csv:"hr_max"`
	HeartRateCV   float64 `csv:"hr_cv"`

	// Gland reserves at window end
	MinInventoryPct float64 `csv:"min_inventory_pct"`
	DepletedGland   string  `csv:"depleted_gland"`
}

// LogStats logs the window via slog.
func (w WindowStats) LogStats() {
	slog.Info("window",
		"end_sec", w.WindowEndSec,
		"ticks", w.Ticks,
		"surges", w.SurgesFired,
		"released_pg", w.TotalReleasedPg,
		"adrenaline", w.AdrenalineMean,
		"cortisol", w.CortisolMean,
		"sym", w.SymMean,
		"para", w.ParaMean,
		"hr", w.HeartRateMean,
	)
}

// TraceStats summarizes a sampled trace.
type TraceStats struct {
	Mean float64
	Std  float64
	P10  float64
	P90  float64
	Max  float64
}

// ComputeTraceStats calculates mean, stddev, percentiles and max of a
// trace. Returns zeros for an empty trace.
func ComputeTraceStats(values []float64) TraceStats {
	if len(values) == 0 {
		return TraceStats{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	std := 0.0
	if len(values) > 1 {
		std = stat.StdDev(values, nil)
	}

	return TraceStats{
		Mean: stat.Mean(values, nil),
		Std:  std,
		P10:  stat.Quantile(0.10, stat.Empirical, sorted, nil),
		P90:  stat.Quantile(0.90, stat.Empirical, sorted, nil),
		Max:  sorted[len(sorted)-1],
	}
}
