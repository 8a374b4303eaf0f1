package main

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/vitals/config"
	"github.com/pthm-cable/vitals/physio"
)

// targetRow is one tick of the reference trace: the stimulus applied and
// the plasma concentration observed.
type targetRow struct {
	Stress        float64 `csv:"stress"`
	Concentration float64 `csv:"concentration"`
}

// LoadTargetTrace reads the reference trace CSV.
func LoadTargetTrace(path string) ([]targetRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening target trace: %w", err)
	}
	defer f.Close()

	var rows []targetRow
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		return nil, fmt.Errorf("parsing target trace: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("target trace %s has no rows", path)
	}
	return rows, nil
}

// FitnessEvaluator scores a parameter vector by running the deterministic
// pipeline against the reference trace and measuring plasma error.
type FitnessEvaluator struct {
	params  *ParamVector
	cfg     *config.Config
	hormone string
	target  []targetRow
	dt      float64

	lastRMSE float64
}

func NewFitnessEvaluator(params *ParamVector, cfg *config.Config, target []targetRow, dt float64) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:  params,
		cfg:     cfg,
		hormone: params.Gland,
		target:  target,
		dt:      dt,
	}
}

// Evaluate runs one simulation with the given raw parameter values and
// returns the RMSE against the target trace. The pipeline is fully
// deterministic, so one run per vector is enough.
func (fe *FitnessEvaluator) Evaluate(raw []float64) float64 {
	fe.params.ApplyToConfig(fe.cfg, raw)

	controller, err := physio.NewController(fe.cfg, physio.Options{})
	if err != nil {
		// out-of-range vectors that break validation score worst
		fe.lastRMSE = math.Inf(1)
		return 1e9
	}

	// fixed epoch keeps circadian phase identical across evaluations
	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	var sumSq float64
	for i, row := range fe.target {
		now := base.Add(time.Duration(float64(i) * fe.dt * float64(time.Second)))
		snapshot := controller.Step(
			map[string]float64{"stress": row.Stress},
			map[string]float64{"daylight": 0.8},
			fe.dt, now,
		)
		diff := snapshot.Blood[fe.hormone] - row.Concentration
		sumSq += diff * diff
	}

	rmse := math.Sqrt(sumSq / float64(len(fe.target)))
	fe.lastRMSE = rmse
	return rmse
}

// LastRMSE returns the error of the most recent evaluation.
func (fe *FitnessEvaluator) LastRMSE() float64 {
	return fe.lastRMSE
}
