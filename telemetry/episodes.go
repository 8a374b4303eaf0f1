package telemetry

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/vitals/config"
)

// EpisodeType identifies the kind of physiological episode.
type EpisodeType string

const (
	EpisodeAdrenalineSpike EpisodeType = "adrenaline_spike"
	EpisodeGlandExhaustion EpisodeType = "gland_exhaustion"
	EpisodeVagalRebound    EpisodeType = "vagal_rebound"
	EpisodeStableBaseline  EpisodeType = "stable_baseline"
)

// Episode marks an automatically detected physiological event.
type Episode struct {
	Type        EpisodeType `csv:"type"`
	SimTimeSec  float64     `csv:"sim_time"`
	Description string      `csv:"description"`
}

// LogEpisode logs the episode via slog.
func (e Episode) LogEpisode() {
	slog.Info("episode",
		"type", string(e.Type),
		"sim_time", e.SimTimeSec,
		"description", e.Description,
	)
}

// EpisodeDetector watches window stats for physiologically interesting
// moments: acute spikes, gland depletion, parasympathetic rebound after
// stress, and long stable baselines.
type EpisodeDetector struct {
	cfg config.EpisodesConfig

	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	// State tracking
	recentSymPeak      float64 // peak sympathetic mean in recent history
	stableWindowsCount int     // consecutive calm windows
	exhaustedGland     string  // gland currently flagged as exhausted
}

// NewEpisodeDetector creates a detector with the given history size.
func NewEpisodeDetector(cfg config.EpisodesConfig, historySize int) *EpisodeDetector {
	if historySize < 5 {
		historySize = 5 // minimum for stable baseline detection
	}
	return &EpisodeDetector{
		cfg:         cfg,
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest window and returns any triggered episodes.
func (d *EpisodeDetector) Check(stats WindowStats) []Episode {
	var episodes []Episode

	if d.historyFull || d.historyIdx > 0 {
		if e := d.checkAdrenalineSpike(stats); e != nil {
			episodes = append(episodes, *e)
		}
		if e := d.checkVagalRebound(stats); e != nil {
			episodes = append(episodes, *e)
		}
		if e := d.checkStableBaseline(stats); e != nil {
			episodes = append(episodes, *e)
		}
	}
	// exhaustion needs no history
	if e := d.checkGlandExhaustion(stats); e != nil {
		episodes = append(episodes, *e)
	}

	d.addToHistory(stats)

	if stats.SymMean > d.recentSymPeak {
		d.recentSymPeak = stats.SymMean
	}

	return episodes
}

func (d *EpisodeDetector) addToHistory(stats WindowStats) {
	d.history[d.historyIdx] = stats
	d.historyIdx = (d.historyIdx + 1) % d.historySize
	if d.historyIdx == 0 {
		d.historyFull = true
	}
}

func (d *EpisodeDetector) getHistory() []WindowStats {
	if d.historyFull {
		return d.history
	}
	return d.history[:d.historyIdx]
}

// checkAdrenalineSpike fires when the window's adrenaline p90 exceeds the
// rolling mean by the configured multiplier.
func (d *EpisodeDetector) checkAdrenalineSpike(stats WindowStats) *Episode {
	hist := d.getHistory()
	var sum float64
	for _, h := range hist {
		sum += h.AdrenalineMean
	}
	rollingMean := sum / float64(len(hist))
	if rollingMean <= 0 {
		return nil
	}

	if stats.AdrenalineP90 >= rollingMean*d.cfg.SpikeMultiplier && stats.SurgesFired > 0 {
		return &Episode{
			Type:       EpisodeAdrenalineSpike,
			SimTimeSec: stats.WindowEndSec,
			Description: fmt.Sprintf("adrenaline p90 %.3f vs rolling mean %.3f (%d surges)",
				stats.AdrenalineP90, rollingMean, stats.SurgesFired),
		}
	}
	return nil
}

// checkGlandExhaustion fires on the transition into exhaustion, once per
// depleted gland.
func (d *EpisodeDetector) checkGlandExhaustion(stats WindowStats) *Episode {
	if stats.MinInventoryPct > d.cfg.ExhaustionPct {
		d.exhaustedGland = ""
		return nil
	}
	if stats.DepletedGland == d.exhaustedGland {
		return nil // still the same exhaustion episode
	}
	d.exhaustedGland = stats.DepletedGland
	return &Episode{
		Type:       EpisodeGlandExhaustion,
		SimTimeSec: stats.WindowEndSec,
		Description: fmt.Sprintf("gland %s down to %.1f%% inventory",
			stats.DepletedGland, stats.MinInventoryPct*100),
	}
}

// checkVagalRebound fires when sympathetic tone has dropped well below its
// recent peak while parasympathetic tone is high: the rest-and-digest
// swing after a stress episode.
func (d *EpisodeDetector) checkVagalRebound(stats WindowStats) *Episode {
	if d.recentSymPeak == 0 {
		return nil
	}
	drop := d.recentSymPeak - stats.SymMean
	if drop >= d.cfg.ReboundDrop && stats.ParaMean >= d.cfg.ReboundPara {
		d.recentSymPeak = stats.SymMean // re-arm for the next stress cycle
		return &Episode{
			Type:       EpisodeVagalRebound,
			SimTimeSec: stats.WindowEndSec,
			Description: fmt.Sprintf("sympathetic fell %.2f from peak, parasympathetic %.2f",
				drop, stats.ParaMean),
		}
	}
	return nil
}

// checkStableBaseline fires after N consecutive windows with low heart-rate
// variability and no surges.
func (d *EpisodeDetector) checkStableBaseline(stats WindowStats) *Episode {
	if stats.HeartRateCV <= d.cfg.StableCV && stats.SurgesFired == 0 {
		d.stableWindowsCount++
	} else {
		d.stableWindowsCount = 0
	}

	if d.stableWindowsCount == d.cfg.StableWindows {
		return &Episode{
			Type:       EpisodeStableBaseline,
			SimTimeSec: stats.WindowEndSec,
			Description: fmt.Sprintf("%d calm windows, heart-rate CV %.3f",
				d.stableWindowsCount, stats.HeartRateCV),
		}
	}
	return nil
}
