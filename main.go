package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/joho/godotenv"

	"github.com/pthm-cable/vitals/config"
	"github.com/pthm-cable/vitals/physio"
	"github.com/pthm-cable/vitals/telemetry"
)

// scriptRow is one tick's worth of stimuli and zeitgebers. If the script
// is shorter than the run, the last row repeats.
type scriptRow struct {
	Stress   float64 `csv:"stress"`
	Arousal  float64 `csv:"arousal"`
	Valence  float64 `csv:"valence"`
	Warmth   float64 `csv:"warmth"`
	Daylight float64 `csv:"daylight"`
	Activity float64 `csv:"activity"`
}

func (r scriptRow) stimuli() map[string]float64 {
	return map[string]float64{
		"stress":  r.Stress,
		"arousal": r.Arousal,
		"valence": r.Valence,
		"warmth":  r.Warmth,
	}
}

func (r scriptRow) zeitgebers() map[string]float64 {
	return map[string]float64{
		"daylight": r.Daylight,
		"activity": r.Activity,
	}
}

func loadScript(path string) ([]scriptRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening stimulus script: %w", err)
	}
	defer f.Close()

	var rows []scriptRow
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		return nil, fmt.Errorf("parsing stimulus script: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("stimulus script %s has no rows", path)
	}
	return rows, nil
}

// envDefault returns the environment value for key, or def if unset.
func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	// .env is optional; system environment still applies without it
	_ = godotenv.Load()

	// CLI flags
	configPath := flag.String("config", envDefault("VITALS_CONFIG", ""), "Path to config.yaml (empty = use defaults)")
	outputDir := flag.String("output-dir", envDefault("VITALS_OUTPUT_DIR", ""), "Output directory for CSV logs, state and config snapshot")
	scriptPath := flag.String("script", "", "Stimulus script CSV (empty = idle baseline run)")
	restorePath := flag.String("restore", "", "Resume from a saved state JSON")
	ticks := flag.Int("ticks", 600, "Number of simulation ticks to run")
	dt := flag.Float64("dt", 30.0, "Simulated seconds per tick")
	logStats := flag.Bool("log-stats", false, "Output window stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	perfEvery := flag.Int("perf-every", 0, "Log perf stats every N ticks (0 = off)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	statsWindowSec := cfg.Telemetry.StatsWindowSec
	if *statsWindow > 0 {
		statsWindowSec = *statsWindow
	}

	var script []scriptRow
	if *scriptPath != "" {
		rows, err := loadScript(*scriptPath)
		if err != nil {
			slog.Error("failed to load stimulus script", "error", err)
			os.Exit(1)
		}
		script = rows
	} else {
		// idle baseline: quiet daytime, no stressors
		script = []scriptRow{{Daylight: 0.8, Activity: 0.3}}
	}

	dashboard := telemetry.NewDashboard(cfg.Telemetry.DashboardCapacity)
	perf := telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow)

	controller, err := physio.NewController(cfg, physio.Options{Sink: dashboard, Perf: perf})
	if err != nil {
		slog.Error("failed to build physio controller", "error", err)
		os.Exit(1)
	}

	if *restorePath != "" {
		if err := controller.RestoreState(*restorePath); err != nil {
			slog.Error("failed to restore state", "error", err)
			os.Exit(1)
		}
		slog.Info("restored state", "path", *restorePath, "tick", controller.Tick())
	}

	om, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output manager", "error", err)
		os.Exit(1)
	}
	defer om.Close()

	if err := om.WriteConfig(cfg); err != nil {
		slog.Warn("failed to write config snapshot", "error", err)
	}

	collector := telemetry.NewCollector(statsWindowSec)
	detector := telemetry.NewEpisodeDetector(cfg.Episodes, cfg.Telemetry.EpisodeHistorySize)

	start := time.Now()
	for i := 0; i < *ticks; i++ {
		row := script[min(i, len(script)-1)]
		now := start.Add(time.Duration(float64(i) * *dt * float64(time.Second)))

		snapshot := controller.Step(row.stimuli(), row.zeitgebers(), *dt, now)

		collector.RecordTick(*dt, snapshot.Blood, snapshot.Reflex, snapshot.Autonomic)
		collector.RecordGlandStatus(snapshot.GlandStatus)
		for _, mass := range snapshot.ReleasedPg {
			collector.RecordRelease(mass)
		}

		if collector.ShouldFlush() {
			stats := collector.Flush()
			if *logStats {
				stats.LogStats()
			}
			if err := om.WriteTelemetry(stats); err != nil {
				slog.Warn("failed to write telemetry", "error", err)
			}
			for _, episode := range detector.Check(stats) {
				episode.LogEpisode()
				if err := om.WriteEpisode(episode); err != nil {
					slog.Warn("failed to write episode", "error", err)
				}
			}
		}

		if *perfEvery > 0 && (i+1)%*perfEvery == 0 {
			perf.Stats().LogStats()
		}
	}

	final := controller.GetSnapshot()
	slog.Info("run complete",
		"ticks", controller.Tick(),
		"sim_time_sec", final.SimTimeSec,
		"heart_rate_bpm", final.Autonomic.HeartRateBPM,
		"sympathetic", final.Autonomic.Sympathetic,
		"parasympathetic", final.Autonomic.Parasympathetic,
	)

	if om.Dir() != "" {
		statePath := filepath.Join(om.Dir(), "state.json")
		if err := controller.SaveState(statePath); err != nil {
			slog.Error("failed to save state", "error", err)
			os.Exit(1)
		}
		if err := dashboard.Save(filepath.Join(om.Dir(), "dashboard.json")); err != nil {
			slog.Warn("failed to save dashboard", "error", err)
		}
		slog.Info("state saved", "path", statePath)
	}
}
