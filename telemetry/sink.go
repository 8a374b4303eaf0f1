// Package telemetry collects per-tick physiology metrics: the dashboard
// metric sink, window statistics, episode detection, CSV output, and
// performance timing.
package telemetry

// Sink receives per-tick dashboard metrics. The physiology loop treats a
// sink as best-effort: errors are logged by the caller and never abort a
// tick, and a nil sink is simply not called.
type Sink interface {
	RegisterDashboardMetric(metricID string, value float64, category string) error
}
