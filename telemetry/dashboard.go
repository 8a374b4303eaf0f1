package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// DashboardVersion is incremented when the persisted format changes.
const DashboardVersion = 1

// Dashboard is a fixed-capacity ring buffer per metric, implementing Sink.
// It keeps the most recent N values of each registered metric and can be
// persisted as JSON between sessions.
type Dashboard struct {
	capacity int
	series   map[string]*metricSeries
}

type metricSeries struct {
	Category string
	values   []float64
	idx      int
	full     bool
}

// dashboardJSON is the persisted form: values are stored oldest-first.
type dashboardJSON struct {
	Version  int                   `json:"version"`
	Capacity int                   `json:"capacity"`
	Series   map[string]seriesJSON `json:"series"`
}

type seriesJSON struct {
	Category string    `json:"category"`
	Values   []float64 `json:"values"`
}

// NewDashboard creates a dashboard holding up to capacity values per metric.
func NewDashboard(capacity int) *Dashboard {
	if capacity < 1 {
		capacity = 256
	}
	return &Dashboard{
		capacity: capacity,
		series:   make(map[string]*metricSeries),
	}
}

// RegisterDashboardMetric appends a value to the metric's ring buffer,
// creating the series on first use. It never fails; the error return
// satisfies the Sink interface.
func (d *Dashboard) RegisterDashboardMetric(metricID string, value float64, category string) error {
	s, ok := d.series[metricID]
	if !ok {
		s = &metricSeries{
			Category: category,
			values:   make([]float64, d.capacity),
		}
		d.series[metricID] = s
	}

	s.values[s.idx] = value
	s.idx = (s.idx + 1) % d.capacity
	if s.idx == 0 {
		s.full = true
	}
	return nil
}

// Series returns the metric's values oldest-first, or nil if unknown.
func (d *Dashboard) Series(metricID string) []float64 {
	s, ok := d.series[metricID]
	if !ok {
		return nil
	}
	return s.chronological()
}

// Latest returns the most recent value of a metric.
func (d *Dashboard) Latest(metricID string) (float64, bool) {
	s, ok := d.series[metricID]
	if !ok || (s.idx == 0 && !s.full) {
		return 0, false
	}
	last := (s.idx - 1 + d.capacity) % d.capacity
	return s.values[last], true
}

// MetricIDs returns the registered metric ids, sorted.
func (d *Dashboard) MetricIDs() []string {
	ids := make([]string, 0, len(d.series))
	for id := range d.series {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *metricSeries) chronological() []float64 {
	if !s.full {
		out := make([]float64, s.idx)
		copy(out, s.values[:s.idx])
		return out
	}
	out := make([]float64, len(s.values))
	n := copy(out, s.values[s.idx:])
	copy(out[n:], s.values[:s.idx])
	return out
}

// Save writes the dashboard to a JSON file.
func (d *Dashboard) Save(path string) error {
	out := dashboardJSON{
		Version:  DashboardVersion,
		Capacity: d.capacity,
		Series:   make(map[string]seriesJSON, len(d.series)),
	}
	for id, s := range d.series {
		out.Series[id] = seriesJSON{Category: s.Category, Values: s.chronological()}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling dashboard: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing dashboard file: %w", err)
	}
	return nil
}

// LoadDashboard reads a dashboard from a JSON file.
func LoadDashboard(path string) (*Dashboard, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dashboard file: %w", err)
	}

	var in dashboardJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("parsing dashboard file: %w", err)
	}
	if in.Version != DashboardVersion {
		return nil, fmt.Errorf("dashboard version mismatch: file has %d, expected %d", in.Version, DashboardVersion)
	}

	d := NewDashboard(in.Capacity)
	ids := make([]string, 0, len(in.Series))
	for id := range in.Series {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		s := in.Series[id]
		for _, v := range s.Values {
			d.RegisterDashboardMetric(id, v, s.Category)
		}
	}
	return d, nil
}
