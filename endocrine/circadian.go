package endocrine

import (
	"math"
	"sort"
	"time"

	"github.com/pthm-cable/vitals/config"
)

// Zeitgeber dimension names consumed from the upstream producer.
const (
	ZeitgeberDaylight = "daylight"
	ZeitgeberActivity = "activity"
)

// CircadianController translates day/night zeitgebers and the clock phase
// into per-hormone stimulus deltas. It is stateless: the output is a pure
// function of (zeitgebers, now), which keeps replays deterministic.
type CircadianController struct {
	cfg   config.CircadianConfig
	order []string
}

// NewCircadianController builds the controller from config.
func NewCircadianController(cfg config.CircadianConfig) *CircadianController {
	order := make([]string, 0, len(cfg.Rhythms))
	for h := range cfg.Rhythms {
		order = append(order, h)
	}
	sort.Strings(order)
	return &CircadianController{cfg: cfg, order: order}
}

// Step returns per-hormone stimulus deltas in [-1,1]. Each rhythm combines
// a cosine of local clock phase, peaking at its configured hour, with the
// weighted daylight and activity zeitgebers.
func (c *CircadianController) Step(zeitgebers map[string]float64, now time.Time) map[string]float64 {
	hour := float64(now.Hour()) + float64(now.Minute())/60.0

	daylight := clamp(zeitgebers[ZeitgeberDaylight], 0, 1)
	activity := clamp(zeitgebers[ZeitgeberActivity], 0, 1)

	out := make(map[string]float64, len(c.order))
	for _, h := range c.order {
		r := c.cfg.Rhythms[h]

		phase := math.Cos(2 * math.Pi * (hour - r.PeakHour) / 24.0)
		delta := r.Amplitude*phase + r.Daylight*daylight + r.Activity*activity
		out[h] = clamp(delta, -1, 1)
	}
	return out
}
