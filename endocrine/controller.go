package endocrine

import (
	"fmt"
	"sort"

	"github.com/pthm-cable/vitals/config"
)

// Controller owns the gland set and their states. It is the only writer of
// gland state; snapshots handed out are always independent copies.
type Controller struct {
	glands map[string]*Gland
	states map[string]State
	order  []string // sorted hormone ids, deterministic iteration order
}

// StepResult is one endocrine tick's output. Hormones releasing exactly
// zero mass are omitted from ReleasedPg; consumers treat absent as zero.
type StepResult struct {
	ReleasedPg map[string]float64
	GlandState map[string]State
}

// NewController builds a controller with one gland per spec, each starting
// at its initial state.
func NewController(specs map[string]Spec) *Controller {
	c := &Controller{
		glands: make(map[string]*Gland, len(specs)),
		states: make(map[string]State, len(specs)),
		order:  make([]string, 0, len(specs)),
	}
	for id, spec := range specs {
		g := NewGland(spec)
		c.glands[id] = g
		c.states[id] = g.InitialState()
		c.order = append(c.order, id)
	}
	sort.Strings(c.order)
	return c
}

// NewControllerFromConfig builds a controller from the glands section of a
// loaded config.
func NewControllerFromConfig(cfg *config.Config) *Controller {
	specs := make(map[string]Spec, len(cfg.Glands))
	for id, gc := range cfg.Glands {
		specs[id] = SpecFromConfig(id, gc)
	}
	return NewController(specs)
}

// Step runs one endocrine tick for every gland. A gland with no entry in
// stimuli sees zero stimulus; that is normal open-world input, not an error.
// The nerve surge is evaluated first, against the pre-tonic state; tonic
// secretion then runs on the post-surge state.
func (c *Controller) Step(stimuli map[string]float64, dt float64) StepResult {
	released := make(map[string]float64)

	for _, id := range c.order {
		gland := c.glands[id]
		stimulus := stimuli[id]
		state := c.states[id]

		surgePg, state := gland.TriggerNerveSurge(state, stimulus)
		fluxPg, state := gland.ProcessStep(state, stimulus, dt)

		if total := surgePg + fluxPg; total > 0 {
			released[id] = total
		}
		c.states[id] = state
	}

	return StepResult{
		ReleasedPg: released,
		GlandState: c.ExportStates(),
	}
}

// GlandState returns a copy of one gland's state.
func (c *Controller) GlandState(id string) (State, bool) {
	s, ok := c.states[id]
	return s, ok
}

// Spec returns one gland's static parameters.
func (c *Controller) Spec(id string) (Spec, error) {
	g, ok := c.glands[id]
	if !ok {
		return Spec{}, fmt.Errorf("endocrine: no gland for hormone %q", id)
	}
	return g.Spec(), nil
}

// Specs returns a copy of all gland specs keyed by hormone id.
func (c *Controller) Specs() map[string]Spec {
	out := make(map[string]Spec, len(c.glands))
	for id, g := range c.glands {
		out[id] = g.Spec()
	}
	return out
}

// HormoneIDs returns the controller's sorted hormone ids.
func (c *Controller) HormoneIDs() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// ExportStates returns an independent copy of all gland states for
// persistence. Mutating the returned map never touches controller state.
func (c *Controller) ExportStates() map[string]State {
	out := make(map[string]State, len(c.states))
	for id, s := range c.states {
		out[id] = s
	}
	return out
}

// LoadStates restores gland states from an exported snapshot. Hormones
// unknown to this controller are ignored; known hormones absent from the
// snapshot keep their current state.
func (c *Controller) LoadStates(states map[string]State) {
	for id, s := range states {
		if _, ok := c.states[id]; ok {
			c.states[id] = s
		}
	}
}

// StatusReport returns the derived status of every gland.
func (c *Controller) StatusReport() map[string]Status {
	report := make(map[string]Status, len(c.glands))
	for _, id := range c.order {
		report[id] = c.glands[id].Status(c.states[id])
	}
	return report
}
