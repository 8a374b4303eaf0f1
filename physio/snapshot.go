package physio

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pthm-cable/vitals/autonomic"
	"github.com/pthm-cable/vitals/endocrine"
)

// StateVersion is incremented when the persisted format changes.
const StateVersion = 1

// PersistentState is the controller's full state in a plain, JSON-ready
// form. Round-tripping through it restores a controller exactly (up to
// float formatting).
type PersistentState struct {
	Version int   `json:"version"`
	Tick    int64 `json:"tick"`

	Glands              map[string]endocrine.State `json:"glands"`
	Plasma              map[string]float64         `json:"plasma"`
	ReceptorSensitivity map[string]float64         `json:"receptor_sensitivity"`
	HPA                 endocrine.HPAState         `json:"hpa"`
	ANS                 autonomic.State            `json:"ans"`
}

// ExportState returns an independent copy of all mutable state for
// persistence. Mutating the result never touches the controller.
func (c *Controller) ExportState() PersistentState {
	return PersistentState{
		Version:             StateVersion,
		Tick:                c.tick,
		Glands:              c.endocrine.ExportStates(),
		Plasma:              c.blood.ExportPlasma(),
		ReceptorSensitivity: c.receptor.ExportSensitivity(),
		HPA:                 c.hpa.ExportState(),
		ANS:                 c.lastANS,
	}
}

// LoadState restores a previously exported state.
func (c *Controller) LoadState(st PersistentState) error {
	if st.Version != StateVersion {
		return fmt.Errorf("physio: state version mismatch: snapshot has %d, expected %d", st.Version, StateVersion)
	}
	c.tick = st.Tick
	c.endocrine.LoadStates(st.Glands)
	c.blood.LoadPlasma(st.Plasma)
	c.receptor.LoadSensitivity(st.ReceptorSensitivity)
	c.hpa.LoadState(st.HPA)
	c.lastANS = st.ANS
	return nil
}

// SaveState writes the controller's state to a JSON file.
func (c *Controller) SaveState(path string) error {
	data, err := json.MarshalIndent(c.ExportState(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling physio state: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing physio state: %w", err)
	}
	return nil
}

// LoadStateFile reads a persisted state from a JSON file.
func LoadStateFile(path string) (PersistentState, error) {
	var st PersistentState

	data, err := os.ReadFile(path)
	if err != nil {
		return st, fmt.Errorf("reading physio state: %w", err)
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return st, fmt.Errorf("parsing physio state: %w", err)
	}
	return st, nil
}

// RestoreState loads a state file into the controller.
func (c *Controller) RestoreState(path string) error {
	st, err := LoadStateFile(path)
	if err != nil {
		return err
	}
	return c.LoadState(st)
}
