// Package plan loads the declarative host plan: the list of desired host
// states a run should reconcile the array against.
package plan

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/avolkov/unihost/internal/reconcile"
)

// HostSpec is one declared host in a plan file. Flag values stay untyped:
// booleans, "true"/"false" strings and the "unset" sentinel are all valid
// and the normalizer owns their interpretation.
type HostSpec struct {
	Name           string         `yaml:"name"`
	State          string         `yaml:"state"`
	NewName        string         `yaml:"new_name,omitempty"`
	Initiators     []string       `yaml:"initiators,omitempty"`
	InitiatorState string         `yaml:"initiator_state,omitempty"`
	Flags          map[string]any `yaml:"flags,omitempty"`
}

// Plan is a parsed plan file
type Plan struct {
	Hosts []HostSpec `yaml:"hosts"`
}

// Load reads and validates a plan file
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse parses plan file contents
func Parse(data []byte) (*Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse plan: %w", err)
	}

	if len(p.Hosts) == 0 {
		return nil, fmt.Errorf("plan declares no hosts")
	}

	for i, h := range p.Hosts {
		if h.Name == "" {
			return nil, fmt.Errorf("host #%d: name is required", i+1)
		}
		switch reconcile.Existence(h.State) {
		case reconcile.Present, reconcile.Absent:
		default:
			return nil, fmt.Errorf("host %q: state must be %q or %q, got %q",
				h.Name, reconcile.Present, reconcile.Absent, h.State)
		}
		switch reconcile.InitiatorState(h.InitiatorState) {
		case reconcile.InitiatorsUnset, reconcile.PresentInHost, reconcile.AbsentInHost:
		default:
			return nil, fmt.Errorf("host %q: initiator_state must be %q or %q, got %q",
				h.Name, reconcile.PresentInHost, reconcile.AbsentInHost, h.InitiatorState)
		}
	}

	return &p, nil
}

// Desired converts one host spec into the reconciler's input
func (h HostSpec) Desired() reconcile.DesiredState {
	return reconcile.DesiredState{
		Name:           h.Name,
		NewName:        h.NewName,
		Initiators:     h.Initiators,
		InitiatorState: reconcile.InitiatorState(h.InitiatorState),
		Flags:          h.Flags,
		State:          reconcile.Existence(h.State),
	}
}
