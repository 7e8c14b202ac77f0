package export

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// YAML marshals snap as YAML: the same model as JSON, in a format meant
// for human-edited documents.
func YAML(snap Snapshot) ([]byte, error) {
	return yaml.Marshal(snap)
}

// Overlay is a pretty-name overlay loaded from YAML: it maps raw machine,
// state and event ids (the strings internal/ir actually uses, including the
// sentinel-prefixed reserved ids) to display-friendly names, without
// touching the engine's identity model at all.
type Overlay struct {
	Machines map[string]string `yaml:"machines"`
	States   map[string]string `yaml:"states"`
	Events   map[string]string `yaml:"events"`
}

// LoadOverlay reads a display-name overlay from a YAML file.
func LoadOverlay(path string) (*Overlay, error) {
	// #nosec G304 -- path is supplied by the tool's own caller, not untrusted input.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read overlay %s: %w", path, err)
	}
	var o Overlay
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("unmarshal overlay: %w", err)
	}
	return &o, nil
}

// Apply returns a copy of snap with every machine, state and event id
// resolved through the overlay, falling back to the raw id when no override
// is registered. A transition's Dst label is copied unchanged.
func (o *Overlay) Apply(snap Snapshot) Snapshot {
	if o == nil {
		return snap
	}

	display := func(m map[string]string, id string) string {
		if name, ok := m[id]; ok {
			return name
		}
		return id
	}

	out := snap
	out.States = make([]State, len(snap.States))
	for i, s := range snap.States {
		out.States[i] = State{
			Index:   s.Index,
			Machine: display(o.Machines, s.Machine),
			ID:      display(o.States, s.ID),
		}
	}

	out.Transitions = make([]Transition, len(snap.Transitions))
	for i, t := range snap.Transitions {
		events := make([]string, len(t.Events))
		for j, e := range t.Events {
			events[j] = display(o.Events, e)
		}
		out.Transitions[i] = Transition{
			Machine:    display(o.Machines, t.Machine),
			SrcIndex:   t.SrcIndex,
			Events:     events,
			Dst:        t.Dst,
			NumGuards:  t.NumGuards,
			NumActions: t.NumActions,
		}
	}

	out.EventIDs = make([]string, len(snap.EventIDs))
	for i, e := range snap.EventIDs {
		out.EventIDs[i] = display(o.Events, e)
	}

	return out
}
