// Package export renders an assembled hsm machine as data: a JSON/YAML
// snapshot of its flattened global states and transitions for external
// tooling, plus Mermaid/PlantUML diagrams and a small CLI front-end.
package export

import (
	"fmt"

	"github.com/hsmgo/hsmgo/internal/ir"
)

// State is one flattened global state, keyed the same way the dispatcher
// addresses it.
type State struct {
	Index   int    `json:"index" yaml:"index"`
	Machine string `json:"machine" yaml:"machine"`
	ID      string `json:"id" yaml:"id"`
}

func (s State) String() string { return fmt.Sprintf("%s/%s", s.Machine, s.ID) }

// Transition is one flattened, resolved transition, described structurally.
// Guard/action closures are not serializable, so only their counts are
// recorded; an Overlay can attach display names to ids (see yaml.go).
type Transition struct {
	Machine    string   `json:"machine" yaml:"machine"`
	SrcIndex   []int    `json:"src_index" yaml:"src_index"`
	Events     []string `json:"events" yaml:"events"`
	Dst        string   `json:"dst" yaml:"dst"`
	NumGuards  int      `json:"num_guards" yaml:"num_guards"`
	NumActions int      `json:"num_actions" yaml:"num_actions"`
}

// Snapshot is the full exportable shape of an assembled machine.
type Snapshot struct {
	States       []State      `json:"states" yaml:"states"`
	Transitions  []Transition `json:"transitions" yaml:"transitions"`
	InitialIndex int          `json:"initial_index" yaml:"initial_index"`
	EventIDs     []string     `json:"event_ids" yaml:"event_ids"`
}

// Describe builds a Snapshot from an assembled machine. It is generic over
// the machine's context type only because internal/ir.Assembled is; the
// resulting Snapshot carries no type parameter.
func Describe[C any](asm *ir.Assembled[C]) Snapshot {
	snap := Snapshot{
		InitialIndex: asm.InitialIndex,
	}

	for i, s := range asm.States {
		snap.States = append(snap.States, State{Index: i, Machine: string(s.Machine), ID: string(s.State)})
	}

	for _, t := range asm.Transitions {
		events := make([]string, len(t.EventIDs))
		for i, e := range t.EventIDs {
			events[i] = string(e)
		}

		dst := "bypass"
		switch t.DstKind {
		case ir.DstKeep:
			dst = "keep"
		case ir.DstConcrete:
			dst = asm.States[t.DstIndex].String()
		}

		snap.Transitions = append(snap.Transitions, Transition{
			Machine:    string(t.Machine),
			SrcIndex:   append([]int(nil), t.SrcIndex...),
			Events:     events,
			Dst:        dst,
			NumGuards:  len(t.Guards),
			NumActions: len(t.Actions),
		})
	}

	for _, e := range asm.EventIDs {
		snap.EventIDs = append(snap.EventIDs, string(e))
	}

	return snap
}
