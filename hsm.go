// Package hsm is a hierarchical finite-state-machine engine configured
// wholly at compile time: a machine author lists typed transitions, and
// the engine synthesizes an event-driven dispatcher with no runtime
// registration and no allocation once a Runtime is constructed.
//
// The transition-matching core lives in internal/ir (identifiers,
// transition records, machine assembly, the per-event dispatcher); this
// package is the public surface: the MachineDef declaration contract, the
// fluent transition builder, and Runtime, which drives a machine and
// synthesizes OnEnter/OnExit on every state change.
package hsm

import "github.com/hsmgo/hsmgo/internal/ir"

// Identifier and event types, re-exported from internal/ir so machine
// authors never need to import the internal package directly.
type (
	StateID    = ir.StateID
	EventID    = ir.EventID
	MachineTag = ir.MachineTag
	GlobalRef  = ir.GlobalRef
	Event      = ir.Event
)

// Reserved ids. OnEnterEventID/OnExitEventID are
// synthesized by Runtime and must never be fed by user code; Terminal/
// Bypass/Keep are destination policies, never ordinary state ids.
const (
	OnEnterEventID = ir.OnEnterEventID
	OnExitEventID  = ir.OnExitEventID

	TerminalStateID = ir.TerminalStateID
	BypassStateID   = ir.BypassStateID
	KeepStateID     = ir.KeepStateID
)

// Guard is a transition predicate: (src state id, event) -> bool. It
// receives the context by value, so it can read but cannot mutate shared
// state through its parameter.
type Guard[C any] = ir.Guard[C]

// Action is a transition side effect: (src state id, event) -> ().  It
// receives the context by pointer and may mutate it.
type Action[C any] = ir.Action[C]

// Transition is the immutable, as-authored description of one transition,
// produced by the builder (From/On/When/Run/To and friends) and consumed
// by Assemble inside New.
type Transition[C any] = ir.TransitionRecord[C]

// MachineDef is what a machine author implements: an identity, an initial
// state, and an ordered, significant list of transitions.
type MachineDef[C any] = ir.MachineDef[C]
