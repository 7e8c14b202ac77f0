// Package ir holds the internal representation of a flattened hierarchical
// state machine: identifiers, transition records, machine assembly and the
// per-event dispatcher. None of it is meant to be imported directly by
// machine authors; the root package re-exports the pieces they need.
package ir

import "fmt"

// StateID names a state within the machine that declares it.
type StateID string

// EventID names an event that can be fed into a running machine.
type EventID string

// MachineTag identifies a user-declared machine type. Two states with the
// same StateID but different MachineTag are distinct global states.
type MachineTag string

// Reserved ids. The sentinel prefix cannot be produced by an ordinary
// StateID/EventID literal, so these never collide with user-chosen ids.
const (
	OnEnterEventID EventID = "\x00hsm:on-enter"
	OnExitEventID  EventID = "\x00hsm:on-exit"

	TerminalStateID StateID = "\x00hsm:terminal"
	BypassStateID   StateID = "\x00hsm:bypass"
	KeepStateID     StateID = "\x00hsm:keep"
)

// GlobalRef is a fully-qualified state: a (MachineTag, StateID) pair. It is
// the unit of identity the dispatcher and runtime address states by.
type GlobalRef struct {
	Machine MachineTag
	State   StateID
}

func (r GlobalRef) String() string {
	return fmt.Sprintf("%s/%s", r.Machine, r.State)
}

// Event is a runtime event: a concrete id plus an optional payload. The
// engine never inspects Payload; it is opaque to guards and actions.
type Event struct {
	ID      EventID
	Payload any
}

// Guard is a transition predicate. It receives the context by value (it may
// read but, by construction, cannot mutate it) along with the firing
// source state id and the triggering event.
type Guard[C any] func(ctx C, src StateID, ev Event) bool

// Action is a transition side effect. It receives the context by pointer
// (mutation is allowed) along with the firing source state id and event.
type Action[C any] func(ctx *C, src StateID, ev Event)

// SrcKind distinguishes an explicit source-state set from "any state of the
// owning machine".
type SrcKind int

const (
	SrcConcrete SrcKind = iota
	SrcWildcard
)

// SrcSpec describes a transition's source before assembly resolves it.
// Refs with an empty Machine are "local": they are tagged with the owning
// machine at assembly time. Refs with a non-empty Machine are explicit
// cross-machine references (used only to name another machine's terminal
// state, see FromExitOf in the builder).
type SrcSpec struct {
	Kind SrcKind
	Refs []GlobalRef
}

// EventKind distinguishes an explicit event-id set from "any id used
// elsewhere in this machine's own transitions".
type EventKind int

const (
	EventConcrete EventKind = iota
	EventWildcard
)

// EventSpec describes a transition's triggering event before assembly
// resolves wildcards against the owning machine's local id set.
type EventSpec struct {
	Kind EventKind
	IDs  []EventID
}

// DstKind enumerates the destination policies a transition can declare.
type DstKind int

const (
	// DstConcrete commits to a specific global state.
	DstConcrete DstKind = iota
	// DstKeep stays on the source state; still reports a match.
	DstKeep
	// DstBypass runs guards/actions but commits no destination, letting
	// later transitions in the same dispatch continue matching.
	DstBypass
	// DstEnter resolves, at assembly time, to (Machine, Machine's Initial).
	DstEnter
)

// DstSpec describes a transition's destination before assembly resolves
// DstEnter into a concrete ref.
type DstSpec struct {
	Kind DstKind
	Ref  GlobalRef // Machine empty => local; used by DstConcrete and DstEnter (Ref.Machine names the target machine)
}

// TransitionRecord is the immutable, as-authored description of one
// transition, generic over the shared context type C. It is produced by
// the builder (or hand-written) and consumed by Assemble.
type TransitionRecord[C any] struct {
	Src     SrcSpec
	Event   EventSpec
	Guards  []Guard[C]
	Actions []Action[C]
	Dst     DstSpec
}

// MachineDef is what a machine author implements: an identity, an initial
// state, and an ordered list of transitions. Order is significant and is
// preserved through assembly; declaration order decides match priority.
type MachineDef[C any] interface {
	Tag() MachineTag
	Initial() StateID
	Transitions() []TransitionRecord[C]
}

// ResolvedTransition is a TransitionRecord after assembly: Src and Event
// wildcards have been expanded against frozen per-machine sets, and Dst
// has been resolved to a global state index (or Keep/Bypass).
type ResolvedTransition[C any] struct {
	Machine  MachineTag
	SrcIndex []int // global indices into Assembled.States this transition's Src covers
	EventIDs []EventID
	Guards   []Guard[C]
	Actions  []Action[C]
	DstKind  DstKind // DstConcrete, DstKeep or DstBypass only
	DstIndex int     // valid iff DstKind == DstConcrete
}

// Assembled is the flattened, ready-to-dispatch machine produced by
// Assemble: C3's output.
type Assembled[C any] struct {
	Transitions  []ResolvedTransition[C]
	States       []GlobalRef
	StateIndex   map[GlobalRef]int
	InitialIndex int
	EventIDs     []EventID // every concrete id a dispatcher exists for
}

// Index returns the global index of ref, or -1 if ref is not a known state.
func (a *Assembled[C]) Index(ref GlobalRef) int {
	if i, ok := a.StateIndex[ref]; ok {
		return i
	}
	return -1
}

func containsEventID(ids []EventID, id EventID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
