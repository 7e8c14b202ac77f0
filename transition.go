package hsm

import "github.com/hsmgo/hsmgo/internal/ir"

// TransitionBuilder is the fluent construction surface: pick a source, attach an event spec, optionally interleave guards and
// actions in declaration order, then terminate with a destination. Each
// terminal method (To, ToOf, Keep, Bypass, Enter, Exit) records the
// destination on the builder and returns the finished Transition, which
// shares its guard and action slices with the builder; one builder
// produces one transition.
type TransitionBuilder[C any] struct {
	rec ir.TransitionRecord[C]
}

// From starts a transition sourced at one or more states of the owning
// machine. A single id is the common case; multiple ids describe a set of
// sources that share the rest of the transition.
func From[C any](states ...StateID) *TransitionBuilder[C] {
	refs := make([]ir.GlobalRef, len(states))
	for i, s := range states {
		refs[i] = ir.GlobalRef{State: s}
	}
	return &TransitionBuilder[C]{
		rec: ir.TransitionRecord[C]{Src: ir.SrcSpec{Kind: ir.SrcConcrete, Refs: refs}},
	}
}

// FromAny starts a transition whose source is any state of the owning
// machine, resolved at assembly time against the machine's own state set.
func FromAny[C any]() *TransitionBuilder[C] {
	return &TransitionBuilder[C]{rec: ir.TransitionRecord[C]{Src: ir.SrcSpec{Kind: ir.SrcWildcard}}}
}

// FromExitOf starts a transition sourced at another machine's terminal
// state, (m, TerminalStateID): the host-side half of the Exit pairing.
// Used by an outer machine to react to one of its submachines finishing.
func FromExitOf[C any](m MachineTag) *TransitionBuilder[C] {
	return &TransitionBuilder[C]{
		rec: ir.TransitionRecord[C]{
			Src: ir.SrcSpec{Kind: ir.SrcConcrete, Refs: []ir.GlobalRef{{Machine: m, State: ir.TerminalStateID}}},
		},
	}
}

// On attaches a concrete event spec: the transition fires only for events
// whose id is one of those listed.
func (b *TransitionBuilder[C]) On(events ...EventID) *TransitionBuilder[C] {
	b.rec.Event = ir.EventSpec{Kind: ir.EventConcrete, IDs: events}
	return b
}

// OnAny attaches a wildcard event spec: the transition fires for any event
// id used elsewhere in the owning machine's own transitions; ids that only
// appear in other machines are not covered.
func (b *TransitionBuilder[C]) OnAny() *TransitionBuilder[C] {
	b.rec.Event = ir.EventSpec{Kind: ir.EventWildcard}
	return b
}

// When appends a guard to the AND-chain. Guards run in declaration order
// and short-circuit on the first false.
func (b *TransitionBuilder[C]) When(g Guard[C]) *TransitionBuilder[C] {
	b.rec.Guards = append(b.rec.Guards, g)
	return b
}

// Run appends an action to the ordered chain. Actions run only after every
// guard has succeeded, in declaration order. When/Run may be interleaved
// freely; the recorded order is what executes.
func (b *TransitionBuilder[C]) Run(a Action[C]) *TransitionBuilder[C] {
	b.rec.Actions = append(b.rec.Actions, a)
	return b
}

// To commits the transition to a concrete destination state of the owning
// machine.
func (b *TransitionBuilder[C]) To(dst StateID) ir.TransitionRecord[C] {
	b.rec.Dst = ir.DstSpec{Kind: ir.DstConcrete, Ref: ir.GlobalRef{State: dst}}
	return b.rec
}

// ToOf commits the transition to a concrete state of another machine,
// e.g. back into an already-entered submachine.
func (b *TransitionBuilder[C]) ToOf(m MachineTag, dst StateID) ir.TransitionRecord[C] {
	b.rec.Dst = ir.DstSpec{Kind: ir.DstConcrete, Ref: ir.GlobalRef{Machine: m, State: dst}}
	return b.rec
}

// Keep commits to staying on the source state while still reporting a
// match: guards and actions ran, but no OnExit/OnEnter cascade fires.
func (b *TransitionBuilder[C]) Keep() ir.TransitionRecord[C] {
	b.rec.Dst = ir.DstSpec{Kind: ir.DstKeep}
	return b.rec
}

// Bypass runs guards and actions but commits no destination, letting
// subsequent transitions for the same source/event continue matching.
func (b *TransitionBuilder[C]) Bypass() ir.TransitionRecord[C] {
	b.rec.Dst = ir.DstSpec{Kind: ir.DstBypass}
	return b.rec
}

// Enter commits to entering submachine m: resolved at assembly time to
// (m, m.Initial()).
func (b *TransitionBuilder[C]) Enter(m MachineTag) ir.TransitionRecord[C] {
	b.rec.Dst = ir.DstSpec{Kind: ir.DstEnter, Ref: ir.GlobalRef{Machine: m}}
	return b.rec
}

// Exit commits to the owning machine's own terminal state: the submachine
// side of the Exit(M) pairing. An outer machine reacts to it via
// FromExitOf(m).
func (b *TransitionBuilder[C]) Exit() ir.TransitionRecord[C] {
	b.rec.Dst = ir.DstSpec{Kind: ir.DstConcrete, Ref: ir.GlobalRef{State: ir.TerminalStateID}}
	return b.rec
}
