package ir

// NoMatch is the dispatcher's "no transition fired" sentinel, returned by
// Dispatch in place of a global state index.
const NoMatch = -1

// Dispatcher is the per-event precomputed table: the transitions that can
// fire on one concrete EventID, the outbound states (global states that
// own at least one such transition), and the Injection array mapping every
// global state index to its position in the (much smaller) outbound set,
// or NoMatch.
type Dispatcher[C any] struct {
	event          EventID
	transitions    []*ResolvedTransition[C]
	outboundStates []int
	injection      []int
}

// NewDispatcher builds the dispatcher for one event id out of an already
// assembled machine. One Dispatcher exists per concrete id in
// Assembled.EventIDs, plus one each for OnEnterEventID/OnExitEventID.
func NewDispatcher[C any](asm *Assembled[C], event EventID) *Dispatcher[C] {
	d := &Dispatcher[C]{event: event}

	seen := map[int]bool{}
	for i := range asm.Transitions {
		t := &asm.Transitions[i]
		if !containsEventID(t.EventIDs, event) {
			continue
		}
		d.transitions = append(d.transitions, t)
		for _, g := range t.SrcIndex {
			if !seen[g] {
				seen[g] = true
				d.outboundStates = append(d.outboundStates, g)
			}
		}
	}

	d.injection = make([]int, len(asm.States))
	for i := range d.injection {
		d.injection[i] = NoMatch
	}
	for oi, g := range d.outboundStates {
		d.injection[g] = oi
	}

	return d
}

// Dispatch runs the Injection fast path, then declared-order matching
// honoring the Bypass-continues / Keep-returns-source / concrete-commits
// protocol.
// ctx is passed by pointer so guards can be evaluated against a read-only
// copy (*ctx) while actions mutate ctx directly, per the Guard/Action
// contract in internal/ir.types.go.
func (d *Dispatcher[C]) Dispatch(stateIdx int, ctx *C, src StateID, ev Event) int {
	next, _ := d.DispatchTraced(stateIdx, ctx, src, ev)
	return next
}

// DispatchTraced behaves exactly like Dispatch but additionally reports
// whether any transition's action chain ran — true for a committed
// transition and also for a Bypass-only cascade, which returns NoMatch
// despite having run actions. Runtime uses this to log bypass chains
// distinctly from a genuinely unmatched event.
func (d *Dispatcher[C]) DispatchTraced(stateIdx int, ctx *C, src StateID, ev Event) (next int, ranActions bool) {
	if stateIdx < 0 || stateIdx >= len(d.injection) || d.injection[stateIdx] == NoMatch {
		return NoMatch, false
	}

	for _, t := range d.transitions {
		if !containsInt(t.SrcIndex, stateIdx) {
			continue
		}

		matched := true
		for _, g := range t.Guards {
			if !g(*ctx, src, ev) {
				matched = false
				break
			}
		}
		if !matched {
			continue
		}

		for _, a := range t.Actions {
			a(ctx, src, ev)
		}
		ranActions = true

		switch t.DstKind {
		case DstBypass:
			continue
		case DstKeep:
			return stateIdx, ranActions
		default:
			return t.DstIndex, ranActions
		}
	}

	return NoMatch, ranActions
}

// Event returns the concrete event id this dispatcher was built for.
func (d *Dispatcher[C]) Event() EventID { return d.event }

// OutboundStates returns the global state indices that own at least one
// transition for this dispatcher's event, in the order they are first seen
// while scanning that event's transitions in declaration order.
// Exposed for tests asserting Injection correctness.
func (d *Dispatcher[C]) OutboundStates() []int { return d.outboundStates }

// Injection returns the precomputed global-index -> outbound-index map.
func (d *Dispatcher[C]) Injection() []int { return d.injection }
