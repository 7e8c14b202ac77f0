package hsm

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/hsmgo/hsmgo/internal/ir"
)

// Observer receives structured notifications about Feed outcomes. It is
// the seam metrics.Collector hangs off of without this package depending
// on the metrics package.
type Observer interface {
	// OnFeed is called once per externally initiated Feed, after any
	// cascading OnExit/OnEnter chain it triggered has quiesced. A Feed
	// rejected for carrying a reserved event id is not reported.
	OnFeed(event EventID, outcome Outcome)
}

// Outcome classifies a completed Feed call for observers/logging.
type Outcome int

const (
	// OutcomeUnmatched: the event id was unknown, or no guard succeeded.
	OutcomeUnmatched Outcome = iota
	// OutcomeBypass: a Bypass-only chain ran actions but committed no
	// destination.
	OutcomeBypass
	// OutcomeKept: a transition matched and committed Keep; actions ran,
	// no state change, no enter/exit cascade.
	OutcomeKept
	// OutcomeTransitioned: the state changed; OnExit/OnEnter cascaded.
	OutcomeTransitioned
)

func (o Outcome) String() string {
	switch o {
	case OutcomeBypass:
		return "bypass"
	case OutcomeKept:
		return "kept"
	case OutcomeTransitioned:
		return "transitioned"
	default:
		return "unmatched"
	}
}

// Option configures a Runtime at construction time.
type Option[C any] func(*Runtime[C])

// WithLogger attaches a structured logger. Runtime logs at debug level;
// the default is slog.Default(), matching stdlib convention rather than
// silently discarding records.
func WithLogger[C any](l *slog.Logger) Option[C] {
	return func(r *Runtime[C]) { r.logger = l }
}

// WithObserver attaches an Observer, typically a *metrics.Collector.
func WithObserver[C any](o Observer) Option[C] {
	return func(r *Runtime[C]) { r.observer = o }
}

// Runtime is C5: it owns one global state index, routes events to the
// per-event Dispatcher built by Assemble, and synthesizes OnExit/OnEnter
// on every state change. The mutable fields touched by Feed are stateIdx
// and the re-entrancy flag (plus whatever the user's own actions mutate
// through ctx); everything else is fixed at construction.
//
// A Runtime is not safe for concurrent Feed calls on the same instance;
// distinct instances share nothing and may run on separate goroutines.
type Runtime[C any] struct {
	asm         *ir.Assembled[C]
	dispatchers map[ir.EventID]*ir.Dispatcher[C]

	stateIdx int
	ctx      C

	id       uuid.UUID
	logger   *slog.Logger
	observer Observer
	feeding  bool
}

// New assembles root and subs into one flattened machine (internal/ir.
// Assemble) and constructs a Runtime positioned on root's initial state.
// subs must list every machine reachable from root through an Enter
// destination; Assemble reports a missing or cyclic one as an error
// rather than panicking.
func New[C any](ctx C, root MachineDef[C], subs []MachineDef[C], opts ...Option[C]) (*Runtime[C], error) {
	asm, err := ir.Assemble(root, subs...)
	if err != nil {
		return nil, err
	}

	r := &Runtime[C]{
		asm:         asm,
		dispatchers: make(map[ir.EventID]*ir.Dispatcher[C], len(asm.EventIDs)+2),
		stateIdx:    asm.InitialIndex,
		ctx:         ctx,
		id:          uuid.New(),
		logger:      slog.Default(),
	}
	for _, id := range asm.EventIDs {
		r.dispatchers[id] = ir.NewDispatcher(asm, id)
	}
	r.dispatchers[ir.OnEnterEventID] = ir.NewDispatcher(asm, ir.OnEnterEventID)
	r.dispatchers[ir.OnExitEventID] = ir.NewDispatcher(asm, ir.OnExitEventID)

	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// InstanceID identifies this Runtime instance; it is the correlation field
// ("instance_id") in the log records emitted by many concurrently-running
// (but mutually isolated) machine instances in the same process. Observer
// notifications, and so metrics, do not carry it.
func (r *Runtime[C]) InstanceID() uuid.UUID { return r.id }

// Context returns a copy of the current context value.
func (r *Runtime[C]) Context() C { return r.ctx }

// ContextPtr exposes the live context for external mutation between Feed
// calls. Never call Feed from code holding a derived reference to this
// pointer inside an action.
func (r *Runtime[C]) ContextPtr() *C { return &r.ctx }

// State returns the fully-qualified global state the Runtime currently
// occupies.
func (r *Runtime[C]) State() GlobalRef { return r.asm.States[r.stateIdx] }

// Is reports whether the Runtime currently occupies (machine, state).
func (r *Runtime[C]) Is(machine MachineTag, state StateID) bool {
	return r.stateIdx == r.asm.Index(ir.GlobalRef{Machine: machine, State: state})
}

// Begin delivers OnEnter to the current (initial) state exactly once. Call
// it after New and before the first Feed.
func (r *Runtime[C]) Begin() {
	r.feed(ir.Event{ID: ir.OnEnterEventID})
}

// Assembled exposes the flattened machine for the export package: callers
// hand it to export.Describe to snapshot states and transitions for
// external tooling. The returned value is immutable after New.
func (r *Runtime[C]) Assembled() *ir.Assembled[C] { return r.asm }

// Reset returns the Runtime to root's initial state. It does not deliver
// any OnEnter/OnExit; reset();reset() is equivalent to a single reset().
func (r *Runtime[C]) Reset() {
	r.stateIdx = r.asm.InitialIndex
}

// Feed routes ev to the dispatcher for its id and reports whether some
// transition matched. OnEnterEventID/OnExitEventID may never be fed by
// user code (the runtime synthesizes them) and are rejected outright.
//
// Feed must not be called reentrantly from within a guard or action
// running on this same Runtime; doing so panics rather than silently
// corrupting state.
func (r *Runtime[C]) Feed(ev Event) bool {
	if ev.ID == ir.OnEnterEventID || ev.ID == ir.OnExitEventID {
		return false
	}
	if r.feeding {
		panic("hsm: Feed called reentrantly from a guard or action running on the same Runtime")
	}
	r.feeding = true
	defer func() { r.feeding = false }()

	matched, outcome := r.feed(ev)
	r.observe(ev.ID, outcome)
	return matched
}

// feed is the internal recursive implementation shared by Feed and the
// OnExit/OnEnter cascade Begin/feed synthesize; it is not re-entrancy
// guarded because the cascade legitimately calls itself. The returned
// Outcome classifies this level of the cascade only; Feed reports the
// outermost one to the observer after the whole chain quiesces.
func (r *Runtime[C]) feed(ev ir.Event) (bool, Outcome) {
	d, ok := r.dispatchers[ev.ID]
	if !ok {
		r.log(ev, OutcomeUnmatched)
		return false, OutcomeUnmatched
	}

	src := r.asm.States[r.stateIdx].State
	next, ranActions := d.DispatchTraced(r.stateIdx, &r.ctx, src, ev)

	if next == ir.NoMatch {
		if ranActions {
			r.log(ev, OutcomeBypass)
			return false, OutcomeBypass
		}
		r.log(ev, OutcomeUnmatched)
		return false, OutcomeUnmatched
	}

	if next == r.stateIdx {
		r.log(ev, OutcomeKept)
		return true, OutcomeKept
	}

	from := r.asm.States[r.stateIdx]
	to := r.asm.States[next]
	r.feed(ir.Event{ID: ir.OnExitEventID})
	r.stateIdx = next
	r.logTransition(ev, from, to)
	r.feed(ir.Event{ID: ir.OnEnterEventID})
	return true, OutcomeTransitioned
}

func (r *Runtime[C]) observe(event ir.EventID, outcome Outcome) {
	if r.observer != nil {
		r.observer.OnFeed(event, outcome)
	}
}

func (r *Runtime[C]) log(ev ir.Event, outcome Outcome) {
	if r.logger == nil {
		return
	}
	r.logger.Debug("hsm feed",
		"instance_id", r.id,
		"event", string(ev.ID),
		"state", r.asm.States[r.stateIdx].String(),
		"outcome", outcome.String(),
	)
}

func (r *Runtime[C]) logTransition(ev ir.Event, from, to ir.GlobalRef) {
	if r.logger == nil {
		return
	}
	r.logger.Debug("hsm transition",
		"instance_id", r.id,
		"event", string(ev.ID),
		"from", from.String(),
		"to", to.String(),
	)
}
