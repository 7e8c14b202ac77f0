package hsm

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsmgo/hsmgo/internal/ir"
)

type testCtx struct {
	calls []string
	g1    bool
	g2    bool
}

func record(name string) Action[testCtx] {
	return func(c *testCtx, _ StateID, _ Event) { c.calls = append(c.calls, name) }
}

// selfRunMachine: one transition that runs an action and keeps its state.
type selfRunMachine struct{}

func (selfRunMachine) Tag() MachineTag  { return "M" }
func (selfRunMachine) Initial() StateID { return "S1" }
func (selfRunMachine) Transitions() []Transition[testCtx] {
	return []Transition[testCtx]{
		From[testCtx]("S1").On("E").Run(record("f")).Keep(),
	}
}

func TestRuntime_SelfRun(t *testing.T) {
	rt, err := New(testCtx{}, selfRunMachine{}, nil)
	require.NoError(t, err)

	assert.True(t, rt.Feed(Event{ID: "E"}))
	assert.Equal(t, []string{"f"}, rt.Context().calls)
	assert.True(t, rt.Is("M", "S1"))
}

// pingPongMachine alternates A <-> B on E and records every OnEnter/OnExit
// delivery through Bypass rules, making the enter/exit pairing observable.
type pingPongMachine struct{}

func (pingPongMachine) Tag() MachineTag  { return "pp" }
func (pingPongMachine) Initial() StateID { return "A" }
func (pingPongMachine) Transitions() []Transition[testCtx] {
	enter := func(c *testCtx, src StateID, _ Event) { c.calls = append(c.calls, "enter:"+string(src)) }
	exit := func(c *testCtx, src StateID, _ Event) { c.calls = append(c.calls, "exit:"+string(src)) }
	return []Transition[testCtx]{
		From[testCtx]("A").On("E").To("B"),
		From[testCtx]("B").On("E").To("A"),
		From[testCtx]("A", "B").On(OnEnterEventID).Run(enter).Bypass(),
		From[testCtx]("A", "B").On(OnExitEventID).Run(exit).Bypass(),
	}
}

func TestRuntime_DestinationChange_EnterExitPairing(t *testing.T) {
	rt, err := New(testCtx{}, pingPongMachine{}, nil)
	require.NoError(t, err)

	assert.True(t, rt.Feed(Event{ID: "E"}))
	assert.True(t, rt.Is("pp", "B"))
	assert.Equal(t, []string{"exit:A", "enter:B"}, rt.Context().calls)

	assert.True(t, rt.Feed(Event{ID: "E"}))
	assert.True(t, rt.Is("pp", "A"))
	assert.Equal(t, []string{"exit:A", "enter:B", "exit:B", "enter:A"}, rt.Context().calls)
}

// guardedMachine: two transitions from the same source and event whose
// guards read flags in the context; declaration order decides the winner.
type guardedMachine struct{}

func (guardedMachine) Tag() MachineTag  { return "g" }
func (guardedMachine) Initial() StateID { return "S1" }
func (guardedMachine) Transitions() []Transition[testCtx] {
	return []Transition[testCtx]{
		From[testCtx]("S1").On("E").
			When(func(c testCtx, _ StateID, _ Event) bool { return c.g1 }).
			Run(record("a1")).
			To("S2"),
		From[testCtx]("S1").On("E").
			When(func(c testCtx, _ StateID, _ Event) bool { return c.g2 }).
			Run(record("a2")).
			To("S3"),
	}
}

func TestRuntime_GuardedChoice_FirstDeclaredWins(t *testing.T) {
	rt, err := New(testCtx{g1: true, g2: true}, guardedMachine{}, nil)
	require.NoError(t, err)

	assert.True(t, rt.Feed(Event{ID: "E"}))
	assert.True(t, rt.Is("g", "S2"))
	assert.Equal(t, []string{"a1"}, rt.Context().calls)
}

func TestRuntime_GuardedChoice_SecondMatchesWhenFirstFails(t *testing.T) {
	rt, err := New(testCtx{g2: true}, guardedMachine{}, nil)
	require.NoError(t, err)

	assert.True(t, rt.Feed(Event{ID: "E"}))
	assert.True(t, rt.Is("g", "S3"))
	assert.Equal(t, []string{"a2"}, rt.Context().calls)
}

// bypassMachine: a Bypass logging rule followed by a committing rule for
// the same source and event.
type bypassMachine struct{}

func (bypassMachine) Tag() MachineTag  { return "bp" }
func (bypassMachine) Initial() StateID { return "S1" }
func (bypassMachine) Transitions() []Transition[testCtx] {
	return []Transition[testCtx]{
		From[testCtx]("S1").On("E").Run(record("log")).Bypass(),
		From[testCtx]("S1").On("E").Run(record("a")).To("S2"),
	}
}

func TestRuntime_BypassThenCommit(t *testing.T) {
	rt, err := New(testCtx{}, bypassMachine{}, nil)
	require.NoError(t, err)

	assert.True(t, rt.Feed(Event{ID: "E"}))
	assert.True(t, rt.Is("bp", "S2"))
	assert.Equal(t, []string{"log", "a"}, rt.Context().calls)
}

// pureBypassMachine: only a Bypass rule. Actions run, but Feed reports no
// match because nothing committed a destination.
type pureBypassMachine struct{}

func (pureBypassMachine) Tag() MachineTag  { return "pbp" }
func (pureBypassMachine) Initial() StateID { return "S1" }
func (pureBypassMachine) Transitions() []Transition[testCtx] {
	return []Transition[testCtx]{
		From[testCtx]("S1").On("E").Run(record("log")).Bypass(),
	}
}

func TestRuntime_PureBypassReportsNoMatch(t *testing.T) {
	rt, err := New(testCtx{}, pureBypassMachine{}, nil)
	require.NoError(t, err)

	assert.False(t, rt.Feed(Event{ID: "E"}))
	assert.Equal(t, []string{"log"}, rt.Context().calls)
	assert.True(t, rt.Is("pbp", "S1"))
}

// hostMachine/workerMachine: the host enters the worker submachine on
// "start" and returns to S1 when the worker reaches its terminal state.
type hostMachine struct{}

func (hostMachine) Tag() MachineTag  { return "host" }
func (hostMachine) Initial() StateID { return "S1" }
func (hostMachine) Transitions() []Transition[testCtx] {
	return []Transition[testCtx]{
		From[testCtx]("S1").On("start").Enter("worker"),
		FromExitOf[testCtx]("worker").On(OnEnterEventID).Run(record("rejoin")).To("S1"),
	}
}

type workerMachine struct{}

func (workerMachine) Tag() MachineTag  { return "worker" }
func (workerMachine) Initial() StateID { return "T1" }
func (workerMachine) Transitions() []Transition[testCtx] {
	return []Transition[testCtx]{
		From[testCtx]("T1").On("done").Run(record("finish")).Exit(),
	}
}

func TestRuntime_SubmachineEnterAndExit(t *testing.T) {
	rt, err := New(testCtx{}, hostMachine{}, []MachineDef[testCtx]{workerMachine{}})
	require.NoError(t, err)

	assert.True(t, rt.Feed(Event{ID: "start"}))
	assert.True(t, rt.Is("worker", "T1"))

	// "done" drives worker to its terminal state; the synthesized OnEnter
	// on (worker, Terminal) immediately matches the host's FromExitOf rule
	// and cascades back to S1.
	assert.True(t, rt.Feed(Event{ID: "done"}))
	assert.True(t, rt.Is("host", "S1"))
	assert.Equal(t, []string{"finish", "rejoin"}, rt.Context().calls)
}

func TestRuntime_MissingSubmachineIsConstructionError(t *testing.T) {
	_, err := New(testCtx{}, hostMachine{}, nil)
	require.Error(t, err)

	var asmErr *ir.AssemblyError
	assert.True(t, errors.As(err, &asmErr))
	assert.Contains(t, err.Error(), "worker")
}

// wildcardHost/wildcardSub: the host has a catch-all rule; "X" exists only
// in the submachine, so the host's wildcard must not cover it.
type wildcardHost struct{}

func (wildcardHost) Tag() MachineTag  { return "wh" }
func (wildcardHost) Initial() StateID { return "S1" }
func (wildcardHost) Transitions() []Transition[testCtx] {
	return []Transition[testCtx]{
		FromAny[testCtx]().OnAny().Run(record("out")).Keep(),
		From[testCtx]("S1").On("go").Enter("ws"),
	}
}

type wildcardSub struct{}

func (wildcardSub) Tag() MachineTag  { return "ws" }
func (wildcardSub) Initial() StateID { return "T1" }
func (wildcardSub) Transitions() []Transition[testCtx] {
	return []Transition[testCtx]{
		From[testCtx]("T1").On("X").Keep(),
	}
}

func TestRuntime_WildcardEventLocality(t *testing.T) {
	rt, err := New(testCtx{}, wildcardHost{}, []MachineDef[testCtx]{wildcardSub{}})
	require.NoError(t, err)

	// X is declared only by the submachine; the host's wildcard does not
	// fire for it while the host state is current.
	assert.False(t, rt.Feed(Event{ID: "X"}))
	assert.Empty(t, rt.Context().calls)

	// The wildcard does fire for the host's own "go" id. It is declared
	// first, so it wins over the Enter rule and keeps the state.
	assert.True(t, rt.Feed(Event{ID: "go"}))
	assert.Equal(t, []string{"out"}, rt.Context().calls)
	assert.True(t, rt.Is("wh", "S1"))
}

// beginMachine records OnEnter deliveries on its initial state.
type beginMachine struct{}

func (beginMachine) Tag() MachineTag  { return "bm" }
func (beginMachine) Initial() StateID { return "S1" }
func (beginMachine) Transitions() []Transition[testCtx] {
	return []Transition[testCtx]{
		From[testCtx]("S1").On(OnEnterEventID).Run(record("enter:S1")).Bypass(),
		From[testCtx]("S1").On("E").To("S2"),
		From[testCtx]("S2").On("E").To("S1"),
	}
}

func TestRuntime_BeginDeliversInitialEnter(t *testing.T) {
	rt, err := New(testCtx{}, beginMachine{}, nil)
	require.NoError(t, err)

	rt.Begin()
	assert.Equal(t, []string{"enter:S1"}, rt.Context().calls)
	assert.True(t, rt.Is("bm", "S1"))
}

func TestRuntime_ResetReturnsToInitialWithoutEvents(t *testing.T) {
	rt, err := New(testCtx{}, beginMachine{}, nil)
	require.NoError(t, err)

	assert.True(t, rt.Feed(Event{ID: "E"}))
	assert.True(t, rt.Is("bm", "S2"))

	before := len(rt.Context().calls)
	rt.Reset()
	rt.Reset()
	assert.True(t, rt.Is("bm", "S1"))
	// No OnEnter/OnExit was delivered by either Reset.
	assert.Equal(t, before, len(rt.Context().calls))

	// The next Feed sees the initial state again.
	assert.True(t, rt.Feed(Event{ID: "E"}))
	assert.True(t, rt.Is("bm", "S2"))
}

// cascadeMachine: entering B immediately forwards to C through an
// OnEnter-triggered transition.
type cascadeMachine struct{}

func (cascadeMachine) Tag() MachineTag  { return "cas" }
func (cascadeMachine) Initial() StateID { return "A" }
func (cascadeMachine) Transitions() []Transition[testCtx] {
	return []Transition[testCtx]{
		From[testCtx]("A").On("E").To("B"),
		From[testCtx]("B").On(OnEnterEventID).Run(record("forward")).To("C"),
		From[testCtx]("C").On(OnEnterEventID).Run(record("landed")).Bypass(),
	}
}

func TestRuntime_OnEnterCascadeChainsTransitions(t *testing.T) {
	rt, err := New(testCtx{}, cascadeMachine{}, nil)
	require.NoError(t, err)

	assert.True(t, rt.Feed(Event{ID: "E"}))
	assert.True(t, rt.Is("cas", "C"))
	assert.Equal(t, []string{"forward", "landed"}, rt.Context().calls)
}

func TestRuntime_UnknownEventReturnsFalse(t *testing.T) {
	rt, err := New(testCtx{}, selfRunMachine{}, nil)
	require.NoError(t, err)

	assert.False(t, rt.Feed(Event{ID: "nope"}))
	assert.Empty(t, rt.Context().calls)
}

func TestRuntime_ReservedEventIDsAreRejected(t *testing.T) {
	rt, err := New(testCtx{}, beginMachine{}, nil)
	require.NoError(t, err)

	assert.False(t, rt.Feed(Event{ID: OnEnterEventID}))
	assert.False(t, rt.Feed(Event{ID: OnExitEventID}))
	assert.Empty(t, rt.Context().calls)
}

// reentrantMachine calls Feed from inside its own action.
type reentrantMachine struct {
	rt **Runtime[testCtx]
}

func (reentrantMachine) Tag() MachineTag  { return "re" }
func (reentrantMachine) Initial() StateID { return "S1" }
func (m reentrantMachine) Transitions() []Transition[testCtx] {
	return []Transition[testCtx]{
		From[testCtx]("S1").On("E").
			Run(func(_ *testCtx, _ StateID, _ Event) { (*m.rt).Feed(Event{ID: "E"}) }).
			Keep(),
	}
}

func TestRuntime_ReentrantFeedPanics(t *testing.T) {
	var rt *Runtime[testCtx]
	var err error
	rt, err = New(testCtx{}, reentrantMachine{rt: &rt}, nil)
	require.NoError(t, err)

	assert.Panics(t, func() { rt.Feed(Event{ID: "E"}) })
}

func TestRuntime_Determinism(t *testing.T) {
	sequence := []EventID{"E", "nope", "E", "E"}

	run := func() ([]bool, []string, GlobalRef) {
		rt, err := New(testCtx{}, pingPongMachine{}, nil)
		require.NoError(t, err)
		var results []bool
		for _, id := range sequence {
			results = append(results, rt.Feed(Event{ID: id}))
		}
		return results, rt.Context().calls, rt.State()
	}

	r1, c1, s1 := run()
	r2, c2, s2 := run()
	assert.Equal(t, r1, r2)
	assert.Equal(t, c1, c2)
	assert.Equal(t, s1, s2)
}

type recordingObserver struct {
	events   []EventID
	outcomes []Outcome
}

func (o *recordingObserver) OnFeed(event EventID, outcome Outcome) {
	o.events = append(o.events, event)
	o.outcomes = append(o.outcomes, outcome)
}

// TestRuntime_ObserverSeesOneOutcomePerFeed: the observer is notified once
// per externally initiated Feed, after the whole cascade quiesces, never
// for the synthesized OnEnter/OnExit legs.
func TestRuntime_ObserverSeesOneOutcomePerFeed(t *testing.T) {
	obs := &recordingObserver{}
	rt, err := New(testCtx{}, pingPongMachine{}, nil, WithObserver[testCtx](obs))
	require.NoError(t, err)

	rt.Feed(Event{ID: "E"})    // transitions A -> B
	rt.Feed(Event{ID: "nope"}) // unknown id

	assert.Equal(t, []EventID{"E", "nope"}, obs.events)
	assert.Equal(t, []Outcome{OutcomeTransitioned, OutcomeUnmatched}, obs.outcomes)
}

func TestRuntime_ObserverOutcomes(t *testing.T) {
	t.Run("kept", func(t *testing.T) {
		obs := &recordingObserver{}
		rt, err := New(testCtx{}, selfRunMachine{}, nil, WithObserver[testCtx](obs))
		require.NoError(t, err)
		rt.Feed(Event{ID: "E"})
		assert.Equal(t, []Outcome{OutcomeKept}, obs.outcomes)
	})

	t.Run("bypass", func(t *testing.T) {
		obs := &recordingObserver{}
		rt, err := New(testCtx{}, pureBypassMachine{}, nil, WithObserver[testCtx](obs))
		require.NoError(t, err)
		rt.Feed(Event{ID: "E"})
		assert.Equal(t, []Outcome{OutcomeBypass}, obs.outcomes)
	})
}

func TestRuntime_InstanceIDsAreDistinct(t *testing.T) {
	a, err := New(testCtx{}, selfRunMachine{}, nil)
	require.NoError(t, err)
	b, err := New(testCtx{}, selfRunMachine{}, nil)
	require.NoError(t, err)

	assert.NotEqual(t, a.InstanceID(), b.InstanceID())
}
