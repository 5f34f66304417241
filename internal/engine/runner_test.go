package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perbu/artifacts/internal/engine"
)

func newTestRunner(t *testing.T, inv engine.Invoker, opts ...engine.RunnerOption) *engine.Runner {
	t.Helper()
	r := engine.NewRunner("Ann", inv, roster("Bob", "Ann"), opts...)
	require.NoError(t, r.Initialize(context.Background()))
	return r
}

func TestRunnerInitialize(t *testing.T) {
	r := engine.NewRunner("Ann", &fakeInvoker{}, roster("Bob", "Ann"))
	assert.Nil(t, r.State())
	assert.Equal(t, engine.CooldownUnset, r.LastCooldown())
	assert.False(t, r.OnCooldown())

	require.NoError(t, r.Initialize(context.Background()))
	assert.Equal(t, "Ann", r.State().Name())
	assert.Equal(t, 0, r.QueueLen())
	assert.Equal(t, engine.CooldownUnset, r.LastCooldown())
}

func TestRunnerInitializeNotFound(t *testing.T) {
	r := engine.NewRunner("Zed", &fakeInvoker{}, roster("Bob", "Ann"))
	err := r.Initialize(context.Background())
	require.ErrorIs(t, err, engine.ErrEntityNotFound)
	assert.Contains(t, err.Error(), "Zed")
	assert.Nil(t, r.State())
}

func TestRunnerInitializeListError(t *testing.T) {
	r := engine.NewRunner("Ann", &fakeInvoker{}, &fakeLister{err: errors.New("boom")})
	err := r.Initialize(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, engine.ErrEntityNotFound)
}

func TestRunnerInitializeDiscardsQueue(t *testing.T) {
	r := newTestRunner(t, &fakeInvoker{})
	r.Enqueue(task("a"), task("b"))
	require.Equal(t, 2, r.QueueLen())

	require.NoError(t, r.Initialize(context.Background()))
	assert.Equal(t, 0, r.QueueLen())
}

func TestRunnerExecutesInOrder(t *testing.T) {
	inv := &fakeInvoker{}
	sleep := &instantSleep{}
	r := newTestRunner(t, inv, engine.WithSleeper(sleep.Sleep))

	r.Enqueue(task("move"), task("gathering"), task("rest"))
	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, []string{"move", "gathering", "rest"}, inv.Actions())
	assert.Equal(t, 0, r.QueueLen())
	assert.Equal(t, engine.PhaseStopped, r.Phase())
	assert.Equal(t, 3, r.Status().TasksDone)
}

func TestRunnerReplacesState(t *testing.T) {
	inv := &fakeInvoker{respond: func(n int, action string, params map[string]any) (map[string]any, error) {
		return map[string]any{
			"character": map[string]any{"name": "Ann", "hp": float64(40)},
			"cooldown":  map[string]any{"remaining_seconds": float64(0)},
		}, nil
	}}
	r := newTestRunner(t, inv)
	require.Contains(t, r.State(), "hp")

	r.Enqueue(task("fight"))
	require.NoError(t, r.Run(context.Background()))

	// Wholesale replacement: keys from the old snapshot do not survive.
	assert.Equal(t, engine.State{"name": "Ann", "hp": float64(40)}, r.State())
}

func TestRunnerNoWaitOnZeroCooldown(t *testing.T) {
	sleep := &instantSleep{}
	r := newTestRunner(t, &fakeInvoker{}, engine.WithSleeper(sleep.Sleep))

	r.Enqueue(task("a"), task("b"))
	require.NoError(t, r.Run(context.Background()))

	assert.Empty(t, sleep.Waits())
	assert.Equal(t, 0, r.LastCooldown())
}

func TestRunnerWaitsOutCooldown(t *testing.T) {
	const unit = 20 * time.Millisecond
	inv := &fakeInvoker{respond: func(n int, action string, params map[string]any) (map[string]any, error) {
		return response("Ann", n, 2, nil), nil
	}}
	r := newTestRunner(t, inv, engine.WithCooldownUnit(unit))

	r.Enqueue(task("a"), task("b"), task("c"))
	require.NoError(t, r.Run(context.Background()))

	calls := inv.Calls()
	require.Len(t, calls, 3)
	for i := 1; i < len(calls); i++ {
		gap := calls[i].at.Sub(calls[i-1].at)
		assert.GreaterOrEqual(t, gap, 2*unit, "call %d started %v after the previous one", i, gap)
	}
	assert.Equal(t, 2, r.LastCooldown())
}

func TestRunnerContinuationRunsBeforeCooldown(t *testing.T) {
	inv := &fakeInvoker{respond: func(n int, action string, params map[string]any) (map[string]any, error) {
		return response("Ann", n, 5, map[string]any{"details": map[string]any{"xp": float64(10)}}), nil
	}}

	var (
		r          *engine.Runner
		queuedLen  int
		onCooldown bool
		waited     time.Duration
	)
	sleeper := func(ctx context.Context, d time.Duration) error {
		if waited == 0 {
			queuedLen = r.QueueLen()
			onCooldown = r.OnCooldown()
			waited = d
		}
		return nil
	}

	var gotPayload engine.Payload
	then := func(state engine.State, payload engine.Payload) []engine.Task {
		gotPayload = payload
		return []engine.Task{task("rest"), task("fight")}
	}

	r = newTestRunner(t, inv, engine.WithSleeper(sleeper), engine.WithCooldownUnit(time.Millisecond))
	r.Enqueue(engine.NewTask("gathering", "", nil, then))
	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, 2, queuedLen, "continuation tasks must be queued before the cooldown wait")
	assert.True(t, onCooldown)
	assert.Equal(t, 5*time.Millisecond, waited)
	assert.Equal(t, engine.Payload{"details": map[string]any{"xp": float64(10)}}, gotPayload)
	assert.Equal(t, []string{"gathering", "rest", "fight"}, inv.Actions())
	assert.False(t, r.OnCooldown())
}

func TestRunnerStopsOnFailure(t *testing.T) {
	apiErr := &engine.ActionError{Action: "b", Method: "POST", StatusCode: 497, Message: "inventory full"}
	inv := &fakeInvoker{respond: func(n int, action string, params map[string]any) (map[string]any, error) {
		if n == 1 {
			return nil, apiErr
		}
		return response("Ann", n, 0, nil), nil
	}}
	r := newTestRunner(t, inv)

	r.Enqueue(task("a"), task("b"), task("c"))
	err := r.Run(context.Background())

	require.Error(t, err)
	var actionErr *engine.ActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, 497, actionErr.StatusCode)

	assert.Equal(t, []string{"a", "b"}, inv.Actions())
	assert.Equal(t, 1, r.QueueLen(), "the task after the failure stays queued")
	assert.Equal(t, float64(0), r.State()["serial"], "state from the last successful task is kept")

	st := r.Status()
	assert.Equal(t, engine.PhaseStopped, st.Phase)
	assert.Contains(t, st.LastError, "inventory full")
}

func TestRunnerContinuationAbortFailsRun(t *testing.T) {
	cause := errors.New("snapshot unreadable")
	inv := &fakeInvoker{}
	r := newTestRunner(t, inv)

	r.Enqueue(engine.NewTask("a", "", nil, func(engine.State, engine.Payload) []engine.Task {
		return []engine.Task{engine.Abort(cause)}
	}))
	err := r.Run(context.Background())

	require.ErrorIs(t, err, cause)
	assert.Equal(t, []string{"a"}, inv.Actions())
	assert.Equal(t, 0, r.QueueLen())
	assert.Contains(t, r.Status().LastError, "snapshot unreadable")
}

func TestRunnerMalformedResponseStops(t *testing.T) {
	inv := &fakeInvoker{respond: func(int, string, map[string]any) (map[string]any, error) {
		return map[string]any{"cooldown": map[string]any{"remaining_seconds": float64(1)}}, nil
	}}
	r := newTestRunner(t, inv)
	r.Enqueue(task("a"))

	err := r.Run(context.Background())
	var malformed *engine.MalformedResponseError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "Ann", r.State().Name(), "snapshot from Initialize is untouched")
}

func TestRunnerCancelLetsInflightFinish(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	inv := &fakeInvoker{respond: func(n int, action string, params map[string]any) (map[string]any, error) {
		once.Do(func() { close(started) })
		<-release
		return response("Ann", n+100, 0, nil), nil
	}}
	r := newTestRunner(t, inv)
	r.Enqueue(task("a"), task("b"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	<-started
	cancel()
	close(release)

	err := <-done
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"a"}, inv.Actions())
	assert.Equal(t, float64(100), r.State()["serial"], "the in-flight outcome is applied")
	assert.Equal(t, 1, r.QueueLen())
	assert.Empty(t, r.Status().LastError, "cancellation is not recorded as a failure")
}

func TestRunnerCancelDuringCooldown(t *testing.T) {
	inv := &fakeInvoker{respond: func(n int, action string, params map[string]any) (map[string]any, error) {
		return response("Ann", n, 60, nil), nil
	}}
	r := newTestRunner(t, inv)
	r.Enqueue(task("a"), task("b"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, r.OnCooldown, time.Second, 5*time.Millisecond)
	assert.Equal(t, engine.PhaseCooling, r.Phase())
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("runner did not stop during cooldown")
	}
	assert.Equal(t, []string{"a"}, inv.Actions())
	assert.False(t, r.OnCooldown())
}

func TestRunnerEmptyQueueReturns(t *testing.T) {
	r := newTestRunner(t, &fakeInvoker{})
	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, engine.CooldownUnset, r.LastCooldown())
}

type recordingObserver struct {
	engine.NopObserver
	mu     sync.Mutex
	events []string
}

func (o *recordingObserver) add(ev string) {
	o.mu.Lock()
	o.events = append(o.events, ev)
	o.mu.Unlock()
}

func (o *recordingObserver) RunStarted(string) { o.add("run") }
func (o *recordingObserver) RunFinished(string, error) { o.add("done") }
func (o *recordingObserver) TaskStarted(_ string, t engine.Task) {
	o.add("start " + t.ActionID())
}
func (o *recordingObserver) TaskCompleted(_ string, t engine.Task, _ engine.Outcome, _ time.Duration) {
	o.add("ok " + t.ActionID())
}
func (o *recordingObserver) TaskFailed(_ string, t engine.Task, _ error, _ time.Duration) {
	o.add("fail " + t.ActionID())
}
func (o *recordingObserver) CooldownStarted(string, time.Duration) { o.add("cooldown") }

func TestRunnerNotifiesObservers(t *testing.T) {
	inv := &fakeInvoker{respond: func(n int, action string, params map[string]any) (map[string]any, error) {
		if action == "bad" {
			return nil, errors.New("nope")
		}
		return response("Ann", n, 1, nil), nil
	}}
	obs := &recordingObserver{}
	sleep := &instantSleep{}
	r := newTestRunner(t, inv, engine.WithObserver(obs), engine.WithSleeper(sleep.Sleep))

	r.Enqueue(task("good"), task("bad"))
	require.Error(t, r.Run(context.Background()))

	assert.Equal(t, []string{
		"run",
		"start good", "ok good", "cooldown",
		"start bad", "fail bad",
		"done",
	}, obs.events)
}
