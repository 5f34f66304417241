package engine_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perbu/artifacts/internal/engine"
)

// initAndRun is the driver used by most scheduler tests.
func initAndRun(seed map[string][]engine.Task) engine.Driver {
	return func(ctx context.Context, r *engine.Runner) error {
		if err := r.Initialize(ctx); err != nil {
			return err
		}
		r.Enqueue(seed[r.Name()]...)
		return r.Run(ctx)
	}
}

// byCharacter answers with the character named in the action path prefix
// "<name>:".
func byCharacter(cooldown func(name string) int) *fakeInvoker {
	return &fakeInvoker{respond: func(n int, action string, params map[string]any) (map[string]any, error) {
		name, _, _ := strings.Cut(action, ":")
		return response(name, n, cooldown(name), nil), nil
	}}
}

func TestSchedulerRegister(t *testing.T) {
	s := engine.NewScheduler(&fakeInvoker{}, roster("Ann"))

	_, err := s.Register("Ann")
	require.NoError(t, err)

	_, err = s.Register("Ann")
	require.Error(t, err)

	_, err = s.Register("")
	require.Error(t, err)

	r, ok := s.Runner("Ann")
	require.True(t, ok)
	assert.Equal(t, "Ann", r.Name())

	_, ok = s.Runner("Bob")
	assert.False(t, ok)
	assert.Equal(t, []string{"Ann"}, s.Names())
}

func TestSchedulerRejectsRegisterWhileRunning(t *testing.T) {
	inv := byCharacter(func(string) int { return 60 })
	seed := map[string][]engine.Task{"Ann": {task("Ann:a"), task("Ann:b")}}
	s := engine.NewScheduler(inv, roster("Ann", "Bob"), engine.WithDriver(initAndRun(seed)))
	ann, err := s.Register("Ann")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.RunAll(ctx) }()

	require.Eventually(t, ann.OnCooldown, time.Second, 5*time.Millisecond)

	_, err = s.Register("Bob")
	require.ErrorIs(t, err, engine.ErrSchedulerRunning)
	require.ErrorIs(t, s.RunAll(ctx), engine.ErrSchedulerRunning)
	assert.Equal(t, []string{"Ann"}, s.Names())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("RunAll did not return after cancel")
	}

	_, err = s.Register("Bob")
	assert.NoError(t, err, "registration reopens once RunAll has returned")
}

func TestSchedulerRunAllEmpty(t *testing.T) {
	s := engine.NewScheduler(&fakeInvoker{}, roster())
	assert.NoError(t, s.RunAll(context.Background()))
}

func TestSchedulerRunnersAreIndependent(t *testing.T) {
	inv := byCharacter(func(name string) int {
		if name == "Slow" {
			return 10
		}
		return 0
	})

	release := make(chan struct{})
	blockingSleep := func(ctx context.Context, d time.Duration) error {
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	seed := map[string][]engine.Task{
		"Slow": {task("Slow:fight")},
		"Fast": {task("Fast:1"), task("Fast:2"), task("Fast:3"), task("Fast:4"), task("Fast:5")},
	}
	s := engine.NewScheduler(inv, roster("Slow", "Fast"), engine.WithDriver(initAndRun(seed)))
	slow, err := s.Register("Slow", engine.WithSleeper(blockingSleep))
	require.NoError(t, err)
	fast, err := s.Register("Fast")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.RunAll(context.Background()) }()

	require.Eventually(t, func() bool {
		st := fast.Status()
		return st.Phase == engine.PhaseStopped && st.TasksDone == 5
	}, 2*time.Second, 5*time.Millisecond)

	assert.True(t, slow.OnCooldown(), "slow runner is still waiting out its cooldown")
	assert.Equal(t, 1, slow.Status().TasksDone)

	close(release)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("RunAll did not return")
	}
}

func TestSchedulerIsolatesFailures(t *testing.T) {
	inv := &fakeInvoker{respond: func(n int, action string, params map[string]any) (map[string]any, error) {
		name, _, _ := strings.Cut(action, ":")
		if name == "Bad" {
			return nil, &engine.ActionError{Action: action, Method: "POST", StatusCode: 598, Message: "map not found"}
		}
		return response(name, n, 0, nil), nil
	}}
	seed := map[string][]engine.Task{
		"Bad":  {task("Bad:move")},
		"Good": {task("Good:a"), task("Good:b"), task("Good:c")},
	}
	s := engine.NewScheduler(inv, roster("Bad", "Good"), engine.WithDriver(initAndRun(seed)))
	_, err := s.Register("Bad")
	require.NoError(t, err)
	good, err := s.Register("Good")
	require.NoError(t, err)

	err = s.RunAll(context.Background())
	require.Error(t, err)

	var runnerErr *engine.RunnerError
	require.ErrorAs(t, err, &runnerErr)
	assert.Equal(t, "Bad", runnerErr.Name)

	var actionErr *engine.ActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, 598, actionErr.StatusCode)

	assert.Equal(t, 3, good.Status().TasksDone)
	assert.Empty(t, good.Status().LastError)
}

func TestSchedulerFailFast(t *testing.T) {
	inv := byCharacter(func(name string) int { return 60 })
	driver := func(ctx context.Context, r *engine.Runner) error {
		if r.Name() == "Bad" {
			return errors.New("cannot start")
		}
		if err := r.Initialize(ctx); err != nil {
			return err
		}
		r.Enqueue(task("Good:a"), task("Good:b"))
		return r.Run(ctx)
	}

	s := engine.NewScheduler(inv, roster("Bad", "Good"), engine.WithDriver(driver), engine.WithFailFast())
	_, err := s.Register("Good")
	require.NoError(t, err)
	_, err = s.Register("Bad")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.RunAll(context.Background()) }()

	select {
	case err := <-done:
		require.Error(t, err)
		var runnerErr *engine.RunnerError
		require.ErrorAs(t, err, &runnerErr)
		assert.Equal(t, "Bad", runnerErr.Name)
		assert.NotContains(t, err.Error(), "runner Good")
	case <-time.After(2 * time.Second):
		t.Fatal("fail-fast did not cancel the cooling runner")
	}
}

func TestSchedulerStop(t *testing.T) {
	inv := byCharacter(func(string) int { return 60 })
	seed := map[string][]engine.Task{
		"Ann": {task("Ann:a"), task("Ann:b")},
		"Bob": {task("Bob:a"), task("Bob:b")},
	}
	s := engine.NewScheduler(inv, roster("Ann", "Bob"), engine.WithDriver(initAndRun(seed)))
	ann, err := s.Register("Ann")
	require.NoError(t, err)
	bob, err := s.Register("Bob")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.RunAll(ctx) }()

	require.Eventually(t, func() bool { return ann.OnCooldown() && bob.OnCooldown() }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop("Ann"))
	require.Eventually(t, func() bool { return ann.Phase() == engine.PhaseStopped }, time.Second, 5*time.Millisecond)
	assert.True(t, bob.OnCooldown(), "stopping one runner leaves the others alone")

	require.ErrorIs(t, s.Stop("Zed"), engine.ErrUnknownRunner)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err, "stopped runners are not failures")
	case <-time.After(2 * time.Second):
		t.Fatal("RunAll did not return after cancel")
	}

	statuses := s.Statuses()
	require.Len(t, statuses, 2)
	assert.Equal(t, "Ann", statuses[0].Name)
	assert.Equal(t, []string{"Ann:b"}, statuses[0].Pending)
}

func TestSchedulerRunnerDefaults(t *testing.T) {
	obs := &recordingObserver{}
	s := engine.NewScheduler(&fakeInvoker{}, roster("Ann"),
		engine.WithRunnerDefaults(engine.WithObserver(obs)),
		engine.WithDriver(initAndRun(map[string][]engine.Task{"Ann": {task("Ann:a")}})),
	)
	_, err := s.Register("Ann")
	require.NoError(t, err)

	require.NoError(t, s.RunAll(context.Background()))
	assert.Equal(t, []string{"run", "start Ann:a", "ok Ann:a", "done"}, obs.events)
}
