package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Phase is the runner's position in its execution cycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseExecuting
	PhaseCooling
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseExecuting:
		return "executing"
	case PhaseCooling:
		return "cooling"
	case PhaseStopped:
		return "stopped"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Sleeper blocks for d or until ctx is done, whichever comes first.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger. The runner adds a "character" attribute.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithObserver registers an observer. Repeated use adds observers.
func WithObserver(obs Observer) RunnerOption {
	return func(r *Runner) {
		if obs != nil {
			r.observers = append(r.observers, obs)
		}
	}
}

// WithSleeper replaces the cooldown wait, mainly for tests.
func WithSleeper(sleep Sleeper) RunnerOption {
	return func(r *Runner) {
		if sleep != nil {
			r.sleep = sleep
		}
	}
}

// WithCooldownUnit sets the length of one cooldown second. Defaults to time.Second.
func WithCooldownUnit(unit time.Duration) RunnerOption {
	return func(r *Runner) {
		if unit > 0 {
			r.unit = unit
		}
	}
}

// Status is a point-in-time view of a runner, safe to hand to other goroutines.
type Status struct {
	Name         string
	Phase        Phase
	OnCooldown   bool
	Pending      []string
	LastAction   string
	LastCooldown int
	TasksDone    int
	LastError    string
	UpdatedAt    time.Time
}

// Runner drives the task queue of one character. Only the goroutine calling
// Run executes tasks, updates the snapshot and consumes the queue; the mutex
// exists so that status readers and Enqueue from other goroutines see a
// consistent view.
type Runner struct {
	name      string
	invoker   Invoker
	lister    Lister
	logger    *slog.Logger
	observers Observers
	sleep     Sleeper
	unit      time.Duration

	onCooldown atomic.Bool

	mu           sync.RWMutex
	state        State
	queue        Queue
	phase        Phase
	lastAction   string
	lastCooldown int
	tasksDone    int
	lastErr      error
	updatedAt    time.Time
}

// NewRunner creates a runner for the named character. Call Initialize before Run.
func NewRunner(name string, inv Invoker, lister Lister, opts ...RunnerOption) *Runner {
	r := &Runner{
		name:         name,
		invoker:      inv,
		lister:       lister,
		logger:       slog.Default(),
		sleep:        SleepContext,
		unit:         time.Second,
		lastCooldown: CooldownUnset,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("character", name)
	return r
}

// Name returns the character name.
func (r *Runner) Name() string { return r.name }

// Initialize fetches the character list and adopts the snapshot whose name
// matches. Any tasks still queued from a previous run are discarded.
func (r *Runner) Initialize(ctx context.Context) error {
	characters, err := r.lister.ListCharacters(ctx)
	if err != nil {
		return fmt.Errorf("failed to list characters: %w", err)
	}

	for _, c := range characters {
		if c.Name() != r.name {
			continue
		}
		r.mu.Lock()
		r.state = c
		r.queue.Clear()
		r.phase = PhaseIdle
		r.lastErr = nil
		r.updatedAt = time.Now()
		r.mu.Unlock()
		r.logger.Debug("character initialized")
		return nil
	}
	return fmt.Errorf("%w: %s", ErrEntityNotFound, r.name)
}

// Enqueue appends a task to the tail of the queue.
func (r *Runner) Enqueue(tasks ...Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range tasks {
		r.queue.Enqueue(t)
	}
}

// State returns the current snapshot. Callers must treat it as read-only.
func (r *Runner) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// OnCooldown reports whether the runner is waiting out a cooldown.
func (r *Runner) OnCooldown() bool {
	return r.onCooldown.Load()
}

// Phase returns the current phase.
func (r *Runner) Phase() Phase {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.phase
}

// LastCooldown returns the cooldown of the last executed task, or
// CooldownUnset if nothing has executed yet.
func (r *Runner) LastCooldown() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastCooldown
}

// QueueLen returns the number of pending tasks.
func (r *Runner) QueueLen() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.queue.Len()
}

// Status returns a snapshot of the runner for status displays.
func (r *Runner) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st := Status{
		Name:         r.name,
		Phase:        r.phase,
		OnCooldown:   r.onCooldown.Load(),
		Pending:      r.queue.Pending(),
		LastAction:   r.lastAction,
		LastCooldown: r.lastCooldown,
		TasksDone:    r.tasksDone,
		UpdatedAt:    r.updatedAt,
	}
	if r.lastErr != nil {
		st.LastError = r.lastErr.Error()
	}
	return st
}

// Run executes queued tasks one at a time until the queue is empty, a task
// fails or ctx is cancelled. Cancellation only takes effect between tasks:
// an action already sent to the API is allowed to finish and its outcome is
// applied before Run returns ctx.Err().
func (r *Runner) Run(ctx context.Context) (err error) {
	r.observers.RunStarted(r.name)
	defer func() {
		r.mu.Lock()
		r.phase = PhaseStopped
		if err != nil && !errors.Is(err, context.Canceled) {
			r.lastErr = err
		}
		r.updatedAt = time.Now()
		r.mu.Unlock()
		r.observers.RunFinished(r.name, err)
	}()

	for {
		if err := ctx.Err(); err != nil {
			r.logger.Debug("runner stopped", "reason", err)
			return err
		}

		task, ok := r.next()
		if !ok {
			r.logger.Debug("queue drained")
			return nil
		}

		if err := r.step(ctx, task); err != nil {
			return err
		}
	}
}

// next dequeues the head task, or reports false when the queue is empty.
func (r *Runner) next() (Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.queue.IsEmpty() {
		r.phase = PhaseIdle
		return Task{}, false
	}
	task, err := r.queue.Dequeue()
	if err != nil {
		return Task{}, false
	}
	r.phase = PhaseExecuting
	r.lastAction = task.actionID
	r.updatedAt = time.Now()
	return task, true
}

// step runs one task through execute, apply, continue and cool down.
func (r *Runner) step(ctx context.Context, task Task) error {
	r.observers.TaskStarted(r.name, task)
	r.logger.Debug("executing task", "action", task.actionID, "method", task.method)

	start := time.Now()
	outcome, err := task.Execute(context.WithoutCancel(ctx), r.invoker)
	elapsed := time.Since(start)
	if err != nil {
		r.observers.TaskFailed(r.name, task, err, elapsed)
		r.logger.Warn("task failed", "action", task.actionID, "error", err)
		return fmt.Errorf("failed to execute %s: %w", task.actionID, err)
	}

	var next []Task
	if outcome.Continuation != nil {
		next = outcome.Continuation(outcome.State, outcome.Payload)
	}

	r.mu.Lock()
	r.state = outcome.State
	for _, t := range next {
		r.queue.Enqueue(t)
	}
	r.lastCooldown = outcome.Cooldown
	r.tasksDone++
	r.updatedAt = time.Now()
	r.mu.Unlock()

	r.observers.TaskCompleted(r.name, task, outcome, elapsed)
	r.logger.Info("task completed", "action", task.actionID, "cooldown", outcome.Cooldown, "queued", len(next))

	if outcome.Cooldown <= 0 {
		return nil
	}
	return r.coolDown(ctx, time.Duration(outcome.Cooldown)*r.unit)
}

func (r *Runner) coolDown(ctx context.Context, wait time.Duration) error {
	r.mu.Lock()
	r.phase = PhaseCooling
	r.mu.Unlock()
	r.onCooldown.Store(true)
	r.observers.CooldownStarted(r.name, wait)

	err := r.sleep(ctx, wait)

	r.onCooldown.Store(false)
	r.mu.Lock()
	r.phase = PhaseIdle
	r.mu.Unlock()
	return err
}
