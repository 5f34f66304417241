package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Driver runs one registered runner for the lifetime of RunAll. The default
// driver is RunToCompletion; supervisors substitute their own to initialize,
// seed and restart runners.
type Driver func(ctx context.Context, r *Runner) error

// RunToCompletion runs r until its queue drains, a task fails or ctx ends.
func RunToCompletion(ctx context.Context, r *Runner) error {
	return r.Run(ctx)
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithDriver replaces the driver used for every runner.
func WithDriver(d Driver) SchedulerOption {
	return func(s *Scheduler) {
		if d != nil {
			s.driver = d
		}
	}
}

// WithFailFast makes the first runner failure cancel every other runner.
// Without it failures stay isolated to the character they happened on.
func WithFailFast() SchedulerOption {
	return func(s *Scheduler) {
		s.failFast = true
	}
}

// WithRunnerDefaults applies opts to every runner created by Register, before
// the per-call options.
func WithRunnerDefaults(opts ...RunnerOption) SchedulerOption {
	return func(s *Scheduler) {
		s.defaults = append(s.defaults, opts...)
	}
}

// Scheduler owns one Runner per character and runs them concurrently.
type Scheduler struct {
	invoker  Invoker
	lister   Lister
	driver   Driver
	failFast bool
	defaults []RunnerOption

	mu      sync.Mutex
	running bool
	runners map[string]*Runner
	order   []string
	cancels map[string]context.CancelFunc
}

// NewScheduler creates an empty scheduler. inv and lister are shared by every
// runner it creates.
func NewScheduler(inv Invoker, lister Lister, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		invoker: inv,
		lister:  lister,
		driver:  RunToCompletion,
		runners: make(map[string]*Runner),
		cancels: make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates the runner for name. Names must be unique. Runners can
// only be added while RunAll is not in progress; a late runner would never
// be started.
func (s *Scheduler) Register(name string, opts ...RunnerOption) (*Runner, error) {
	if name == "" {
		return nil, fmt.Errorf("runner name must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil, fmt.Errorf("failed to register %s: %w", name, ErrSchedulerRunning)
	}

	if _, exists := s.runners[name]; exists {
		return nil, fmt.Errorf("runner %q already registered", name)
	}

	all := append(slices.Clone(s.defaults), opts...)
	r := NewRunner(name, s.invoker, s.lister, all...)
	s.runners[name] = r
	s.order = append(s.order, name)
	return r, nil
}

// Runner returns the runner registered under name.
func (s *Scheduler) Runner(name string) (*Runner, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runners[name]
	return r, ok
}

// Names returns the registered names in registration order.
func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.order)
}

// Statuses returns the status of every runner in registration order.
func (s *Scheduler) Statuses() []Status {
	s.mu.Lock()
	runners := make([]*Runner, 0, len(s.order))
	for _, name := range s.order {
		runners = append(runners, s.runners[name])
	}
	s.mu.Unlock()

	statuses := make([]Status, 0, len(runners))
	for _, r := range runners {
		statuses = append(statuses, r.Status())
	}
	return statuses
}

// Stop asks the named runner to stop at its next task boundary. It is a no-op
// for runners that are not currently running.
func (s *Scheduler) Stop(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runners[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRunner, name)
	}
	if cancel, ok := s.cancels[name]; ok {
		cancel()
	}
	return nil
}

// RunAll runs every registered runner and waits for all of them to finish.
// It returns the joined *RunnerError of every runner that failed; a runner
// stopped through ctx or Stop is not a failure. A second concurrent call
// returns ErrSchedulerRunning.
func (s *Scheduler) RunAll(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrSchedulerRunning
	}
	s.running = true
	names := slices.Clone(s.order)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	if len(names) == 0 {
		return nil
	}

	var g *errgroup.Group
	groupCtx := ctx
	if s.failFast {
		g, groupCtx = errgroup.WithContext(ctx)
	} else {
		g = new(errgroup.Group)
	}

	errs := make([]error, len(names))
	for i, name := range names {
		r, _ := s.Runner(name)
		runCtx, cancel := context.WithCancel(groupCtx)

		s.mu.Lock()
		s.cancels[name] = cancel
		s.mu.Unlock()

		g.Go(func() error {
			defer s.release(name, cancel)

			err := s.driver(runCtx, r)
			if err == nil || (errors.Is(err, context.Canceled) && runCtx.Err() != nil) {
				slog.Debug("runner finished", "character", name)
				return nil
			}

			slog.Error("runner failed", "character", name, "error", err)
			errs[i] = &RunnerError{Name: name, Err: err}
			return errs[i]
		})
	}

	_ = g.Wait()
	return errors.Join(errs...)
}

func (s *Scheduler) release(name string, cancel context.CancelFunc) {
	cancel()
	s.mu.Lock()
	delete(s.cancels, name)
	s.mu.Unlock()
}
