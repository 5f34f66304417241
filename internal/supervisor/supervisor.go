// Package supervisor keeps persona runners alive. It plugs into the engine
// scheduler as a Driver: every attempt initializes the runner, seeds the
// persona and runs it, and failed attempts are retried with exponential
// backoff.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"github.com/perbu/artifacts/internal/character"
	"github.com/perbu/artifacts/internal/engine"
	"github.com/perbu/artifacts/internal/strategy"
)

// Config bounds restarts. MaxRestarts 0 means unlimited.
type Config struct {
	MaxRestarts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithBackOff replaces the backoff policy, mainly for tests.
func WithBackOff(factory func() backoff.BackOff) Option {
	return func(s *Supervisor) {
		if factory != nil {
			s.buildBackoff = factory
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Supervisor drives the runners of assigned characters.
type Supervisor struct {
	assignments  map[string]strategy.Persona
	maxRestarts  int
	buildBackoff func() backoff.BackOff
	logger       *slog.Logger

	mu       sync.Mutex
	restarts map[string]int
}

// New creates a supervisor for assignments, which maps character name to
// persona.
func New(assignments map[string]strategy.Persona, cfg Config, opts ...Option) *Supervisor {
	s := &Supervisor{
		assignments: assignments,
		maxRestarts: cfg.MaxRestarts,
		logger:      slog.Default(),
		restarts:    make(map[string]int),
	}
	s.buildBackoff = func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		if cfg.InitialBackoff > 0 {
			b.InitialInterval = cfg.InitialBackoff
		}
		if cfg.MaxBackoff > 0 {
			b.MaxInterval = cfg.MaxBackoff
		}
		b.MaxElapsedTime = 0
		return b
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FromRoster resolves a persona → character names roster into assignments.
// A character may appear only once.
func FromRoster(roster map[string][]string) (map[string]strategy.Persona, error) {
	assignments := make(map[string]strategy.Persona)
	personas := make([]string, 0, len(roster))
	for persona := range roster {
		personas = append(personas, persona)
	}
	slices.Sort(personas)

	for _, name := range personas {
		p, err := strategy.Lookup(name)
		if err != nil {
			return nil, err
		}
		for _, member := range roster[name] {
			if member == "" {
				continue
			}
			if prev, dup := assignments[member]; dup {
				return nil, fmt.Errorf("character %s is assigned to both %s and %s", member, prev.Name, p.Name)
			}
			assignments[member] = p
		}
	}
	return assignments, nil
}

// Characters returns the assigned character names, sorted.
func (s *Supervisor) Characters() []string {
	names := make([]string, 0, len(s.assignments))
	for name := range s.assignments {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Persona returns the persona name assigned to character.
func (s *Supervisor) Persona(character string) (string, bool) {
	p, ok := s.assignments[character]
	return p.Name, ok
}

// Restarts returns how often the character's runner has been restarted.
func (s *Supervisor) Restarts(character string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restarts[character]
}

// Drive is an engine.Driver. It returns nil when a run drains its queue, the
// last error once restarts are exhausted, or a permanent error such as
// engine.ErrEntityNotFound right away.
func (s *Supervisor) Drive(ctx context.Context, r *engine.Runner) error {
	persona, ok := s.assignments[r.Name()]
	if !ok {
		return fmt.Errorf("no persona assigned to %s", r.Name())
	}

	b := s.buildBackoff()
	if s.maxRestarts > 0 {
		b = backoff.WithMaxRetries(b, uint64(s.maxRestarts))
	}

	attempt := 0
	op := func() error {
		restart := attempt > 0
		attempt++

		err := s.runOnce(ctx, r, persona, restart)
		switch {
		case err == nil:
			return nil
		case ctx.Err() != nil, errors.Is(err, engine.ErrEntityNotFound):
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		s.mu.Lock()
		s.restarts[r.Name()]++
		s.mu.Unlock()
		s.logger.Warn("runner failed, restarting",
			"character", r.Name(), "persona", persona.Name, "error", err, "wait", wait)
	}

	return backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify)
}

func (s *Supervisor) runOnce(ctx context.Context, r *engine.Runner, persona strategy.Persona, restart bool) error {
	if err := r.Initialize(ctx); err != nil {
		return err
	}

	c, err := character.FromState(r.State())
	if err != nil {
		return backoff.Permanent(err)
	}

	if restart && persona.Recover != nil {
		r.Enqueue(persona.Recover(r.Name(), c)...)
	}
	r.Enqueue(persona.Seed(r.Name(), c)...)

	s.logger.Info("starting persona", "character", r.Name(), "persona", persona.Name, "restart", restart, "queued", r.QueueLen())
	return r.Run(ctx)
}
