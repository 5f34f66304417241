package engine_test

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/perbu/artifacts/internal/engine"
)

type call struct {
	action string
	method string
	params map[string]any
	at     time.Time
}

// fakeInvoker answers every call through respond and records what it saw.
type fakeInvoker struct {
	mu      sync.Mutex
	calls   []call
	respond func(n int, action string, params map[string]any) (map[string]any, error)
}

func (f *fakeInvoker) Invoke(ctx context.Context, action, method string, params map[string]any) (map[string]any, error) {
	f.mu.Lock()
	n := len(f.calls)
	f.calls = append(f.calls, call{action: action, method: method, params: maps.Clone(params), at: time.Now()})
	respond := f.respond
	f.mu.Unlock()

	if respond == nil {
		return response("Ann", n, 0, nil), nil
	}
	return respond(n, action, params)
}

func (f *fakeInvoker) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]call, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeInvoker) Actions() []string {
	var actions []string
	for _, c := range f.Calls() {
		actions = append(actions, c.action)
	}
	return actions
}

// fakeLister serves a fixed character list.
type fakeLister struct {
	characters []engine.State
	err        error
}

func (f *fakeLister) ListCharacters(ctx context.Context) ([]engine.State, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.characters, nil
}

func roster(names ...string) *fakeLister {
	l := &fakeLister{}
	for _, name := range names {
		l.characters = append(l.characters, engine.State{"name": name, "hp": float64(100)})
	}
	return l
}

// response builds an action response for character name. serial lands in the
// snapshot so tests can tell snapshots apart.
func response(name string, serial, cooldown int, extra map[string]any) map[string]any {
	data := map[string]any{
		"character": map[string]any{"name": name, "serial": float64(serial)},
		"cooldown":  map[string]any{"remaining_seconds": float64(cooldown), "reason": "action"},
	}
	for k, v := range extra {
		data[k] = v
	}
	return data
}

func task(action string) engine.Task {
	return engine.NewTask(action, "", nil, nil)
}

// instantSleep records requested waits without blocking.
type instantSleep struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *instantSleep) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *instantSleep) Waits() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.waits...)
}
