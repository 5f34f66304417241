// Package engine runs per-character action queues against the Artifacts API.
//
// Each character gets one Runner. A Runner executes its queued tasks strictly
// one at a time, replaces the character snapshot with the one returned by the
// API, lets the task's continuation decide what to queue next and then waits
// out the cooldown before touching the queue again. A Scheduler runs many
// runners side by side; they share nothing.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
	"math"
)

// CooldownUnset is the cooldown value reported before any task has executed.
const CooldownUnset = -1

// Invoker performs one remote action call and returns the decoded "data"
// object of the response.
type Invoker interface {
	Invoke(ctx context.Context, actionID, method string, params map[string]any) (map[string]any, error)
}

// Lister returns every character on the account.
type Lister interface {
	ListCharacters(ctx context.Context) ([]State, error)
}

// Continuation decides what to do after a task completed. It receives the
// fresh snapshot and the response payload and returns the tasks to append to
// the runner's queue, in order. It must not block.
type Continuation func(state State, payload Payload) []Task

// Task describes one pending action call. Tasks are values: once built they
// are never modified and each one is executed at most once.
type Task struct {
	actionID     string
	method       string
	params       map[string]any
	continuation Continuation
	abort        error
}

// NewTask builds a task. An empty method means POST. The params map is copied.
func NewTask(actionID, method string, params map[string]any, then Continuation) Task {
	if method == "" {
		method = "POST"
	}
	return Task{
		actionID:     actionID,
		method:       method,
		params:       maps.Clone(params),
		continuation: then,
	}
}

// AbortAction is the action id of tasks built by Abort.
const AbortAction = "abort"

// Abort returns a task that fails with err when executed, without calling
// the invoker. Continuations use it to end the run with an error, since they
// cannot return one.
func Abort(err error) Task {
	if err == nil {
		err = errors.New("aborted")
	}
	return Task{actionID: AbortAction, method: "LOCAL", abort: err}
}

// ActionID returns the action path, e.g. "/my/Ann/action/fight".
func (t Task) ActionID() string { return t.actionID }

// Method returns the HTTP method used for the call.
func (t Task) Method() string { return t.method }

// Params returns a copy of the call parameters.
func (t Task) Params() map[string]any { return maps.Clone(t.params) }

// Continuation returns the task's continuation, or nil.
func (t Task) Continuation() Continuation { return t.continuation }

// Then returns a copy of t with its continuation replaced.
func (t Task) Then(next Continuation) Task {
	t.continuation = next
	return t
}

// Outcome is the result of executing a task.
type Outcome struct {
	State        State
	Cooldown     int // seconds, always >= 0
	Payload      Payload
	Continuation Continuation
}

// Execute performs the call and splits the response into snapshot, cooldown
// and payload. Errors from the invoker are returned unchanged; a response
// without the reserved keys yields a *MalformedResponseError. Abort tasks fail
// without calling the invoker.
func (t Task) Execute(ctx context.Context, inv Invoker) (Outcome, error) {
	if t.abort != nil {
		return Outcome{}, t.abort
	}
	data, err := inv.Invoke(ctx, t.actionID, t.method, t.Params())
	if err != nil {
		return Outcome{}, err
	}

	character, ok := data[KeyCharacter].(map[string]any)
	if !ok {
		return Outcome{}, missingKey(t.actionID, KeyCharacter, data)
	}

	cooldown, err := remainingSeconds(t.actionID, data)
	if err != nil {
		return Outcome{}, err
	}

	payload := make(Payload, len(data))
	for key, value := range data {
		if key == KeyCharacter || key == KeyCooldown {
			continue
		}
		payload[key] = value
	}

	return Outcome{
		State:        State(character),
		Cooldown:     cooldown,
		Payload:      payload,
		Continuation: t.continuation,
	}, nil
}

func missingKey(action, key string, data map[string]any) error {
	if _, present := data[key]; present {
		return &MalformedResponseError{Action: action, Key: key, Reason: "is not an object"}
	}
	return &MalformedResponseError{Action: action, Key: key}
}

func remainingSeconds(action string, data map[string]any) (int, error) {
	cooldown, ok := data[KeyCooldown].(map[string]any)
	if !ok {
		return 0, missingKey(action, KeyCooldown, data)
	}

	raw, present := cooldown["remaining_seconds"]
	if !present {
		return 0, &MalformedResponseError{Action: action, Key: KeyCooldown, Reason: "has no remaining_seconds"}
	}

	var seconds float64
	switch v := raw.(type) {
	case float64:
		seconds = v
	case int:
		seconds = float64(v)
	case int64:
		seconds = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, &MalformedResponseError{Action: action, Key: KeyCooldown, Reason: "has a non-numeric remaining_seconds"}
		}
		seconds = f
	default:
		return 0, &MalformedResponseError{Action: action, Key: KeyCooldown, Reason: "has a non-numeric remaining_seconds"}
	}

	if seconds < 0 || math.IsNaN(seconds) {
		return 0, &MalformedResponseError{Action: action, Key: KeyCooldown, Reason: "has a negative remaining_seconds"}
	}
	return int(math.Ceil(seconds)), nil
}
