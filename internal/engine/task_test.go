package engine_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perbu/artifacts/internal/engine"
)

func TestNewTaskDefaults(t *testing.T) {
	params := map[string]any{"x": 1, "y": 2}
	tk := engine.NewTask("/my/Ann/action/move", "", params, nil)

	assert.Equal(t, "POST", tk.Method())
	assert.Equal(t, "/my/Ann/action/move", tk.ActionID())
	assert.Nil(t, tk.Continuation())

	params["x"] = 99
	assert.Equal(t, 1, tk.Params()["x"], "task must not alias the caller's params")

	got := tk.Params()
	got["y"] = 42
	assert.Equal(t, 2, tk.Params()["y"], "Params must return a copy")
}

func TestTaskExecute(t *testing.T) {
	var seen engine.Payload
	then := func(state engine.State, payload engine.Payload) []engine.Task {
		seen = payload
		return nil
	}

	inv := &fakeInvoker{respond: func(n int, action string, params map[string]any) (map[string]any, error) {
		return response("Ann", 7, 3, map[string]any{"fight": map[string]any{"result": "win"}}), nil
	}}

	tk := engine.NewTask("/my/Ann/action/fight", "POST", nil, then)
	out, err := tk.Execute(context.Background(), inv)
	require.NoError(t, err)

	assert.Equal(t, "Ann", out.State.Name())
	assert.Equal(t, float64(7), out.State["serial"])
	assert.Equal(t, 3, out.Cooldown)
	assert.Equal(t, engine.Payload{"fight": map[string]any{"result": "win"}}, out.Payload)
	assert.NotContains(t, out.Payload, engine.KeyCharacter)
	assert.NotContains(t, out.Payload, engine.KeyCooldown)

	require.NotNil(t, out.Continuation)
	out.Continuation(out.State, out.Payload)
	assert.Equal(t, out.Payload, seen)

	calls := inv.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "POST", calls[0].method)
}

func TestTaskExecuteCooldownValues(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want int
	}{
		{"zero", float64(0), 0},
		{"whole", float64(25), 25},
		{"fraction rounds up", 2.2, 3},
		{"int", 4, 4},
		{"int64", int64(5), 5},
		{"json number", json.Number("6"), 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &fakeInvoker{respond: func(int, string, map[string]any) (map[string]any, error) {
				return map[string]any{
					"character": map[string]any{"name": "Ann"},
					"cooldown":  map[string]any{"remaining_seconds": tt.raw},
				}, nil
			}}
			out, err := task("rest").Execute(context.Background(), inv)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Cooldown)
		})
	}
}

func TestTaskExecuteMalformed(t *testing.T) {
	tests := []struct {
		name string
		data map[string]any
		key  string
	}{
		{
			name: "missing character",
			data: map[string]any{"cooldown": map[string]any{"remaining_seconds": float64(1)}},
			key:  engine.KeyCharacter,
		},
		{
			name: "character not an object",
			data: map[string]any{"character": "Ann", "cooldown": map[string]any{"remaining_seconds": float64(1)}},
			key:  engine.KeyCharacter,
		},
		{
			name: "missing cooldown",
			data: map[string]any{"character": map[string]any{"name": "Ann"}},
			key:  engine.KeyCooldown,
		},
		{
			name: "missing remaining_seconds",
			data: map[string]any{"character": map[string]any{"name": "Ann"}, "cooldown": map[string]any{}},
			key:  engine.KeyCooldown,
		},
		{
			name: "negative remaining_seconds",
			data: map[string]any{"character": map[string]any{"name": "Ann"}, "cooldown": map[string]any{"remaining_seconds": float64(-1)}},
			key:  engine.KeyCooldown,
		},
		{
			name: "string remaining_seconds",
			data: map[string]any{"character": map[string]any{"name": "Ann"}, "cooldown": map[string]any{"remaining_seconds": "soon"}},
			key:  engine.KeyCooldown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &fakeInvoker{respond: func(int, string, map[string]any) (map[string]any, error) {
				return tt.data, nil
			}}
			_, err := task("/my/Ann/action/rest").Execute(context.Background(), inv)

			var malformed *engine.MalformedResponseError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, tt.key, malformed.Key)
			assert.Equal(t, "/my/Ann/action/rest", malformed.Action)
		})
	}
}

func TestTaskExecuteInvokerError(t *testing.T) {
	want := &engine.ActionError{Action: "/my/Ann/action/fight", Method: "POST", StatusCode: 499, Message: "character in cooldown"}
	inv := &fakeInvoker{respond: func(int, string, map[string]any) (map[string]any, error) {
		return nil, want
	}}

	_, err := task("/my/Ann/action/fight").Execute(context.Background(), inv)

	var actionErr *engine.ActionError
	require.True(t, errors.As(err, &actionErr))
	assert.Same(t, want, actionErr)
	assert.Contains(t, err.Error(), "character in cooldown")
}

func TestTaskAbort(t *testing.T) {
	cause := errors.New("snapshot unreadable")
	inv := &fakeInvoker{}

	abort := engine.Abort(cause)
	_, err := abort.Execute(context.Background(), inv)

	require.ErrorIs(t, err, cause)
	assert.Equal(t, engine.AbortAction, abort.ActionID())
	assert.Empty(t, inv.Calls(), "abort never reaches the API")

	_, err = engine.Abort(nil).Execute(context.Background(), inv)
	assert.Error(t, err)
}
