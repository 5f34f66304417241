// Package strategy holds the personas that decide what a character does.
//
// A persona is a seed function producing the first tasks for a freshly
// initialized character plus the continuations those tasks carry. Everything
// is a pure function of the snapshot the runner hands over, so a persona can
// be restarted at any time from whatever state the character is in.
package strategy

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/perbu/artifacts/internal/actions"
	"github.com/perbu/artifacts/internal/character"
	"github.com/perbu/artifacts/internal/engine"
)

// Persona is a named behaviour.
type Persona struct {
	Name string
	// Seed returns the first tasks for the character.
	Seed func(name string, c *character.Character) []engine.Task
	// Recover, when set, returns tasks to run before Seed when the persona is
	// restarted after a failure.
	Recover func(name string, c *character.Character) []engine.Task
}

var personas = map[string]Persona{
	"fighter":     {Name: "fighter", Seed: fighterSeed},
	"fishing":     gatherer("fishing", fishingSpots),
	"alchemy":     gatherer("alchemy", alchemySpots),
	"woodcutting": gatherer("woodcutting", woodcuttingSpots),
	"mining":      {Name: "mining", Seed: miningSeed, Recover: clearAll},
}

// Lookup returns the persona registered under name.
func Lookup(name string) (Persona, error) {
	p, ok := personas[name]
	if !ok {
		return Persona{}, fmt.Errorf("unknown persona %q (known: %v)", name, Names())
	}
	return p, nil
}

// Names returns every persona name, sorted.
func Names() []string {
	names := make([]string, 0, len(personas))
	for name := range personas {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// continueWith adapts a typed step into an engine.Continuation. A snapshot
// that cannot be decoded fails the run through an abort task.
func continueWith(name string, step func(c *character.Character) []engine.Task) engine.Continuation {
	return func(state engine.State, _ engine.Payload) []engine.Task {
		c, err := character.FromState(state)
		if err != nil {
			slog.Error("failed to decode snapshot, stopping persona", "character", name, "error", err)
			return []engine.Task{engine.Abort(fmt.Errorf("failed to decode snapshot of %s: %w", name, err))}
		}
		return step(c)
	}
}

// moveTo returns a move task unless the character already stands on p.
func moveTo(name string, c *character.Character, p character.Point) []engine.Task {
	if c.Position == p {
		return nil
	}
	return []engine.Task{actions.Move(name, p.X, p.Y, nil)}
}

// clearInventory deletes every stack whose code is not in keep.
func clearInventory(name string, c *character.Character, keep ...string) []engine.Task {
	var tasks []engine.Task
	for _, it := range c.Inventory.Stacks() {
		if slices.Contains(keep, it.Code) {
			continue
		}
		tasks = append(tasks, actions.DeleteItem(name, it.Code, it.Quantity, nil))
	}
	return tasks
}

func clearAll(name string, c *character.Character) []engine.Task {
	return clearInventory(name, c)
}
