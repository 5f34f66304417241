package strategy

import (
	"github.com/perbu/artifacts/internal/actions"
	"github.com/perbu/artifacts/internal/character"
	"github.com/perbu/artifacts/internal/engine"
)

var (
	// Arena is where the fighter farms.
	Arena = character.Point{X: 0, Y: 1}

	ashForest = character.Point{X: -1, Y: 0}
	workshop  = character.Point{X: 2, Y: 1}
)

const (
	starterWeapon = "wooden_stick"
	staff         = "wooden_staff"
	staffAshWood  = 4
)

// fighterSeed swaps the starter stick for a wooden staff if needed, then
// fights, clears the inventory and rests in a loop.
func fighterSeed(name string, c *character.Character) []engine.Task {
	if c.Equipment.Weapon == starterWeapon {
		tasks := moveTo(name, c, ashForest)
		return append(tasks, actions.Gather(name, gatherAsh(name)))
	}
	return startFighting(name, c)
}

func gatherAsh(name string) engine.Continuation {
	return continueWith(name, func(c *character.Character) []engine.Task {
		if n, _ := c.Inventory.Quantity("ash_wood"); n < staffAshWood {
			return []engine.Task{actions.Gather(name, gatherAsh(name))}
		}
		return []engine.Task{
			actions.Unequip(name, "weapon", 1, nil),
			actions.Move(name, workshop.X, workshop.Y, nil),
			actions.Craft(name, staff, 1, nil),
			actions.Equip(name, "weapon", staff, 1, continueWith(name, func(c *character.Character) []engine.Task {
				return startFighting(name, c)
			})),
		}
	})
}

func startFighting(name string, c *character.Character) []engine.Task {
	tasks := moveTo(name, c, Arena)
	return append(tasks, actions.Fight(name, fightLoop(name)))
}

func fightLoop(name string) engine.Continuation {
	return continueWith(name, func(c *character.Character) []engine.Task {
		tasks := []engine.Task{actions.Fight(name, nil)}
		tasks = append(tasks, clearInventory(name, c)...)
		return append(tasks, actions.Rest(name, fightLoop(name)))
	})
}
