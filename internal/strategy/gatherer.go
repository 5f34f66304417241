package strategy

import (
	"slices"

	"github.com/perbu/artifacts/internal/actions"
	"github.com/perbu/artifacts/internal/character"
	"github.com/perbu/artifacts/internal/engine"
)

// Spot is a gathering location unlocked at MinLevel.
type Spot struct {
	MinLevel int
	At       character.Point
}

// Spot tables, highest level first.
var (
	fishingSpots = []Spot{
		{40, character.Point{X: -2, Y: -4}},
		{30, character.Point{X: 6, Y: 12}},
		{20, character.Point{X: 7, Y: 12}},
		{10, character.Point{X: 5, Y: 2}},
		{0, character.Point{X: 4, Y: 2}},
	}
	alchemySpots = []Spot{
		{40, character.Point{X: 1, Y: 10}},
		{20, character.Point{X: 7, Y: 14}},
		{0, character.Point{X: 2, Y: 2}},
	}
	woodcuttingSpots = []Spot{
		{40, character.Point{X: 1, Y: 12}},
		{30, character.Point{X: 9, Y: 6}},
		{20, character.Point{X: 3, Y: 5}},
		{10, character.Point{X: 2, Y: 6}},
		{0, character.Point{X: -1, Y: 0}},
	}
	miningSpots = []Spot{
		{40, character.Point{X: -2, Y: 13}},
		{30, character.Point{X: 6, Y: -3}},
		{20, character.Point{X: 1, Y: 6}},
		{10, character.Point{X: 1, Y: 7}},
		{0, character.Point{X: 2, Y: 0}},
	}
)

// Bank is where the mining persona stores what it cannot throw away.
var Bank = character.Point{X: 4, Y: 1}

// ores are the mining drops deleted before the bank is considered.
var ores = []string{"copper_ore", "iron_ore", "coal", "gold_ore", "mithril_ore"}

// SpotFor returns the best spot in spots for level.
func SpotFor(spots []Spot, level int) character.Point {
	for _, s := range spots {
		if level >= s.MinLevel {
			return s.At
		}
	}
	return spots[len(spots)-1].At
}

func skillLevel(c *character.Character, skill string) int {
	s, _ := c.Skill(skill)
	return s.Level
}

// gatherer builds a persona that gathers skill forever, moving to a better
// spot as the skill levels up and emptying the inventory when it fills.
func gatherer(skill string, spots []Spot) Persona {
	var loop func(name string) engine.Continuation
	loop = func(name string) engine.Continuation {
		return continueWith(name, func(c *character.Character) []engine.Task {
			tasks := moveTo(name, c, SpotFor(spots, skillLevel(c, skill)))
			if c.IsInventoryFull(0) {
				tasks = append(tasks, clearInventory(name, c)...)
			}
			return append(tasks, actions.Gather(name, loop(name)))
		})
	}

	return Persona{
		Name: skill,
		Seed: func(name string, c *character.Character) []engine.Task {
			tasks := moveTo(name, c, SpotFor(spots, skillLevel(c, skill)))
			return append(tasks, actions.Gather(name, loop(name)))
		},
	}
}

func miningSeed(name string, c *character.Character) []engine.Task {
	tasks := moveTo(name, c, SpotFor(miningSpots, c.Mining.Level))
	return append(tasks, actions.Gather(name, miningLoop(name)))
}

// miningLoop deletes ores when the inventory is full. If that does not free
// enough room it walks to the bank, deposits everything left and walks back.
func miningLoop(name string) engine.Continuation {
	return continueWith(name, func(c *character.Character) []engine.Task {
		spot := SpotFor(miningSpots, c.Mining.Level)
		if !c.IsInventoryFull(0) {
			tasks := moveTo(name, c, spot)
			return append(tasks, actions.Gather(name, miningLoop(name)))
		}

		var tasks []engine.Task
		var left character.Inventory
		for _, it := range c.Inventory.Stacks() {
			if slices.Contains(ores, it.Code) {
				tasks = append(tasks, actions.DeleteItem(name, it.Code, it.Quantity, nil))
				continue
			}
			left = append(left, it)
		}

		if left.Total() >= c.InventoryLimit() {
			tasks = append(tasks, actions.Move(name, Bank.X, Bank.Y, nil))
			for _, it := range left {
				tasks = append(tasks, actions.DepositItem(name, it.Code, it.Quantity, nil))
			}
			tasks = append(tasks, actions.Move(name, spot.X, spot.Y, nil))
		} else {
			tasks = append(tasks, moveTo(name, c, spot)...)
		}

		return append(tasks, actions.Gather(name, miningLoop(name)))
	})
}
