// Package character provides a typed view of the character snapshots returned
// by the Artifacts API.
package character

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/perbu/artifacts/internal/engine"
)

// DefaultInventoryLimit is the item count treated as a full inventory when
// the snapshot carries no inventory_max_items.
const DefaultInventoryLimit = 100

// Skill is a level plus the experience towards the next one.
type Skill struct {
	Level int
	XP    Scale
}

// Elemental holds one value per element.
type Elemental struct {
	Fire  int `mapstructure:"fire"`
	Earth int `mapstructure:"earth"`
	Water int `mapstructure:"water"`
	Air   int `mapstructure:"air"`
}

// Quest is the in-game task a character is currently working on.
type Quest struct {
	Code     string
	Type     string
	Progress Scale
}

// Item is one inventory or equipment slot.
type Item struct {
	Slot     int    `mapstructure:"slot"`
	Code     string `mapstructure:"code"`
	Quantity int    `mapstructure:"quantity"`
}

// Equipment holds the item code of every equipment slot. Empty means the slot
// is free.
type Equipment struct {
	Weapon           string `mapstructure:"weapon_slot"`
	Shield           string `mapstructure:"shield_slot"`
	Helmet           string `mapstructure:"helmet_slot"`
	BodyArmor        string `mapstructure:"body_armor_slot"`
	LegArmor         string `mapstructure:"leg_armor_slot"`
	Boots            string `mapstructure:"boots_slot"`
	Ring1            string `mapstructure:"ring1_slot"`
	Ring2            string `mapstructure:"ring2_slot"`
	Amulet           string `mapstructure:"amulet_slot"`
	Artifact1        string `mapstructure:"artifact1_slot"`
	Artifact2        string `mapstructure:"artifact2_slot"`
	Artifact3        string `mapstructure:"artifact3_slot"`
	Utility1         string `mapstructure:"utility1_slot"`
	Utility1Quantity int    `mapstructure:"utility1_slot_quantity"`
	Utility2         string `mapstructure:"utility2_slot"`
	Utility2Quantity int    `mapstructure:"utility2_slot_quantity"`
}

// Character is the decoded form of an engine.State.
type Character struct {
	Name     string
	Account  string
	Skin     string
	Gold     int
	HP       Scale
	Position Point

	Combat          Skill
	Mining          Skill
	Woodcutting     Skill
	Fishing         Skill
	Weaponcrafting  Skill
	Gearcrafting    Skill
	Jewelrycrafting Skill
	Cooking         Skill
	Alchemy         Skill

	Attack     Elemental
	Damage     Elemental
	Resistance Elemental

	// Quest is nil when the character has no in-game task.
	Quest *Quest

	Equipment    Equipment
	Inventory    Inventory
	InventoryMax int
}

// flat mirrors the top-level scalar keys of a snapshot.
type flat struct {
	Name         string `mapstructure:"name"`
	Account      string `mapstructure:"account"`
	Skin         string `mapstructure:"skin"`
	Gold         int    `mapstructure:"gold"`
	HP           int    `mapstructure:"hp"`
	MaxHP        int    `mapstructure:"max_hp"`
	X            int    `mapstructure:"x"`
	Y            int    `mapstructure:"y"`
	Task         string `mapstructure:"task"`
	TaskType     string `mapstructure:"task_type"`
	TaskProgress int    `mapstructure:"task_progress"`
	TaskTotal    int    `mapstructure:"task_total"`
	InventoryMax int    `mapstructure:"inventory_max_items"`
	Inventory    []Item `mapstructure:"inventory"`

	Equipment `mapstructure:",squash"`
}

type skill struct {
	Level int `mapstructure:"level"`
	XP    int `mapstructure:"xp"`
	MaxXP int `mapstructure:"max_xp"`
}

// FromState decodes a snapshot. Missing keys decode to zero values; keys of
// the wrong type are an error.
func FromState(state engine.State) (*Character, error) {
	if state == nil {
		return nil, fmt.Errorf("empty character snapshot")
	}

	var f flat
	if err := decode(state, &f); err != nil {
		return nil, fmt.Errorf("failed to decode character: %w", err)
	}

	c := &Character{
		Name:         f.Name,
		Account:      f.Account,
		Skin:         f.Skin,
		Gold:         f.Gold,
		HP:           Scale{Current: f.HP, Max: f.MaxHP},
		Position:     Point{X: f.X, Y: f.Y},
		Equipment:    f.Equipment,
		Inventory:    Inventory(f.Inventory),
		InventoryMax: f.InventoryMax,
	}
	if f.Task != "" {
		c.Quest = &Quest{
			Code:     f.Task,
			Type:     f.TaskType,
			Progress: Scale{Current: f.TaskProgress, Max: f.TaskTotal},
		}
	}

	skills := []struct {
		prefix string
		dst    *Skill
	}{
		{"", &c.Combat},
		{"mining_", &c.Mining},
		{"woodcutting_", &c.Woodcutting},
		{"fishing_", &c.Fishing},
		{"weaponcrafting_", &c.Weaponcrafting},
		{"gearcrafting_", &c.Gearcrafting},
		{"jewelrycrafting_", &c.Jewelrycrafting},
		{"cooking_", &c.Cooking},
		{"alchemy_", &c.Alchemy},
	}
	for _, s := range skills {
		var raw skill
		if err := decode(prefixed(state, s.prefix), &raw); err != nil {
			return nil, fmt.Errorf("failed to decode %sskill: %w", s.prefix, err)
		}
		*s.dst = Skill{Level: raw.Level, XP: Scale{Current: raw.XP, Max: raw.MaxXP}}
	}

	elements := []struct {
		prefix string
		dst    *Elemental
	}{
		{"attack_", &c.Attack},
		{"dmg_", &c.Damage},
		{"res_", &c.Resistance},
	}
	for _, e := range elements {
		if err := decode(prefixed(state, e.prefix), e.dst); err != nil {
			return nil, fmt.Errorf("failed to decode %selements: %w", e.prefix, err)
		}
	}

	return c, nil
}

// Skill returns the skill with the given API name, e.g. "mining".
func (c *Character) Skill(name string) (Skill, bool) {
	switch name {
	case "combat":
		return c.Combat, true
	case "mining":
		return c.Mining, true
	case "woodcutting":
		return c.Woodcutting, true
	case "fishing":
		return c.Fishing, true
	case "weaponcrafting":
		return c.Weaponcrafting, true
	case "gearcrafting":
		return c.Gearcrafting, true
	case "jewelrycrafting":
		return c.Jewelrycrafting, true
	case "cooking":
		return c.Cooking, true
	case "alchemy":
		return c.Alchemy, true
	}
	return Skill{}, false
}

// InventoryLimit returns the item count at which the inventory is full.
func (c *Character) InventoryLimit() int {
	if c.InventoryMax > 0 {
		return c.InventoryMax
	}
	return DefaultInventoryLimit
}

// IsInventoryFull reports whether the inventory holds at least limit items.
// A limit of zero or less means the character's own capacity.
func (c *Character) IsInventoryFull(limit int) bool {
	if limit <= 0 {
		limit = c.InventoryLimit()
	}
	return c.Inventory.Total() >= limit
}

func decode(input any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// prefixed returns the keys of state starting with prefix, with the prefix
// removed. An empty prefix returns state unchanged.
func prefixed(state engine.State, prefix string) map[string]any {
	if prefix == "" {
		return state
	}
	out := make(map[string]any)
	for k, v := range state {
		if rest, ok := strings.CutPrefix(k, prefix); ok {
			out[rest] = v
		}
	}
	return out
}
