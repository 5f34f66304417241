package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/perbu/artifacts/internal/api"
	"github.com/perbu/artifacts/internal/character"
)

// characterRow is the listing view of a character
type characterRow struct {
	Name      string `json:"name"`
	Level     int    `json:"combat_level"`
	HP        string `json:"hp"`
	Position  string `json:"position"`
	Gold      int    `json:"gold"`
	Inventory string `json:"inventory"`
	Persona   string `json:"persona,omitempty"`
}

// Run executes the characters command
func (c *CharactersCmd) Run(ctx *Context) error {
	token, err := ctx.token()
	if err != nil {
		return err
	}

	client := api.NewClient(ctx.Config.API.BaseURL, token, api.WithTimeout(ctx.Config.API.Timeout))
	states, err := client.ListCharacters(ctx.Ctx)
	if err != nil {
		return fmt.Errorf("failed to list characters: %w", err)
	}

	personas := make(map[string]string)
	for persona, names := range ctx.Config.Roster {
		for _, name := range names {
			personas[name] = persona
		}
	}

	rows := make([]characterRow, 0, len(states))
	for _, state := range states {
		ch, err := character.FromState(state)
		if err != nil {
			return fmt.Errorf("failed to decode character: %w", err)
		}
		rows = append(rows, characterRow{
			Name:      ch.Name,
			Level:     ch.Combat.Level,
			HP:        ch.HP.String(),
			Position:  ch.Position.String(),
			Gold:      ch.Gold,
			Inventory: fmt.Sprintf("%d/%d", ch.Inventory.Total(), ch.InventoryLimit()),
			Persona:   personas[ch.Name],
		})
	}

	if c.Format == "json" {
		return outputJSON(rows)
	}

	if len(rows) == 0 {
		if !ctx.Quiet {
			fmt.Println("No characters on this account.")
		}
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCOMBAT\tHP\tPOSITION\tGOLD\tINVENTORY\tPERSONA")
	for _, r := range rows {
		persona := r.Persona
		if persona == "" {
			persona = "-"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%d\t%s\t%s\n", r.Name, r.Level, r.HP, r.Position, r.Gold, r.Inventory, persona)
	}
	return w.Flush()
}
