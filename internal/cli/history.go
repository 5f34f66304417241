package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/perbu/artifacts/internal/db"
)

// actionRow is the JSON view of a journaled action
type actionRow struct {
	Action     string    `json:"action"`
	Cooldown   int       `json:"cooldown"`
	Error      string    `json:"error,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
	RunID      string    `json:"run_id"`
}

// Run executes the history command
func (c *HistoryCmd) Run(ctx *Context) error {
	list, err := ctx.Services.Journal.History(c.Character, c.Limit)
	if err != nil {
		return err
	}

	if c.Format == "json" {
		rows := make([]actionRow, 0, len(list))
		for _, a := range list {
			rows = append(rows, actionRow{
				Action:     a.Action,
				Cooldown:   a.Cooldown,
				Error:      a.Error.String,
				FinishedAt: a.FinishedAt,
				RunID:      a.RunID,
			})
		}
		return outputJSON(rows)
	}

	if len(list) == 0 {
		if !ctx.Quiet {
			fmt.Printf("No actions journaled for %s.\n", c.Character)
		}
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tACTION\tCOOLDOWN\tRESULT")
	for _, a := range list {
		fmt.Fprintf(w, "%s\t%s\t%ds\t%s\n", a.FinishedAt.Local().Format("2006-01-02 15:04:05"), a.Action, a.Cooldown, result(a))
	}
	return w.Flush()
}

func result(a *db.Action) string {
	if a.Failed() {
		return "error: " + a.Error.String
	}
	return "ok"
}

// Run executes the runs command
func (c *RunsCmd) Run(ctx *Context) error {
	runs, err := ctx.Services.Journal.Runs(c.Character, c.Limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		if !ctx.Quiet {
			fmt.Println("No runs journaled.")
		}
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tCHARACTER\tPERSONA\tDURATION\tSTATUS")
	for _, r := range runs {
		duration := "running"
		status := "-"
		if r.EndedAt.Valid {
			duration = r.EndedAt.Time.Sub(r.StartedAt).Round(time.Second).String()
			status = "ok"
		}
		if r.Error.Valid {
			status = "error: " + r.Error.String
		}
		if ctx.Verbose {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s (%s)\n", r.StartedAt.Local().Format("2006-01-02 15:04"), r.Character, r.Persona, duration, status, r.ID)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.StartedAt.Local().Format("2006-01-02 15:04"), r.Character, r.Persona, duration, status)
	}
	return w.Flush()
}
