package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/perbu/artifacts/internal/strategy"
)

// Run executes the personas command
func (c *PersonasCmd) Run(ctx *Context) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PERSONA\tCHARACTERS")
	for _, name := range strategy.Names() {
		chars := "-"
		if names := ctx.Config.Roster[name]; len(names) > 0 {
			chars = strings.Join(names, ", ")
		}
		fmt.Fprintf(w, "%s\t%s\n", name, chars)
	}
	return w.Flush()
}
