package cli

import "github.com/alecthomas/kong"

// CLI is the root command structure for kong
type CLI struct {
	Config  string           `short:"c" help:"Config file path" type:"path"`
	DataDir string           `short:"d" name:"data-dir" help:"Data directory" type:"path"`
	Verbose bool             `short:"v" help:"Verbose output"`
	Quiet   bool             `short:"q" help:"Minimal output"`
	Debug   bool             `help:"Enable debug logging"`
	Version kong.VersionFlag `short:"V" help:"Show version"`

	Run        RunCmd        `cmd:"" help:"Run characters until interrupted"`
	Characters CharactersCmd `cmd:"" help:"List the characters on the account"`
	Personas   PersonasCmd   `cmd:"" help:"List the available personas"`
	History    HistoryCmd    `cmd:"" help:"Show a character's journaled actions"`
	Runs       RunsCmd       `cmd:"" help:"Show journaled runs"`
	Digest     DigestCmd     `cmd:"" help:"Preview or send the activity digest"`
	Serve      ServeCmd      `cmd:"" help:"Start the status web server over the journal"`
}

// RunCmd runs the roster, or the given characters as one persona
type RunCmd struct {
	Persona    string   `short:"p" help:"Persona for the given characters"`
	Characters []string `arg:"" optional:"" name:"character" help:"Character name(s); defaults to the configured roster"`
	Web        bool     `help:"Also serve the status pages" negatable:"" default:"true"`
}

// CharactersCmd lists the characters on the account
type CharactersCmd struct {
	Format string `help:"Output format" enum:"table,json" default:"table"`
}

// PersonasCmd lists the personas
type PersonasCmd struct{}

// HistoryCmd shows a character's recent actions
type HistoryCmd struct {
	Character string `arg:"" help:"Character name"`
	Limit     int    `short:"n" help:"Number of actions to show" default:"20"`
	Format    string `help:"Output format" enum:"table,json" default:"table"`
}

// RunsCmd shows recent runs
type RunsCmd struct {
	Character string `arg:"" optional:"" help:"Character name; all characters when omitted"`
	Limit     int    `short:"n" help:"Number of runs to show" default:"20"`
}

// DigestCmd previews or sends the activity digest
type DigestCmd struct {
	Send   bool   `help:"Email the digest to the configured recipients"`
	DryRun bool   `name:"dry-run" help:"With --send, show what would be sent without sending"`
	Since  string `help:"Cover activity since (e.g., 24h, 7d, 1w); default is yesterday (UTC)"`
}

// ServeCmd starts the web server for browsing the journal
type ServeCmd struct {
	Port int    `short:"p" help:"Port to listen on" default:"8080"`
	Host string `help:"Host to bind to" default:"localhost"`
}
