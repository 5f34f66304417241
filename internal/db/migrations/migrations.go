// Package migrations embeds the goose migrations for the journal database.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
