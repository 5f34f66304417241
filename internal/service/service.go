// Package service provides the operations shared by the daemon, the CLI
// commands and the web server.
package service

import (
	"github.com/perbu/artifacts/internal/config"
	"github.com/perbu/artifacts/internal/db"
)

// Services is a container for all service instances
type Services struct {
	Journal *JournalService
	Digest  *DigestService
}

// New creates a new Services container with all dependencies
func New(database *db.DB, cfg *config.Config) *Services {
	return &Services{
		Journal: NewJournalService(database, cfg),
		Digest:  NewDigestService(database, cfg),
	}
}
