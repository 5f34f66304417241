package service

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/perbu/artifacts/internal/config"
	"github.com/perbu/artifacts/internal/db"
)

// JournalService reads and maintains the action journal
type JournalService struct {
	db  *db.DB
	cfg *config.Config
}

// NewJournalService creates a new JournalService
func NewJournalService(database *db.DB, cfg *config.Config) *JournalService {
	return &JournalService{
		db:  database,
		cfg: cfg,
	}
}

// History returns a character's most recent actions, newest first
func (s *JournalService) History(character string, limit int) ([]*db.Action, error) {
	actions, err := s.db.ListActions(character, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history of %s: %w", character, err)
	}
	return actions, nil
}

// Runs returns a character's most recent runs, newest first. An empty
// character lists the runs of everyone.
func (s *JournalService) Runs(character string, limit int) ([]*db.Run, error) {
	return s.db.ListRuns(character, limit)
}

// Prune drops actions older than the configured retention. It is a no-op
// when retention is zero.
func (s *JournalService) Prune(now time.Time) (int64, error) {
	if s.cfg.Journal.Retention <= 0 {
		return 0, nil
	}
	n, err := s.db.PruneActions(now.Add(-s.cfg.Journal.Retention))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.Info("pruned journal", "actions", n, "retention", s.cfg.Journal.Retention)
	}
	return n, nil
}
