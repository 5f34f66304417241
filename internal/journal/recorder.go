// Package journal records runner activity in the journal database.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/perbu/artifacts/internal/actions"
	"github.com/perbu/artifacts/internal/db"
	"github.com/perbu/artifacts/internal/engine"
)

// Recorder implements engine.Observer by writing runs and actions to the
// journal. Write failures are logged and never reach the runner.
type Recorder struct {
	store   *db.DB
	persona func(character string) string
	logger  *slog.Logger
	now     func() time.Time

	mu   sync.Mutex
	runs map[string]string
}

var _ engine.Observer = (*Recorder)(nil)

// New creates a recorder. persona names the persona a character runs, for
// the runs table; it may be nil.
func New(store *db.DB, persona func(character string) string, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		store:   store,
		persona: persona,
		logger:  logger,
		now:     time.Now,
		runs:    make(map[string]string),
	}
}

// RunID returns the ID of the character's current or last run.
func (r *Recorder) RunID(character string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.runs[character]
	return id, ok
}

func (r *Recorder) RunStarted(name string) {
	id := uuid.NewString()
	persona := ""
	if r.persona != nil {
		persona = r.persona(name)
	}
	if _, err := r.store.CreateRun(id, name, persona, r.now()); err != nil {
		r.logger.Error("failed to journal run start", "character", name, "error", err)
	}

	r.mu.Lock()
	r.runs[name] = id
	r.mu.Unlock()
}

func (r *Recorder) RunFinished(name string, err error) {
	id, ok := r.RunID(name)
	if !ok {
		return
	}
	msg := ""
	if err != nil && !errors.Is(err, context.Canceled) {
		msg = err.Error()
	}
	if ferr := r.store.FinishRun(id, r.now(), msg); ferr != nil {
		r.logger.Error("failed to journal run end", "character", name, "error", ferr)
	}
}

func (r *Recorder) TaskStarted(string, engine.Task) {}

func (r *Recorder) TaskCompleted(name string, task engine.Task, outcome engine.Outcome, elapsed time.Duration) {
	a := r.action(name, task, elapsed)
	a.Cooldown = outcome.Cooldown
	a.Payload = jsonColumn(outcome.Payload)
	r.record(a)
}

func (r *Recorder) TaskFailed(name string, task engine.Task, err error, elapsed time.Duration) {
	a := r.action(name, task, elapsed)
	a.Error = sql.NullString{String: err.Error(), Valid: true}
	r.record(a)
}

func (r *Recorder) CooldownStarted(string, time.Duration) {}

func (r *Recorder) action(name string, task engine.Task, elapsed time.Duration) *db.Action {
	runID, _ := r.RunID(name)
	finished := r.now()
	return &db.Action{
		RunID:      runID,
		Character:  name,
		Action:     actions.Name(task.ActionID()),
		Method:     task.Method(),
		Params:     jsonColumn(task.Params()),
		StartedAt:  finished.Add(-elapsed),
		FinishedAt: finished,
	}
}

func (r *Recorder) record(a *db.Action) {
	if err := r.store.RecordAction(a); err != nil {
		r.logger.Error("failed to journal action", "character", a.Character, "action", a.Action, "error", err)
	}
}

func jsonColumn[M ~map[string]any](m M) sql.NullString {
	if len(m) == 0 {
		return sql.NullString{}
	}
	buf, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(buf), Valid: true}
}
