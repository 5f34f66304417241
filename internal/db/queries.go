package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("not found")

// Run operations

// CreateRun inserts a new run
func (db *DB) CreateRun(id, character, persona string, startedAt time.Time) (*Run, error) {
	_, err := db.Exec(`
		INSERT INTO runs (id, character, persona, started_at)
		VALUES (?, ?, ?, ?)
	`, id, character, persona, startedAt.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return db.GetRun(id)
}

// FinishRun marks a run as ended. An empty runErr means the run ended cleanly.
func (db *DB) FinishRun(id string, endedAt time.Time, runErr string) error {
	errValue := sql.NullString{String: runErr, Valid: runErr != ""}
	res, err := db.Exec(`
		UPDATE runs SET ended_at = ?, error = ? WHERE id = ?
	`, endedAt.UTC(), errValue, id)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetRun retrieves a run by ID
func (db *DB) GetRun(id string) (*Run, error) {
	run := &Run{}
	err := db.QueryRow(`
		SELECT id, character, persona, started_at, ended_at, error
		FROM runs
		WHERE id = ?
	`, id).Scan(&run.ID, &run.Character, &run.Persona, &run.StartedAt, &run.EndedAt, &run.Error)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first. An empty character
// lists runs of every character.
func (db *DB) ListRuns(character string, limit int) ([]*Run, error) {
	query := `
		SELECT id, character, persona, started_at, ended_at, error
		FROM runs
	`
	var args []interface{}
	if character != "" {
		query += " WHERE character = ?"
		args = append(args, character)
	}
	query += " ORDER BY started_at DESC, rowid DESC LIMIT ?"
	args = append(args, limitOrAll(limit))

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		if err := rows.Scan(&run.ID, &run.Character, &run.Persona, &run.StartedAt, &run.EndedAt, &run.Error); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Action operations

// RecordAction inserts an executed action and sets its ID
func (db *DB) RecordAction(a *Action) error {
	if a.Method == "" {
		a.Method = "POST"
	}
	result, err := db.Exec(`
		INSERT INTO actions (run_id, character, action, method, params, cooldown, payload, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.RunID, a.Character, a.Action, a.Method, a.Params, a.Cooldown, a.Payload, a.Error,
		a.StartedAt.UTC(), a.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record action: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get action ID: %w", err)
	}
	a.ID = id
	return nil
}

const actionColumns = `id, run_id, character, action, method, params, cooldown, payload, error, started_at, finished_at`

func scanAction(rows *sql.Rows) (*Action, error) {
	a := &Action{}
	err := rows.Scan(&a.ID, &a.RunID, &a.Character, &a.Action, &a.Method, &a.Params,
		&a.Cooldown, &a.Payload, &a.Error, &a.StartedAt, &a.FinishedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan action: %w", err)
	}
	return a, nil
}

func (db *DB) queryActions(query string, args ...interface{}) ([]*Action, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list actions: %w", err)
	}
	defer rows.Close()

	var actions []*Action
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// ListActions returns a character's most recent actions, newest first
func (db *DB) ListActions(character string, limit int) ([]*Action, error) {
	return db.queryActions(`
		SELECT `+actionColumns+`
		FROM actions
		WHERE character = ?
		ORDER BY id DESC
		LIMIT ?
	`, character, limitOrAll(limit))
}

// ListRunActions returns the actions of one run in execution order
func (db *DB) ListRunActions(runID string) ([]*Action, error) {
	return db.queryActions(`
		SELECT `+actionColumns+`
		FROM actions
		WHERE run_id = ?
		ORDER BY id
	`, runID)
}

// ListActionsSince returns every action finished at or after since, oldest first
func (db *DB) ListActionsSince(since time.Time) ([]*Action, error) {
	return db.queryActions(`
		SELECT `+actionColumns+`
		FROM actions
		WHERE finished_at >= ?
		ORDER BY id
	`, since.UTC())
}

// SummarizeActions aggregates actions finished in [since, until), per
// character, ordered by character name
func (db *DB) SummarizeActions(since, until time.Time) ([]*CharacterSummary, error) {
	rows, err := db.Query(`
		SELECT character, COUNT(*), COUNT(error), COALESCE(SUM(cooldown), 0), MAX(id)
		FROM actions
		WHERE finished_at >= ? AND finished_at < ?
		GROUP BY character
		ORDER BY character
	`, since.UTC(), until.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to summarize actions: %w", err)
	}

	var summaries []*CharacterSummary
	var lastIDs []int64
	for rows.Next() {
		s := &CharacterSummary{}
		var lastID int64
		if err := rows.Scan(&s.Character, &s.Actions, &s.Failures, &s.TotalCooldown, &lastID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		summaries = append(summaries, s)
		lastIDs = append(lastIDs, lastID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to summarize actions: %w", err)
	}
	rows.Close()

	// The connection pool holds a single connection, so the follow-up
	// lookups run after the aggregate rows are closed.
	for i, s := range summaries {
		err := db.QueryRow(`SELECT action, finished_at FROM actions WHERE id = ?`, lastIDs[i]).
			Scan(&s.LastAction, &s.LastAt)
		if err != nil {
			return nil, fmt.Errorf("failed to get last action for %s: %w", s.Character, err)
		}
	}
	return summaries, nil
}

// PruneActions deletes actions finished before cutoff and returns how many
// were removed
func (db *DB) PruneActions(cutoff time.Time) (int64, error) {
	res, err := db.Exec(`DELETE FROM actions WHERE finished_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune actions: %w", err)
	}
	return res.RowsAffected()
}

// Digest send operations

// CreateDigestSend records that a digest was sent
func (db *DB) CreateDigestSend(recipient string, periodStart, periodEnd time.Time, messageID string) error {
	_, err := db.Exec(`
		INSERT INTO digest_sends (recipient, period_start, period_end, message_id)
		VALUES (?, ?, ?, ?)
	`, recipient, periodStart.UTC(), periodEnd.UTC(), sql.NullString{String: messageID, Valid: messageID != ""})
	if err != nil {
		return fmt.Errorf("failed to create digest send: %w", err)
	}
	return nil
}

// HasDigestBeenSent checks whether the digest for periodStart already went
// to recipient
func (db *DB) HasDigestBeenSent(recipient string, periodStart time.Time) (bool, error) {
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM digest_sends
		WHERE recipient = ? AND period_start = ?
	`, recipient, periodStart.UTC()).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check digest send: %w", err)
	}
	return count > 0, nil
}

func limitOrAll(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
