package db

import (
	"database/sql"
	"time"
)

// Run is one supervised run of a character's runner
type Run struct {
	ID        string
	Character string
	Persona   string
	StartedAt time.Time
	EndedAt   sql.NullTime
	Error     sql.NullString
}

// Action is one executed (or failed) action call
type Action struct {
	ID         int64
	RunID      string
	Character  string
	Action     string
	Method     string
	Params     sql.NullString // JSON
	Cooldown   int
	Payload    sql.NullString // JSON
	Error      sql.NullString
	StartedAt  time.Time
	FinishedAt time.Time
}

// Failed reports whether the action call failed.
func (a *Action) Failed() bool {
	return a.Error.Valid
}

// CharacterSummary aggregates a character's actions over a period
type CharacterSummary struct {
	Character     string
	Actions       int
	Failures      int
	TotalCooldown int
	LastAction    string
	LastAt        time.Time
}

// DigestSend records a digest email that went out
type DigestSend struct {
	ID          int64
	Recipient   string
	PeriodStart time.Time
	PeriodEnd   time.Time
	MessageID   sql.NullString
	SentAt      time.Time
}
