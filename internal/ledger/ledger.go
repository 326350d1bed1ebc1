// Package ledger provides an append-only history of reconcile runs for
// auditing. It records what happened; it never feeds the diff.
package ledger

import (
	"database/sql"
	"time"
)

// Outcome classifies how a run ended
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
)

// Entry represents a single reconcile run in the ledger
type Entry struct {
	ID        int64
	RunID     string
	Host      string
	Outcome   Outcome
	Changed   bool
	StartedAt time.Time
	Duration  time.Duration
	Error     string
}

// Ledger provides append-only run logging
type Ledger struct {
	db *sql.DB
}

// New creates a new Ledger using the provided database connection
func New(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// Record appends one run to the ledger
func (l *Ledger) Record(e Entry) error {
	_, err := l.db.Exec(`
		INSERT INTO reconcile_runs (run_id, host, outcome, changed, started_at, duration_ms, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.RunID, e.Host, string(e.Outcome), boolToInt(e.Changed),
		e.StartedAt.UTC().Unix(), e.Duration.Milliseconds(), nullable(e.Error))
	return err
}

// ByHost returns the most recent runs for a host, newest first
func (l *Ledger) ByHost(host string, limit int) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, run_id, host, outcome, changed, started_at, duration_ms, error
		FROM reconcile_runs
		WHERE host = ?
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, host, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return l.scanEntries(rows)
}

// Recent returns the most recent runs across all hosts, newest first
func (l *Ledger) Recent(limit int) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, run_id, host, outcome, changed, started_at, duration_ms, error
		FROM reconcile_runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return l.scanEntries(rows)
}

// DeleteOlderThan removes entries older than the specified duration (retention policy)
func (l *Ledger) DeleteOlderThan(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).Unix()
	result, err := l.db.Exec(`
		DELETE FROM reconcile_runs WHERE started_at < ?
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (l *Ledger) scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		var entry Entry
		var outcome string
		var changed int
		var startedAt, durationMS int64
		var errText sql.NullString

		err := rows.Scan(
			&entry.ID, &entry.RunID, &entry.Host, &outcome, &changed,
			&startedAt, &durationMS, &errText,
		)
		if err != nil {
			return nil, err
		}

		entry.Outcome = Outcome(outcome)
		entry.Changed = changed != 0
		entry.StartedAt = time.Unix(startedAt, 0).UTC()
		entry.Duration = time.Duration(durationMS) * time.Millisecond
		if errText.Valid {
			entry.Error = errText.String
		}

		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
