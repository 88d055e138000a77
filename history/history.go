// Package history keeps a journal of reconciliation runs in a SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/etnz/skinledger"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/shopspring/decimal"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    at INTEGER NOT NULL,               -- unix nanoseconds
    mode TEXT NOT NULL,                -- live, 24h or 7d
    currency TEXT NOT NULL,
    row_count INTEGER NOT NULL,
    updated INTEGER NOT NULL,
    queries INTEGER NOT NULL,
    profit_before TEXT NOT NULL,       -- decimal
    profit_after TEXT NOT NULL,        -- decimal
    change REAL NOT NULL               -- fraction
);

CREATE INDEX IF NOT EXISTS idx_runs_at ON runs(at);

CREATE TABLE IF NOT EXISTS failures (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    row_index INTEGER NOT NULL,
    item_key TEXT NOT NULL,
    reason TEXT NOT NULL
);
`

// Failure is a row that could not be refreshed.
type Failure struct {
	Row    int
	Key    string
	Reason string
}

// Run is the journal entry of one reconciliation.
type Run struct {
	ID           string
	At           time.Time
	Mode         skinledger.Mode
	Rows         int
	Updated      int
	Queries      int
	ProfitBefore skinledger.Money
	ProfitAfter  skinledger.Money
	Change       skinledger.Percent
	Failures     []Failure
}

// FromReport returns a new journal entry for the report of a run in mode.
func FromReport(mode skinledger.Mode, r skinledger.Report) Run {
	run := Run{
		ID:           uuid.NewString(),
		At:           r.Time,
		Mode:         mode,
		Rows:         len(r.Outcomes),
		Updated:      r.Updated(),
		Queries:      r.Queries,
		ProfitBefore: r.ProfitBefore,
		ProfitAfter:  r.ProfitAfter,
		Change:       r.ProfitChange,
	}
	for _, o := range r.Failed() {
		f := Failure{Row: o.Index, Key: o.Key}
		if o.Err != nil {
			f.Reason = o.Err.Error()
		}
		run.Failures = append(run.Failures, f)
	}
	return run
}

// DB is an opened journal.
type DB struct {
	db *sql.DB
}

// Open opens the journal at path, creating it if needed.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the journal.
func (d *DB) Close() error { return d.db.Close() }

// Record appends run to the journal.
func (d *DB) Record(ctx context.Context, run Run) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, at, mode, currency, row_count, updated, queries, profit_before, profit_after, change)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.At.UnixNano(),
		run.Mode.String(),
		run.ProfitAfter.Currency(),
		run.Rows,
		run.Updated,
		run.Queries,
		run.ProfitBefore.Decimal().String(),
		run.ProfitAfter.Decimal().String(),
		float64(run.Change),
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	for _, f := range run.Failures {
		if _, err := tx.ExecContext(ctx, `INSERT INTO failures (run_id, row_index, item_key, reason) VALUES (?, ?, ?, ?)`,
			run.ID, f.Row, f.Key, f.Reason); err != nil {
			return fmt.Errorf("failed to record failure of row %d: %w", f.Row, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// Latest returns the n most recent runs, most recent first.
func (d *DB) Latest(ctx context.Context, n int) ([]Run, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, at, mode, currency, row_count, updated, queries, profit_before, profit_after, change
		FROM runs
		ORDER BY at DESC
		LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run            Run
			at             int64
			mode, currency string
			before, after  string
			change         float64
		)
		if err := rows.Scan(&run.ID, &at, &mode, &currency, &run.Rows, &run.Updated, &run.Queries, &before, &after, &change); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.At = time.Unix(0, at)
		run.Mode = skinledger.Mode(mode)
		if run.ProfitBefore, err = money(before, currency); err != nil {
			return nil, fmt.Errorf("run %s: %w", run.ID, err)
		}
		if run.ProfitAfter, err = money(after, currency); err != nil {
			return nil, fmt.Errorf("run %s: %w", run.ID, err)
		}
		run.Change = skinledger.Percent(change)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range runs {
		if runs[i].Failures, err = d.failures(ctx, runs[i].ID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (d *DB) failures(ctx context.Context, id string) ([]Failure, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT row_index, item_key, reason FROM failures WHERE run_id = ? ORDER BY row_index`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list failures: %w", err)
	}
	defer rows.Close()

	var failures []Failure
	for rows.Next() {
		var f Failure
		if err := rows.Scan(&f.Row, &f.Key, &f.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

func money(s, currency string) (skinledger.Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return skinledger.Money{}, fmt.Errorf("invalid amount %q", s)
	}
	return skinledger.M(d, currency), nil
}
