// Package ledger keeps a local sqlite record of every run and every record it decided.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"certsync/internal/components/assert"
	"certsync/internal/components/chrono"
	"certsync/internal/dabs"
	"certsync/internal/ledger/db"

	_ "modernc.org/sqlite"
)

type Config struct {
	File string `json:"file"`
}

// OpenDB opens the ledger database at the configured file, creating it and its schema
// when missing.
func (config Config) OpenDB() (*sql.DB, error) {
	if config.File == "" {
		return nil, fmt.Errorf("a path was not specified")
	}

	dir := filepath.Dir(config.File)
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return nil, err
	}

	database, err := sql.Open("sqlite", config.File)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer, the run and the report command may overlap.
	database.SetMaxOpenConns(1)
	_, err = database.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		database.Close()
		return nil, err
	}
	_, err = database.Exec(db.Schema)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("apply ledger schema: %w", err)
	}
	return database, nil
}

// Run is a finished or running batch as stored in the ledger.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Attempts   int
	Summary    dabs.Summary
	Error      string
}

func (r Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// Entry is one decided record as stored in the ledger.
type Entry struct {
	RunID     string
	Attempt   int
	Index     int
	Record    dabs.RawRecord
	Status    dabs.Status
	Reason    dabs.SkipReason
	Query     string
	Image     string
	Error     string
	DecidedAt time.Time
}

type Ledger struct {
	db    *sql.DB
	qry   *db.Queries
	clock chrono.API
}

func NewLedger(database *sql.DB, clock chrono.API) *Ledger {
	assert.NotNil(database)
	assert.NotNil(clock)
	return &Ledger{
		db:    database,
		qry:   db.New(database),
		clock: clock,
	}
}

// Open opens the ledger at config, the returned ledger owns the database.
func Open(config Config, clock chrono.API) (*Ledger, error) {
	database, err := config.OpenDB()
	if err != nil {
		return nil, err
	}
	return NewLedger(database, clock), nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) StartRun(ctx context.Context, runID string) error {
	return l.qry.CreateRun(ctx, db.CreateRunParams{
		ID:        runID,
		StartedAt: l.clock.Now().Unix(),
	})
}

func (l *Ledger) FinishRun(ctx context.Context, runID string, attempts int, summary dabs.Summary, runErr error) error {
	message := ""
	if runErr != nil {
		message = runErr.Error()
	}
	return l.qry.FinishRun(ctx, db.FinishRunParams{
		ID:         runID,
		FinishedAt: l.clock.Now().Unix(),
		Attempts:   int64(attempts),
		Uploaded:   int64(summary.Uploaded),
		Rejected:   int64(summary.Rejected),
		Skipped:    int64(summary.Skipped),
		Error:      message,
	})
}

func (l *Ledger) RecordOutcome(ctx context.Context, runID string, attempt int, outcome dabs.Outcome) error {
	message := ""
	if outcome.Err != nil {
		message = outcome.Err.Error()
	}
	return l.qry.CreateOutcome(ctx, db.CreateOutcomeParams{
		RunID:       runID,
		Attempt:     int64(attempt),
		RecordIndex: int64(outcome.Index),
		Category:    outcome.Record.Category,
		Date:        outcome.Record.Date,
		Number:      outcome.Record.Number,
		Persons:     outcome.Record.Persons,
		Status:      string(outcome.Status),
		Reason:      string(outcome.Reason),
		Query:       outcome.Query,
		Image:       outcome.Image,
		Error:       message,
		DecidedAt:   l.clock.Now().Unix(),
	})
}

// Entries returns the latest decided records, newest first.
func (l *Ledger) Entries(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := l.qry.ListOutcomes(ctx, int64(limit))
	if err != nil {
		return nil, err
	}
	out := make([]Entry, len(rows))
	for i, row := range rows {
		out[i] = Entry{
			RunID:   row.RunID,
			Attempt: int(row.Attempt),
			Index:   int(row.RecordIndex),
			Record: dabs.RawRecord{
				Category: row.Category,
				Number:   row.Number,
				Date:     row.Date,
				Persons:  row.Persons,
			},
			Status:    dabs.Status(row.Status),
			Reason:    dabs.SkipReason(row.Reason),
			Query:     row.Query,
			Image:     row.Image,
			Error:     row.Error,
			DecidedAt: time.Unix(row.DecidedAt, 0),
		}
	}
	return out, nil
}

// Runs returns the latest runs, newest first.
func (l *Ledger) Runs(ctx context.Context, limit int) ([]Run, error) {
	rows, err := l.qry.ListRuns(ctx, int64(limit))
	if err != nil {
		return nil, err
	}
	out := make([]Run, len(rows))
	for i, row := range rows {
		run := Run{
			ID:        row.ID,
			StartedAt: time.Unix(row.StartedAt, 0),
			Attempts:  int(row.Attempts),
			Summary: dabs.Summary{
				Uploaded: int(row.Uploaded),
				Rejected: int(row.Rejected),
				Skipped:  int(row.Skipped),
			},
			Error: row.Error,
		}
		if row.FinishedAt.Valid {
			run.FinishedAt = time.Unix(row.FinishedAt.Int64, 0)
		}
		out[i] = run
	}
	return out, nil
}

// Prune deletes every run started before the cutoff together with its entries.
func (l *Ledger) Prune(ctx context.Context, before time.Time) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	txqry := l.qry.WithTx(tx)

	err = txqry.DeleteOutcomesOfRunsBefore(ctx, before.Unix())
	if err != nil {
		return err
	}
	err = txqry.DeleteRunsBefore(ctx, before.Unix())
	if err != nil {
		return err
	}
	return tx.Commit()
}

// PruneOlderThan deletes every run started longer than age ago.
func (l *Ledger) PruneOlderThan(ctx context.Context, age time.Duration) error {
	if age <= 0 {
		return fmt.Errorf("prune age must be positive, got %s", age)
	}
	return l.Prune(ctx, l.clock.Now().Add(-age))
}

// Sink returns an OutcomeSink that files outcomes under a run attempt.
func (l *Ledger) Sink(runID string, attempt int) dabs.OutcomeSink {
	return sink{ledger: l, runID: runID, attempt: attempt}
}

type sink struct {
	ledger  *Ledger
	runID   string
	attempt int
}

func (s sink) RecordOutcome(ctx context.Context, outcome dabs.Outcome) error {
	err := s.ledger.RecordOutcome(ctx, s.runID, s.attempt, outcome)
	if err != nil {
		return fmt.Errorf("record outcome of %d: %w", outcome.Index, err)
	}
	return nil
}
