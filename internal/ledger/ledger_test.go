package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"certsync/internal/components/chrono"
	"certsync/internal/dabs"

	"github.com/stretchr/testify/require"
)

func openTestLedger(t *testing.T) (*Ledger, *chrono.Fake) {
	clock := chrono.NewFake(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	l, err := Open(Config{File: filepath.Join(t.TempDir(), "data", "ledger.db")}, clock)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l, clock
}

func TestLedger(t *testing.T) {
	l, clock := openTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.StartRun(ctx, "run-a"))

	sink := l.Sink("run-a", 1)
	require.NoError(t, sink.RecordOutcome(ctx, dabs.Outcome{
		Index:  0,
		Record: dabs.RawRecord{Category: "Geboorte", Number: "12", Date: "1890", Persons: "Pieter Jansen"},
		Status: dabs.StatusUploaded,
		Query:  "Geboorteakte: 1890 0012",
		Image:  "download/geb-0012.tiff",
	}))
	require.NoError(t, clock.Sleep(ctx, time.Minute))
	require.NoError(t, sink.RecordOutcome(ctx, dabs.Outcome{
		Index:  0,
		Record: dabs.RawRecord{Category: "Huwelijk", Date: "1891", Persons: "Jan Bakker"},
		Status: dabs.StatusSkipped,
		Reason: dabs.ReasonNotFound,
		Err:    errors.New("no matches"),
	}))
	require.NoError(t, l.FinishRun(ctx, "run-a", 2, dabs.Summary{Uploaded: 1, Skipped: 1}, nil))

	entries, err := l.Entries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	latest := entries[0]
	require.Equal(t, "run-a", latest.RunID)
	require.Equal(t, 1, latest.Attempt)
	require.Equal(t, dabs.StatusSkipped, latest.Status)
	require.Equal(t, dabs.ReasonNotFound, latest.Reason)
	require.Equal(t, "no matches", latest.Error)
	require.Equal(t, "Jan Bakker", latest.Record.Persons)
	require.Equal(t, clock.Now().Unix(), latest.DecidedAt.Unix())

	require.Equal(t, dabs.StatusUploaded, entries[1].Status)
	require.Equal(t, "Geboorteakte: 1890 0012", entries[1].Query)
	require.Empty(t, entries[1].Reason)

	limited, err := l.Entries(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)

	runs, err := l.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.True(t, runs[0].Finished())
	require.Equal(t, 2, runs[0].Attempts)
	require.Equal(t, dabs.Summary{Uploaded: 1, Skipped: 1}, runs[0].Summary)
	require.Empty(t, runs[0].Error)
}

func TestLedgerFailedRun(t *testing.T) {
	l, clock := openTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.StartRun(ctx, "run-a"))
	require.NoError(t, clock.Sleep(ctx, time.Hour))
	require.NoError(t, l.StartRun(ctx, "run-b"))
	require.NoError(t, l.FinishRun(ctx, "run-b", 600, dabs.Summary{}, errors.New("login: timeout")))

	runs, err := l.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, "run-b", runs[0].ID)
	require.Equal(t, "login: timeout", runs[0].Error)
	require.Equal(t, "run-a", runs[1].ID)
	require.False(t, runs[1].Finished())

	require.Error(t, l.StartRun(ctx, "run-a"))
}

func TestLedgerPrune(t *testing.T) {
	l, clock := openTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.StartRun(ctx, "old"))
	require.NoError(t, l.RecordOutcome(ctx, "old", 1, dabs.Outcome{Status: dabs.StatusSkipped}))
	require.NoError(t, clock.Sleep(ctx, 48*time.Hour))
	cutoff := clock.Now()
	require.NoError(t, l.StartRun(ctx, "new"))
	require.NoError(t, l.RecordOutcome(ctx, "new", 1, dabs.Outcome{Status: dabs.StatusUploaded}))

	require.NoError(t, l.Prune(ctx, cutoff))

	runs, err := l.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, "new", runs[0].ID)

	entries, err := l.Entries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "new", entries[0].RunID)
}

func TestLedgerPruneOlderThan(t *testing.T) {
	l, clock := openTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.StartRun(ctx, "last-month"))
	require.NoError(t, l.RecordOutcome(ctx, "last-month", 1, dabs.Outcome{Status: dabs.StatusSkipped}))
	require.NoError(t, clock.Sleep(ctx, 30*24*time.Hour))
	require.NoError(t, l.StartRun(ctx, "yesterday"))
	require.NoError(t, clock.Sleep(ctx, 24*time.Hour))

	require.Error(t, l.PruneOlderThan(ctx, 0))
	require.NoError(t, l.PruneOlderThan(ctx, 7*24*time.Hour))

	runs, err := l.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, "yesterday", runs[0].ID)

	entries, err := l.Entries(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestOpenWithoutPath(t *testing.T) {
	_, err := Open(Config{}, chrono.NewStandardImpl())
	require.Error(t, err)
}
