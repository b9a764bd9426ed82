package cmd

import (
	"errors"
	"time"

	"certsync/cmd/certsync/globals"
	"certsync/cmd/certsync/utils"
	"certsync/internal/ledger"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	reportRuns        bool
	reportLimit       int
	reportPruneBefore time.Duration
)

func init() {
	reportCmd.Flags().BoolVar(&reportRuns, "runs", false, "list runs instead of decided records")
	reportCmd.Flags().IntVarP(&reportLimit, "limit", "n", 50, "how many rows to show, newest first")
	reportCmd.Flags().DurationVar(&reportPruneBefore, "prune-before", 0, "first delete runs started longer ago than this, for example 720h")

	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show what the latest runs decided, from the ledger.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		value := globals.Get(ctx)

		l, err := utils.OpenLedger(value)
		if err != nil {
			return err
		}
		if l == nil {
			return errors.New("no ledger file is configured")
		}
		defer l.Close()

		if reportPruneBefore > 0 {
			err = l.PruneOlderThan(ctx, reportPruneBefore)
			if err != nil {
				return err
			}
		}

		if reportRuns {
			runs, err := l.Runs(ctx, reportLimit)
			if err != nil {
				return err
			}
			renderRuns(runs)
			return nil
		}

		entries, err := l.Entries(ctx, reportLimit)
		if err != nil {
			return err
		}
		renderEntries(entries)
		return nil
	},
}

func renderRuns(runs []ledger.Run) {
	t := utils.NewTable()
	t.AppendHeader(table.Row{"Run", "Started", "Finished", "Attempts", "Uploaded", "Rejected", "Skipped", "Error"})
	for _, run := range runs {
		finished := "running"
		if run.Finished() {
			finished = run.FinishedAt.Format(time.DateTime)
		}
		t.AppendRow(table.Row{
			run.ID,
			run.StartedAt.Format(time.DateTime),
			finished,
			run.Attempts,
			run.Summary.Uploaded,
			run.Summary.Rejected,
			run.Summary.Skipped,
			run.Error,
		})
	}
	t.Render()
}

func renderEntries(entries []ledger.Entry) {
	t := utils.NewTable()
	t.AppendHeader(table.Row{"Decided", "Run", "Index", "Category", "Date", "Number", "Persons", "Status", "Reason", "Search"})
	for _, e := range entries {
		t.AppendRow(table.Row{
			e.DecidedAt.Format(time.DateTime),
			e.RunID,
			e.Index,
			e.Record.Category,
			e.Record.Date,
			e.Record.Number,
			e.Record.Persons,
			e.Status,
			e.Reason,
			e.Query,
		})
	}
	t.Render()
}
