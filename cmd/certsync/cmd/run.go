package cmd

import (
	"context"
	"time"

	"certsync/cmd/certsync/globals"
	"certsync/cmd/certsync/utils"
	"certsync/internal/components/telemetry"
	"certsync/internal/notify"
	"certsync/internal/runner"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Work through the validation queue once, starting over on failure.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		value := globals.Get(cmd.Context())
		result, err := runOnce(cmd.Context(), value)
		printResult(result)
		return err
	},
}

// runOnce runs the batch with the ledger and notifier the config asks for.
func runOnce(ctx context.Context, value *globals.Value) (runner.Result, error) {
	l, err := utils.OpenLedger(value)
	if err != nil {
		return runner.Result{}, err
	}
	var ledger runner.Ledger
	if l != nil {
		defer l.Close()
		ledger = l
	}

	var notifier runner.Notifier
	if value.Config.Notify.Enabled() {
		notifier = notify.NewNotifier(value.Config.Notify, value.Tel)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	telemetry.ReportPerfStats(ctx, value.Tel, time.Minute)

	r := runner.NewRunner(
		runner.BrowserSessions(value.Config, value.Clock, value.Tel),
		ledger,
		notifier,
		value.Config.Runner,
		value.Clock,
		value.Tel,
	)
	return r.Run(ctx)
}

func printResult(result runner.Result) {
	if result.RunID == "" {
		return
	}
	status := "finished"
	if result.Err != nil {
		status = result.Err.Error()
	}

	t := utils.NewTable()
	t.AppendHeader(table.Row{"Run", "Attempts", "Uploaded", "Rejected", "Skipped", "Status"})
	t.AppendRow(table.Row{
		result.RunID,
		result.Attempts,
		result.Summary.Uploaded,
		result.Summary.Rejected,
		result.Summary.Skipped,
		status,
	})
	t.Render()
}
