package cmd

import (
	"certsync/cmd/certsync/globals"
	"certsync/internal/components/chrono"

	"github.com/spf13/cobra"
)

const report_schedule = "schedule.run"

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule <cron spec>",
	Short: "Run on a cron schedule until interrupted, a run that is due while the previous one is still going is skipped.",
	Example: `  certsync schedule "0 7 * * 1-5"
  certsync schedule "@every 6h"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		value := globals.Get(ctx)

		cron := chrono.NewStandardCron(value.Tel)
		defer cron.Stop()

		err := cron.Cron(args[0], func() {
			result, err := runOnce(ctx, value)
			if err != nil {
				value.Tel.ReportBroken(report_schedule, err, result.RunID)
				return
			}
			printResult(result)
		})
		if err != nil {
			return err
		}

		value.Tel.ReportDebug("scheduled", args[0])
		<-ctx.Done()
		return nil
	},
}
