package cmd

import (
	"context"
	"fmt"
	"os"

	"certsync/cmd/certsync/cmd/skips"
	"certsync/cmd/certsync/globals"
	"certsync/internal/components/chrono"
	"certsync/internal/components/configutil"
	"certsync/internal/components/telemetry"
	"certsync/internal/runner"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	jsonLogs   bool
)

var otel telemetry.Telemetry

var rootCmd = &cobra.Command{
	Use:   "certsync",
	Short: "certsync looks up queued certificates on the records portal and attaches their scans in the validation app.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config, err := configutil.ReadConfig[runner.Config](configPath)
		if err != nil {
			return fmt.Errorf("read %s: %w", configPath, err)
		}
		telemetry.InitSlog(verbose || config.Verbose, jsonLogs)

		otel, err = telemetry.SetupFromEnv(cmd.Context(), "certsync")
		if err != nil {
			return fmt.Errorf("setup telemetry: %w", err)
		}

		cmd.SetContext(globals.Set(cmd.Context(), &globals.Value{
			Config: config,
			Tel:    telemetry.SlogAPI{},
			Clock:  chrono.NewStandardImpl(),
		}))
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return otel.Shutdown(context.WithoutCancel(cmd.Context()))
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json5", "path to the config file, a .local variant next to it overrides it")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "report debug information")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "log as line-delimited json")

	rootCmd.AddCommand(skips.RootCmd)
}

func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
