package skips

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(setCmd)
	RootCmd.AddCommand(resetCmd)
}

var setCmd = &cobra.Command{
	Use:   "set <n>",
	Short: "Step over the first n records of the queue on the next run.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("parse skip count: %w", err)
		}
		if n < 0 {
			return fmt.Errorf("skip count must not be negative, got %d", n)
		}
		counter, err := open(cmd)
		if err != nil {
			return err
		}
		return counter.Set(n)
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Start the next run at the oldest queued record again.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		counter, err := open(cmd)
		if err != nil {
			return err
		}
		return counter.Set(0)
	},
}
