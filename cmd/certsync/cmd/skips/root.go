package skips

import (
	"fmt"

	"certsync/cmd/certsync/globals"
	"certsync/internal/state"

	"github.com/spf13/cobra"
)

var RootCmd = &cobra.Command{
	Use:   "skips",
	Short: "Show the skip counter, the index of the next record in the validation queue.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		counter, err := open(cmd)
		if err != nil {
			return err
		}
		fmt.Println(counter.Value())
		return nil
	},
}

func open(cmd *cobra.Command) (*state.SkipCounter, error) {
	value := globals.Get(cmd.Context())
	return state.OpenSkipCounter(value.Config.Dabs.WithDefaults().SkipCounterFile)
}
