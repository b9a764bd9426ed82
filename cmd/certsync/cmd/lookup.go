package cmd

import (
	"errors"
	"fmt"

	"certsync/cmd/certsync/globals"
	"certsync/internal/ada"
	"certsync/internal/browser"

	"github.com/spf13/cobra"
)

var lookupQuery ada.Query

func init() {
	lookupCmd.Flags().StringVar(&lookupQuery.Category, "category", "", "category on the records portal, like Geboorteakte")
	lookupCmd.Flags().StringVar(&lookupQuery.Year, "year", "", "year of the certificate")
	lookupCmd.Flags().StringVar(&lookupQuery.Names, "names", "", "surnames to search for")
	lookupCmd.Flags().StringVar(&lookupQuery.Number, "number", "", "certificate number, padded to four digits")
	lookupCmd.MarkFlagRequired("category")
	lookupCmd.MarkFlagRequired("year")

	rootCmd.AddCommand(lookupCmd)
}

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Search the records portal for a single certificate and download its scan.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		value := globals.Get(ctx)

		if lookupQuery.Names == "" && lookupQuery.Number == "" {
			return errors.New("either --names or --number is required")
		}

		err := ada.Probe(ctx, value.Config.Ada, value.Tel)
		if err != nil {
			return err
		}
		b, err := browser.Launch(ctx, value.Config.Browser.Options(), value.Clock, value.Tel)
		if err != nil {
			return err
		}
		client, err := ada.NewClient(ctx, b, value.Config.Ada, value.Tel)
		if err != nil {
			return errors.Join(err, b.Quit())
		}
		defer client.Quit()

		path, err := client.DownloadCertImage(ctx, lookupQuery)
		if err != nil {
			return fmt.Errorf("%s: %w", lookupQuery, err)
		}
		fmt.Println(path)
		return nil
	},
}
