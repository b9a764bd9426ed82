package utils

import (
	"os"

	"certsync/cmd/certsync/globals"
	"certsync/internal/ledger"

	"github.com/jedib0t/go-pretty/v6/table"
)

func NewTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

// OpenLedger opens the configured ledger, nil when none is configured.
func OpenLedger(value *globals.Value) (*ledger.Ledger, error) {
	if value.Config.Ledger.File == "" {
		return nil, nil
	}
	return ledger.Open(value.Config.Ledger, value.Clock)
}
