package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/pdiddy/migstat/internal/ledger"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check downloaded files against the ledger",
	Long: `Verify compares each file's size and SHA-256 with the last successful
fetch recorded in the ledger. Truncated or replaced files are reported but
never deleted; remove them by hand and run migstat again to re-fetch.`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if _, err := os.Stat(ledger.Path(cfg.OutputDir)); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("no ledger at %s; run migstat first", ledger.Path(cfg.OutputDir))
	}

	store, err := ledger.Open(cfg.OutputDir)
	if err != nil {
		return err
	}
	defer store.Close()

	checks, err := store.Verify(cmd.Context(), afero.NewOsFs())
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"File", "Status", "Recorded", "On Disk", "Fetched"})

	bad := 0
	for _, c := range checks {
		status := text.FgGreen.Sprint(string(c.Status))
		if c.Status != ledger.StatusOK {
			bad++
			status = text.FgRed.Sprint(string(c.Status))
		}
		t.AppendRow(table.Row{
			c.Record.Path,
			status,
			humanize.Bytes(uint64(c.Record.Size)),
			humanize.Bytes(uint64(c.Size)),
			c.Record.FetchedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	t.Render()

	if bad > 0 {
		return fmt.Errorf("%d file(s) failed verification", bad)
	}
	return nil
}
