package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/pdiddy/migstat/internal/catalog"
	"github.com/pdiddy/migstat/internal/ledger"
	"github.com/pdiddy/migstat/pkg/types"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which catalog datasets are present locally",
	Long: `Status lists every catalog dataset with its target file, whether the
file exists, its size, and the last fetch outcome recorded in the ledger.
Presence is what the fetch loop uses to decide whether to skip.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	catalogs, err := loadCatalogs(cfg)
	if err != nil {
		return err
	}

	last, err := latestRecords(cmd.Context(), cfg.OutputDir)
	if err != nil {
		return err
	}
	return renderStatus(cmd.OutOrStdout(), cfg.OutputDir, catalog.Datasets(catalogs...), last)
}

// latestRecords returns the newest ledger record per path, or nil when no
// ledger exists yet. It never creates the ledger.
func latestRecords(ctx context.Context, outputDir string) (map[string]types.FetchRecord, error) {
	if _, err := os.Stat(ledger.Path(outputDir)); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	store, err := ledger.Open(outputDir)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	recs, err := store.Latest(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]types.FetchRecord, len(recs))
	for _, r := range recs {
		out[r.Path] = r
	}
	return out, nil
}

func renderStatus(w io.Writer, outputDir string, datasets []types.Dataset, last map[string]types.FetchRecord) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Dataset", "Kind", "File", "Present", "Size", "Last Fetch", "Outcome"})

	present := 0
	for _, ds := range datasets {
		path := filepath.Join(outputDir, ds.FileName())
		row := table.Row{ds.Name, ds.Kind, path}

		info, err := os.Stat(path)
		switch {
		case err == nil:
			present++
			row = append(row, text.FgGreen.Sprint("yes"), humanize.Bytes(uint64(info.Size())))
		case errors.Is(err, os.ErrNotExist):
			row = append(row, text.FgYellow.Sprint("no"), "-")
		default:
			return fmt.Errorf("stat %s: %w", path, err)
		}

		if rec, ok := last[path]; ok {
			row = append(row, humanize.Time(rec.FetchedAt), outcomeText(rec.Outcome))
		} else {
			row = append(row, "-", "-")
		}
		t.AppendRow(row)
	}
	t.AppendFooter(table.Row{"", "", "", fmt.Sprintf("%d/%d", present, len(datasets))})
	t.Render()
	return nil
}

func outcomeText(o types.Outcome) string {
	switch o {
	case types.OutcomeSucceeded:
		return text.FgGreen.Sprint(string(o))
	case types.OutcomeFailed:
		return text.FgRed.Sprint(string(o))
	default:
		return string(o)
	}
}
