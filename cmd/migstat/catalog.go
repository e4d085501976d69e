package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/pdiddy/migstat/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the datasets migstat fetches",
	Long: `Catalog prints the active dataset list: the built-in catalog, or the
file named by --catalog. With --yaml it prints the list in catalog file
format, a starting point for a custom catalog.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		catalogs, err := loadCatalogs(cfg)
		if err != nil {
			return err
		}

		if asYAML, _ := cmd.Flags().GetBool("yaml"); asYAML {
			data, err := catalog.Marshal(catalogs...)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Kind", "File", "Description", "Source"})
		for _, ds := range catalog.Datasets(catalogs...) {
			t.AppendRow(table.Row{ds.Kind, ds.FileName(), ds.Description, ds.ID})
		}
		t.Render()
		return nil
	},
}

func init() {
	catalogCmd.Flags().Bool("yaml", false, "print the catalog as YAML")

	rootCmd.AddCommand(catalogCmd)
}
