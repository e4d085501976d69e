package main

import (
	"log/slog"
	"net/http"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/migstat/internal/catalog"
	"github.com/pdiddy/migstat/internal/eurostat"
	"github.com/pdiddy/migstat/internal/fetch"
	"github.com/pdiddy/migstat/internal/ledger"
	"github.com/pdiddy/migstat/pkg/types"
)

// runFetch downloads every missing dataset. Item failures are logged and do
// not change the exit status; only configuration problems do.
func runFetch(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	log, err := newLogger(cmd.OutOrStdout(), viper.GetString("log_level"))
	if err != nil {
		return err
	}
	catalogs, err := loadCatalogs(cfg)
	if err != nil {
		return err
	}

	batch := newBatch(cfg, log)
	if cfg.Ledger {
		store, err := ledger.Open(cfg.OutputDir)
		if err != nil {
			log.Warn("ledger unavailable, continuing without it", slog.Any("error", err))
		} else {
			defer store.Close()
			batch.Recorder = store
		}
	}

	_, err = batch.Run(cmd.Context(), catalog.Datasets(catalogs...))
	return err
}

// newBatch wires the Eurostat and UNHCR strategies onto the OS filesystem.
func newBatch(cfg types.FetchConfig, log *slog.Logger) *fetch.Batch {
	tabularClient := &http.Client{Timeout: cfg.TabularTimeout}
	restClient := &http.Client{}

	return fetch.NewBatch(afero.NewOsFs(), cfg, log,
		fetch.NewTabular(eurostat.NewClient(tabularClient, cfg.UserAgent, cfg.Retries)),
		fetch.NewREST(restClient, cfg.HTTPConfig),
	)
}
