// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the migstat CLI. Running migstat
// without arguments fetches every dataset in the catalog once.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/migstat/internal/catalog"
	"github.com/pdiddy/migstat/internal/secrets"
	"github.com/pdiddy/migstat/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

const (
	defaultOutputDir      = "data"
	defaultTimeout        = 30 * time.Second
	defaultTabularTimeout = 10 * time.Minute
	secretsDir            = ".secrets/"
)

// loadedSecrets holds values loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd fetches the catalog when invoked without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "migstat",
	Short: "Fetch migration and asylum statistics from Eurostat and UNHCR",
	Long: `migstat downloads migration and asylum datasets from the Eurostat
dissemination API (written as CSV) and the UNHCR population API (written as
the zip archive the API returns) into a local data directory.

Files that already exist are skipped, so running migstat again only fetches
what is missing. A failing dataset is logged and never stops the others.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSecrets(secretsDir, os.Stderr)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
	RunE: runFetch,
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./migstat.yaml or ~/.config/migstat/migstat.yaml)")
	pf.String("output-dir", defaultOutputDir, "directory receiving the downloaded datasets")
	pf.String("catalog", "", "YAML catalog replacing the built-in dataset list")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.Bool("no-ledger", false, "do not record fetches in the SQLite ledger")

	f := rootCmd.Flags()
	f.Duration("timeout", defaultTimeout, "request timeout for UNHCR downloads")
	f.Duration("tabular-timeout", defaultTabularTimeout, "request timeout for Eurostat downloads")
	f.Duration("delay", 0, "delay between consecutive downloads")
	f.Int("retries", 0, "retries on HTTP 429 (0 disables retrying)")

	for key, flag := range map[string]string{
		"output_dir": "output-dir",
		"catalog":    "catalog",
		"log_level":  "log-level",
		"no_ledger":  "no-ledger",
	} {
		viper.BindPFlag(key, pf.Lookup(flag))
	}
	for key, flag := range map[string]string{
		"timeout":         "timeout",
		"tabular_timeout": "tabular-timeout",
		"delay":           "delay",
		"retries":         "retries",
	} {
		viper.BindPFlag(key, f.Lookup(flag))
	}
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("migstat")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "migstat"))
		}
	}

	viper.SetEnvPrefix("MIGSTAT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig assembles the fetch configuration from viper, which already
// layers flags over environment over config file over flag defaults.
func loadConfig() types.FetchConfig {
	return types.FetchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   viper.GetDuration("timeout"),
			UserAgent: secrets.UserAgent("migstat/"+version, loadedSecrets),
			Retries:   viper.GetInt("retries"),
		},
		TabularTimeout: viper.GetDuration("tabular_timeout"),
		Delay:          viper.GetDuration("delay"),
		OutputDir:      viper.GetString("output_dir"),
		CatalogPath:    viper.GetString("catalog"),
		Ledger:         !viper.GetBool("no_ledger"),
	}
}

// loadCatalogs returns the configured catalog file, or the built-in one.
func loadCatalogs(cfg types.FetchConfig) ([]types.Catalog, error) {
	if cfg.CatalogPath == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(cfg.CatalogPath)
}

// loadSecrets reads the secrets directory, reporting unreadable entries on w.
func loadSecrets(dir string, w io.Writer) (map[string]string, error) {
	return secrets.Load(dir, slog.New(slog.NewTextHandler(w, nil)))
}

// newLogger builds a text logger on w at the named level.
func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
