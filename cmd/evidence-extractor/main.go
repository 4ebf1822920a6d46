// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the evidence-extractor CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/evidence-extractor/internal/logging"
	"github.com/pdiddy/evidence-extractor/internal/secrets"
	"github.com/pdiddy/evidence-extractor/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds key files loaded from .secrets/ at startup.
var loadedSecrets secrets.Secrets

// rootCmd is the base command for the evidence-extractor CLI.
var rootCmd = &cobra.Command{
	Use:   "evidence-extractor",
	Short: "Deterministic evidence extraction from academic papers",
	Long: `evidence-extractor turns paper descriptors into structured evidence
records. For each paper it tries to fetch and read the full-text PDF under
a strict network policy, falls back to the abstract, classifies the study
design, and mines sample size, population, and outcome statements.

Results can be stored in a local SQLite evidence store, queried with
full-text search, and exported as YAML, JSON, or an XLSX evidence table.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.New(os.Stderr, viper.GetString("log_level"))
		slog.SetDefault(logger)

		s, err := secrets.Load(viper.GetString("secrets_dir"))
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			slog.Debug("loaded secrets", "keys", s.Keys())
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./evidence-extractor.yaml or ~/.config/evidence-extractor/evidence-extractor.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets", "directory of secret key files")

	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("secrets_dir", rootCmd.PersistentFlags().Lookup("secrets-dir"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("evidence-extractor")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "evidence-extractor"))
		}
	}

	viper.SetEnvPrefix("EVIDENCE_EXTRACTOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
	setConfigDefaults(viper.GetViper(), types.DefaultPipelineConfig())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
