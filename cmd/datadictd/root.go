package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nilslice/datadictd/internal/config"
	"github.com/nilslice/datadictd/internal/logger"
)

var (
	cfgFile string

	cfg *config.ServiceConfig
	log *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "datadictd",
	Short: "Dataset catalog daemon: HTTP registration API and GCS notification ingest",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}

		loaded, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded

		l, err := logger.New(cfg.Log)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		log = l
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: /etc/datadictd, ~/.config/datadictd, or ./config.yaml)")
	rootCmd.AddCommand(serveCmd, migrateCmd, versionCmd)
}
