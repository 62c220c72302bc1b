package main

import (
	"github.com/spf13/cobra"

	"github.com/nilslice/datadictd/internal/storage/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		poolCfg := postgres.DefaultPoolConfig()
		poolCfg.MinIdle = cfg.Database.MinIdle
		poolCfg.MaxSize = cfg.Database.MaxSize

		store, err := postgres.New(ctx, cfg.Database.Params, poolCfg)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Migrate(ctx); err != nil {
			return err
		}
		log.Info("migrations applied")
		return nil
	},
}
