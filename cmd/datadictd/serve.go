package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and ingest loop",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		daemon := NewDaemon(cfg, log)
		if err := daemon.Start(ctx); err != nil {
			log.Error("failed to start daemon", "error", err)
			return err
		}
		log.Info("datadictd started", "listen_addr", cfg.HTTP.ListenAddr)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		log.Info("received shutdown signal", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := daemon.Stop(shutdownCtx); err != nil {
			log.Error("error during shutdown", "error", err)
			return err
		}
		return nil
	},
}
