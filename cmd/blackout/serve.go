package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mhoffmann/blackout/internal/config"
	"github.com/mhoffmann/blackout/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the anonymization HTTP server",
	Long: `Start the Blackout HTTP server.

The server provides:
  - POST /api/process        - Submit a PDF for anonymization
  - GET  /api/status/{id}    - Poll job progress
  - GET  /api/result/{id}    - Download the redacted document
  - GET  /healthz            - Health check

Examples:
  blackout serve                         # Defaults from config file and env
  blackout serve --config ./config.yaml  # Explicit config file`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		cfgMgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		cfgMgr.WatchConfig()

		srv, err := server.New(server.Config{
			ConfigManager: cfgMgr,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Blocks until shutdown.
		return srv.Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
