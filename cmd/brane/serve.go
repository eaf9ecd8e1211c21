package main

import (
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start modules and serve the event API",
	Long: `Start every module in dependency order and serve the event API.

Environment variables (override the config file):
  BRANE_SERVER_PORT       - Server port (default: 8080)
  BRANE_LOG_LEVEL         - Log level: debug, info, warn, error
  BRANE_JOURNAL_ENABLED   - Persist processed events to SQLite
  BRANE_EVENTS_DIR        - Directory of event definitions

Examples:
  brane serve
  brane serve --config /etc/brane/brane.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	app, err := loadApp()
	if err != nil {
		return err
	}

	// Run blocks until shutdown.
	if err := app.Run(cmd.Context()); err != nil {
		app.Logger.Error().Err(err).Msg("failed to start service")
		return err
	}
	return nil
}
