package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ComplyCloud/brane/bootstrap"
	"github.com/ComplyCloud/brane/config"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "brane",
	Short: "Dependency-ordered module runtime with schema-validated events",
	Long: `brane assembles modules that declare their dependencies by name,
starts them in dependency order, and dispatches schema-validated events
to process functions with their dependencies injected.

Commands:
  brane serve     # Start modules and serve the event API
  brane validate  # Check configuration, event definitions and the start plan
  brane plan      # Print the module start order`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "brane.yaml", "config file path")
}

// loadApp loads configuration, falling back to BRANE_* environment
// variables when the config file does not exist, and assembles the app.
func loadApp(opts ...bootstrap.Option) (*bootstrap.App, error) {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return nil, err
	}
	return bootstrap.New(cfg, opts...)
}
