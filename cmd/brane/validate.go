package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

const (
	checkMark = "✓"
	crossMark = "✗"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration before deployment",
	Long: `Validate the brane configuration.

Checks:
  - Configuration loads and passes validation
  - Event definitions parse and their schemas compile
  - Module and event dependencies resolve without cycles

Examples:
  brane validate
  brane validate --config /etc/brane/brane.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Validating %s...\n\n", cfgFile)

	app, err := loadApp(bootstrapQuiet())
	if err != nil {
		fmt.Fprintf(out, "  %s Configuration and event definitions\n", crossMark)
		return err
	}
	fmt.Fprintf(out, "  %s Configuration and event definitions\n", checkMark)

	order, err := app.Service.Plan()
	if err != nil {
		fmt.Fprintf(out, "  %s Dependency plan\n", crossMark)
		return err
	}
	fmt.Fprintf(out, "  %s Dependency plan\n\n", checkMark)

	fmt.Fprintf(out, "Modules: %d\n", len(order))
	fmt.Fprintf(out, "Events:  %d\n", app.Service.Events().Len())
	fmt.Fprintf(out, "Things:  %d\n", app.Service.Things().Len())
	return nil
}

func printList(out io.Writer, items []string) {
	for i, item := range items {
		fmt.Fprintf(out, "  %d. %s\n", i+1, item)
	}
}
