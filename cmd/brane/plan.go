package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ComplyCloud/brane/bootstrap"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the module start order",
	Long: `Resolve the dependency graph without starting anything and print
the order modules would start in, the modules that need each one, and the
registered events with their dependencies.`,
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	app, err := loadApp(bootstrapQuiet())
	if err != nil {
		return err
	}

	order, err := app.Service.Plan()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Start order:")
	printList(out, order)

	modules, err := app.Service.Describe()
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "\nRequired by:")
	for _, m := range modules {
		if len(m.Dependants) == 0 {
			continue
		}
		fmt.Fprintf(out, "  %s -> %v\n", m.Name, m.Dependants)
	}

	events := app.Service.Events()
	if events.Len() == 0 {
		return nil
	}
	fmt.Fprintln(out, "\nEvents:")
	for _, name := range events.Names() {
		class, _ := events.Get(name)
		fmt.Fprintf(out, "  %s", name)
		if len(class.Dependencies) > 0 {
			fmt.Fprintf(out, " <- %v", class.Dependencies)
		}
		fmt.Fprintln(out)
	}
	return nil
}

// bootstrapQuiet discards log output for commands that only inspect.
func bootstrapQuiet() bootstrap.Option {
	return bootstrap.WithOutput(io.Discard)
}
