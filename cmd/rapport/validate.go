package main

import (
	"errors"
	"fmt"

	"github.com/aretw0/rapport"
	"github.com/aretw0/rapport/pkg/adapters/file"
	"github.com/aretw0/rapport/pkg/domain"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <graph-file>",
	Short: "Check a dialogue graph for consistency",
	Long: `Compiles the graph and reports every structural error (dangling options,
duplicate ids, invalid score deltas), then lints it for unreachable steps and
loops that can never end.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		strict, _ := cmd.Flags().GetBool("strict")
		out := cmd.OutOrStdout()

		g, err := rapport.LoadStepGraph(file.NewLoader(args[0]))
		if err != nil {
			var errs *domain.CompileErrors
			if errors.As(err, &errs) {
				fmt.Fprintf(out, "Validation failed with %d errors:\n", len(errs.Errors))
				for _, e := range errs.Errors {
					fmt.Fprintf(out, "- %s\n", e)
				}
				return errors.New("invalid graph")
			}
			return err
		}

		warnings := rapport.Lint(g)
		for _, w := range warnings {
			fmt.Fprintf(out, "warning: %s\n", w)
		}
		if strict && len(warnings) > 0 {
			return fmt.Errorf("%d warnings in strict mode", len(warnings))
		}
		fmt.Fprintf(out, "Graph is valid! ✅ (%d steps, root %q)\n", len(g.Steps()), g.Root())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().Bool("strict", false, "Treat lint warnings as errors")
}
