package main

import (
	"fmt"

	"github.com/aretw0/rapport"
	"github.com/aretw0/rapport/internal/presentation/graph"
	"github.com/aretw0/rapport/pkg/adapters/file"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph <graph-file>",
	Short: "Export the dialogue graph visualization",
	Long:  `Compiles the graph and prints it as a Mermaid flowchart or a Graphviz DOT digraph.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		g, err := rapport.LoadStepGraph(file.NewLoader(args[0]))
		if err != nil {
			return err
		}

		switch format {
		case "mermaid":
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(g, nil))
		case "dot":
			out, err := graph.GenerateDOT(g, nil)
			if err != nil {
				return fmt.Errorf("failed to render DOT: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
		default:
			return fmt.Errorf("unknown format %q (want mermaid or dot)", format)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringP("format", "f", "mermaid", "Output format: mermaid or dot")
}
