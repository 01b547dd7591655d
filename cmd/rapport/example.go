package main

import (
	"fmt"

	"github.com/aretw0/rapport/pkg/adapters/file"
	"github.com/aretw0/rapport/pkg/dsl"
	"github.com/spf13/cobra"
)

var exampleCmd = &cobra.Command{
	Use:   "example [output-file]",
	Short: "Write a sample dialogue graph",
	Long: `Writes a small authored graph to get started. The format follows the file
extension (.json, otherwise YAML). Without a file it prints YAML to stdout.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps, root := dsl.Sample().Steps()
		doc := &file.Document{
			Title: "Declining a request",
			Root:  root,
			Steps: steps,
		}

		if len(args) == 0 {
			data, err := file.Marshal(doc, false)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}

		if err := file.WriteFile(args[0], doc); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s. Try: rapport play %s\n", args[0], args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exampleCmd)
}
