package main

import (
	"github.com/aretw0/rapport/internal/config"
	"github.com/spf13/cobra"
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "List the RAPPORT_* environment variables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return config.Usage()
	},
}

func init() {
	rootCmd.AddCommand(envCmd)
}
