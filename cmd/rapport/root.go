package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/rapport/internal/config"
	"github.com/aretw0/rapport/internal/logging"
	"github.com/spf13/cobra"
)

// cfg and logger are set by the root PersistentPreRunE.
var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "rapport",
	Short: "Rapport is a social-skills conversation practice engine",
	Long: `Rapport plays authored branching dialogues and generated conversations
with an AI partner, scoring replies on clarity, empathy, assertiveness,
social awareness and self-advocacy.

Settings come from RAPPORT_* environment variables (see "rapport env");
flags override them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded

		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
		}
		if cmd.Flags().Changed("log-json") {
			cfg.LogJSON, _ = cmd.Flags().GetBool("log-json")
		}
		if cmd.Flags().Changed("provider") {
			cfg.Provider, _ = cmd.Flags().GetString("provider")
		}
		if cmd.Flags().Changed("model") {
			cfg.Model, _ = cmd.Flags().GetString("model")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger = logging.NewWithWriter(os.Stderr, logging.ParseLevel(cfg.LogLevel), cfg.LogJSON)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// Interrupts cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Emit JSON logs")
	rootCmd.PersistentFlags().String("provider", config.ProviderDemo, "Generation provider (demo, openai, ollama, process)")
	rootCmd.PersistentFlags().String("model", "", "Model name passed to the provider")
}
