package main

import (
	"fmt"
	"os"

	"github.com/aretw0/rapport"
	"github.com/aretw0/rapport/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play <graph-file>",
	Short: "Play an authored dialogue graph",
	Long: `Walks the graph interactively. Pick options by number or event id, type
"replay" to restart and "quit" to stop. Scores are printed at the end and the
result is saved to the configured store.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")

		b, err := newBackends(cfg)
		if err != nil {
			return err
		}
		defer b.Close()

		eng, err := newEngine(cfg, args[0], b, nil, false)
		if err != nil {
			return err
		}
		defer eng.Close()

		m, err := eng.Play(cmd.Context(), sessionID)
		if err != nil {
			return err
		}

		runner := newRunner(cmd)
		if err := runner.Play(cmd.Context(), m); err != nil {
			return err
		}
		if res, ok := m.Result(); ok && !runner.Headless {
			fmt.Fprintf(runner.Output, "Result saved for session %s\n", res.SessionID)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(playCmd)
	playCmd.Flags().String("session", "", "Session id (random when empty)")
	playCmd.Flags().Bool("headless", false, "Plain IO for scripts: no prompts, banner or markdown")
}

// newRunner prepares a rapport.Runner on the command IO. Markdown rendering
// and the banner are enabled only on an interactive stdout.
func newRunner(cmd *cobra.Command) *rapport.Runner {
	headless, _ := cmd.Flags().GetBool("headless")
	runner := rapport.NewRunner(cmd.InOrStdin(), cmd.OutOrStdout())
	runner.Headless = headless

	if out, ok := runner.Output.(*os.File); ok && !headless && tui.IsTerminal(out) {
		tui.PrintBanner(out)
		runner.Renderer = tui.RendererFor(out)
	}
	return runner
}
