package main

import (
	"github.com/aretw0/rapport/pkg/domain"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Practice a generated conversation",
	Long: `Starts a conversation with an AI partner. Type replies freely, pick a
suggestion with /<id>, retry a failed call with /retry and finish with /end.

With --graph and --hybrid the partner and story beats come from an authored
graph. The demo provider works offline.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		graphPath, _ := flags.GetString("graph")
		hybrid, _ := flags.GetBool("hybrid")
		sessionID, _ := flags.GetString("session")

		b, err := newBackends(cfg)
		if err != nil {
			return err
		}
		defer b.Close()

		eng, err := newEngine(cfg, graphPath, b, nil, true)
		if err != nil {
			return err
		}
		defer eng.Close()

		conv := conversationConfig(cfg)
		conv.Persona.Name, _ = flags.GetString("persona")
		conv.Persona.Role, _ = flags.GetString("role")
		conv.Scenario.Title, _ = flags.GetString("scenario")
		conv.Scenario.Objective, _ = flags.GetString("objective")
		conv.Profile.Name, _ = flags.GetString("name")
		if conv.Persona.Name == "" && !hybrid {
			conv.Persona = domain.Persona{Name: "Sam", Role: "a friendly classmate"}
		}

		orch, err := eng.Converse(sessionID, conv, hybrid)
		if err != nil {
			return err
		}
		return newRunner(cmd).Chat(cmd.Context(), orch)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	f := chatCmd.Flags()
	f.String("graph", "", "Graph file used by --hybrid")
	f.Bool("hybrid", false, "Seed persona and story beats from --graph")
	f.String("session", "", "Session id (random when empty)")
	f.String("persona", "", "Partner name")
	f.String("role", "", "Partner role")
	f.String("scenario", "", "Scenario title")
	f.String("objective", "", "What the user should practice")
	f.String("name", "", "Your name, used in prompts")
	f.Bool("headless", false, "Plain IO for scripts: no prompts, banner or markdown")
}
