// Package graph renders compiled dialogue graphs as Mermaid or Graphviz DOT.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/rapport/internal/compiler"
	"github.com/aretw0/rapport/pkg/domain"
)

// maxEdgeLabel caps option labels printed on edges.
const maxEdgeLabel = 32

// Overlay contains playthrough data to highlight on the graph.
type Overlay struct {
	Visited []string
	Current string
}

// GenerateMermaid produces a Mermaid flowchart of g.
// Shapes: root ((circle)), terminal steps [[subroutine]], the final state
// a stadium, everything else a rectangle. Edges carry the option labels;
// the unconditional edges into the final state are dotted.
func GenerateMermaid(g *compiler.Graph, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, step := range g.Steps() {
		safeID := sanitizeMermaidID(step.ID)

		opener, closer := "[", "]"
		switch {
		case step.ID == g.Root():
			opener, closer = "((", "))"
		case step.IsTerminal():
			opener, closer = "[[", "]]"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, escapeLabel(step.ID), closer)

		for _, opt := range step.Options {
			fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", safeID, escapeLabel(edgeLabel(opt)), sanitizeMermaidID(opt.NextStepID))
		}
		if step.IsTerminal() {
			fmt.Fprintf(&sb, "    %s -.-> %s\n", safeID, sanitizeMermaidID(domain.FinalStateID))
		}
	}
	fmt.Fprintf(&sb, "    %s([\"end\"])\n", sanitizeMermaidID(domain.FinalStateID))

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.Visited {
			safeID := sanitizeMermaidID(id)
			if safeID == "" || seen[safeID] {
				continue
			}
			seen[safeID] = true
			fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
		}
		if overlay.Current != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.Current))
		}
	}

	return sb.String()
}

func edgeLabel(opt domain.Option) string {
	label := opt.Label
	if label == "" {
		label = opt.EventID
	}
	if r := []rune(label); len(r) > maxEdgeLabel {
		label = string(r[:maxEdgeLabel-1]) + "…"
	}
	return label
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	return strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_").Replace(id)
}
