// Package validator lints compiled dialogue graphs. Compile rejects graphs
// that cannot run; the validator reports graphs that run but play badly.
package validator

import (
	"fmt"
	"strings"

	"github.com/aretw0/rapport/internal/compiler"
	"github.com/aretw0/rapport/pkg/domain"
)

// Kind classifies a lint finding.
type Kind string

const (
	// KindUnreachable marks a step no path from the root can enter.
	KindUnreachable Kind = "unreachable"
	// KindTrap marks a reachable step from which the final state can never be reached.
	KindTrap Kind = "trap"
	// KindEmptyLine marks a step with no actor line.
	KindEmptyLine Kind = "empty_line"
)

// Warning is a single lint finding.
type Warning struct {
	Kind   Kind
	StepID string
}

func (w Warning) String() string {
	switch w.Kind {
	case KindUnreachable:
		return fmt.Sprintf("step %q is unreachable from the root", w.StepID)
	case KindTrap:
		return fmt.Sprintf("step %q can never reach the end of the dialogue", w.StepID)
	case KindEmptyLine:
		return fmt.Sprintf("step %q has no actor line", w.StepID)
	}
	return fmt.Sprintf("step %q: %s", w.StepID, w.Kind)
}

// Lint walks g and returns its warnings in authored step order.
func Lint(g *compiler.Graph) []Warning {
	var out []Warning

	reach := g.Reachable()
	finishes := canFinish(g)

	for _, step := range g.Steps() {
		switch {
		case !reach[step.ID]:
			out = append(out, Warning{Kind: KindUnreachable, StepID: step.ID})
		case !finishes[step.ID]:
			out = append(out, Warning{Kind: KindTrap, StepID: step.ID})
		}
		if strings.TrimSpace(step.ActorLine) == "" {
			out = append(out, Warning{Kind: KindEmptyLine, StepID: step.ID})
		}
	}
	return out
}

// Format renders warnings as a bulleted list, or "" when there are none.
func Format(warnings []Warning) string {
	if len(warnings) == 0 {
		return ""
	}
	lines := make([]string, len(warnings))
	for i, w := range warnings {
		lines[i] = "- " + w.String()
	}
	return fmt.Sprintf("found %d warnings:\n%s", len(warnings), strings.Join(lines, "\n"))
}

// canFinish computes the set of states with a path to the final state by
// walking the reversed edges from it.
func canFinish(g *compiler.Graph) map[string]bool {
	reverse := map[string][]string{}
	for _, t := range g.Transitions() {
		reverse[t.Target] = append(reverse[t.Target], t.From)
	}

	seen := map[string]bool{}
	queue := []string{domain.FinalStateID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true
		queue = append(queue, reverse[id]...)
	}
	return seen
}
