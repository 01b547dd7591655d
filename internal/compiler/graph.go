package compiler

import (
	"slices"

	"github.com/aretw0/rapport/pkg/domain"
)

// State is one node of the compiled transition table.
// The shared final state has a nil Step.
type State struct {
	ID          string
	Step        *domain.Step
	Transitions map[string]domain.Transition
	Always      *domain.Transition
}

// Final reports whether s is the shared final state.
func (s *State) Final() bool {
	return s.ID == domain.FinalStateID
}

// Graph is the immutable result of Compile. It is safe for concurrent use by
// any number of machines.
type Graph struct {
	root   string
	order  []string
	states map[string]*State
}

// Root returns the id of the entry step.
func (g *Graph) Root() string {
	return g.root
}

// States returns every state id in authored order, with the final state last.
func (g *Graph) States() []string {
	out := make([]string, 0, len(g.order)+1)
	out = append(out, g.order...)
	return append(out, domain.FinalStateID)
}

// State returns the compiled state for id.
func (g *Graph) State(id string) (*State, bool) {
	s, ok := g.states[id]
	return s, ok
}

// Step returns the authored step for id. The final state has no step.
func (g *Graph) Step(id string) (domain.Step, bool) {
	s, ok := g.states[id]
	if !ok || s.Step == nil {
		return domain.Step{}, false
	}
	return *s.Step, true
}

// Steps returns the authored steps in their original order.
func (g *Graph) Steps() []domain.Step {
	out := make([]domain.Step, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, *g.states[id].Step)
	}
	return out
}

// Lookup resolves (state, event) to its transition. Unknown pairs return false.
func (g *Graph) Lookup(stateID, eventID string) (domain.Transition, bool) {
	s, ok := g.states[stateID]
	if !ok {
		return domain.Transition{}, false
	}
	t, ok := s.Transitions[eventID]
	return t, ok
}

// Transitions lists every edge of the table, including the unconditional
// edges from terminal steps into the final state.
func (g *Graph) Transitions() []domain.Transition {
	var out []domain.Transition
	for _, id := range g.order {
		s := g.states[id]
		for _, opt := range s.Step.Options {
			out = append(out, s.Transitions[opt.EventID])
		}
		if s.Always != nil {
			out = append(out, *s.Always)
		}
	}
	return out
}

// Reachable returns the set of state ids reachable from the root.
func (g *Graph) Reachable() map[string]bool {
	seen := map[string]bool{}
	queue := []string{g.root}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true

		s, ok := g.states[id]
		if !ok {
			continue
		}
		for _, t := range s.Transitions {
			if !seen[t.Target] {
				queue = append(queue, t.Target)
			}
		}
		if s.Always != nil && !seen[s.Always.Target] {
			queue = append(queue, s.Always.Target)
		}
	}
	return seen
}

// Unreachable lists authored steps that no path from the root can enter.
func (g *Graph) Unreachable() []string {
	reach := g.Reachable()
	var out []string
	for _, id := range g.order {
		if !reach[id] {
			out = append(out, id)
		}
	}
	return out
}

// MaxDeltas returns, per category, the largest delta any option of step id
// awards. It is the ceiling a player could have earned when leaving that step.
func (g *Graph) MaxDeltas(id string) domain.Scores {
	var best domain.Scores
	s, ok := g.states[id]
	if !ok {
		return best
	}
	for _, t := range s.Transitions {
		for _, c := range domain.Categories {
			best.Set(c, max(best.Get(c), t.Deltas.Get(c)))
		}
	}
	return best
}

// Events returns the option event ids of a state in authored order.
func (g *Graph) Events(id string) []string {
	s, ok := g.states[id]
	if !ok || s.Step == nil {
		return nil
	}
	out := make([]string, 0, len(s.Step.Options))
	for _, opt := range s.Step.Options {
		out = append(out, opt.EventID)
	}
	return slices.Clip(out)
}
