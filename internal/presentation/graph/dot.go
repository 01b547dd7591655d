package graph

import (
	"strconv"

	"github.com/aretw0/rapport/internal/compiler"
	"github.com/aretw0/rapport/pkg/domain"
	"github.com/awalterschulze/gographviz"
)

const dotGraphName = "dialogue"

// GenerateDOT produces a Graphviz digraph of g. Node ids are the quoted
// step ids; edges are labelled with the option labels and tooltips list the
// score deltas they award.
func GenerateDOT(g *compiler.Graph, overlay *Overlay) (string, error) {
	out := gographviz.NewGraph()
	if err := out.SetName(dotGraphName); err != nil {
		return "", err
	}
	if err := out.SetDir(true); err != nil {
		return "", err
	}
	if err := out.AddAttr(dotGraphName, "rankdir", "TB"); err != nil {
		return "", err
	}

	visited := map[string]bool{}
	current := ""
	if overlay != nil {
		for _, id := range overlay.Visited {
			visited[id] = true
		}
		current = overlay.Current
	}

	for _, id := range g.States() {
		attrs := map[string]string{"label": quote(id), "shape": "box"}
		step, isStep := g.Step(id)
		switch {
		case !isStep:
			attrs["label"] = quote("end")
			attrs["shape"] = "doublecircle"
		case id == g.Root():
			attrs["shape"] = "circle"
		case step.IsTerminal():
			attrs["shape"] = "box3d"
		}
		switch {
		case id == current:
			attrs["style"] = "filled"
			attrs["fillcolor"] = quote("#ffeb3b")
		case visited[id]:
			attrs["style"] = "filled"
			attrs["fillcolor"] = quote("#e1f5fe")
		}
		if err := out.AddNode(dotGraphName, quote(id), attrs); err != nil {
			return "", err
		}
	}

	for _, step := range g.Steps() {
		for _, opt := range step.Options {
			attrs := map[string]string{"label": quote(edgeLabel(opt))}
			if d := opt.Deltas(); !d.IsZero() {
				attrs["tooltip"] = quote(deltaSummary(d))
			}
			if err := out.AddEdge(quote(step.ID), quote(opt.NextStepID), true, attrs); err != nil {
				return "", err
			}
		}
		if step.IsTerminal() {
			attrs := map[string]string{"style": "dashed"}
			if err := out.AddEdge(quote(step.ID), quote(domain.FinalStateID), true, attrs); err != nil {
				return "", err
			}
		}
	}

	return out.String(), nil
}

func deltaSummary(s domain.Scores) string {
	out := ""
	for _, c := range domain.Categories {
		if v := s.Get(c); v != 0 {
			if out != "" {
				out += ", "
			}
			out += string(c) + " +" + strconv.Itoa(v)
		}
	}
	return out
}

func quote(s string) string {
	return strconv.Quote(s)
}
