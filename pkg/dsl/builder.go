package dsl

import (
	"github.com/aretw0/rapport/pkg/adapters/memory"
	"github.com/aretw0/rapport/pkg/domain"
)

// Builder manages the graph construction.
type Builder struct {
	root  string
	order []string
	steps map[string]*StepBuilder
}

// New creates a new graph builder.
func New() *Builder {
	return &Builder{
		steps: make(map[string]*StepBuilder),
	}
}

// Step returns the builder of step id, creating it on first use.
// The first step created becomes the root unless Root says otherwise.
func (b *Builder) Step(id string) *StepBuilder {
	if sb, ok := b.steps[id]; ok {
		return sb
	}
	sb := &StepBuilder{
		step:    domain.Step{ID: id},
		builder: b,
	}
	b.steps[id] = sb
	b.order = append(b.order, id)
	if b.root == "" {
		b.root = id
	}
	return sb
}

// Root sets the root step id.
func (b *Builder) Root(id string) *Builder {
	b.root = id
	return b
}

// Steps returns the authored steps in creation order and the root id.
// The result is a copy; further builder calls do not affect it.
func (b *Builder) Steps() ([]domain.Step, string) {
	out := make([]domain.Step, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.steps[id].snapshot())
	}
	return out, b.root
}

// Loader returns the steps as a ports.StepLoader.
func (b *Builder) Loader() *memory.Loader {
	steps, root := b.Steps()
	return memory.NewLoader(root, steps...)
}
