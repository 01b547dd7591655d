package dsl

import (
	"maps"

	"github.com/aretw0/rapport/pkg/domain"
)

// StepBuilder provides a fluent API for configuring a step.
type StepBuilder struct {
	step    domain.Step
	builder *Builder
}

// Says sets the actor line.
func (s *StepBuilder) Says(line string) *StepBuilder {
	s.step.ActorLine = line
	return s
}

// Meta sets a metadata entry, such as domain.MetaPersonaName.
func (s *StepBuilder) Meta(key, value string) *StepBuilder {
	if s.step.Metadata == nil {
		s.step.Metadata = make(map[string]string)
	}
	s.step.Metadata[key] = value
	return s
}

// Option adds a user option. The event id doubles as the option id.
func (s *StepBuilder) Option(eventID, label string) *OptionBuilder {
	s.step.Options = append(s.step.Options, domain.Option{
		EventID: eventID,
		Label:   label,
	})
	return &OptionBuilder{parent: s, index: len(s.step.Options) - 1}
}

// Step jumps back to the graph builder to define another step.
func (s *StepBuilder) Step(id string) *StepBuilder {
	return s.builder.Step(id)
}

func (s *StepBuilder) snapshot() domain.Step {
	out := s.step
	out.Metadata = maps.Clone(s.step.Metadata)
	out.Options = make([]domain.Option, len(s.step.Options))
	for i, opt := range s.step.Options {
		opt.ScoreDeltas = maps.Clone(opt.ScoreDeltas)
		out.Options[i] = opt
	}
	if len(out.Options) == 0 {
		out.Options = nil
	}
	return out
}

// OptionBuilder configures the last option added to a step.
type OptionBuilder struct {
	parent *StepBuilder
	index  int
}

func (o *OptionBuilder) option() *domain.Option {
	return &o.parent.step.Options[o.index]
}

// To sets the step the option leads to.
func (o *OptionBuilder) To(stepID string) *OptionBuilder {
	o.option().NextStepID = stepID
	return o
}

// Scores awards one point in each category when the option is chosen.
func (o *OptionBuilder) Scores(categories ...domain.ScoreCategory) *OptionBuilder {
	opt := o.option()
	if opt.ScoreDeltas == nil {
		opt.ScoreDeltas = make(map[domain.ScoreCategory]int)
	}
	for _, c := range categories {
		opt.ScoreDeltas[c] = 1
	}
	return o
}

// Option adds a sibling option on the same step.
func (o *OptionBuilder) Option(eventID, label string) *OptionBuilder {
	return o.parent.Option(eventID, label)
}

// Step jumps back to the graph builder to define another step.
func (o *OptionBuilder) Step(id string) *StepBuilder {
	return o.parent.builder.Step(id)
}
