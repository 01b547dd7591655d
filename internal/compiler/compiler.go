// Package compiler turns authored steps into an immutable transition table.
package compiler

import (
	"fmt"
	"slices"

	"github.com/aretw0/rapport/pkg/domain"
)

// Compile validates steps and builds the transition table rooted at rootID.
//
// Every problem found is reported. A single problem is returned as a
// *domain.CompileError; several are returned as *domain.CompileErrors.
// Both match domain.ErrCompile under errors.Is.
func Compile(steps []domain.Step, rootID string) (*Graph, error) {
	c := &compilation{
		byID: make(map[string]*domain.Step, len(steps)),
	}

	for i := range steps {
		step := steps[i]
		switch {
		case step.ID == "":
			c.fail(&domain.CompileError{StepID: fmt.Sprintf("#%d", i), Err: domain.ErrEmptyStepID})
			continue
		case step.ID == domain.FinalStateID:
			c.fail(&domain.CompileError{StepID: step.ID, Err: fmt.Errorf("%w: %q is reserved", domain.ErrDuplicateStep, step.ID)})
			continue
		}
		if _, dup := c.byID[step.ID]; dup {
			c.fail(&domain.CompileError{StepID: step.ID, Err: domain.ErrDuplicateStep})
			continue
		}
		cp := cloneStep(step)
		c.byID[step.ID] = &cp
		c.order = append(c.order, step.ID)
	}

	if _, ok := c.byID[rootID]; !ok {
		c.fail(&domain.CompileError{StepID: rootID, Err: domain.ErrMissingRoot})
	}

	states := make(map[string]*State, len(c.order)+1)
	for _, id := range c.order {
		states[id] = c.compileStep(c.byID[id])
	}
	states[domain.FinalStateID] = &State{
		ID:          domain.FinalStateID,
		Transitions: map[string]domain.Transition{},
	}

	if err := c.err(); err != nil {
		return nil, err
	}
	return &Graph{root: rootID, order: c.order, states: states}, nil
}

type compilation struct {
	byID  map[string]*domain.Step
	order []string
	errs  []*domain.CompileError
}

func (c *compilation) fail(err *domain.CompileError) {
	c.errs = append(c.errs, err)
}

func (c *compilation) err() error {
	switch len(c.errs) {
	case 0:
		return nil
	case 1:
		return c.errs[0]
	default:
		return &domain.CompileErrors{Errors: c.errs}
	}
}

func (c *compilation) compileStep(step *domain.Step) *State {
	st := &State{
		ID:          step.ID,
		Step:        step,
		Transitions: make(map[string]domain.Transition, len(step.Options)),
	}

	if step.IsTerminal() {
		st.Always = &domain.Transition{From: step.ID, Target: domain.FinalStateID, Always: true}
		return st
	}

	for _, opt := range step.Options {
		switch {
		case opt.EventID == "":
			c.fail(&domain.CompileError{StepID: step.ID, Target: opt.NextStepID, Err: domain.ErrEmptyEventID})
			continue
		case opt.EventID == domain.EventReplay:
			c.fail(&domain.CompileError{StepID: step.ID, EventID: opt.EventID, Err: domain.ErrReservedEvent})
			continue
		}
		if _, dup := st.Transitions[opt.EventID]; dup {
			c.fail(&domain.CompileError{StepID: step.ID, EventID: opt.EventID, Err: domain.ErrDuplicateEvent})
			continue
		}
		if _, ok := c.byID[opt.NextStepID]; !ok {
			c.fail(&domain.CompileError{StepID: step.ID, EventID: opt.EventID, Target: opt.NextStepID, Err: domain.ErrDanglingReference})
		}

		deltas, ok := c.compileDeltas(step.ID, opt)
		if !ok {
			continue
		}
		st.Transitions[opt.EventID] = domain.Transition{
			From:    step.ID,
			Target:  opt.NextStepID,
			EventID: opt.EventID,
			Deltas:  deltas,
		}
	}
	return st
}

func (c *compilation) compileDeltas(stepID string, opt domain.Option) (domain.Scores, bool) {
	var deltas domain.Scores
	ok := true

	keys := make([]domain.ScoreCategory, 0, len(opt.ScoreDeltas))
	for k := range opt.ScoreDeltas {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		v := opt.ScoreDeltas[k]
		cat, err := domain.ParseCategory(string(k))
		if err != nil {
			c.fail(&domain.CompileError{StepID: stepID, EventID: opt.EventID, Err: fmt.Errorf("%w: unknown category %q", domain.ErrInvalidDelta, k)})
			ok = false
			continue
		}
		if v != 0 && v != 1 {
			c.fail(&domain.CompileError{StepID: stepID, EventID: opt.EventID, Err: fmt.Errorf("%w: %s must be 0 or 1, got %d", domain.ErrInvalidDelta, cat, v)})
			ok = false
			continue
		}
		deltas.Set(cat, v)
	}
	return deltas, ok
}

func cloneStep(s domain.Step) domain.Step {
	cp := s
	cp.Options = make([]domain.Option, len(s.Options))
	for i, opt := range s.Options {
		cp.Options[i] = opt
		if opt.ScoreDeltas != nil {
			cp.Options[i].ScoreDeltas = make(map[domain.ScoreCategory]int, len(opt.ScoreDeltas))
			for k, v := range opt.ScoreDeltas {
				cp.Options[i].ScoreDeltas[k] = v
			}
		}
	}
	if s.Metadata != nil {
		cp.Metadata = make(map[string]string, len(s.Metadata))
		for k, v := range s.Metadata {
			cp.Metadata[k] = v
		}
	}
	return cp
}
