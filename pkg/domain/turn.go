package domain

import (
	"slices"
	"time"
)

// Speaker identifies who produced a turn.
type Speaker string

const (
	SpeakerActor Speaker = "actor"
	SpeakerUser  Speaker = "user"
)

// Analysis is the feedback attached to an analyzed user turn (dynamic mode only).
type Analysis struct {
	Feedback     string   `json:"feedback" mapstructure:"feedback"`
	Strengths    []string `json:"strengths,omitempty" mapstructure:"strengths"`
	Improvements []string `json:"improvements,omitempty" mapstructure:"improvements"`
}

// SuggestedResponse is a candidate reply offered to the user after an actor turn.
type SuggestedResponse struct {
	ID      string `json:"id" mapstructure:"id"`
	Content string `json:"content" mapstructure:"content"`
	Scores  Scores `json:"scores" mapstructure:"scores"`
}

// ConversationTurn is one entry of the transcript.
type ConversationTurn struct {
	ID        string    `json:"id"`
	Speaker   Speaker   `json:"speaker"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// Phase is the conversation phase the turn was produced in.
	Phase Phase `json:"phase,omitempty"`

	// Scores is the per-turn contribution, if any.
	Scores *Scores `json:"scores,omitempty"`

	// Analysis is set on analyzed user turns.
	Analysis *Analysis `json:"analysis,omitempty"`

	// SuggestedResponses is set on actor turns in dynamic mode.
	SuggestedResponses []SuggestedResponse `json:"suggested_responses,omitempty"`

	// Fallback marks actor turns synthesized after a malformed model payload.
	Fallback bool `json:"fallback,omitempty"`
}

// Clone returns a copy of the turn that shares no memory with t.
func (t ConversationTurn) Clone() ConversationTurn {
	if t.Scores != nil {
		s := *t.Scores
		t.Scores = &s
	}
	if t.Analysis != nil {
		a := *t.Analysis
		a.Strengths = slices.Clone(a.Strengths)
		a.Improvements = slices.Clone(a.Improvements)
		t.Analysis = &a
	}
	t.SuggestedResponses = slices.Clone(t.SuggestedResponses)
	return t
}

// CloneTurns deep-copies a list of turns.
func CloneTurns(turns []ConversationTurn) []ConversationTurn {
	if turns == nil {
		return nil
	}
	out := make([]ConversationTurn, len(turns))
	for i, turn := range turns {
		out[i] = turn.Clone()
	}
	return out
}
