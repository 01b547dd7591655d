package domain

const (
	// FinalStateID is the shared sink every terminal step transitions to.
	FinalStateID = "__final__"

	// EventReplay is the global pseudo-event that resets a playthrough.
	EventReplay = "replay"
)

// Step is one node of an authored dialogue graph.
// A step with no options is terminal.
type Step struct {
	ID        string   `json:"id" yaml:"id" mapstructure:"id"`
	ActorLine string   `json:"actor_line" yaml:"actor_line" mapstructure:"actor_line"`
	Options   []Option `json:"options,omitempty" yaml:"options,omitempty" mapstructure:"options"`

	// Metadata allows for extensible key-value pairs (persona, scenario, ...).
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty" mapstructure:"metadata"`
}

// IsTerminal reports whether the step has no options.
func (s Step) IsTerminal() bool {
	return len(s.Options) == 0
}

// Option is one user-selectable branch from a step.
type Option struct {
	Label      string `json:"label" yaml:"label" mapstructure:"label"`
	EventID    string `json:"event_id" yaml:"event_id" mapstructure:"event_id"`
	NextStepID string `json:"next_step_id" yaml:"next_step_id" mapstructure:"next_step_id"`

	// ScoreDeltas is sparse: absent categories contribute 0.
	ScoreDeltas map[ScoreCategory]int `json:"score_deltas,omitempty" yaml:"score_deltas,omitempty" mapstructure:"score_deltas"`
}

// Deltas returns the option's score deltas as a fixed Scores value.
func (o Option) Deltas() Scores {
	return ScoresFromMap(o.ScoreDeltas)
}
