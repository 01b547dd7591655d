package domain

// Transition is a compiled edge of the dialogue machine.
type Transition struct {
	// From is the source state id.
	From string `json:"from"`

	// Target is the destination state id (a step id or FinalStateID).
	Target string `json:"target"`

	// EventID triggers the transition. Empty when Always is set.
	EventID string `json:"event_id,omitempty"`

	// Always marks an unconditional edge (terminal step to final state).
	Always bool `json:"always,omitempty"`

	// Deltas is added to the dialogue context when the edge is taken.
	Deltas Scores `json:"deltas"`
}
