package domain

// MachineState is a read-only snapshot of a static playthrough.
type MachineState struct {
	// CurrentStepID is the active state (a step id or FinalStateID).
	CurrentStepID string `json:"current_step_id"`

	// Context holds the accumulated score totals.
	Context Scores `json:"context"`

	// History tracks the path taken, starting at the root.
	History []string `json:"history"`

	// Terminated indicates the final state has been reached.
	Terminated bool `json:"terminated"`
}
