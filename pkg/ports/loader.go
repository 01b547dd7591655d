package ports

import "github.com/aretw0/rapport/pkg/domain"

// StepLoader defines how authored dialogue graphs are retrieved.
type StepLoader interface {
	// Load returns the steps of a dialogue and its explicit root step id.
	Load() (steps []domain.Step, rootID string, err error)
}
