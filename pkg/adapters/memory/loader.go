package memory

import (
	"fmt"

	"github.com/aretw0/rapport/pkg/domain"
)

// Loader implements ports.StepLoader over steps held in memory.
type Loader struct {
	root  string
	steps []domain.Step
}

// NewLoader creates a loader for steps rooted at root.
func NewLoader(root string, steps ...domain.Step) *Loader {
	return &Loader{root: root, steps: steps}
}

// Load returns the steps and the root id.
func (l *Loader) Load() ([]domain.Step, string, error) {
	if len(l.steps) == 0 {
		return nil, "", fmt.Errorf("memory loader: no steps")
	}
	out := make([]domain.Step, len(l.steps))
	copy(out, l.steps)
	return out, l.root, nil
}
