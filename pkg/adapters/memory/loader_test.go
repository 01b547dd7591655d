package memory_test

import (
	"testing"

	"github.com/aretw0/rapport/pkg/adapters/memory"
	"github.com/aretw0/rapport/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader(t *testing.T) {
	loader := memory.NewLoader("start",
		domain.Step{ID: "start", ActorLine: "Hi", Options: []domain.Option{{EventID: "GO", NextStepID: "end"}}},
		domain.Step{ID: "end"},
	)

	steps, root, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "start", root)
	assert.Len(t, steps, 2)

	_, _, err = memory.NewLoader("start").Load()
	assert.Error(t, err)
}
