package tests

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/rapport/pkg/domain"
	"github.com/aretw0/rapport/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunResultStoreContract runs a suite of tests to verify that a ResultStore
// implementation adheres to the defined interface contract.
func RunResultStoreContract(t *testing.T, store ports.ResultStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		result := &domain.Result{
			SessionID: sessionID,
			Mode:      domain.ModeDynamic,
			Totals:    domain.Scores{Clarity: 7, Empathy: 3},
			Phase:     domain.PhaseCompleted,
			Transcript: []domain.ConversationTurn{
				{ID: "t1", Speaker: domain.SpeakerActor, Content: "Hi there"},
			},
			CompletedAt: time.Now().UTC().Truncate(time.Second),
		}

		err := store.Save(ctx, sessionID, result)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, result.Totals, loaded.Totals)
		assert.Equal(t, result.Phase, loaded.Phase)
		require.Len(t, loaded.Transcript, 1)
		assert.Equal(t, "Hi there", loaded.Transcript[0].Content)
		assert.True(t, result.CompletedAt.Equal(loaded.CompletedAt))
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrResultNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, &domain.Result{SessionID: sessionID})
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrResultNotFound, "Load after Delete should return ErrResultNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, &domain.Result{SessionID: id1})
		_ = store.Save(ctx, id2, &domain.Result{SessionID: id2})

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
