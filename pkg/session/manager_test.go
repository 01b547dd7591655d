package session_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/rapport/internal/runtime"
	"github.com/aretw0/rapport/pkg/adapters/memory"
	"github.com/aretw0/rapport/pkg/adapters/scripted"
	"github.com/aretw0/rapport/pkg/domain"
	"github.com/aretw0/rapport/pkg/generation"
	"github.com/aretw0/rapport/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func factory(store *memory.Store) session.Factory {
	client := generation.NewClient(scripted.NewWithResponder(scripted.Demo()))
	return func(ctx context.Context, id string) (*runtime.Orchestrator, error) {
		return runtime.NewOrchestrator(client, runtime.Config{
			Persona: domain.Persona{Name: "Sam", Role: "coworker"},
		}, runtime.WithSessionID(id), runtime.WithResultStore(store)), nil
	}
}

func TestManager_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	mgr := session.NewManager(store)

	orch, err := mgr.Create(ctx, "s1", factory(store))
	require.NoError(t, err)
	require.NoError(t, orch.Start(ctx))

	got, err := mgr.Get("s1")
	require.NoError(t, err)
	assert.Same(t, orch, got)
	assert.Equal(t, []string{"s1"}, mgr.List())

	_, err = mgr.Result(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)

	res, err := mgr.End(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseCompleted, res.Phase)

	_, err = mgr.Get("s1")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
	assert.Empty(t, mgr.List())

	stored, err := mgr.Result(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", stored.SessionID)

	require.NoError(t, mgr.Delete(ctx, "s1"))
	_, err = mgr.Result(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrResultNotFound)
}

func TestManager_Errors(t *testing.T) {
	ctx := context.Background()
	mgr := session.NewManager(nil)

	_, err := mgr.End(ctx, "missing")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	boom := errors.New("boom")
	_, err = mgr.Create(ctx, "x", func(context.Context, string) (*runtime.Orchestrator, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, mgr.List())

	_, err = mgr.Result(ctx, "x")
	assert.ErrorIs(t, err, domain.ErrResultNotFound)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = mgr.Create(cancelled, "y", factory(memory.NewStore()))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestManager_ConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	mgr := session.NewManager(store)
	build := factory(store)

	var created, rejected atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := mgr.Create(ctx, "same", build)
			switch {
			case err == nil:
				created.Add(1)
			case errors.Is(err, session.ErrSessionExists):
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, created.Load())
	assert.EqualValues(t, 19, rejected.Load())
}

func TestManager_LocksDoNotLeak(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	mgr := session.NewManager(store)
	build := factory(store)

	for i := 0; i < 200; i++ {
		id := fmt.Sprintf("session-%d", i)
		_, err := mgr.Create(ctx, id, build)
		require.NoError(t, err)
		require.NoError(t, mgr.Delete(ctx, id))
	}

	// A fresh id must still be creatable and nothing is left live.
	assert.Empty(t, mgr.List())
	err := mgr.WithLock(ctx, "probe", func(context.Context) error { return nil })
	assert.NoError(t, err)
}

func TestManager_Prune(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	now := time.Unix(0, 0)
	mgr := session.NewManager(store, session.WithClock(func() time.Time { return now }))
	build := factory(store)

	_, err := mgr.Create(ctx, "idle", build)
	require.NoError(t, err)
	done, err := mgr.Create(ctx, "done", build)
	require.NoError(t, err)
	_, err = done.EndDialogue(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, mgr.Prune(time.Hour))
	assert.Equal(t, []string{"idle"}, mgr.List())

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 1, mgr.Prune(time.Hour))
	assert.Empty(t, mgr.List())
}
