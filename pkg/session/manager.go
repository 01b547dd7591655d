package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/rapport/internal/logging"
	"github.com/aretw0/rapport/internal/runtime"
	"github.com/aretw0/rapport/pkg/domain"
	"github.com/aretw0/rapport/pkg/ports"
)

var (
	// ErrSessionNotFound is returned for ids with no live conversation.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExists is returned when creating an id that is already live.
	ErrSessionExists = errors.New("session already exists")
)

// Factory builds the orchestrator for a new session id.
type Factory func(ctx context.Context, sessionID string) (*runtime.Orchestrator, error)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

type entry struct {
	orch    *runtime.Orchestrator
	created time.Time
	touched time.Time
}

// Manager owns the live sessions of a process.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	store ports.ResultStore

	mu       sync.Mutex
	locks    map[string]*lockEntry
	sessions map[string]*entry

	logger *slog.Logger
	now    func() time.Time
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithClock overrides the time source used for idle tracking.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a Manager. store may be nil, in which case ended
// sessions are forgotten once removed.
func NewManager(store ports.ResultStore, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		locks:    make(map[string]*lockEntry),
		sessions: make(map[string]*entry),
		logger:   logging.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller must lock entry.mu and call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.locks[sessionID]
	if !ok {
		e = &lockEntry{}
		m.locks[sessionID] = e
	}
	e.refs++
	return e
}

// release decrements the reference count and deletes the entry at zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.locks[sessionID]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// WithLock runs fn while holding the lifecycle lock of sessionID.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e := m.acquire(sessionID)
	e.mu.Lock()
	defer func() {
		e.mu.Unlock()
		m.release(sessionID)
	}()
	return fn(ctx)
}

// Create registers a new session built by factory.
func (m *Manager) Create(ctx context.Context, sessionID string, factory Factory) (*runtime.Orchestrator, error) {
	var orch *runtime.Orchestrator
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		if _, ok := m.lookup(sessionID); ok {
			return fmt.Errorf("%w: %s", ErrSessionExists, sessionID)
		}
		o, err := factory(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		now := m.now()
		m.mu.Lock()
		m.sessions[sessionID] = &entry{orch: o, created: now, touched: now}
		m.mu.Unlock()
		orch = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.logger.Info("session created", "session_id", sessionID)
	return orch, nil
}

// Get returns the live orchestrator of sessionID and marks it as used.
func (m *Manager) Get(sessionID string) (*runtime.Orchestrator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	e.touched = m.now()
	return e.orch, nil
}

func (m *Manager) lookup(sessionID string) (*entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[sessionID]
	return e, ok
}

// End completes the conversation and removes it from memory. The result
// stays reachable through Result when the orchestrator was given a store.
func (m *Manager) End(ctx context.Context, sessionID string) (*domain.Result, error) {
	var res *domain.Result
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		e, ok := m.lookup(sessionID)
		if !ok {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		r, err := e.orch.EndDialogue(ctx)
		if err != nil {
			return err
		}
		m.forget(sessionID)
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.logger.Info("session ended", "session_id", sessionID, "total", res.Totals.Total())
	return res, nil
}

// Result returns the result of a completed session, live or stored.
func (m *Manager) Result(ctx context.Context, sessionID string) (*domain.Result, error) {
	if e, ok := m.lookup(sessionID); ok {
		if res, done := e.orch.Result(); done {
			return res, nil
		}
		return nil, fmt.Errorf("%w: session %s still running", domain.ErrInvalidOperation, sessionID)
	}
	if m.store == nil {
		return nil, domain.ErrResultNotFound
	}
	return m.store.Load(ctx, sessionID)
}

// Delete forgets a live session and removes its stored result.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		m.forget(sessionID)
		if m.store == nil {
			return nil
		}
		return m.store.Delete(ctx, sessionID)
	})
}

func (m *Manager) forget(sessionID string) {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
}

// List returns the live session ids in lexical order.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Prune drops sessions that completed on their own or have been idle for
// longer than maxIdle. It returns how many were dropped.
func (m *Manager) Prune(maxIdle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	dropped := 0
	for id, e := range m.sessions {
		_, done := e.orch.Result()
		if done || (maxIdle > 0 && now.Sub(e.touched) > maxIdle) {
			delete(m.sessions, id)
			dropped++
		}
	}
	if dropped > 0 {
		m.logger.Debug("pruned sessions", "count", dropped)
	}
	return dropped
}
