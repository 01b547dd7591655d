package runtime

import (
	"log/slog"
	"time"

	"github.com/aretw0/rapport/internal/logging"
	"github.com/aretw0/rapport/pkg/domain"
	"github.com/aretw0/rapport/pkg/ports"
	"github.com/google/uuid"
)

// settings is shared by Machine and Orchestrator.
type settings struct {
	sessionID string
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	store     ports.ResultStore
	now       func() time.Time
	newID     func() string
}

func defaultSettings() settings {
	return settings{
		logger: logging.NewNop(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Option configures a Machine or an Orchestrator.
type Option func(*settings)

// WithSessionID sets the playthrough id carried by events and results.
// A random UUID is used otherwise.
func WithSessionID(id string) Option {
	return func(s *settings) {
		s.sessionID = id
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *settings) {
		s.hooks = hooks
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithResultStore persists the Result emitted when a playthrough completes.
func WithResultStore(store ports.ResultStore) Option {
	return func(s *settings) {
		s.store = store
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides how turn ids are produced.
func WithIDGenerator(fn func() string) Option {
	return func(s *settings) {
		if fn != nil {
			s.newID = fn
		}
	}
}

func buildSettings(opts []Option) settings {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	if s.sessionID == "" {
		s.sessionID = s.newID()
	}
	s.logger = s.logger.With("session_id", s.sessionID)
	return s
}
