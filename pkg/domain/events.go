package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStateEnter     EventType = "state_enter"
	EventStateLeave     EventType = "state_leave"
	EventTurnAppended   EventType = "turn_appended"
	EventPhaseChanged   EventType = "phase_changed"
	EventActivityChange EventType = "activity_changed"
	EventCompleted      EventType = "completed"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
}

// StateEvent represents entry into or exit from a static machine state.
type StateEvent struct {
	EventBase
	StateID string `json:"state_id"`
	EventID string `json:"event_id,omitempty"`
}

// TurnEvent is emitted whenever a turn is appended to a transcript.
type TurnEvent struct {
	EventBase
	Turn ConversationTurn `json:"turn"`
}

// PhaseEvent is emitted on phase changes.
type PhaseEvent struct {
	EventBase
	From Phase `json:"from"`
	To   Phase `json:"to"`
}

// ActivityEvent is emitted on every orchestrator activity transition.
// Callers use it as the completion notification of asynchronous work.
type ActivityEvent struct {
	EventBase
	From Activity `json:"from"`
	To   Activity `json:"to"`
	Err  error    `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
// Hooks run synchronously on the caller's goroutine and must not call back
// into the component that emitted them.
type LifecycleHooks struct {
	OnStateEnter func(context.Context, *StateEvent)
	OnStateLeave func(context.Context, *StateEvent)
	OnTurn       func(context.Context, *TurnEvent)
	OnPhase      func(context.Context, *PhaseEvent)
	OnActivity   func(context.Context, *ActivityEvent)
	OnComplete   func(context.Context, *Result)
}
