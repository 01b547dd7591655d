package runtime

import (
	"slices"

	"github.com/aretw0/rapport/pkg/domain"
)

// Snapshot is a consistent, read-only view of an orchestrator.
type Snapshot struct {
	SessionID   string                     `json:"session_id"`
	Phase       domain.Phase               `json:"phase"`
	Activity    domain.Activity            `json:"activity"`
	Totals      domain.Scores              `json:"totals"`
	Exchanges   int                        `json:"exchanges"`
	LastError   string                     `json:"last_error,omitempty"`
	Suggestions []domain.SuggestedResponse `json:"suggestions,omitempty"`
	Transcript  []domain.ConversationTurn  `json:"transcript"`
}

// Snapshot returns the current state in one consistent read.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := Snapshot{
		SessionID:  o.sessionID,
		Phase:      o.phase,
		Activity:   o.activity,
		Totals:     o.agg.Totals(),
		Exchanges:  o.transcript.ExchangeCount(),
		Transcript: o.transcript.Turns(),
	}
	if o.lastErr != nil {
		s.LastError = o.lastErr.Error()
	}
	if o.activity == domain.ActivityWaitingForUser {
		s.Suggestions = o.suggestionsLocked()
	}
	return s
}

// SessionID returns the conversation id.
func (o *Orchestrator) SessionID() string {
	return o.sessionID
}

// Activity returns the current activity.
func (o *Orchestrator) Activity() domain.Activity {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.activity
}

// Phase returns the current phase.
func (o *Orchestrator) Phase() domain.Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

// Transcript returns a copy of the turns so far.
func (o *Orchestrator) Transcript() []domain.ConversationTurn {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.transcript.Turns()
}

// Totals returns the accumulated scores.
func (o *Orchestrator) Totals() domain.Scores {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.agg.Totals()
}

// LastError returns the error that put the orchestrator in the error
// activity, or nil.
func (o *Orchestrator) LastError() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

// Exchanges counts user turns answered by an actor turn.
func (o *Orchestrator) Exchanges() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.transcript.ExchangeCount()
}

// Suggestions returns the suggested responses of the last actor turn.
func (o *Orchestrator) Suggestions() []domain.SuggestedResponse {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.suggestionsLocked()
}

func (o *Orchestrator) suggestionsLocked() []domain.SuggestedResponse {
	last, ok := o.transcript.Last(domain.SpeakerActor)
	if !ok {
		return nil
	}
	return slices.Clone(last.SuggestedResponses)
}

// Result returns the final result once the dialogue is completed.
func (o *Orchestrator) Result() (*domain.Result, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.result.Clone(), o.result != nil
}
