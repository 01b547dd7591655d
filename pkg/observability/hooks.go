package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/rapport/pkg/domain"
)

// Merge returns hooks that call each set in order. Nil callbacks are skipped.
func Merge(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range sets {
		out.OnStateEnter = chain(out.OnStateEnter, h.OnStateEnter)
		out.OnStateLeave = chain(out.OnStateLeave, h.OnStateLeave)
		out.OnTurn = chain(out.OnTurn, h.OnTurn)
		out.OnPhase = chain(out.OnPhase, h.OnPhase)
		out.OnActivity = chain(out.OnActivity, h.OnActivity)
		out.OnComplete = chain(out.OnComplete, h.OnComplete)
	}
	return out
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}

// DebugHooks logs every lifecycle event at debug level.
func DebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateEnter: func(ctx context.Context, e *domain.StateEvent) {
			logger.Debug("Enter State", "session_id", e.SessionID, "state_id", e.StateID, "event_id", e.EventID)
		},
		OnStateLeave: func(ctx context.Context, e *domain.StateEvent) {
			logger.Debug("Leave State", "session_id", e.SessionID, "state_id", e.StateID, "event_id", e.EventID)
		},
		OnTurn: func(ctx context.Context, e *domain.TurnEvent) {
			logger.Debug("Turn", "session_id", e.SessionID, "speaker", e.Turn.Speaker, "phase", e.Turn.Phase, "fallback", e.Turn.Fallback)
		},
		OnPhase: func(ctx context.Context, e *domain.PhaseEvent) {
			logger.Debug("Phase", "session_id", e.SessionID, "from", e.From, "to", e.To)
		},
		OnActivity: func(ctx context.Context, e *domain.ActivityEvent) {
			if e.Err != nil {
				logger.Debug("Activity (Error)", "session_id", e.SessionID, "from", e.From, "to", e.To, "err", e.Err)
			} else {
				logger.Debug("Activity", "session_id", e.SessionID, "from", e.From, "to", e.To)
			}
		},
		OnComplete: func(ctx context.Context, r *domain.Result) {
			logger.Debug("Completed", "session_id", r.SessionID, "mode", r.Mode, "totals", r.Totals)
		},
	}
}
