package observability

import (
	"context"

	"github.com/aretw0/rapport/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the conversation collectors.
type Metrics struct {
	turns     *prometheus.CounterVec
	phases    *prometheus.CounterVec
	errors    prometheus.Counter
	completed *prometheus.CounterVec
	scores    *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg.
// A nil registerer leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		turns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rapport_turns_total",
				Help: "Total number of transcript turns, partitioned by speaker.",
			},
			[]string{"speaker", "fallback"},
		),
		phases: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rapport_phase_transitions_total",
				Help: "Total number of phase changes, partitioned by target phase.",
			},
			[]string{"to"},
		),
		errors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "rapport_activity_errors_total",
				Help: "Total number of times a conversation entered the error activity.",
			},
		),
		completed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rapport_conversations_completed_total",
				Help: "Total number of completed playthroughs, partitioned by mode.",
			},
			[]string{"mode"},
		),
		scores: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rapport_final_score",
				Help:    "Histogram of final score totals per category.",
				Buckets: []float64{0, 5, 10, 20, 40, 80},
			},
			[]string{"category"},
		),
	}
}

// Hooks feeds the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurn: func(_ context.Context, e *domain.TurnEvent) {
			fallback := "false"
			if e.Turn.Fallback {
				fallback = "true"
			}
			m.turns.WithLabelValues(string(e.Turn.Speaker), fallback).Inc()
		},
		OnPhase: func(_ context.Context, e *domain.PhaseEvent) {
			m.phases.WithLabelValues(string(e.To)).Inc()
		},
		OnActivity: func(_ context.Context, e *domain.ActivityEvent) {
			if e.To == domain.ActivityError {
				m.errors.Inc()
			}
		},
		OnComplete: func(_ context.Context, r *domain.Result) {
			m.completed.WithLabelValues(string(r.Mode)).Inc()
			for _, c := range domain.Categories {
				m.scores.WithLabelValues(string(c)).Observe(float64(r.Totals.Get(c)))
			}
		},
	}
}
