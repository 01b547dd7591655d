package generation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request outcomes recorded in rapport_generation_requests_total.
const (
	OutcomeCacheHit    = "cache_hit"
	OutcomeSuccess     = "success"
	OutcomeRateLimited = "rate_limited"
	OutcomeError       = "error"
)

// Metrics groups the generation client collectors.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	tokens   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
// A nil registerer leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rapport_generation_requests_total",
				Help: "Total number of generation requests, partitioned by outcome.",
			},
			[]string{"model", "outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rapport_generation_duration_seconds",
				Help:    "Histogram of provider call durations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"model"},
		),
		tokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rapport_generation_tokens_total",
				Help: "Total number of tokens reported by the provider.",
			},
			[]string{"model", "kind"},
		),
	}
}

func (m *Metrics) observe(model, outcome string) {
	m.requests.WithLabelValues(model, outcome).Inc()
}
