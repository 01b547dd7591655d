// Package score accumulates per-category scores across a playthrough.
package score

import "github.com/aretw0/rapport/pkg/domain"

// Aggregator accumulates per-category integer scores for one playthrough.
// It is owned by a single machine or orchestrator and is not safe for
// concurrent use.
type Aggregator struct {
	totals domain.Scores
}

// New creates an aggregator with all-zero totals.
func New() *Aggregator {
	return &Aggregator{}
}

// Apply adds deltas to the running totals. Negative deltas are ignored so
// totals never decrease within a playthrough.
func (a *Aggregator) Apply(deltas domain.Scores) {
	a.totals = a.totals.Add(Bounded(deltas, 0, maxInt))
}

// ApplyMap adds a sparse set of deltas; absent categories contribute 0.
func (a *Aggregator) ApplyMap(deltas map[domain.ScoreCategory]int) {
	a.Apply(domain.ScoresFromMap(deltas))
}

// Totals returns the accumulated totals.
func (a *Aggregator) Totals() domain.Scores {
	return a.totals
}

// Percentage divides totals by per-category maxima, clamped to [0, 100].
// A zero (or negative) maximum yields 0.
func (a *Aggregator) Percentage(maxima domain.Scores) map[domain.ScoreCategory]int {
	return Percentage(a.totals, maxima)
}

// Reset discards the accumulated context and starts a fresh zero one.
func (a *Aggregator) Reset() {
	a.totals = domain.Scores{}
}

// Percentage computes category-wise percentages of totals against maxima.
func Percentage(totals, maxima domain.Scores) map[domain.ScoreCategory]int {
	out := make(map[domain.ScoreCategory]int, len(domain.Categories))
	for _, c := range domain.Categories {
		ceiling := maxima.Get(c)
		if ceiling <= 0 {
			out[c] = 0
			continue
		}
		out[c] = clamp(totals.Get(c)*100/ceiling, 0, 100)
	}
	return out
}

// Bounded clamps every category of s into [lo, hi].
func Bounded(s domain.Scores, lo, hi int) domain.Scores {
	var out domain.Scores
	for _, c := range domain.Categories {
		out.Set(c, clamp(s.Get(c), lo, hi))
	}
	return out
}

const maxInt = int(^uint(0) >> 1)

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
