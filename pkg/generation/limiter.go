package generation

import (
	"sync"
	"time"

	"github.com/aretw0/rapport/pkg/domain"
)

const (
	DefaultRateLimit  = 10
	DefaultRateWindow = time.Minute
)

// Limiter is a sliding-window rate limiter: at most limit requests in any
// trailing window. Safe for concurrent use.
type Limiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	stamps []time.Time // RateWindow, oldest first
	now    func() time.Time
}

// NewLimiter creates a limiter. A non-positive limit disables limiting.
func NewLimiter(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Allow prunes the window and records a new request, or returns a
// *domain.RateLimitError when the window is already full. The prune, check
// and insert happen under one lock.
func (l *Limiter) Allow() error {
	if l.limit <= 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	if len(l.stamps) >= l.limit {
		return &domain.RateLimitError{
			Limit:      l.limit,
			Window:     l.window,
			RetryAfter: l.stamps[0].Add(l.window).Sub(now),
		}
	}

	l.stamps = append(l.stamps, now)
	return nil
}

// InFlight returns the number of requests inside the current window.
func (l *Limiter) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(l.now())
	return len(l.stamps)
}

// prune drops timestamps that are at least one window old.
func (l *Limiter) prune(now time.Time) {
	i := 0
	for i < len(l.stamps) && now.Sub(l.stamps[i]) >= l.window {
		i++
	}
	if i > 0 {
		l.stamps = append(l.stamps[:0], l.stamps[i:]...)
	}
}
