package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/rapport/internal/logging"
	"github.com/aretw0/rapport/pkg/domain"
	"github.com/aretw0/rapport/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultTimeout bounds every provider call.
const DefaultTimeout = 30 * time.Second

// Request is the set of parameters sent to the provider.
type Request = ports.GenerationRequest

// Response is the raw provider output.
type Response = ports.GenerationResponse

// Usage is the token accounting attached to a Response.
type Usage = ports.Usage

// Client is the GenerationClient: a provider behind a TTL cache and a
// sliding-window rate limiter. One Client is shared by every playthrough of a
// process; it is safe for concurrent use.
type Client struct {
	provider     ports.Provider
	cache        ports.ResponseCache
	limiter      *Limiter
	ttl          time.Duration
	timeout      time.Duration
	defaultModel string
	logger       *slog.Logger
	metrics      *Metrics
	registerer   prometheus.Registerer
	now          func() time.Time
}

// Option defines a functional option for configuring the Client.
type Option func(*Client)

// WithCache replaces the default in-memory cache.
func WithCache(cache ports.ResponseCache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithRateLimit sets the sliding window (default 10 per minute).
func WithRateLimit(limit int, window time.Duration) Option {
	return func(c *Client) {
		c.limiter = NewLimiter(limit, window)
	}
}

// WithLimiter injects a preconfigured limiter (e.g. shared or with a fake clock).
func WithLimiter(l *Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithTTL sets how long responses stay cached (default 1h).
func WithTTL(ttl time.Duration) Option {
	return func(c *Client) {
		c.ttl = ttl
	}
}

// WithTimeout bounds each provider call (default 30s).
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithDefaultModel sets the model used when a request leaves it empty.
func WithDefaultModel(model string) Option {
	return func(c *Client) {
		c.defaultModel = model
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRegisterer registers the client metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Client) {
		c.registerer = reg
	}
}

// WithClock overrides the time source of the limiter and default cache (tests).
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient wraps provider with caching and rate limiting.
func NewClient(provider ports.Provider, opts ...Option) *Client {
	c := &Client{
		provider: provider,
		limiter:  NewLimiter(DefaultRateLimit, DefaultRateWindow),
		ttl:      DefaultTTL,
		timeout:  DefaultTimeout,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.now != nil {
		c.limiter.now = c.now
	} else {
		c.now = time.Now
	}
	if c.cache == nil {
		c.cache = NewMemoryCache(c.ttl, WithCacheClock(c.now))
	}
	c.metrics = NewMetrics(c.registerer)
	return c
}

// Request returns the provider response for req, from cache when possible.
func (c *Client) Request(ctx context.Context, req Request) (Response, error) {
	if req.Model == "" {
		req.Model = c.defaultModel
	}

	key, err := CanonicalKey(req)
	if err != nil {
		return Response{}, err
	}

	cached, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		// A broken cache degrades to a miss rather than failing the request.
		c.logger.Warn("generation cache lookup failed", "model", req.Model, "err", err)
	} else if ok {
		c.metrics.observe(req.Model, OutcomeCacheHit)
		c.logger.Debug("generation cache hit", "model", req.Model, "key", key[:12])
		return cached, nil
	}

	if err := c.limiter.Allow(); err != nil {
		c.metrics.observe(req.Model, OutcomeRateLimited)
		c.logger.Warn("generation rate limited", "model", req.Model, "err", err)
		return Response{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.provider.Generate(callCtx, req)
	elapsed := time.Since(start)
	c.metrics.duration.WithLabelValues(req.Model).Observe(elapsed.Seconds())

	if err != nil {
		c.metrics.observe(req.Model, OutcomeError)
		c.logger.Error("generation failed", "model", req.Model, "duration", elapsed, "err", err)
		var genErr *domain.GenerationError
		if errors.As(err, &genErr) {
			return Response{}, err
		}
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("provider call exceeded %s: %w", c.timeout, err)
		}
		return Response{}, &domain.GenerationError{Model: req.Model, Err: err}
	}

	c.metrics.observe(req.Model, OutcomeSuccess)
	if resp.Usage.TotalTokens > 0 {
		c.metrics.tokens.WithLabelValues(req.Model, "prompt").Add(float64(resp.Usage.PromptTokens))
		c.metrics.tokens.WithLabelValues(req.Model, "completion").Add(float64(resp.Usage.CompletionTokens))
	}
	c.logger.Debug("generation completed", "model", req.Model, "duration", elapsed, "chars", len(resp.Text))

	if err := c.cache.Set(ctx, key, resp, c.ttl); err != nil {
		c.logger.Warn("generation cache store failed", "model", req.Model, "err", err)
	}
	return resp, nil
}

// Limiter exposes the client's rate limiter.
func (c *Client) Limiter() *Limiter {
	return c.limiter
}

// Close releases the cache sweeper when the cache owns one.
func (c *Client) Close() error {
	if closer, ok := c.cache.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
