/*
Package generation wraps a language-model provider with a sliding-window rate
limiter and a TTL-keyed response cache.

A cache hit never consumes rate-limit budget. A miss is checked against the
limiter before the provider is called, so a full window fails fast with
domain.ErrRateLimited without touching the network. Provider failures are
returned as *domain.GenerationError; the raw response text is returned
unparsed.

	client := generation.NewClient(provider,
		generation.WithRateLimit(10, time.Minute),
		generation.WithTTL(time.Hour),
	)
	resp, err := client.Request(ctx, generation.Request{Model: "gpt-4o-mini", Input: prompt})
*/
package generation
