package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/rapport"
	"github.com/aretw0/rapport/internal/config"
	"github.com/aretw0/rapport/pkg/adapters/file"
	"github.com/aretw0/rapport/pkg/adapters/memory"
	"github.com/aretw0/rapport/pkg/adapters/ollama"
	"github.com/aretw0/rapport/pkg/adapters/openai"
	"github.com/aretw0/rapport/pkg/adapters/process"
	"github.com/aretw0/rapport/pkg/adapters/redis"
	"github.com/aretw0/rapport/pkg/adapters/scripted"
	"github.com/aretw0/rapport/pkg/generation"
	"github.com/aretw0/rapport/pkg/observability"
	"github.com/aretw0/rapport/pkg/persistence/middleware"
	"github.com/aretw0/rapport/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	backend "github.com/redis/go-redis/v9"
)

// defaultOllamaModel is used when RAPPORT_MODEL is empty.
const defaultOllamaModel = "llama3"

func newProvider(c *config.Config) (ports.Provider, error) {
	switch c.Provider {
	case config.ProviderDemo:
		return scripted.NewWithResponder(scripted.Demo()), nil
	case config.ProviderOpenAI:
		opts := []openai.Option{openai.WithLogger(logger)}
		if c.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(c.BaseURL))
		}
		if c.Model != "" {
			opts = append(opts, openai.WithModel(c.Model))
		}
		return openai.New(c.APIKey, opts...), nil
	case config.ProviderOllama:
		model := c.Model
		if model == "" {
			model = defaultOllamaModel
		}
		return ollama.New(c.BaseURL, model, nil, ollama.WithLogger(logger))
	case config.ProviderProcess:
		var (
			cmdCfg process.Config
			err    error
		)
		if c.CommandConfig != "" {
			cmdCfg, err = process.LoadConfig(c.CommandConfig)
		} else {
			cmdCfg, err = process.ParseCommandLine(c.Command)
		}
		if err != nil {
			return nil, err
		}
		return process.FromConfig(cmdCfg, process.WithLogger(logger))
	}
	return nil, fmt.Errorf("unknown provider %q", c.Provider)
}

// backends holds the storage chosen by configuration.
type backends struct {
	store   ports.ResultStore
	cache   ports.ResponseCache
	closers []io.Closer
}

func (b *backends) Close() error {
	var errs []error
	for _, c := range b.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// newBackends picks Redis, a result directory or memory, in that order, and
// wraps the result store with redaction and encryption when configured.
func newBackends(c *config.Config) (*backends, error) {
	var b *backends
	switch {
	case c.RedisAddr != "":
		client := backend.NewClient(&backend.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		logger.Info("using redis storage", "addr", c.RedisAddr)
		b = &backends{
			store:   redis.NewFromClient(client, redis.WithTTL(c.ResultTTL)),
			cache:   redis.NewCache(client),
			closers: []io.Closer{client},
		}
	case c.ResultDir != "":
		logger.Info("using file result store", "dir", c.ResultDir)
		b = &backends{store: file.NewStore(c.ResultDir)}
	default:
		b = &backends{store: memory.NewStore()}
	}

	var mws []middleware.Middleware
	if c.Redact {
		patterns := c.RedactPatterns
		if len(patterns) == 0 {
			patterns = middleware.DefaultPIIPatterns
		}
		redact, err := middleware.NewPIIMiddleware(patterns)
		if err != nil {
			b.Close()
			return nil, err
		}
		mws = append(mws, redact)
	}
	if c.EncryptionKey != "" {
		keys, err := c.EncryptionKeys()
		if err != nil {
			b.Close()
			return nil, err
		}
		encrypt, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    keys[0],
			FallbackKeys: keys[1:],
		})
		if err != nil {
			b.Close()
			return nil, err
		}
		mws = append(mws, encrypt)
	}
	b.store = middleware.Chain(b.store, mws...)
	return b, nil
}

func newGenerationClient(c *config.Config, b *backends, reg prometheus.Registerer) (*generation.Client, error) {
	provider, err := newProvider(c)
	if err != nil {
		return nil, err
	}
	opts := []generation.Option{
		generation.WithRateLimit(c.RateLimit, c.RateWindow),
		generation.WithTTL(c.CacheTTL),
		generation.WithTimeout(c.Timeout),
		generation.WithLogger(logger),
	}
	if c.Model != "" {
		opts = append(opts, generation.WithDefaultModel(c.Model))
	}
	if b.cache != nil {
		opts = append(opts, generation.WithCache(b.cache))
	}
	if reg != nil {
		opts = append(opts, generation.WithRegisterer(reg))
	}
	return rapport.NewGenerationClient(provider, opts...), nil
}

// newEngine builds the engine shared by play, chat and serve. graphPath may
// be empty for purely generated conversations.
func newEngine(c *config.Config, graphPath string, b *backends, reg prometheus.Registerer, withClient bool) (*rapport.Engine, error) {
	opts := []rapport.Option{
		rapport.WithLogger(logger),
		rapport.WithResultStore(b.store),
		rapport.WithLifecycleHooks(observability.DebugHooks(logger)),
	}
	if graphPath != "" {
		opts = append(opts, rapport.WithLoader(file.NewLoader(graphPath)))
	}
	if withClient {
		client, err := newGenerationClient(c, b, reg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, rapport.WithGenerationClient(client))
	}
	return rapport.New(graphPath, opts...)
}

func conversationConfig(c *config.Config) rapport.ConversationConfig {
	return rapport.ConversationConfig{
		Policy: rapport.PhasePolicy{
			IntroductionExchanges: c.IntroductionExchanges,
			MainTopicExchanges:    c.MainTopicExchanges,
		},
		Params: rapport.GenerationParams{
			Model:               c.Model,
			Temperature:         rapport.DefaultGenerationParams.Temperature,
			AnalysisTemperature: rapport.DefaultGenerationParams.AnalysisTemperature,
			MaxTokens:           c.MaxTokens,
		},
		MaxInputSize: c.MaxInputSize,
	}
}
