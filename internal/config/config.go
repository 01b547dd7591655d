// Package config loads process settings from RAPPORT_* environment variables.
package config

import (
	"encoding/base64"
	"fmt"
	"slices"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Prefix is prepended to every variable name.
const Prefix = "RAPPORT"

// Provider names accepted in RAPPORT_PROVIDER.
const (
	ProviderDemo    = "demo"
	ProviderOpenAI  = "openai"
	ProviderOllama  = "ollama"
	ProviderProcess = "process"
)

var providers = []string{ProviderDemo, ProviderOpenAI, ProviderOllama, ProviderProcess}

// Config holds the process configuration. Flags override it in the CLI.
type Config struct {
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	LogJSON  bool   `envconfig:"LOG_JSON" default:"false"`

	// Server
	Addr        string        `envconfig:"ADDR" default:":8080"`
	SessionIdle time.Duration `envconfig:"SESSION_IDLE" default:"30m"`

	// Generation
	Provider string `envconfig:"PROVIDER" default:"demo"`
	Model    string `envconfig:"MODEL"`
	BaseURL  string `envconfig:"BASE_URL"`
	APIKey   string `envconfig:"API_KEY"`
	// Command line or YAML/JSON command file for the process provider.
	Command       string        `envconfig:"COMMAND"`
	CommandConfig string        `envconfig:"COMMAND_CONFIG"`
	RateLimit     int           `envconfig:"RATE_LIMIT" default:"10"`
	RateWindow    time.Duration `envconfig:"RATE_WINDOW" default:"1m"`
	CacheTTL      time.Duration `envconfig:"CACHE_TTL" default:"1h"`
	Timeout       time.Duration `envconfig:"TIMEOUT" default:"30s"`
	MaxTokens     int           `envconfig:"MAX_TOKENS" default:"600"`
	MaxInputSize  int           `envconfig:"MAX_INPUT_SIZE" default:"4096"`

	// Phase fallback thresholds. Zero disables one transition; both zero
	// means the library defaults.
	IntroductionExchanges int `envconfig:"INTRODUCTION_EXCHANGES" default:"3"`
	MainTopicExchanges    int `envconfig:"MAIN_TOPIC_EXCHANGES" default:"3"`

	// Storage. Results go to Redis when RedisAddr is set, else to ResultDir
	// when set, else stay in memory.
	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	ResultTTL     time.Duration `envconfig:"RESULT_TTL" default:"0s"`
	ResultDir     string        `envconfig:"RESULT_DIR"`

	// Result protection. Keys are base64 encoded 32 byte AES keys.
	Redact             bool     `envconfig:"REDACT" default:"false"`
	RedactPatterns     []string `envconfig:"REDACT_PATTERNS"`
	EncryptionKey      string   `envconfig:"ENCRYPTION_KEY"`
	EncryptionFallback []string `envconfig:"ENCRYPTION_FALLBACK_KEYS"`
}

// Load reads the environment and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case !slices.Contains(providers, c.Provider):
		return fmt.Errorf("config: unknown provider %q (want one of %v)", c.Provider, providers)
	case c.Provider == ProviderOpenAI && c.APIKey == "" && c.BaseURL == "":
		return fmt.Errorf("config: %s_API_KEY is required for the openai provider", Prefix)
	case c.Provider == ProviderProcess && c.Command == "" && c.CommandConfig == "":
		return fmt.Errorf("config: %s_COMMAND or %s_COMMAND_CONFIG is required for the process provider", Prefix, Prefix)
	case c.RateLimit <= 0 || c.RateWindow <= 0:
		return fmt.Errorf("config: rate limit and window must be positive")
	case c.Timeout <= 0:
		return fmt.Errorf("config: timeout must be positive")
	case c.MaxInputSize <= 0:
		return fmt.Errorf("config: max input size must be positive")
	case c.IntroductionExchanges < 0 || c.MainTopicExchanges < 0:
		return fmt.Errorf("config: exchange thresholds cannot be negative")
	}
	if c.EncryptionKey != "" {
		if _, err := c.EncryptionKeys(); err != nil {
			return err
		}
	}
	return nil
}

// EncryptionKeys decodes the active key followed by the fallback keys.
func (c *Config) EncryptionKeys() ([][]byte, error) {
	encoded := append([]string{c.EncryptionKey}, c.EncryptionFallback...)
	keys := make([][]byte, 0, len(encoded))
	for _, e := range encoded {
		k, err := base64.StdEncoding.DecodeString(e)
		if err != nil {
			return nil, fmt.Errorf("config: invalid encryption key: %w", err)
		}
		if len(k) != 32 {
			return nil, fmt.Errorf("config: encryption keys must decode to 32 bytes, got %d", len(k))
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// Usage prints the supported variables with their defaults.
func Usage() error {
	return envconfig.Usage(Prefix, &Config{})
}
