package config_test

import (
	"bytes"
	"encoding/base64"
	"testing"
	"time"

	"github.com/aretw0/rapport/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, config.ProviderDemo, cfg.Provider)
	assert.Equal(t, 10, cfg.RateLimit)
	assert.Equal(t, time.Minute, cfg.RateWindow)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 4096, cfg.MaxInputSize)
	assert.Equal(t, 3, cfg.IntroductionExchanges)
	assert.Equal(t, 3, cfg.MainTopicExchanges)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("RAPPORT_PROVIDER", "ollama")
	t.Setenv("RAPPORT_MODEL", "llama3")
	t.Setenv("RAPPORT_RATE_WINDOW", "30s")
	t.Setenv("RAPPORT_MAIN_TOPIC_EXCHANGES", "0")
	t.Setenv("RAPPORT_REDIS_ADDR", "localhost:6379")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.Provider)
	assert.Equal(t, "llama3", cfg.Model)
	assert.Equal(t, 30*time.Second, cfg.RateWindow)
	assert.Equal(t, 0, cfg.MainTopicExchanges)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown provider", "RAPPORT_PROVIDER", "gpt-as-a-service"},
		{"openai without key", "RAPPORT_PROVIDER", "openai"},
		{"zero rate limit", "RAPPORT_RATE_LIMIT", "0"},
		{"negative threshold", "RAPPORT_INTRODUCTION_EXCHANGES", "-1"},
		{"unparsable duration", "RAPPORT_TIMEOUT", "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}

func TestEncryptionKeys(t *testing.T) {
	active := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{1}, 32))
	old := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{2}, 32))
	t.Setenv("RAPPORT_ENCRYPTION_KEY", active)
	t.Setenv("RAPPORT_ENCRYPTION_FALLBACK_KEYS", old)

	cfg, err := config.Load()
	require.NoError(t, err)

	keys, err := cfg.EncryptionKeys()
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, byte(1), keys[0][0])
	assert.Equal(t, byte(2), keys[1][0])
}

func TestLoad_InvalidEncryptionKey(t *testing.T) {
	t.Setenv("RAPPORT_ENCRYPTION_KEY", base64.StdEncoding.EncodeToString([]byte("too short")))
	_, err := config.Load()
	assert.ErrorContains(t, err, "32 bytes")
}
