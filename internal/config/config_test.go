package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parseFromEnvExample parses a Config from the shipped .env.example template,
// so the documented configuration is guaranteed to boot the binaries.
func parseFromEnvExample(t *testing.T) *Config {
	t.Helper()

	vars, err := godotenv.Read("../../.env.example")
	require.NoError(t, err, "read .env.example")
	for key, value := range vars {
		t.Setenv(key, value)
	}

	cfg := &Config{}
	require.NoError(t, env.Parse(cfg), "parse config from .env.example")
	return cfg
}

func TestConfig_EnvExampleParses(t *testing.T) {
	cfg := parseFromEnvExample(t)

	require.NoError(t, validateConfig(cfg))
	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, "llama3", cfg.OllamaConnectorCfg.Model)
	assert.Equal(t, 4, cfg.ChatCfg.TopK)
}

func TestConfig_RetryDefaultsApply(t *testing.T) {
	cfg := parseFromEnvExample(t)

	assert.Equal(t, uint(3), cfg.OllamaConnectorCfg.Retry.Attempts)
	assert.Equal(t, 100*time.Millisecond, cfg.OllamaConnectorCfg.Retry.Delay)
	assert.Equal(t, 2*time.Second, cfg.OllamaConnectorCfg.Retry.MaxDelay)
	assert.Equal(t, uint(3), cfg.EmbedderConnectorCfg.Retry.Attempts)
	assert.Equal(t, uint(3), cfg.ASRConnectorCfg.Retry.Attempts)
	assert.Equal(t, uint(3), cfg.CallbackConnectorCfg.Retry.Attempts)
}

func TestConfig_RetryOverrideWins(t *testing.T) {
	t.Setenv("OLLAMA_RETRY_ATTEMPTS", "5")
	t.Setenv("OLLAMA_RETRY_MAX_DELAY", "10s")
	cfg := parseFromEnvExample(t)

	assert.Equal(t, uint(5), cfg.OllamaConnectorCfg.Retry.Attempts)
	assert.Equal(t, 10*time.Second, cfg.OllamaConnectorCfg.Retry.MaxDelay)
}
