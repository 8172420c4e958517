package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	for _, key := range []string{
		"PORT", "MAX_RATE", "PAYOUT_MONTHS", "MAX_PAYOFF_MONTHS",
		"MAX_RETIREMENT_AGE", "CACHE_MAX_ENTRIES", "CACHE_SWEEP_CRON", "TRUST_PROXY",
	} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, 100.0, cfg.MaxRate)
	assert.Equal(t, 300, cfg.PayoutMonths)
	assert.Equal(t, 600, cfg.MaxPayoffMonths)
	assert.Equal(t, 100, cfg.MaxRetirementAge)
	assert.Equal(t, 1000, cfg.CacheMaxEntries)
	assert.Equal(t, "@every 5m", cfg.CacheSweepCron)
	assert.False(t, cfg.TrustProxy)
	assert.Equal(t, "none", cfg.LLMProvider)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_FileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("port: 8080\nmax_years: 40\nllm_timeout: 5s\nsession_sweep_cron: \"@every 1m\"\ncache_max_entries: 50\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("MAX_YEARS", "35")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("PORT", "")
	t.Setenv("LLM_TIMEOUT", "")
	t.Setenv("SESSION_SWEEP_CRON", "")
	t.Setenv("MAX_RETIREMENT_AGE", "75")
	t.Setenv("TRUST_PROXY", "true")
	t.Setenv("CACHE_MAX_ENTRIES", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 35, cfg.MaxYears)
	assert.Equal(t, 5*time.Second, cfg.LLMTimeout)
	assert.Equal(t, "@every 1m", cfg.SessionSweepCron)
	assert.Equal(t, 50, cfg.CacheMaxEntries)
	assert.Equal(t, 75, cfg.MaxRetirementAge)
	assert.True(t, cfg.TrustProxy)
	assert.Equal(t, "openai", cfg.LLMProvider)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "bad port", mutate: func(c *Config) { c.Port = 0 }},
		{name: "rate over 100", mutate: func(c *Config) { c.MaxRate = 150 }},
		{name: "inverted ages", mutate: func(c *Config) { c.MinAge = 80; c.MaxAge = 18 }},
		{name: "openai without key", mutate: func(c *Config) { c.LLMProvider = "openai" }},
		{name: "gemini without key", mutate: func(c *Config) { c.LLMProvider = "gemini" }},
		{name: "retirement age below min age", mutate: func(c *Config) { c.MaxRetirementAge = 18 }},
		{name: "zero cache capacity", mutate: func(c *Config) { c.CacheMaxEntries = 0 }},
		{name: "unknown provider", mutate: func(c *Config) { c.LLMProvider = "oracle" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			cfg.LLMProvider = "none"
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
