package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("EXECUTOR", "remote")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ExecutorRemote, cfg.Executor)
	assert.Equal(t, 300*time.Millisecond, cfg.InlineDebounce)
	assert.Equal(t, "user_codes", cfg.PostgREST.Table)
	assert.Equal(t, "gemini-2.5-flash-lite", cfg.Gemini.Model)
	assert.Equal(t, 30*time.Minute, cfg.SessionIdle)
	assert.Equal(t, 10000, cfg.MaxSessions)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("BACKEND_URL", "http://api.local/")
	t.Setenv("INLINE_DEBOUNCE", "150ms")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "http://api.local", cfg.BackendURL)
	assert.Equal(t, 150*time.Millisecond, cfg.InlineDebounce)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "http://localhost:9090/auth/github/callback", cfg.Auth.GitHubCallbackURL)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:      8080,
			DBPath:    "x.db",
			Executor:  ExecutorRemote,
			Assistant: AssistantRemote,
			Store:     StoreSQLite,
			Docker:    DockerConfig{PoolSize: 1},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"bad executor", func(c *Config) { c.Executor = "wasm" }, true},
		{"gemini without key", func(c *Config) { c.Assistant = AssistantGemini }, true},
		{"gemini with key", func(c *Config) { c.Assistant = AssistantGemini; c.Gemini.APIKey = "k" }, false},
		{"postgrest without url", func(c *Config) { c.Store = StorePostgREST }, true},
		{"zero pool", func(c *Config) { c.Docker.PoolSize = 0 }, true},
		{"port out of range", func(c *Config) { c.Port = 70000 }, true},
		{"negative session cap", func(c *Config) { c.MaxSessions = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIsDevelopment(t *testing.T) {
	assert.True(t, (&Config{}).IsDevelopment())
	assert.True(t, (&Config{FrontendURL: "http://localhost:5173"}).IsDevelopment())
	assert.False(t, (&Config{FrontendURL: "https://studio.example.com"}).IsDevelopment())
}
