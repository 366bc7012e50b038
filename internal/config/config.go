// Package config loads studio configuration from the environment.
// A .env file in the working directory is read first when present.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Executor backends.
const (
	ExecutorRemote = "remote"
	ExecutorDocker = "docker"
)

// Assistant providers.
const (
	AssistantRemote = "remote"
	AssistantGemini = "gemini"
)

// Snippet stores.
const (
	StoreSQLite    = "sqlite"
	StorePostgREST = "postgrest"
)

// Config holds all studio configuration.
type Config struct {
	Port        int
	DBPath      string
	FrontendURL string
	LogLevel    slog.Level
	LogFormat   string

	BackendURL  string
	CompilerURL string
	HTTPTimeout time.Duration

	Executor  string
	Assistant string
	Store     string

	Gemini    GeminiConfig
	PostgREST PostgRESTConfig
	Auth      AuthConfig
	Docker    DockerConfig

	InlineDebounce    time.Duration
	ChatFallbackDelay time.Duration
	SessionIdle       time.Duration
	MaxSessions       int
}

// GeminiConfig configures the direct assistant provider.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// PostgRESTConfig configures the hosted snippet store.
type PostgRESTConfig struct {
	URL   string
	Key   string
	Table string
}

// AuthConfig configures session tokens and GitHub sign-in.
// An empty JWTSecret disables sign-in entirely.
type AuthConfig struct {
	JWTSecret          string
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
}

// DockerConfig tunes the local sandbox executor.
type DockerConfig struct {
	PoolSize int
	Timeout  time.Duration
}

// Load reads .env (if any) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port := getEnvInt("PORT", 8080)
	cfg := &Config{
		Port:        port,
		DBPath:      getEnv("DB_PATH", "data/studio.db"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		LogLevel:    parseLevel(getEnv("LOG_LEVEL", "info")),
		LogFormat:   strings.ToLower(getEnv("LOG_FORMAT", "text")),

		BackendURL:  strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:5000"), "/"),
		CompilerURL: strings.TrimRight(getEnv("COMPILER_URL", "http://localhost:5432"), "/"),
		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 30*time.Second),

		Executor:  strings.ToLower(getEnv("EXECUTOR", ExecutorRemote)),
		Assistant: strings.ToLower(getEnv("ASSISTANT_PROVIDER", AssistantRemote)),
		Store:     strings.ToLower(getEnv("SNIPPET_STORE", StoreSQLite)),

		Gemini: GeminiConfig{
			APIKey: getEnv("GEMINI_API_KEY", ""),
			Model:  getEnv("GEMINI_MODEL", "gemini-2.5-flash-lite"),
		},
		PostgREST: PostgRESTConfig{
			URL:   strings.TrimRight(getEnv("POSTGREST_URL", ""), "/"),
			Key:   getEnv("POSTGREST_KEY", ""),
			Table: getEnv("POSTGREST_TABLE", "user_codes"),
		},
		Auth: AuthConfig{
			JWTSecret:          getEnv("JWT_SECRET", ""),
			GitHubClientID:     getEnv("GITHUB_CLIENT_ID", ""),
			GitHubClientSecret: getEnv("GITHUB_CLIENT_SECRET", ""),
			GitHubCallbackURL:  getEnv("GITHUB_CALLBACK_URL", fmt.Sprintf("http://localhost:%d/auth/github/callback", port)),
		},
		Docker: DockerConfig{
			PoolSize: getEnvInt("DOCKER_POOL_SIZE", 3),
			Timeout:  getEnvDuration("DOCKER_TIMEOUT", 5*time.Second),
		},

		InlineDebounce:    getEnvDuration("INLINE_DEBOUNCE", 300*time.Millisecond),
		ChatFallbackDelay: getEnvDuration("CHAT_FALLBACK_DELAY", time.Second),
		SessionIdle:       getEnvDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		MaxSessions:       getEnvInt("MAX_SESSIONS", 10000),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks enum values and the settings each backend requires.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	switch c.Executor {
	case ExecutorRemote, ExecutorDocker:
	default:
		return fmt.Errorf("EXECUTOR must be %q or %q", ExecutorRemote, ExecutorDocker)
	}
	switch c.Assistant {
	case AssistantRemote:
	case AssistantGemini:
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when ASSISTANT_PROVIDER=gemini")
		}
	default:
		return fmt.Errorf("ASSISTANT_PROVIDER must be %q or %q", AssistantRemote, AssistantGemini)
	}
	switch c.Store {
	case StoreSQLite:
	case StorePostgREST:
		if c.PostgREST.URL == "" {
			return fmt.Errorf("POSTGREST_URL is required when SNIPPET_STORE=postgrest")
		}
	default:
		return fmt.Errorf("SNIPPET_STORE must be %q or %q", StoreSQLite, StorePostgREST)
	}
	if c.Docker.PoolSize <= 0 {
		return fmt.Errorf("DOCKER_POOL_SIZE must be > 0")
	}
	if c.InlineDebounce < 0 || c.ChatFallbackDelay < 0 {
		return fmt.Errorf("INLINE_DEBOUNCE and CHAT_FALLBACK_DELAY cannot be negative")
	}
	if c.SessionIdle < 0 || c.MaxSessions < 0 {
		return fmt.Errorf("SESSION_IDLE_TIMEOUT and MAX_SESSIONS cannot be negative")
	}
	return nil
}

// AuthEnabled reports whether sign-in routes should be registered.
func (c *Config) AuthEnabled() bool {
	return c.Auth.JWTSecret != ""
}

// IsDevelopment returns true when no production frontend origin is set.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// NewLogger builds the process logger from LogLevel and LogFormat.
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
