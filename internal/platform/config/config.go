// Package config loads application configuration from environment variables.
// All variables use the LEARN_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Cache       CacheConfig
	AI          AIConfig
	SearchAPI   SearchAPIConfig
	Transcript  TranscriptConfig
	Auth        AuthConfig
	Budget      BudgetConfig
	Session     SessionConfig
	Certificate CertificateConfig
	Log         LogConfig
	PromptsPath string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int
	Host            string
	PublicURL       string
	AllowedOrigins  []string // WebSocket origin patterns
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL connection settings. An empty URL keeps
// records in memory.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Dragonfly/Redis connection settings. An empty URL keeps
// sessions and budgets in memory.
type CacheConfig struct {
	URL string
}

// AIConfig holds configuration for all AI providers.
type AIConfig struct {
	OpenAI     OpenAIConfig
	DeepSeek   DeepSeekConfig
	OpenRouter OpenRouterConfig
	Ollama     OllamaConfig
	Model      string // overrides the provider default when set
	MaxTokens  int
	Timeout    time.Duration
}

// OpenAIConfig holds OpenAI provider settings.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
}

// DeepSeekConfig holds DeepSeek provider settings (OpenAI-compatible).
type DeepSeekConfig struct {
	APIKey string
}

// OpenRouterConfig holds OpenRouter provider settings.
type OpenRouterConfig struct {
	APIKey string
}

// OllamaConfig holds self-hosted Ollama settings.
type OllamaConfig struct {
	Enabled bool
	URL     string
	Model   string
}

// SearchAPIConfig holds SearchAPI.io settings.
type SearchAPIConfig struct {
	APIKey   string
	BaseURL  string
	Language string
}

// TranscriptConfig holds transcript processing settings.
type TranscriptConfig struct {
	Pace time.Duration // delay between minute buckets
}

// AuthConfig holds bearer token verification settings.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
	Audience  string
}

// BudgetConfig holds generation budget settings.
type BudgetConfig struct {
	DailyTokens int64 // per user; 0 disables the check
}

// SessionConfig holds assessment session settings.
type SessionConfig struct {
	TTL time.Duration
}

// CertificateConfig holds certificate issuing settings.
type CertificateConfig struct {
	SigningKey string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with LEARN_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            envInt("LEARN_SERVER_PORT", 8080),
			Host:            envStr("LEARN_SERVER_HOST", "0.0.0.0"),
			PublicURL:       envStr("LEARN_SERVER_PUBLIC_URL", "http://localhost:8080"),
			AllowedOrigins:  envList("LEARN_SERVER_ALLOWED_ORIGINS"),
			ShutdownTimeout: envDuration("LEARN_SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			URL:      envStr("LEARN_DATABASE_URL", ""),
			MaxConns: envInt("LEARN_DATABASE_MAX_CONNS", 25),
			MinConns: envInt("LEARN_DATABASE_MIN_CONNS", 5),
		},
		Cache: CacheConfig{
			URL: envStr("LEARN_CACHE_URL", ""),
		},
		AI: AIConfig{
			OpenAI: OpenAIConfig{
				APIKey:  envStr("LEARN_AI_OPENAI_API_KEY", ""),
				BaseURL: envStr("LEARN_AI_OPENAI_BASE_URL", ""),
			},
			DeepSeek: DeepSeekConfig{
				APIKey: envStr("LEARN_AI_DEEPSEEK_API_KEY", ""),
			},
			OpenRouter: OpenRouterConfig{
				APIKey: envStr("LEARN_AI_OPENROUTER_API_KEY", ""),
			},
			Ollama: OllamaConfig{
				Enabled: envBool("LEARN_AI_OLLAMA_ENABLED", false),
				URL:     envStr("LEARN_AI_OLLAMA_URL", "http://localhost:11434"),
				Model:   envStr("LEARN_AI_OLLAMA_MODEL", ""),
			},
			Model:     envStr("LEARN_AI_MODEL", ""),
			MaxTokens: envInt("LEARN_AI_MAX_TOKENS", 2048),
			Timeout:   envDuration("LEARN_AI_TIMEOUT", 90*time.Second),
		},
		SearchAPI: SearchAPIConfig{
			APIKey:   envStr("LEARN_SEARCHAPI_API_KEY", ""),
			BaseURL:  envStr("LEARN_SEARCHAPI_BASE_URL", ""),
			Language: envStr("LEARN_SEARCHAPI_LANGUAGE", "en"),
		},
		Transcript: TranscriptConfig{
			Pace: envDuration("LEARN_TRANSCRIPT_PACE", 0),
		},
		Auth: AuthConfig{
			JWTSecret: envStr("LEARN_AUTH_JWT_SECRET", "change-me-in-production"),
			Issuer:    envStr("LEARN_AUTH_ISSUER", ""),
			Audience:  envStr("LEARN_AUTH_AUDIENCE", ""),
		},
		Budget: BudgetConfig{
			DailyTokens: int64(envInt("LEARN_BUDGET_DAILY_TOKENS", 0)),
		},
		Session: SessionConfig{
			TTL: envDuration("LEARN_SESSION_TTL", 2*time.Hour),
		},
		Certificate: CertificateConfig{
			SigningKey: envStr("LEARN_CERTIFICATE_SIGNING_KEY", ""),
		},
		Log: LogConfig{
			Level:  envStr("LEARN_LOG_LEVEL", "info"),
			Format: envStr("LEARN_LOG_FORMAT", "json"),
		},
		PromptsPath: envStr("LEARN_PROMPTS_PATH", ""),
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if !c.HasAIProvider() {
		return fmt.Errorf("at least one AI provider must be configured")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("LEARN_AUTH_JWT_SECRET is required")
	}

	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("LEARN_LOG_FORMAT must be 'json' or 'text', got %q", c.Log.Format)
	}

	if c.Transcript.Pace < 0 {
		return fmt.Errorf("LEARN_TRANSCRIPT_PACE must not be negative")
	}

	return nil
}

// HasAIProvider returns true if at least one AI provider is configured.
func (c *Config) HasAIProvider() bool {
	return c.AI.OpenAI.APIKey != "" ||
		c.AI.DeepSeek.APIKey != "" ||
		c.AI.OpenRouter.APIKey != "" ||
		c.AI.Ollama.Enabled
}

// CertificateKey is the key for certificate verification codes. It falls
// back to the JWT secret so codes are never unkeyed in production.
func (c *Config) CertificateKey() []byte {
	if c.Certificate.SigningKey != "" {
		return []byte(c.Certificate.SigningKey)
	}
	return []byte(c.Auth.JWTSecret)
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}

// envList splits a comma-separated value, dropping empty items.
func envList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// envDuration accepts Go durations ("1.5s") or plain milliseconds ("250").
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}
