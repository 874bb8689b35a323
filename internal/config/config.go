package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderProxy     = "proxy"
)

type Config struct {
	// Server
	Port     string `envconfig:"PORT" default:"8080" validate:"required,numeric"`
	Env      string `envconfig:"ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=trace debug info warn error fatal panic disabled"`

	// Completion source
	Provider     string `envconfig:"CHAT_PROVIDER" default:"openai" validate:"oneof=openai gemini anthropic proxy"`
	Model        string `envconfig:"CHAT_MODEL"`
	SystemPrompt string `envconfig:"SYSTEM_PROMPT" default:"You are a supportive mental coach." validate:"required"`

	// OpenAI
	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1" validate:"required,url"`

	// Gemini AI
	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`

	// Anthropic
	AnthropicAPIKey  string `envconfig:"ANTHROPIC_API_KEY"`
	AnthropicBaseURL string `envconfig:"ANTHROPIC_BASE_URL" validate:"omitempty,url"`

	// Proxy mode backend
	BackendURL string `envconfig:"NEXT_PUBLIC_API_URL" default:"http://localhost:8000" validate:"required,url"`

	// Timeouts
	HandlerTimeout time.Duration `envconfig:"HANDLER_TIMEOUT" default:"10s" validate:"gt=0"`
	ClientTimeout  time.Duration `envconfig:"CLIENT_TIMEOUT" default:"30s" validate:"gt=0"`

	// Frontend
	FrontendURL string `envconfig:"FRONTEND_URL" default:"*"`
}

func Load() (*Config, error) {
	// Load .env file if it exists; real environment values win.
	godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// IsDevelopment reports whether human-readable console logging should be used.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// CredentialEnv names the environment variable holding the active provider's
// API key. Proxy mode has none.
func (c *Config) CredentialEnv() string {
	switch c.Provider {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderGemini:
		return "GEMINI_API_KEY"
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	default:
		return ""
	}
}

// HasCredential reports whether the active provider's API key is set.
func (c *Config) HasCredential() bool {
	switch c.Provider {
	case ProviderOpenAI:
		return c.OpenAIAPIKey != ""
	case ProviderGemini:
		return c.GeminiAPIKey != ""
	case ProviderAnthropic:
		return c.AnthropicAPIKey != ""
	default:
		return true
	}
}
