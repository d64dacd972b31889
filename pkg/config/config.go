// Package config holds the runtime configuration for the triage client: model
// selection, request limits, media caps and logging.
package config

import (
	"time"

	"hakim/pkg/logx"
)

// Model defaults.
const (
	DefaultModel          = "gemini-3-flash-preview"
	DefaultTimeout        = 90 * time.Second
	DefaultMaxAttempts    = 2
	DefaultInitialDelay   = 500 * time.Millisecond
	DefaultMaxDelay       = 5 * time.Second
	DefaultThinkingBudget = 8000
	DefaultQuestionCount  = 4
)

// Media defaults.
const (
	DefaultMaxMediaBytes int64 = 20 << 20 // inline payload limit of the model API
)

// Environment variable names.
const (
	EnvGoogleAPIKey = "GOOGLE_GENAI_API_KEY"
	EnvGeminiAPIKey = "GEMINI_API_KEY"
	EnvAPIKey       = "API_KEY"

	EnvModel          = "HAKIM_MODEL"
	EnvTimeout        = "HAKIM_TIMEOUT"
	EnvMaxAttempts    = "HAKIM_MAX_ATTEMPTS"
	EnvThinkingBudget = "HAKIM_THINKING_BUDGET"
	EnvQuestionCount  = "HAKIM_QUESTION_COUNT"
	EnvMaxMediaBytes  = "HAKIM_MAX_MEDIA_BYTES"
)

// Config is the complete client configuration.
type Config struct {
	Model   ModelConfig   `yaml:"model"`
	Gateway GatewayConfig `yaml:"gateway"`
	Media   MediaConfig   `yaml:"media"`
	Logging LoggingConfig `yaml:"logging"`
}

// ModelConfig selects the model and bounds each request to it.
type ModelConfig struct {
	Name         string        `yaml:"name"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	Temperature  *float32      `yaml:"temperature,omitempty"`
	MaxTokens    int           `yaml:"max_output_tokens,omitempty"`
}

// GatewayConfig shapes the two clinical requests.
type GatewayConfig struct {
	QuestionCount  int `yaml:"question_count"`
	ThinkingBudget int `yaml:"thinking_budget"`
}

// MediaConfig limits evidence ingestion.
type MediaConfig struct {
	MaxBytes int64 `yaml:"max_bytes"`
}

// LoggingConfig controls where log lines go.
type LoggingConfig struct {
	Dir          string   `yaml:"dir"`
	Debug        bool     `yaml:"debug"`
	DebugDomains []string `yaml:"debug_domains,omitempty"`
}

//nolint:gochecknoglobals // package logger
var logger *logx.Logger

func getLogger() *logx.Logger {
	if logger == nil {
		logger = logx.NewLogger("config")
	}
	return logger
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}
