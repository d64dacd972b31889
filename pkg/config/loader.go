package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads a YAML config file, applies defaults, then environment
// overrides, and validates the result. An empty path yields the defaults with
// environment overrides applied.
func LoadConfig(configPath string) (*Config, error) {
	var cfg Config

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
		getLogger().Debug("Loaded config from %s", configPath)
	}

	applyDefaults(&cfg)

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for missing configuration.
func applyDefaults(cfg *Config) {
	if cfg.Model.Name == "" {
		cfg.Model.Name = DefaultModel
	}
	if cfg.Model.Timeout == 0 {
		cfg.Model.Timeout = DefaultTimeout
	}
	if cfg.Model.MaxAttempts == 0 {
		cfg.Model.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Model.InitialDelay == 0 {
		cfg.Model.InitialDelay = DefaultInitialDelay
	}
	if cfg.Model.MaxDelay == 0 {
		cfg.Model.MaxDelay = DefaultMaxDelay
	}

	if cfg.Gateway.QuestionCount == 0 {
		cfg.Gateway.QuestionCount = DefaultQuestionCount
	}
	if cfg.Gateway.ThinkingBudget == 0 {
		cfg.Gateway.ThinkingBudget = DefaultThinkingBudget
	}

	if cfg.Media.MaxBytes == 0 {
		cfg.Media.MaxBytes = DefaultMaxMediaBytes
	}
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv(EnvModel); v != "" {
		cfg.Model.Name = strings.TrimSpace(v)
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		cfg.Model.Timeout = d
	}
	if v := os.Getenv(EnvMaxAttempts); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxAttempts, err)
		}
		cfg.Model.MaxAttempts = n
	}
	if v := os.Getenv(EnvThinkingBudget); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvThinkingBudget, err)
		}
		cfg.Gateway.ThinkingBudget = n
	}
	if v := os.Getenv(EnvQuestionCount); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvQuestionCount, err)
		}
		cfg.Gateway.QuestionCount = n
	}
	if v := os.Getenv(EnvMaxMediaBytes); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxMediaBytes, err)
		}
		cfg.Media.MaxBytes = n
	}
	return nil
}

func validateConfig(cfg *Config) error {
	if strings.TrimSpace(cfg.Model.Name) == "" {
		return fmt.Errorf("model name is required")
	}
	if cfg.Model.Timeout <= 0 {
		return fmt.Errorf("model timeout must be positive, got %s", cfg.Model.Timeout)
	}
	if cfg.Model.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", cfg.Model.MaxAttempts)
	}
	if cfg.Model.MaxDelay < cfg.Model.InitialDelay {
		return fmt.Errorf("max_delay (%s) must not be less than initial_delay (%s)", cfg.Model.MaxDelay, cfg.Model.InitialDelay)
	}
	if t := cfg.Model.Temperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("temperature must be within [0, 2], got %v", *t)
	}
	if cfg.Gateway.QuestionCount < 1 || cfg.Gateway.QuestionCount > 10 {
		return fmt.Errorf("question_count must be within [1, 10], got %d", cfg.Gateway.QuestionCount)
	}
	if cfg.Gateway.ThinkingBudget < 0 {
		return fmt.Errorf("thinking_budget must not be negative, got %d", cfg.Gateway.ThinkingBudget)
	}
	if cfg.Media.MaxBytes <= 0 {
		return fmt.Errorf("media max_bytes must be positive, got %d", cfg.Media.MaxBytes)
	}
	return nil
}
