package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/joho/godotenv"
)

//nolint:gochecknoglobals // Intentional global state for in-memory secrets storage
var (
	secrets    map[string]string
	secretsMux sync.RWMutex
)

// apiKeyEnvVars is the lookup order for the model API key.
//
//nolint:gochecknoglobals
var apiKeyEnvVars = []string{EnvGoogleAPIKey, EnvGeminiAPIKey, EnvAPIKey}

// LoadDotEnv loads KEY=value pairs from the given files (".env" when none are
// given) into the process environment. Missing files are not an error and
// existing variables are never overwritten.
func LoadDotEnv(filenames ...string) error {
	if len(filenames) == 0 {
		filenames = []string{".env"}
	}
	for _, name := range filenames {
		if err := godotenv.Load(name); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", name, err)
		}
		getLogger().Debug("Loaded environment from %s", name)
	}
	return nil
}

// SetSecrets stores secrets in memory. They take precedence over the
// environment. Pass nil to clear.
func SetSecrets(values map[string]string) {
	secretsMux.Lock()
	defer secretsMux.Unlock()
	secrets = values
}

// GetSecret returns a secret value by name using standard precedence:
// 1. In-memory secrets
// 2. Environment variables.
func GetSecret(name string) (string, error) {
	secretsMux.RLock()
	if secrets != nil {
		if value, exists := secrets[name]; exists && value != "" {
			secretsMux.RUnlock()
			return value, nil
		}
	}
	secretsMux.RUnlock()

	if value := os.Getenv(name); value != "" {
		return value, nil
	}

	return "", fmt.Errorf("secret %s not found in memory or environment", name)
}

// GetAPIKey returns the model API key, trying GOOGLE_GENAI_API_KEY,
// GEMINI_API_KEY and API_KEY in that order.
func GetAPIKey() (string, error) {
	for _, name := range apiKeyEnvVars {
		if key, err := GetSecret(name); err == nil {
			return key, nil
		}
	}
	return "", fmt.Errorf("API key not found: set %s (or %s / %s)", EnvGoogleAPIKey, EnvGeminiAPIKey, EnvAPIKey)
}
