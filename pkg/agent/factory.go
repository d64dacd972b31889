// Package agent assembles the model client and its middleware chain from configuration.
package agent

import (
	"fmt"

	"hakim/pkg/agent/internal/llmimpl/google"
	"hakim/pkg/agent/llm"
	"hakim/pkg/agent/middleware/logging"
	"hakim/pkg/agent/middleware/metrics"
	"hakim/pkg/agent/middleware/resilience/retry"
	"hakim/pkg/agent/middleware/resilience/timeout"
	"hakim/pkg/config"
	"hakim/pkg/logx"
)

// LLMClientFactory creates model clients with properly configured middleware chains.
type LLMClientFactory struct {
	config          config.Config
	metricsRecorder metrics.Recorder
	logger          *logx.Logger
}

// NewLLMClientFactory creates a new client factory. A nil recorder disables metrics.
func NewLLMClientFactory(cfg config.Config, recorder metrics.Recorder) *LLMClientFactory {
	if recorder == nil {
		recorder = metrics.Nop()
	}
	return &LLMClientFactory{
		config:          cfg,
		metricsRecorder: recorder,
		logger:          logx.NewLogger("llm"),
	}
}

// CreateClient creates the Gemini client with the full middleware chain.
// The API key is looked up through config.GetAPIKey.
func (f *LLMClientFactory) CreateClient() (llm.LLMClient, error) {
	apiKey, err := config.GetAPIKey()
	if err != nil {
		return nil, fmt.Errorf("failed to get API key: %w", err)
	}

	rawClient := google.NewGeminiClientWithModel(apiKey, f.config.Model.Name)
	return f.Wrap(rawClient), nil
}

// Wrap applies the middleware chain to an existing client.
//
// Metrics -> Logging -> Retry -> Timeout -> RawClient
//
// The timeout bounds each attempt, so a hung call can still be retried once.
func (f *LLMClientFactory) Wrap(rawClient llm.LLMClient) llm.LLMClient {
	retryPolicy := retry.NewPolicy(retry.Config{
		MaxAttempts:   f.config.Model.MaxAttempts,
		InitialDelay:  f.config.Model.InitialDelay,
		MaxDelay:      f.config.Model.MaxDelay,
		BackoffFactor: retry.DefaultConfig.BackoffFactor,
		Jitter:        retry.DefaultConfig.Jitter,
	}, nil)

	return llm.Chain(rawClient,
		metrics.Middleware(f.metricsRecorder, nil, f.logger),
		logging.Middleware(f.logger),
		retry.Middleware(retryPolicy),
		timeout.Middleware(f.config.Model.Timeout),
	)
}
