package retry

import (
	"context"
	"fmt"
	"time"

	"hakim/pkg/agent/llm"
	"hakim/pkg/agent/llmerrors"
	"hakim/pkg/logx"
)

// Middleware returns a middleware function that wraps an LLM client with retry logic.
// Failed requests are retried according to the policy with exponential backoff.
// When a retryable error survives every attempt the result is a ServiceUnavailable error.
func Middleware(policy *Policy) llm.Middleware {
	logger := logx.NewLogger("retry")

	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				var lastErr error

				for attempt := 1; attempt <= policy.Config.MaxAttempts; attempt++ {
					if attempt > 1 {
						delay := policy.CalculateDelay(attempt)
						logger.Warn("Retrying %s (attempt %d/%d) in %s after: %v",
							req.Operation, attempt, policy.Config.MaxAttempts, delay, lastErr)
						if delay > 0 {
							select {
							case <-ctx.Done():
								return llm.CompletionResponse{}, fmt.Errorf("retry cancelled: %w", ctx.Err())
							case <-time.After(delay):
							}
						} else if ctx.Err() != nil {
							return llm.CompletionResponse{}, fmt.Errorf("retry cancelled: %w", ctx.Err())
						}
					}

					resp, err := next.Complete(ctx, req)
					if err == nil {
						return resp, nil
					}

					lastErr = err

					if !policy.ShouldRetry(err) {
						return llm.CompletionResponse{}, err
					}
				}

				return llm.CompletionResponse{}, llmerrors.NewServiceUnavailableError(lastErr, policy.Config.MaxAttempts)
			},
			next.GetModelName,
		)
	}
}
