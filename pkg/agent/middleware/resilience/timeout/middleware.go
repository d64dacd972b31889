// Package timeout provides timeout middleware for LLM clients.
package timeout

import (
	"context"
	"time"

	"hakim/pkg/agent/llm"
)

// Middleware bounds every request by duration. A non-positive duration
// leaves the caller's context untouched.
func Middleware(duration time.Duration) llm.Middleware {
	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				if duration <= 0 {
					return next.Complete(ctx, req)
				}
				timeoutCtx, cancel := context.WithTimeout(ctx, duration)
				defer cancel()

				return next.Complete(timeoutCtx, req)
			},
			next.GetModelName,
		)
	}
}
