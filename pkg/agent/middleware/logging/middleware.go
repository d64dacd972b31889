// Package logging provides logging middleware for LLM clients.
package logging

import (
	"context"
	"time"

	"hakim/pkg/agent/llm"
	"hakim/pkg/agent/llmerrors"
	"hakim/pkg/logx"
)

// maxLoggedPromptChars bounds prompt text written to debug logs.
const maxLoggedPromptChars = 400

// Middleware logs a summary of every request and, on failure, the error
// classification. Prompt text only appears under DEBUG for the "llm" domain
// and is sanitized first.
func Middleware(logger *logx.Logger) llm.Middleware {
	if logger == nil {
		logger = logx.NewLogger("llm-middleware")
	}

	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				logRequest(ctx, req)

				start := time.Now()
				resp, err := next.Complete(ctx, req)
				elapsed := time.Since(start)

				switch {
				case err == nil:
					logx.Debug(ctx, "llm", "%s completed in %dms (%d chars, stop=%s)",
						req.Operation, elapsed.Milliseconds(), len(resp.Content), resp.StopReason)
				case llmerrors.Is(err, llmerrors.ErrorTypeEmptyResponse):
					logger.Error("🚨 Empty response for %s after %dms", req.Operation, elapsed.Milliseconds())
					logEmptyResponseDebugInfo(logger, req)
				default:
					logger.Warn("%s failed after %dms [%s]: %v",
						req.Operation, elapsed.Milliseconds(), llmerrors.TypeOf(err), err)
				}

				return resp, err //nolint:wrapcheck // Middleware intentionally passes through errors unchanged
			},
			next.GetModelName,
		)
	}
}

//nolint:gocritic // value receiver keeps the request immutable
func logRequest(ctx context.Context, req llm.CompletionRequest) {
	if !logx.IsDebugEnabledForDomain("llm") {
		return
	}
	schema := "none"
	if req.ResponseSchema != nil {
		schema = req.ResponseSchema.Type
	}
	budget := -1
	if req.ThinkingBudget != nil {
		budget = *req.ThinkingBudget
	}
	logx.Debug(ctx, "llm", "%s: messages=%d media=%d mime=%q schema=%s thinking=%d",
		req.Operation, len(req.Messages), req.AttachmentCount(), req.ResponseMIMEType, schema, budget)
	for i := range req.Messages {
		msg := &req.Messages[i]
		logx.Debug(ctx, "llm", "  [%d] %s: %s", i, msg.Role, llmerrors.SanitizePrompt(msg.Content, maxLoggedPromptChars))
	}
}

//nolint:gocritic // value receiver keeps the request immutable
func logEmptyResponseDebugInfo(logger *logx.Logger, req llm.CompletionRequest) {
	logger.Error("🔍 Request Details:")
	logger.Error("  - Messages: %d", len(req.Messages))
	logger.Error("  - Inline media: %d", req.AttachmentCount())
	logger.Error("  - Response MIME: %q", req.ResponseMIMEType)
	logger.Error("  - Max Tokens: %d", req.MaxTokens)
	if req.ThinkingBudget != nil {
		logger.Error("  - Thinking budget: %d", *req.ThinkingBudget)
	}
	for i := range req.Messages {
		msg := &req.Messages[i]
		logger.Error("Message [%d] Role: %s, Content: %s", i, msg.Role, llmerrors.SanitizePrompt(msg.Content, maxLoggedPromptChars))
	}
}
