// Package google provides the Gemini implementation of llm.LLMClient.
package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"google.golang.org/genai"

	"hakim/pkg/agent/llm"
	"hakim/pkg/agent/llmerrors"
)

// bodyStubLen bounds how much of an API error message is kept on the error.
const bodyStubLen = 200

// contentGenerator is the slice of the genai Models service the client uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiClient wraps the Google GenAI client to implement llm.LLMClient interface.
type GeminiClient struct {
	apiKey string
	model  string

	mu        sync.Mutex
	generator contentGenerator
}

// NewGeminiClientWithModel creates a raw Gemini client; middleware is applied by the caller.
func NewGeminiClientWithModel(apiKey, model string) *GeminiClient {
	// The genai client needs a context, so it is created on first use.
	return &GeminiClient{
		apiKey: apiKey,
		model:  model,
	}
}

// newWithGenerator builds a client around an existing generator.
func newWithGenerator(gen contentGenerator, model string) *GeminiClient {
	return &GeminiClient{model: model, generator: gen}
}

func (g *GeminiClient) getGenerator(ctx context.Context) (contentGenerator, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.generator != nil {
		return g.generator, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeAuth, err, fmt.Sprintf("failed to create Gemini client: %v", err))
	}
	g.generator = client.Models
	return g.generator, nil
}

// Complete implements the llm.LLMClient interface.
//
//nolint:gocritic // CompletionRequest size acceptable for interface consistency
func (g *GeminiClient) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	if err := in.Validate(); err != nil {
		return llm.CompletionResponse{}, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeBadPrompt, err, err.Error())
	}

	contents, systemInstruction, err := convertMessagesToGemini(in.Messages)
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeBadPrompt, err, fmt.Sprintf("message conversion error: %v", err))
	}

	config, err := buildConfig(&in, systemInstruction)
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeBadPrompt, err, fmt.Sprintf("config conversion error: %v", err))
	}

	gen, err := g.getGenerator(ctx)
	if err != nil {
		return llm.CompletionResponse{}, err
	}

	result, err := gen.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return llm.CompletionResponse{}, classifyError(err)
	}
	if result == nil {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "nil response from Gemini API")
	}

	if fb := result.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeBadPrompt,
			fmt.Sprintf("prompt blocked: %s %s", fb.BlockReason, fb.BlockReasonMessage))
	}

	stopReason := getStopReason(result)
	if stopReason == string(genai.FinishReasonSafety) || stopReason == string(genai.FinishReasonProhibitedContent) {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, "response withheld: "+stopReason)
	}

	text := result.Text()
	if text == "" {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse,
			fmt.Sprintf("empty text from Gemini (finish reason %s)", stopReason))
	}

	response := llm.CompletionResponse{
		Content:    text,
		StopReason: stopReason,
	}
	if usage := result.UsageMetadata; usage != nil {
		response.Usage = llm.Usage{
			PromptTokens:     int(usage.PromptTokenCount),
			CompletionTokens: int(usage.CandidatesTokenCount) + int(usage.ThoughtsTokenCount),
		}
	}

	return response, nil
}

// GetModelName returns the model name for this client.
func (g *GeminiClient) GetModelName() string {
	return g.model
}

//nolint:gosec // token counts are bounded by config validation
func buildConfig(in *llm.CompletionRequest, systemInstruction string) (*genai.GenerateContentConfig, error) {
	config := &genai.GenerateContentConfig{
		Temperature:      in.Temperature,
		ResponseMIMEType: in.ResponseMIMEType,
	}

	if systemInstruction != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		}
	}

	if in.ResponseSchema != nil {
		schema, err := convertSchema(in.ResponseSchema)
		if err != nil {
			return nil, err
		}
		config.ResponseSchema = schema
	}

	maxTokens := in.MaxTokens
	if in.ThinkingBudget != nil {
		budget := int32(*in.ThinkingBudget)
		config.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: &budget}
		// Thinking tokens are drawn from the output allowance.
		if maxTokens > 0 {
			maxTokens += *in.ThinkingBudget
		}
	}
	if maxTokens > 0 {
		config.MaxOutputTokens = int32(maxTokens)
	}

	return config, nil
}

// convertMessagesToGemini converts our message format to Gemini's Content format.
// System messages are joined into the system instruction; attachments become
// inline data parts following the message text.
func convertMessagesToGemini(messages []llm.CompletionMessage) ([]*genai.Content, string, error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("message list cannot be empty")
	}

	var systemInstruction string
	var contents []*genai.Content

	for i := range messages {
		msg := &messages[i]

		if msg.Role == llm.RoleSystem {
			if systemInstruction != "" {
				systemInstruction += "\n\n" + msg.Content
			} else {
				systemInstruction = msg.Content
			}
			continue
		}

		var role string
		switch msg.Role {
		case llm.RoleUser:
			role = string(genai.RoleUser)
		case llm.RoleAssistant:
			role = string(genai.RoleModel)
		default:
			return nil, "", fmt.Errorf("unsupported message role: %s", msg.Role)
		}

		parts := make([]*genai.Part, 0, 1+len(msg.Attachments))
		if msg.Content != "" {
			parts = append(parts, &genai.Part{Text: msg.Content})
		}
		for j := range msg.Attachments {
			a := &msg.Attachments[j]
			parts = append(parts, &genai.Part{
				InlineData: &genai.Blob{
					MIMEType: a.MIMEType,
					Data:     a.Data,
				},
			})
		}

		if len(parts) > 0 {
			contents = append(contents, &genai.Content{
				Role:  role,
				Parts: parts,
			})
		}
	}

	if len(contents) == 0 {
		return nil, "", fmt.Errorf("no user content after conversion")
	}
	return contents, systemInstruction, nil
}

// classifyError maps a genai error onto the llmerrors taxonomy.
func classifyError(err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("Gemini API call cancelled: %w", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, "Gemini API call timed out")
	}

	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		apiErr = *apiErrPtr
	default:
		var netErr net.Error
		if errors.As(err, &netErr) {
			return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, fmt.Sprintf("Gemini transport error: %v", err))
		}
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeUnknown, err, fmt.Sprintf("Gemini API call failed: %v", err))
	}

	stub := apiErr.Message
	if len(stub) > bodyStubLen {
		stub = stub[:bodyStubLen]
	}
	return &llmerrors.Error{
		Err:        err,
		Type:       llmerrors.TypeForStatus(apiErr.Code),
		StatusCode: apiErr.Code,
		BodyStub:   stub,
		Message:    fmt.Sprintf("Gemini API error %d %s: %s", apiErr.Code, apiErr.Status, stub),
	}
}

// getStopReason extracts the finish reason of the first candidate.
func getStopReason(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0] == nil {
		return "unknown"
	}
	if reason := result.Candidates[0].FinishReason; reason != "" {
		return string(reason)
	}
	return "unknown"
}
