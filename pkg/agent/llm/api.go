// Package llm provides the provider-neutral model client interface, the
// multimodal request types and middleware chaining.
package llm

import (
	"context"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

// CompletionRole represents the role of a message in a conversation.
type CompletionRole string

const (
	// RoleSystem carries standing instructions for the model.
	RoleSystem CompletionRole = "system"
	// RoleUser indicates a message from the patient side of the client.
	RoleUser CompletionRole = "user"
	// RoleAssistant indicates a message produced by the model.
	RoleAssistant CompletionRole = "assistant"
)

// MIMETypeJSON asks the model for a JSON document instead of prose.
const MIMETypeJSON = "application/json"

// DefaultMaxTokens caps output when a request does not say otherwise.
const DefaultMaxTokens = 8192

// Attachment is an inline binary part sent alongside a message.
type Attachment struct {
	MIMEType string
	Data     []byte
}

// CompletionMessage represents a message in a completion request.
type CompletionMessage struct {
	Role        CompletionRole
	Content     string
	Attachments []Attachment
}

// CompletionRequest represents a request to generate a completion.
//
// ResponseSchema, when set, constrains the output to a JSON document of that
// shape; ResponseMIMEType must then be MIMETypeJSON.
type CompletionRequest struct {
	Messages         []CompletionMessage
	ResponseSchema   *openapi3.Schema
	ResponseMIMEType string
	ThinkingBudget   *int
	Temperature      *float32
	MaxTokens        int
	Operation        string // label for logs and metrics
}

// Usage reports token accounting for one completion.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	Estimated        bool // counts were computed locally, not reported by the provider
}

// CompletionResponse represents a response from a completion request.
type CompletionResponse struct {
	Content    string
	StopReason string
	Usage      Usage
}

// LLMClient defines the interface for language model interactions.
type LLMClient interface { //nolint:revive // name kept across middleware packages
	// Complete generates a completion synchronously.
	Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error)

	// GetModelName returns the model name for this LLM client.
	GetModelName() string
}

// NewCompletionRequest creates a new completion request with default values.
func NewCompletionRequest(messages []CompletionMessage) CompletionRequest {
	return CompletionRequest{
		Messages:  messages,
		MaxTokens: DefaultMaxTokens,
	}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) CompletionMessage {
	return CompletionMessage{
		Role:    RoleSystem,
		Content: content,
	}
}

// NewUserMessage creates a new user message with optional inline attachments.
func NewUserMessage(content string, attachments ...Attachment) CompletionMessage {
	return CompletionMessage{
		Role:        RoleUser,
		Content:     content,
		Attachments: attachments,
	}
}

// WithJSONSchema returns a copy of the request constrained to schema.
func (r CompletionRequest) WithJSONSchema(schema *openapi3.Schema) CompletionRequest {
	r.ResponseMIMEType = MIMETypeJSON
	r.ResponseSchema = schema
	return r
}

// WithThinkingBudget returns a copy of the request with a reasoning token budget.
func (r CompletionRequest) WithThinkingBudget(tokens int) CompletionRequest {
	r.ThinkingBudget = &tokens
	return r
}

// Validate checks the request before it reaches a provider.
func (r CompletionRequest) Validate() error {
	if len(r.Messages) == 0 {
		return fmt.Errorf("request has no messages")
	}
	hasUser := false
	for i := range r.Messages {
		m := &r.Messages[i]
		if m.Role == RoleUser {
			hasUser = true
		}
		if m.Role == RoleSystem && len(m.Attachments) > 0 {
			return fmt.Errorf("message %d: system messages cannot carry attachments", i)
		}
		for j, a := range m.Attachments {
			if a.MIMEType == "" {
				return fmt.Errorf("message %d attachment %d: mime type is required", i, j)
			}
			if len(a.Data) == 0 {
				return fmt.Errorf("message %d attachment %d: empty payload", i, j)
			}
		}
	}
	if !hasUser {
		return fmt.Errorf("request has no user message")
	}
	if r.ResponseSchema != nil && r.ResponseMIMEType != MIMETypeJSON {
		return fmt.Errorf("response schema requires mime type %s, got %q", MIMETypeJSON, r.ResponseMIMEType)
	}
	if r.ThinkingBudget != nil && *r.ThinkingBudget < 0 {
		return fmt.Errorf("thinking budget must not be negative")
	}
	if r.MaxTokens < 0 {
		return fmt.Errorf("max tokens must not be negative")
	}
	return nil
}

// AttachmentCount returns the number of inline parts across all messages.
func (r CompletionRequest) AttachmentCount() int {
	n := 0
	for i := range r.Messages {
		n += len(r.Messages[i].Attachments)
	}
	return n
}
