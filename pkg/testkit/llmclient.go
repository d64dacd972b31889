// Package testkit provides a controllable model client for tests.
package testkit

import (
	"context"
	"fmt"
	"sync"

	"hakim/pkg/agent/llm"
)

// MockLLMClient answers requests from predefined responses. Responses set
// for an operation with OnOperation take precedence over the queue; errors
// queued with FailNext are returned first.
type MockLLMClient struct {
	mu          sync.Mutex
	model       string
	responses   []llm.CompletionResponse
	byOperation map[string]llm.CompletionResponse
	errors      []error
	requests    []llm.CompletionRequest
}

// NewMockLLMClient creates a mock client with predefined responses.
func NewMockLLMClient(responses ...llm.CompletionResponse) *MockLLMClient {
	return &MockLLMClient{
		model:       "mock-model",
		responses:   responses,
		byOperation: make(map[string]llm.CompletionResponse),
	}
}

// WithModel sets the name returned by GetModelName.
func (m *MockLLMClient) WithModel(name string) *MockLLMClient {
	m.model = name
	return m
}

// OnOperation always answers requests labelled op with content.
func (m *MockLLMClient) OnOperation(op, content string) *MockLLMClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byOperation[op] = llm.CompletionResponse{Content: content, StopReason: "stop"}
	return m
}

// FailNext queues errors returned by the next calls, in order.
func (m *MockLLMClient) FailNext(errs ...error) *MockLLMClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, errs...)
	return m
}

// Complete returns the next queued error or the matching response.
func (m *MockLLMClient) Complete(_ context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)

	if len(m.errors) > 0 {
		err := m.errors[0]
		m.errors = m.errors[1:]
		return llm.CompletionResponse{}, err
	}

	if resp, ok := m.byOperation[req.Operation]; ok {
		return resp, nil
	}

	if len(m.responses) == 0 {
		return llm.CompletionResponse{}, fmt.Errorf("mock client: no response for operation %q", req.Operation)
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, nil
}

// GetModelName returns the configured model name.
func (m *MockLLMClient) GetModelName() string {
	return m.model
}

// Requests returns every request received so far.
func (m *MockLLMClient) Requests() []llm.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.CompletionRequest(nil), m.requests...)
}

// Operations returns the operation label of every request, in order.
func (m *MockLLMClient) Operations() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ops := make([]string, 0, len(m.requests))
	for i := range m.requests {
		ops = append(ops, m.requests[i].Operation)
	}
	return ops
}

// LastRequest returns the most recent request.
func (m *MockLLMClient) LastRequest() (llm.CompletionRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return llm.CompletionRequest{}, false
	}
	return m.requests[len(m.requests)-1], true
}
