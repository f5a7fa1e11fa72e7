package mocks

import (
	"context"
	"sync"

	"interview/pkg/llm"
)

// MockLLMClient implements llm.LLMClient for testing.
// It provides configurable behavior for the Complete operation.
//
//nolint:govet // fieldalignment: mock struct layout optimized for readability
type MockLLMClient struct {
	// CompleteFunc is called when Complete is invoked. Override to customize behavior.
	CompleteFunc func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error)

	// CompleteCalls tracks all calls to Complete for verification.
	CompleteCalls []llm.CompletionRequest

	// modelName is the model name returned by GetModelName.
	modelName string

	// mu protects call tracking
	mu sync.Mutex
}

// NewMockLLMClient creates a new mock LLM client with default behavior.
// Default behavior: Complete returns a canned interviewer line.
func NewMockLLMClient() *MockLLMClient {
	m := &MockLLMClient{
		modelName: "mock-model",
	}
	m.CompleteFunc = func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		return llm.CompletionResponse{
			Content:    "Mock interviewer response",
			StopReason: "end_turn",
		}, nil
	}
	return m
}

// Complete implements llm.LLMClient.
func (m *MockLLMClient) Complete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	m.mu.Lock()
	m.CompleteCalls = append(m.CompleteCalls, req)
	m.mu.Unlock()
	return m.CompleteFunc(ctx, req)
}

// GetModelName implements llm.LLMClient.
func (m *MockLLMClient) GetModelName() string {
	return m.modelName
}

// CallCount returns the number of Complete calls made so far.
func (m *MockLLMClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.CompleteCalls)
}

// OnComplete replaces the Complete behavior.
func (m *MockLLMClient) OnComplete(fn func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error)) {
	m.CompleteFunc = fn
}

// SetModelName sets the model name returned by GetModelName.
func (m *MockLLMClient) SetModelName(name string) {
	m.modelName = name
}
