// Package llm provides interfaces and types for Large Language Model client
// implementations used by the interview engine.
package llm

import (
	"context"
	"fmt"
)

// CompletionRole represents the role of a message in a conversation.
type CompletionRole string

const (
	// RoleSystem indicates a system message that provides instructions or context.
	RoleSystem CompletionRole = "system"
	// RoleUser indicates a message from the human candidate.
	RoleUser CompletionRole = "user"
	// RoleAssistant indicates a message from the AI interviewer.
	RoleAssistant CompletionRole = "assistant"
)

const (
	// TemperatureInterview is the default temperature for conversational
	// interviewer turns. Allows some variation between sessions.
	TemperatureInterview = 0.7

	// TemperatureEvaluation is the temperature for answer scoring and
	// feedback synthesis, where consistency matters more than variety.
	TemperatureEvaluation = 0.2
)

// CompletionMessage represents a message in a completion request.
type CompletionMessage struct {
	Content string
	Role    CompletionRole
}

// CompletionRequest represents a request to generate a completion.
type CompletionRequest struct {
	Messages    []CompletionMessage
	MaxTokens   int
	Temperature float32
}

// CompletionResponse represents a response from a completion request.
// Callers always receive a complete utterance; partial or streamed
// fragments never cross this boundary.
type CompletionResponse struct {
	Content    string // Main response text
	StopReason string // Why the response stopped: "end_turn", "max_tokens", etc.
}

// LLMClient defines the interface for language model interactions.
type LLMClient interface { //nolint:revive // Name matches project convention
	// Complete generates a completion synchronously.
	Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error)

	// GetModelName returns the model name for this LLM client.
	GetModelName() string
}

// NewCompletionRequest creates a new completion request with default values.
func NewCompletionRequest(messages []CompletionMessage) CompletionRequest {
	return CompletionRequest{
		Messages:    messages,
		MaxTokens:   1024, // Interviewer utterances are short
		Temperature: TemperatureInterview,
	}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) CompletionMessage {
	return CompletionMessage{
		Role:    RoleSystem,
		Content: content,
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) CompletionMessage {
	return CompletionMessage{
		Role:    RoleUser,
		Content: content,
	}
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) CompletionMessage {
	return CompletionMessage{
		Role:    RoleAssistant,
		Content: content,
	}
}

// LLMConfig represents configuration for an LLM client.
type LLMConfig struct { //nolint:revive // Name matches project convention
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
}

// Validate validates the LLM configuration.
func (c *LLMConfig) Validate() error {
	if c.ModelName == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive")
	}
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("temperature must be between 0.0 and 2.0")
	}
	return nil
}
