// Package anthropic provides the Anthropic Claude client implementation for
// the llm.LLMClient interface.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"interview/pkg/llm"
	"interview/pkg/llm/llmerrors"
)

// DefaultModel is used when no model is configured.
const DefaultModel = string(anthropic.ModelClaudeSonnet4_20250514)

// ClaudeClient wraps the Anthropic API client to implement llm.LLMClient.
type ClaudeClient struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewClaudeClient creates a new Claude client wrapper (raw client,
// middleware applied at a higher level).
func NewClaudeClient(apiKey string) llm.LLMClient {
	return NewClaudeClientWithModel(apiKey, DefaultModel)
}

// NewClaudeClientWithModel creates a new Claude client with a specific model.
func NewClaudeClientWithModel(apiKey, model string) llm.LLMClient {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &ClaudeClient{
		client: client,
		model:  anthropic.Model(model),
	}
}

// seedUserTurn opens an assistant-first history so Claude accepts it.
// Interview transcripts always start with the interviewer speaking.
const seedUserTurn = "(The candidate has joined and is listening.)"

// ensureAlternation prepares messages for Anthropic API requirements:
// system messages are extracted to the top-level system parameter,
// consecutive user messages are merged, an assistant-first history is
// seeded with a neutral user turn, and the sequence must end with a
// user message.
func ensureAlternation(messages []llm.CompletionMessage) (systemPrompt string, alternating []llm.CompletionMessage, err error) {
	if len(messages) == 0 {
		return "", nil, fmt.Errorf("message list cannot be empty")
	}

	var systemParts []string
	var merged []llm.CompletionMessage
	var pendingUser []string

	flush := func() {
		if len(pendingUser) > 0 {
			merged = append(merged, llm.CompletionMessage{
				Role:    llm.RoleUser,
				Content: strings.Join(pendingUser, "\n\n"),
			})
			pendingUser = nil
		}
	}

	for i := range messages {
		msg := &messages[i]
		switch msg.Role {
		case llm.RoleSystem:
			systemParts = append(systemParts, msg.Content)
		case llm.RoleAssistant:
			flush()
			merged = append(merged, *msg)
		default:
			pendingUser = append(pendingUser, msg.Content)
		}
	}
	flush()

	systemPrompt = strings.Join(systemParts, "\n\n")

	if len(merged) == 0 {
		return "", nil, fmt.Errorf("must have at least one non-system message")
	}
	if merged[0].Role == llm.RoleAssistant {
		merged = append([]llm.CompletionMessage{{
			Role:    llm.RoleUser,
			Content: seedUserTurn,
		}}, merged...)
	}
	if merged[len(merged)-1].Role != llm.RoleUser {
		return "", nil, fmt.Errorf("last message must be user role, got: %s", merged[len(merged)-1].Role)
	}
	for i := 1; i < len(merged); i++ {
		if merged[i].Role == merged[i-1].Role {
			return "", nil, fmt.Errorf("alternation violation at index %d: consecutive %s messages", i, merged[i].Role)
		}
	}

	return systemPrompt, merged, nil
}

// Complete implements the llm.LLMClient interface.
//
//nolint:gocritic // Passing request by value matches the interface
func (c *ClaudeClient) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	systemPrompt, alternating, err := ensureAlternation(in.Messages)
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, fmt.Sprintf("message alternation error: %v", err))
	}

	messages := make([]anthropic.MessageParam, 0, len(alternating))
	for i := range alternating {
		msg := &alternating[i]
		messages = append(messages, anthropic.MessageParam{
			Role:    anthropic.MessageParamRole(msg.Role),
			Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(msg.Content)},
		})
	}

	params := anthropic.MessageNewParams{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   int64(in.MaxTokens),
		Temperature: anthropic.Float(float64(in.Temperature)),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{
			Text: systemPrompt,
			Type: "text",
		}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return llm.CompletionResponse{}, classifyError(err)
	}

	if resp == nil || len(resp.Content) == 0 {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "received empty or nil response from Claude API")
	}

	var responseText string
	for i := range resp.Content {
		block := &resp.Content[i]
		if block.Type == "text" {
			responseText += block.AsText().Text
		}
	}

	if strings.TrimSpace(responseText) == "" {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "Claude response contained no text content")
	}

	return llm.CompletionResponse{
		Content:    responseText,
		StopReason: string(resp.StopReason),
	}, nil
}

// GetModelName returns the model name for this client.
func (c *ClaudeClient) GetModelName() string {
	return string(c.model)
}

// classifyError maps Anthropic SDK errors to our structured error types.
func classifyError(err error) *llmerrors.Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, "request timeout")
	}
	if errors.Is(err, context.Canceled) {
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, "request canceled")
	}

	return llmerrors.Classify(err)
}
