// Package openai provides the OpenAI client implementation using the
// official OpenAI Go package.
package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"interview/pkg/llm"
	"interview/pkg/llm/llmerrors"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o"

// Client wraps the official OpenAI Go client to implement llm.LLMClient.
type Client struct {
	client openai.Client
	model  string
}

// NewClient creates a new OpenAI client (raw client, middleware applied at a
// higher level).
func NewClient(apiKey string) llm.LLMClient {
	return NewClientWithModel(apiKey, DefaultModel)
}

// NewClientWithModel creates a new OpenAI client with a specific model.
func NewClientWithModel(apiKey, model string) llm.LLMClient {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Client{
		client: client,
		model:  model,
	}
}

// Complete implements the llm.LLMClient interface using the Responses API.
//
//nolint:gocritic // Passing request by value matches the interface
func (o *Client) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	// Combine messages into a single input string for the responses API.
	var input strings.Builder
	for i := range in.Messages {
		msg := &in.Messages[i]
		switch msg.Role {
		case llm.RoleSystem:
			fmt.Fprintf(&input, "System: %s\n\n", msg.Content)
		case llm.RoleAssistant:
			fmt.Fprintf(&input, "Assistant: %s\n\n", msg.Content)
		default:
			input.WriteString(msg.Content)
			input.WriteString("\n\n")
		}
	}

	params := responses.ResponseNewParams{
		Model:           o.model,
		MaxOutputTokens: openai.Int(int64(in.MaxTokens)),
		Input:           responses.ResponseNewParamsInputUnion{OfString: openai.String(strings.TrimSpace(input.String()))},
	}

	resp, err := o.client.Responses.New(ctx, params)
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.Classify(err)
	}
	if resp == nil {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "empty response from OpenAI Responses API")
	}

	content := resp.OutputText()
	if strings.TrimSpace(content) == "" {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "OpenAI response contained no output text")
	}

	return llm.CompletionResponse{
		Content:    content,
		StopReason: "end_turn",
	}, nil
}

// GetModelName returns the model name for this client.
func (o *Client) GetModelName() string {
	return o.model
}
