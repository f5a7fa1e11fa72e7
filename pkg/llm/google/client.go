// Package google provides the Google Gemini client implementation for the
// llm.LLMClient interface.
package google

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"interview/pkg/llm"
	"interview/pkg/llm/llmerrors"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

// GeminiClient wraps the Google GenAI client to implement llm.LLMClient.
type GeminiClient struct {
	client *genai.Client
	apiKey string
	model  string
}

// NewGeminiClientWithModel creates a new Gemini client with a specific model.
// Client creation requires a context, so it is deferred to the first Complete().
func NewGeminiClientWithModel(apiKey, model string) llm.LLMClient {
	if model == "" {
		model = DefaultModel
	}
	return &GeminiClient{
		client: nil, // Created on first use
		apiKey: apiKey,
		model:  model,
	}
}

// Complete implements the llm.LLMClient interface.
//
//nolint:gocritic // Passing request by value matches the interface
func (g *GeminiClient) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	if g.client == nil {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  g.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return llm.CompletionResponse{}, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, "failed to create Gemini client")
		}
		g.client = client
	}

	contents, systemInstruction := convertMessages(in.Messages)
	if len(contents) == 0 {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, "message list cannot be empty")
	}

	//nolint:gosec // MaxTokens validated at higher layer, overflow acceptable
	maxTokens := int32(in.MaxTokens)
	config := &genai.GenerateContentConfig{
		Temperature:     &in.Temperature,
		MaxOutputTokens: maxTokens,
	}
	if systemInstruction != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		}
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.Classify(fmt.Errorf("Gemini API call failed: %w", err))
	}
	if result == nil {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "empty response from Gemini API")
	}

	text := result.Text()
	if strings.TrimSpace(text) == "" {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "Gemini response contained no text")
	}

	return llm.CompletionResponse{
		Content:    text,
		StopReason: "end_turn",
	}, nil
}

// GetModelName returns the model name for this client.
func (g *GeminiClient) GetModelName() string {
	return g.model
}

// convertMessages maps our message format to Gemini Content, extracting
// system messages into the system instruction.
func convertMessages(messages []llm.CompletionMessage) (contents []*genai.Content, systemInstruction string) {
	var systemParts []string

	for i := range messages {
		msg := &messages[i]
		switch msg.Role {
		case llm.RoleSystem:
			systemParts = append(systemParts, msg.Content)
		case llm.RoleAssistant:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleModel,
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		default:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		}
	}

	return contents, strings.Join(systemParts, "\n\n")
}
