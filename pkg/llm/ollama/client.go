// Package ollama provides the Ollama client implementation for the
// llm.LLMClient interface. Ollama is a local LLM runtime, useful for
// offline interview practice sessions.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"interview/pkg/llm"
	"interview/pkg/llm/llmerrors"
)

// DefaultHostURL is the default Ollama server address.
const DefaultHostURL = "http://localhost:11434"

// Client wraps the Ollama API client to implement llm.LLMClient.
type Client struct {
	client  *api.Client
	model   string
	hostURL string
}

// NewClientWithModel creates a new Ollama client with a specific model.
// hostURL should be the Ollama server URL (e.g., "http://localhost:11434").
func NewClientWithModel(hostURL, model string) llm.LLMClient {
	if hostURL == "" {
		hostURL = DefaultHostURL
	}
	parsedURL, err := url.Parse(hostURL)
	if err != nil {
		parsedURL, _ = url.Parse(DefaultHostURL)
	}

	return &Client{
		client:  api.NewClient(parsedURL, http.DefaultClient),
		model:   model,
		hostURL: hostURL,
	}
}

// Complete implements the llm.LLMClient interface.
//
//nolint:gocritic // Passing request by value matches the interface
func (o *Client) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	messages := make([]api.Message, 0, len(in.Messages))
	for i := range in.Messages {
		msg := &in.Messages[i]
		messages = append(messages, api.Message{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	stream := false // We don't stream in Complete()
	req := &api.ChatRequest{
		Model:    o.model,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": in.Temperature,
			"num_predict": in.MaxTokens,
		},
	}

	var response api.ChatResponse
	err := o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		response = resp
		return nil
	})
	if err != nil {
		return llm.CompletionResponse{}, classifyError(err)
	}

	if strings.TrimSpace(response.Message.Content) == "" {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "Ollama response contained no content")
	}

	return llm.CompletionResponse{
		Content:    response.Message.Content,
		StopReason: response.DoneReason,
	}, nil
}

// GetModelName returns the model name for this client.
func (o *Client) GetModelName() string {
	return o.model
}

// classifyError maps Ollama errors to structured error types. A local
// runtime that is not running shows up as a connection error.
func classifyError(err error) *llmerrors.Error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "connection refused") {
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err,
			fmt.Sprintf("cannot reach Ollama server - is it running? (%v)", err))
	}
	return llmerrors.Classify(err)
}
