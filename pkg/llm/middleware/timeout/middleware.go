// Package timeout provides timeout middleware for LLM clients.
package timeout

import (
	"context"
	"time"

	"interview/pkg/llm"
)

// Default is the bounded response timeout for interviewer turns. After it
// expires the invoker takes the deterministic fallback path.
const Default = 30 * time.Second

// Middleware returns a middleware function that wraps an LLM client with
// per-request timeout logic.
func Middleware(duration time.Duration) llm.Middleware {
	if duration <= 0 {
		duration = Default
	}
	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				timeoutCtx, cancel := context.WithTimeout(ctx, duration)
				defer cancel()

				return next.Complete(timeoutCtx, req) //nolint:wrapcheck // Middleware passes through errors unchanged
			},
			next.GetModelName,
		)
	}
}
