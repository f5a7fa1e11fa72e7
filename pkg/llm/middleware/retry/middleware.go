// Package retry provides retry middleware for LLM clients.
package retry

import (
	"context"
	"fmt"
	"time"

	"interview/pkg/llm"
)

// Middleware returns a middleware function that wraps an LLM client with
// retry logic. Failed requests are retried according to the configured
// policy with exponential backoff.
func Middleware(policy *Policy) llm.Middleware {
	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				var lastErr error

				for attempt := 1; attempt <= policy.Config.MaxAttempts; attempt++ {
					// Wait for backoff delay (except on first attempt)
					if attempt > 1 {
						delay := policy.CalculateDelay(attempt)
						if delay > 0 {
							select {
							case <-ctx.Done():
								return llm.CompletionResponse{}, fmt.Errorf("retry cancelled: %w", ctx.Err())
							case <-time.After(delay):
							}
						}
					}

					resp, err := next.Complete(ctx, req)
					if err == nil {
						return resp, nil
					}

					lastErr = err

					if !policy.ShouldRetry(err) {
						break
					}
					if policy.Exhausted(attempt) {
						break
					}
				}

				return llm.CompletionResponse{}, lastErr
			},
			next.GetModelName,
		)
	}
}
