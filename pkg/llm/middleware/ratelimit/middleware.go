// Package ratelimit provides rate limiting middleware for LLM clients.
package ratelimit

import (
	"context"
	"time"

	"interview/pkg/llm"
	"interview/pkg/llm/middleware/metrics"
)

// Middleware returns a middleware function that wraps an LLM client with
// call pacing. Calls arriving before the floor has elapsed are delayed until
// the floor is satisfied, never rejected.
func Middleware(pacer Limiter, sessionID string, recorder metrics.Recorder) llm.Middleware {
	if recorder == nil {
		recorder = metrics.Nop()
	}

	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				waitStart := time.Now()
				release, err := pacer.Acquire(ctx, sessionID)
				if err != nil {
					return llm.CompletionResponse{}, err //nolint:wrapcheck // Middleware passes through errors unchanged
				}
				defer release()
				recorder.ObserveQueueWait(next.GetModelName(), time.Since(waitStart))

				return next.Complete(ctx, req) //nolint:wrapcheck // Middleware passes through errors unchanged
			},
			next.GetModelName,
		)
	}
}
