package metrics

import (
	"context"
	"time"

	"interview/pkg/llm"
	"interview/pkg/llm/llmerrors"
	"interview/pkg/utils"
)

// Middleware returns a middleware function that records request counts,
// token usage, and latency for every completion call. Provider responses
// do not carry usage data, so token counts are estimated locally.
func Middleware(recorder Recorder, sessionID string, phase func() string) llm.Middleware {
	if recorder == nil {
		recorder = Nop()
	}
	if phase == nil {
		phase = func() string { return "" }
	}

	counter, counterErr := utils.NewTokenCounter()
	countTokens := utils.CountTokensSimple
	if counterErr == nil {
		countTokens = counter.CountTokens
	}

	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				promptTokens := 0
				for _, msg := range req.Messages {
					promptTokens += countTokens(msg.Content)
				}

				start := time.Now()
				resp, err := next.Complete(ctx, req)
				duration := time.Since(start)

				errorType := ""
				if err != nil {
					errorType = llmerrors.TypeOf(err).String()
				}
				recorder.ObserveRequest(
					next.GetModelName(), sessionID, phase(),
					promptTokens, countTokens(resp.Content),
					err == nil, errorType, duration,
				)

				return resp, err //nolint:wrapcheck // Middleware passes through errors unchanged
			},
			next.GetModelName,
		)
	}
}
