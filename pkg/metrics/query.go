// Package metrics provides services for querying and aggregating interview
// engine metrics from Prometheus.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

// SessionMetrics represents aggregated metrics for one interview session.
type SessionMetrics struct {
	SessionID        string  `json:"session_id"`
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	TotalTokens      int64   `json:"total_tokens"`
	LLMRequests      int64   `json:"llm_requests"`
	Fallbacks        int64   `json:"fallbacks"`
	CaptureRetries   int64   `json:"capture_retries"`
	AvgLLMLatency    float64 `json:"avg_llm_latency_seconds"`
}

// QueryService provides methods to query engine metrics from Prometheus.
type QueryService struct {
	client   api.Client
	queryAPI v1.API
}

// NewQueryService creates a new metrics query service.
func NewQueryService(prometheusURL string) (*QueryService, error) {
	client, err := api.NewClient(api.Config{
		Address: prometheusURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}

	return &QueryService{
		client:   client,
		queryAPI: v1.NewAPI(client),
	}, nil
}

// GetSessionMetrics retrieves aggregated token, request, fallback, and
// capture-retry metrics for one session.
func (q *QueryService) GetSessionMetrics(ctx context.Context, sessionID string) (*SessionMetrics, error) {
	metrics := &SessionMetrics{SessionID: sessionID}

	promptTokens, err := q.scalar(ctx, fmt.Sprintf(`sum(llm_tokens_total{session_id=%q, type="prompt"})`, sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to query prompt tokens: %w", err)
	}
	metrics.PromptTokens = int64(promptTokens)

	completionTokens, err := q.scalar(ctx, fmt.Sprintf(`sum(llm_tokens_total{session_id=%q, type="completion"})`, sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to query completion tokens: %w", err)
	}
	metrics.CompletionTokens = int64(completionTokens)
	metrics.TotalTokens = metrics.PromptTokens + metrics.CompletionTokens

	requests, err := q.scalar(ctx, fmt.Sprintf(`sum(llm_requests_total{session_id=%q})`, sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to query request count: %w", err)
	}
	metrics.LLMRequests = int64(requests)

	fallbacks, err := q.scalar(ctx, `sum(interview_fallback_total)`)
	if err != nil {
		return nil, fmt.Errorf("failed to query fallback count: %w", err)
	}
	metrics.Fallbacks = int64(fallbacks)

	retries, err := q.scalar(ctx, fmt.Sprintf(`sum(interview_capture_retries_total{session_id=%q})`, sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to query capture retries: %w", err)
	}
	metrics.CaptureRetries = int64(retries)

	latency, err := q.scalar(ctx, fmt.Sprintf(
		`sum(llm_request_duration_seconds_sum{session_id=%q}) / sum(llm_request_duration_seconds_count{session_id=%q})`,
		sessionID, sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to query request latency: %w", err)
	}
	metrics.AvgLLMLatency = latency

	return metrics, nil
}

// GetFallbacksByKind retrieves the fallback counters broken down by kind
// (question, evaluation, feedback, candidate answer) across all sessions.
func (q *QueryService) GetFallbacksByKind(ctx context.Context) (map[string]int64, error) {
	result, _, err := q.queryAPI.Query(ctx, `sum by (kind) (interview_fallback_total)`, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to query fallbacks by kind: %w", err)
	}

	byKind := make(map[string]int64)
	if vector, ok := result.(model.Vector); ok {
		for _, sample := range vector {
			byKind[string(sample.Metric["kind"])] = int64(sample.Value)
		}
	}
	return byKind, nil
}

// scalar runs a query expected to return a single-sample vector. Missing
// series resolve to zero.
func (q *QueryService) scalar(ctx context.Context, query string) (float64, error) {
	result, _, err := q.queryAPI.Query(ctx, query, time.Now())
	if err != nil {
		return 0, err
	}
	if vector, ok := result.(model.Vector); ok && len(vector) > 0 {
		return float64(vector[0].Value), nil
	}
	return 0, nil
}
