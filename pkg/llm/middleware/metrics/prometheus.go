// Package metrics provides Prometheus-based metrics recording for LLM operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder implements the Recorder interface using Prometheus metrics.
type PrometheusRecorder struct {
	requestsTotal   *prometheus.CounterVec
	tokensTotal     *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	queueWaitTime   *prometheus.HistogramVec
	fallbackTotal   *prometheus.CounterVec
	captureRetries  *prometheus.CounterVec
}

// NewPrometheusRecorder creates a new Prometheus-based metrics recorder.
func NewPrometheusRecorder() *PrometheusRecorder {
	return &PrometheusRecorder{
		requestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_requests_total",
				Help: "Total number of LLM requests by model, session, phase, and status",
			},
			[]string{"model", "session_id", "phase", "status", "error_type"},
		),
		tokensTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_tokens_total",
				Help: "Total number of tokens used in LLM requests",
			},
			[]string{"model", "session_id", "phase", "type"},
		),
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_request_duration_seconds",
				Help:    "Duration of LLM requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"model", "session_id", "phase"},
		),
		queueWaitTime: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_queue_wait_duration_seconds",
				Help:    "Time spent waiting on the pacing floor",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"model"},
		),
		fallbackTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "interview_fallback_total",
				Help: "Total number of deterministic fallbacks taken by kind",
			},
			[]string{"model", "kind"},
		),
		captureRetries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "interview_capture_retries_total",
				Help: "Total number of speech capture retries by session",
			},
			[]string{"session_id"},
		),
	}
}

// ObserveRequest records metrics for a completed LLM request.
func (p *PrometheusRecorder) ObserveRequest(
	model, sessionID, phase string,
	promptTokens, completionTokens int,
	success bool,
	errorType string,
	duration time.Duration,
) {
	status := "success"
	if !success {
		status = "error"
	}

	p.requestsTotal.WithLabelValues(model, sessionID, phase, status, errorType).Inc()
	p.tokensTotal.WithLabelValues(model, sessionID, phase, "prompt").Add(float64(promptTokens))
	p.tokensTotal.WithLabelValues(model, sessionID, phase, "completion").Add(float64(completionTokens))
	p.requestDuration.WithLabelValues(model, sessionID, phase).Observe(duration.Seconds())
}

// ObserveQueueWait records time spent waiting on the pacing floor.
func (p *PrometheusRecorder) ObserveQueueWait(model string, duration time.Duration) {
	p.queueWaitTime.WithLabelValues(model).Observe(duration.Seconds())
}

// IncFallback increments the fallback counter.
func (p *PrometheusRecorder) IncFallback(model, kind string) {
	p.fallbackTotal.WithLabelValues(model, kind).Inc()
}

// IncCaptureRetry increments the capture retry counter for a session.
func (p *PrometheusRecorder) IncCaptureRetry(sessionID string) {
	p.captureRetries.WithLabelValues(sessionID).Inc()
}
