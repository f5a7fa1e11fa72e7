// Package metrics provides metrics recording for LLM client operations and
// the surrounding interview orchestration.
package metrics

import (
	"time"
)

// Recorder defines the interface for recording interview engine metrics.
type Recorder interface {
	// ObserveRequest records metrics for a completed LLM request.
	ObserveRequest(
		model, sessionID, phase string,
		promptTokens, completionTokens int,
		success bool,
		errorType string,
		duration time.Duration,
	)

	// ObserveQueueWait records time spent waiting on the pacing floor.
	ObserveQueueWait(model string, duration time.Duration)

	// IncFallback increments the fallback counter when a deterministic
	// line or score replaces a failed provider call.
	IncFallback(model, kind string)

	// IncCaptureRetry increments the capture retry counter for a session.
	IncCaptureRetry(sessionID string)
}

// NoopRecorder implements Recorder with no-op behavior for when metrics are disabled.
type NoopRecorder struct{}

// Nop returns a no-op metrics recorder that discards all metrics.
func Nop() Recorder {
	return &NoopRecorder{}
}

// ObserveRequest does nothing in the no-op recorder.
func (n *NoopRecorder) ObserveRequest(_, _, _ string, _, _ int, _ bool, _ string, _ time.Duration) {
}

// ObserveQueueWait does nothing in the no-op recorder.
func (n *NoopRecorder) ObserveQueueWait(_ string, _ time.Duration) {}

// IncFallback does nothing in the no-op recorder.
func (n *NoopRecorder) IncFallback(_, _ string) {}

// IncCaptureRetry does nothing in the no-op recorder.
func (n *NoopRecorder) IncCaptureRetry(_ string) {}
