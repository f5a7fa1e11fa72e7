// Package retry provides a bounded retry policy shared by resilient LLM
// calls and the speech capture loop.
package retry

import (
	"context"
	"errors"
	"math"
	"time"

	"interview/pkg/llm/llmerrors"
)

// Config defines configuration for retry behavior.
type Config struct {
	MaxAttempts   int           `json:"max_attempts"`   // Maximum number of attempts (including initial)
	InitialDelay  time.Duration `json:"initial_delay"`  // Initial delay before first retry
	MaxDelay      time.Duration `json:"max_delay"`      // Maximum delay between retries
	BackoffFactor float64       `json:"backoff_factor"` // Multiplier for exponential backoff
	Jitter        bool          `json:"jitter"`         // Add random jitter to prevent thundering herd
}

// DefaultConfig provides reasonable defaults for LLM call retry behavior.
//
//nolint:gochecknoglobals // Sensible default config pattern
var DefaultConfig = Config{
	MaxAttempts:   3,
	InitialDelay:  100 * time.Millisecond,
	MaxDelay:      10 * time.Second,
	BackoffFactor: 2.0,
	Jitter:        true,
}

// CaptureConfig is the bounded policy for speech capture: at most 5
// consecutive capture attempts per turn with a short fixed delay between
// them; the 5th consecutive failure exhausts the budget.
//
//nolint:gochecknoglobals // Sensible default config pattern
var CaptureConfig = Config{
	MaxAttempts:   5,
	InitialDelay:  750 * time.Millisecond,
	MaxDelay:      750 * time.Millisecond,
	BackoffFactor: 1.0,
	Jitter:        false,
}

// Classifier determines if an error should be retried.
type Classifier func(error) bool

// ShouldRetry is the default error classifier for LLM calls.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}

	// Never retry context cancellation or deadline exceeded
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var llmErr *llmerrors.Error
	if errors.As(err, &llmErr) {
		return llmErr.IsRetryable()
	}

	// Classify unstructured errors by message pattern
	return llmerrors.Classify(err).IsRetryable()
}

// RetryAll retries every error. Used for capture errors, where silence and
// transient recognition failures are indistinguishable from the outside.
func RetryAll(err error) bool {
	return err != nil
}

// Policy encapsulates retry configuration and logic.
type Policy struct {
	Config     Config
	Classifier Classifier
}

// NewPolicy creates a new retry policy with the given configuration and classifier.
func NewPolicy(config Config, classifier Classifier) *Policy {
	if classifier == nil {
		classifier = ShouldRetry
	}
	return &Policy{
		Config:     config,
		Classifier: classifier,
	}
}

// CalculateDelay computes the delay for the given attempt number.
func (p *Policy) CalculateDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	delay := time.Duration(float64(p.Config.InitialDelay) * math.Pow(p.Config.BackoffFactor, float64(attempt-2)))

	// Cap at maximum delay
	if delay > p.Config.MaxDelay {
		delay = p.Config.MaxDelay
	}

	// Add jitter if enabled
	if p.Config.Jitter && delay > 0 {
		jitterFactor := int64(-1) // -1 or 1
		if time.Now().UnixNano()&1 == 1 {
			jitterFactor = 1
		}
		jitter := time.Duration(float64(delay) * 0.1 * float64(jitterFactor))
		delay += jitter
		if delay < 0 {
			delay = p.Config.InitialDelay
		}
	}

	return delay
}

// ShouldRetry determines if an error should be retried based on the configured classifier.
func (p *Policy) ShouldRetry(err error) bool {
	return p.Classifier(err)
}

// Exhausted reports whether the given attempt number has consumed the
// policy's budget.
func (p *Policy) Exhausted(attempt int) bool {
	return attempt >= p.Config.MaxAttempts
}
