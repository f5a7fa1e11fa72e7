package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"interview/pkg/llm"
	"interview/pkg/llm/llmerrors"
)

func TestCalculateDelayExponentialBackoff(t *testing.T) {
	policy := NewPolicy(Config{
		MaxAttempts:   5,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2.0,
		Jitter:        false,
	}, nil)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 0},
		{2, 100 * time.Millisecond},
		{3, 200 * time.Millisecond},
		{4, 400 * time.Millisecond},
		{5, 800 * time.Millisecond},
		{6, time.Second}, // capped at MaxDelay
	}

	for _, tt := range tests {
		if got := policy.CalculateDelay(tt.attempt); got != tt.want {
			t.Errorf("CalculateDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestCalculateDelayJitterBand(t *testing.T) {
	policy := NewPolicy(Config{
		MaxAttempts:   5,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
	}, nil)

	base := 200 * time.Millisecond
	sawLow, sawHigh := false, false
	for i := 0; i < 200; i++ {
		got := policy.CalculateDelay(3)
		switch got {
		case base - base/10:
			sawLow = true
		case base + base/10:
			sawHigh = true
		default:
			t.Fatalf("CalculateDelay(3) = %v, want %v +/- 10%%", got, base)
		}
		if sawLow && sawHigh {
			return
		}
		time.Sleep(time.Microsecond)
	}
	t.Errorf("jitter never varied: low=%v high=%v", sawLow, sawHigh)
}

func TestCaptureConfigFixedDelay(t *testing.T) {
	policy := NewPolicy(CaptureConfig, RetryAll)

	// At most 5 capture attempts per turn, fixed short delay between them.
	if policy.Config.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", policy.Config.MaxAttempts)
	}
	for attempt := 2; attempt <= 5; attempt++ {
		if got := policy.CalculateDelay(attempt); got != 750*time.Millisecond {
			t.Errorf("CalculateDelay(%d) = %v, want 750ms", attempt, got)
		}
	}
	if !policy.Exhausted(5) {
		t.Error("Exhausted(5) = false, want true")
	}
	if policy.Exhausted(4) {
		t.Error("Exhausted(4) = true, want false")
	}
}

func TestShouldRetryClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"cancelled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"auth", llmerrors.NewError(llmerrors.ErrorTypeAuth, "bad key"), false},
		{"bad prompt", llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, "too long"), false},
		{"rate limit", llmerrors.NewError(llmerrors.ErrorTypeRateLimit, "throttled"), true},
		{"transient", llmerrors.NewError(llmerrors.ErrorTypeTransient, "503"), true},
		{"unstructured timeout", errors.New("request timeout"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldRetry(tt.err); got != tt.want {
				t.Errorf("ShouldRetry(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

type countingClient struct {
	calls   int
	failFor int
}

func (c *countingClient) Complete(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
	c.calls++
	if c.calls <= c.failFor {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeTransient, "server error")
	}
	return llm.CompletionResponse{Content: "ok", StopReason: "end_turn"}, nil
}

func (c *countingClient) GetModelName() string { return "counting-model" }

func TestMiddlewareRetriesThenSucceeds(t *testing.T) {
	base := &countingClient{failFor: 2}
	client := llm.Chain(base, Middleware(NewPolicy(Config{
		MaxAttempts:   3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      time.Millisecond,
		BackoffFactor: 1.0,
	}, nil)))

	resp, err := client.Complete(context.Background(), llm.NewCompletionRequest(nil))
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("Content = %q, want ok", resp.Content)
	}
	if base.calls != 3 {
		t.Errorf("calls = %d, want 3", base.calls)
	}
}

func TestMiddlewareStopsOnNonRetryable(t *testing.T) {
	base := &countingClient{failFor: 100}
	policy := NewPolicy(Config{MaxAttempts: 4, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1.0},
		func(error) bool { return false })
	client := llm.Chain(base, Middleware(policy))

	if _, err := client.Complete(context.Background(), llm.NewCompletionRequest(nil)); err == nil {
		t.Fatal("expected error")
	}
	if base.calls != 1 {
		t.Errorf("calls = %d, want 1 (no retries for non-retryable)", base.calls)
	}
}
