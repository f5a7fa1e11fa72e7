// Package ratelimit provides call pacing for LLM clients. Unlike
// provider-side throttling, the pacer enforces a predictable minimum
// interval between outbound call starts, delaying early callers rather
// than rejecting them.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"interview/pkg/logx"
)

// DefaultFloor is the default minimum interval between outbound call starts
// to a single provider instance.
const DefaultFloor = 4 * time.Second

// Limiter defines the interface for pacing implementations.
type Limiter interface {
	// Acquire blocks until the pacing floor is satisfied and the provider
	// slot is free, then claims the slot. Returns a release function that
	// must be called when the outbound call finishes. Returns early with
	// the context error when cancelled.
	Acquire(ctx context.Context, sessionID string) (releaseFunc func(), err error)

	// GetStats returns current pacer statistics.
	GetStats() PacerStats
}

// PacerStats represents current pacer statistics.
type PacerStats struct {
	Provider     string        `json:"provider"`
	Floor        time.Duration `json:"floor"`
	InFlight     bool          `json:"in_flight"`
	DelayedCalls int64         `json:"delayed_calls"`
	TotalDelay   time.Duration `json:"total_delay"`
}

// IntervalPacer enforces a minimum interval between call starts and keeps
// outbound calls chronologically non-overlapping for one provider instance.
type IntervalPacer struct {
	mu sync.Mutex

	provider  string
	floor     time.Duration
	lastStart time.Time
	inFlight  bool

	delayedCalls int64
	totalDelay   time.Duration
}

// NewIntervalPacer creates a pacer for one provider instance.
func NewIntervalPacer(provider string, floor time.Duration) *IntervalPacer {
	if floor <= 0 {
		floor = DefaultFloor
	}
	return &IntervalPacer{
		provider: provider,
		floor:    floor,
	}
}

// Acquire blocks until both the pacing floor has elapsed since the previous
// call start and no other call is in flight. A call arriving early is
// delayed, never rejected.
func (p *IntervalPacer) Acquire(ctx context.Context, sessionID string) (func(), error) {
	logged := false

	for {
		p.mu.Lock()

		now := time.Now()
		nextStart := p.lastStart.Add(p.floor)

		if !p.inFlight && !now.Before(nextStart) {
			p.inFlight = true
			p.lastStart = now
			p.mu.Unlock()

			release := func() {
				p.mu.Lock()
				p.inFlight = false
				p.mu.Unlock()
			}
			return release, nil
		}

		// Wait either for the floor to elapse or for the slot to free up.
		wait := time.Until(nextStart)
		if p.inFlight || wait <= 0 {
			wait = 50 * time.Millisecond
		}

		if !logged {
			p.delayedCalls++
			logx.Debugf("PACER: %s delaying call for session %s (floor %v)", p.provider, sessionID, p.floor)
			logged = true
		}
		p.totalDelay += wait

		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err() //nolint:wrapcheck // Context error propagated as-is
		case <-time.After(wait):
		}
	}
}

// GetStats returns current pacer statistics (thread-safe).
func (p *IntervalPacer) GetStats() PacerStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return PacerStats{
		Provider:     p.provider,
		Floor:        p.floor,
		InFlight:     p.inFlight,
		DelayedCalls: p.delayedCalls,
		TotalDelay:   p.totalDelay,
	}
}
