package mocks

import (
	"context"
	"sync"
	"time"

	"interview/pkg/speech"
)

// CaptureResult scripts the outcome of one armed capture session. Exactly
// one of Transcript or Err is reported; Partials fire first when present.
type CaptureResult struct {
	Partials   []string
	Transcript string
	Err        error
}

// MockCapture implements speech.Capture with a scripted sequence of results.
// Each Start consumes the next result; when the script runs out the Default
// result repeats. Callbacks fire from a separate goroutine, like a real
// recognizer.
type MockCapture struct {
	// Script is consumed one entry per Start call.
	Script []CaptureResult

	// Default is reported once the script is exhausted.
	Default CaptureResult

	// Starts counts Start calls for verification.
	Starts int

	mu sync.Mutex
}

// Start implements speech.Capture.
func (m *MockCapture) Start(onPartial func(string), onFinal func(string), onError func(error)) (speech.Handle, error) {
	m.mu.Lock()
	result := m.Default
	if m.Starts < len(m.Script) {
		result = m.Script[m.Starts]
	}
	m.Starts++
	m.mu.Unlock()

	h := &mockHandle{}
	go func() {
		for _, partial := range result.Partials {
			if h.stopped() {
				return
			}
			if onPartial != nil {
				onPartial(partial)
			}
		}
		if h.stopped() {
			return
		}
		if result.Err != nil {
			onError(result.Err)
			return
		}
		onFinal(result.Transcript)
	}()
	return h, nil
}

// StartCount returns the number of capture sessions armed so far.
func (m *MockCapture) StartCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Starts
}

type mockHandle struct {
	mu      sync.Mutex
	stopSet bool
}

func (h *mockHandle) Stop() {
	h.mu.Lock()
	h.stopSet = true
	h.mu.Unlock()
}

func (h *mockHandle) stopped() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stopSet
}

// MockPlayback implements speech.Playback, recording every utterance and
// completing immediately.
type MockPlayback struct {
	// Spoken records every text passed to Speak, in order.
	Spoken []string

	mu sync.Mutex
}

// Speak implements speech.Playback. onComplete fires asynchronously,
// exactly once.
func (m *MockPlayback) Speak(text string, onComplete func()) {
	m.mu.Lock()
	m.Spoken = append(m.Spoken, text)
	m.mu.Unlock()
	go onComplete()
}

// Stop implements speech.Playback.
func (m *MockPlayback) Stop() {}

// SpokenLines returns a copy of everything spoken so far.
func (m *MockPlayback) SpokenLines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.Spoken...)
}

// MockDevices implements speech.Devices over the capture and playback mocks.
type MockDevices struct {
	Capture  *MockCapture
	Playback *MockPlayback

	// AcquireErr, when set, makes Acquire fail.
	AcquireErr error

	// AcquireDelay simulates slow device acquisition. Acquire honors the
	// context deadline during the delay.
	AcquireDelay time.Duration

	// Released counts Release calls.
	Released int

	mu sync.Mutex
}

// NewMockDevices creates a device set with empty scripts.
func NewMockDevices() *MockDevices {
	return &MockDevices{
		Capture:  &MockCapture{},
		Playback: &MockPlayback{},
	}
}

// Acquire implements speech.Devices.
func (m *MockDevices) Acquire(ctx context.Context) (speech.Capture, speech.Playback, error) {
	if m.AcquireDelay > 0 {
		select {
		case <-time.After(m.AcquireDelay):
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
	if m.AcquireErr != nil {
		return nil, nil, m.AcquireErr
	}
	return m.Capture, m.Playback, nil
}

// Release implements speech.Devices.
func (m *MockDevices) Release() {
	m.mu.Lock()
	m.Released++
	m.mu.Unlock()
}

// ReleaseCount returns the number of Release calls.
func (m *MockDevices) ReleaseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Released
}
