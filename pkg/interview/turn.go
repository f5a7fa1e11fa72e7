package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"interview/pkg/llm/middleware/metrics"
	"interview/pkg/llm/middleware/retry"
	"interview/pkg/logx"
	"interview/pkg/session"
	"interview/pkg/speech"
)

// ErrTurnInFlight is returned when a turn is started while another one is
// still running for the same session.
var ErrTurnInFlight = errors.New("another turn is already in flight")

// ErrRecognitionExhausted is surfaced after capture fails on every allowed
// attempt for one turn. Non-fatal; the caller may fall back to manual text
// entry.
var ErrRecognitionExhausted = errors.New("speech recognition exhausted")

// Responder turns the candidate's transcript into the next interviewer
// utterance. Responders never fail; degraded paths return fallback text.
type Responder func(ctx context.Context, transcript string) string

// TurnOrchestrator runs one listen, respond, speak cycle at a time for a
// single session. It is the sole owner of the capture and playback devices;
// at most one capture session and one playback session are ever active.
type TurnOrchestrator struct {
	sess     *session.State
	capture  speech.Capture
	playback speech.Playback
	policy   *retry.Policy
	recorder metrics.Recorder
	logger   *logx.Logger

	onCaption func(text string)

	manualCh chan string

	mu       sync.Mutex
	inFlight bool
	muted    bool
}

// NewTurnOrchestrator creates the turn loop for a session over acquired
// devices. A nil policy uses the shared bounded capture policy.
func NewTurnOrchestrator(sess *session.State, capture speech.Capture, playback speech.Playback, recorder metrics.Recorder, policy *retry.Policy) *TurnOrchestrator {
	if recorder == nil {
		recorder = metrics.Nop()
	}
	if policy == nil {
		policy = retry.NewPolicy(retry.CaptureConfig, retry.RetryAll)
	}
	return &TurnOrchestrator{
		sess:     sess,
		capture:  capture,
		playback: playback,
		policy:   policy,
		recorder: recorder,
		logger:   logx.NewLogger(sess.ID()),
		manualCh: make(chan string, 1),
	}
}

// SetCaptionFunc installs the live-caption callback for partial transcripts.
func (o *TurnOrchestrator) SetCaptionFunc(fn func(text string)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onCaption = fn
}

// SetMuted toggles playback. While muted the interviewer text still lands in
// the transcript; it just is not spoken.
func (o *TurnOrchestrator) SetMuted(muted bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.muted = muted
}

// Muted reports the mute state.
func (o *TurnOrchestrator) Muted() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.muted
}

// InjectManualAnswer feeds a typed answer into the current or next turn,
// bypassing capture. Returns false if an earlier manual answer is still
// pending.
func (o *TurnOrchestrator) InjectManualAnswer(text string) bool {
	select {
	case o.manualCh <- text:
		return true
	default:
		return false
	}
}

// AwaitManualAnswer blocks until a manual answer arrives, used by the
// degraded path after recognition exhaustion.
func (o *TurnOrchestrator) AwaitManualAnswer(ctx context.Context) (string, error) {
	select {
	case text := <-o.manualCh:
		return text, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// RunTurn executes one full cycle: await the candidate's transcript, produce
// the interviewer's reply, append both to the session transcript, then speak
// the reply. On capture exhaustion it returns ErrRecognitionExhausted with
// nothing appended.
func (o *TurnOrchestrator) RunTurn(ctx context.Context, respond Responder) (candidate, interviewer string, err error) {
	if err := o.beginTurn(); err != nil {
		return "", "", err
	}
	defer o.endTurn()

	transcript, err := o.awaitTranscript(ctx)
	if err != nil {
		return "", "", err
	}
	return o.completeTurn(ctx, transcript, respond)
}

// RunTurnWithTranscript executes a cycle with a transcript already in hand,
// used for the manual-entry degraded path after recognition exhaustion.
func (o *TurnOrchestrator) RunTurnWithTranscript(ctx context.Context, transcript string, respond Responder) (candidate, interviewer string, err error) {
	if err := o.beginTurn(); err != nil {
		return "", "", err
	}
	defer o.endTurn()
	return o.completeTurn(ctx, transcript, respond)
}

// Say speaks an interviewer line outside the listen half of a cycle, for
// phase openings and synthesized closings. The line is appended to the
// transcript. Shares the in-flight guard so it never overlaps a turn.
func (o *TurnOrchestrator) Say(ctx context.Context, text string) error {
	if err := o.beginTurn(); err != nil {
		return err
	}
	defer o.endTurn()

	o.sess.Append(session.SpeakerInterviewer, text)
	return o.speak(ctx, text)
}

func (o *TurnOrchestrator) completeTurn(ctx context.Context, transcript string, respond Responder) (string, string, error) {
	o.sess.Append(session.SpeakerCandidate, transcript)

	reply := respond(ctx, transcript)
	o.sess.Append(session.SpeakerInterviewer, reply)

	if err := o.speak(ctx, reply); err != nil {
		return transcript, reply, err
	}
	return transcript, reply, nil
}

func (o *TurnOrchestrator) beginTurn() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inFlight {
		return ErrTurnInFlight
	}
	o.inFlight = true
	return nil
}

func (o *TurnOrchestrator) endTurn() {
	o.mu.Lock()
	o.inFlight = false
	o.mu.Unlock()
}

// awaitTranscript arms capture and waits for a usable transcript, retrying
// silence and recognition errors up to the policy budget. A manual answer
// short-circuits capture at any point. Cancelling the context also cancels
// any scheduled retry.
func (o *TurnOrchestrator) awaitTranscript(ctx context.Context) (string, error) {
	// A manual answer may already be queued from a previous exhaustion.
	select {
	case text := <-o.manualCh:
		return text, nil
	default:
	}

	for attempt := 1; ; attempt++ {
		transcript, err := o.captureOnce(ctx)
		if err == nil && strings.TrimSpace(transcript) != "" {
			return transcript, nil
		}
		if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			return "", err
		}

		if err == nil {
			err = fmt.Errorf("no speech detected")
		}
		o.logger.Warn("Capture attempt %d failed: %v", attempt, err)
		o.recorder.IncCaptureRetry(o.sess.ID())

		if o.policy.Exhausted(attempt) {
			return "", ErrRecognitionExhausted
		}

		select {
		case <-time.After(o.policy.CalculateDelay(attempt + 1)):
		case text := <-o.manualCh:
			return text, nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// captureOnce arms exactly one capture session and waits for its single
// final-or-error outcome.
func (o *TurnOrchestrator) captureOnce(ctx context.Context) (string, error) {
	type result struct {
		text string
		err  error
	}
	resultCh := make(chan result, 1)

	o.mu.Lock()
	caption := o.onCaption
	o.mu.Unlock()

	handle, err := o.capture.Start(
		func(partial string) {
			if caption != nil {
				caption(partial)
			}
		},
		func(final string) {
			resultCh <- result{text: final}
		},
		func(captureErr error) {
			resultCh <- result{err: captureErr}
		},
	)
	if err != nil {
		return "", err
	}

	select {
	case r := <-resultCh:
		return r.text, r.err
	case text := <-o.manualCh:
		handle.Stop()
		return text, nil
	case <-ctx.Done():
		handle.Stop()
		return "", ctx.Err()
	}
}

// speak plays one utterance and waits for completion. The playback contract
// guarantees onComplete fires exactly once, so this cannot leak.
func (o *TurnOrchestrator) speak(ctx context.Context, text string) error {
	if o.Muted() {
		return nil
	}

	done := make(chan struct{})
	o.playback.Speak(text, func() { close(done) })

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		o.playback.Stop()
		<-done
		return ctx.Err()
	}
}
