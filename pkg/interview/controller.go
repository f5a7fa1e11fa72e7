package interview

import (
	"context"
	"errors"
	"fmt"
	"time"

	"interview/pkg/invoker"
	"interview/pkg/llm/middleware/metrics"
	"interview/pkg/llm/middleware/retry"
	"interview/pkg/logx"
	"interview/pkg/scoring"
	"interview/pkg/session"
	"interview/pkg/speech"
)

// ErrDeviceUnavailable is the fatal loading-phase error: the capture or
// playback device could not be acquired within the bounded delay. The
// session aborts; no turn ever starts.
var ErrDeviceUnavailable = errors.New("capture device unavailable")

// ResultStore persists the finished session. Called once at conclusion;
// failures are logged, never retried, and never block completion.
type ResultStore interface {
	SaveResult(ctx context.Context, sess *session.State, feedback scoring.Feedback) error
}

// Config carries the controller knobs that vary by deployment.
type Config struct {
	// LoadingTimeout bounds device acquisition. Zero means 10 seconds.
	LoadingTimeout time.Duration

	// EventBuffer sizes the host event channel. Zero means 64.
	EventBuffer int

	// Recorder receives engine metrics. Nil means no-op.
	Recorder metrics.Recorder

	// CapturePolicy overrides the bounded capture retry policy. Nil uses
	// the shared default.
	CapturePolicy *retry.Policy
}

// Controller owns one session end to end: it drives the phase machine,
// starts turns, applies transition signals, and emits events to the host.
//
//nolint:govet // fieldalignment: logical grouping preferred
type Controller struct {
	sess    *session.State
	machine *PhaseMachine
	inv     *invoker.Invoker
	agg     *scoring.Aggregator
	devices speech.Devices
	store   ResultStore
	logger  *logx.Logger
	cfg     Config

	turns *TurnOrchestrator // created at loading, once devices exist

	events  chan Event
	nameCh  chan string
	rulesCh chan bool

	// lastQuestion is what the candidate is currently answering, fed to
	// the evaluator. Only the controller goroutine touches it.
	lastQuestion string
}

// NewController wires a controller for one session. The invoker must already
// be bound to the session's provider; store may be nil.
func NewController(sess *session.State, inv *invoker.Invoker, devices speech.Devices, store ResultStore, cfg Config) *Controller {
	if cfg.LoadingTimeout <= 0 {
		cfg.LoadingTimeout = 10 * time.Second
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 64
	}
	if cfg.Recorder == nil {
		cfg.Recorder = metrics.Nop()
	}

	c := &Controller{
		sess:    sess,
		machine: NewPhaseMachine(sess, nil),
		inv:     inv,
		agg:     scoring.NewAggregator(sess),
		devices: devices,
		store:   store,
		logger:  logx.NewLogger(sess.ID()),
		cfg:     cfg,
		events:  make(chan Event, cfg.EventBuffer),
		nameCh:  make(chan string, 1),
		rulesCh: make(chan bool, 1),
	}
	c.machine.SetNotificationChannel(c.events)
	return c
}

// Events returns the host event stream. The channel is never closed while
// Run is active; terminal events mark the end of a session.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// Session returns the session this controller drives.
func (c *Controller) Session() *session.State {
	return c.sess
}

// SubmitName delivers the candidate's name during setup.
func (c *Controller) SubmitName(name string) {
	select {
	case c.nameCh <- name:
	default:
	}
}

// ConfirmRules delivers the ground-rules decision during name confirmation.
func (c *Controller) ConfirmRules(agreed bool) {
	select {
	case c.rulesCh <- agreed:
	default:
	}
}

// SubmitManualAnswer delivers a typed answer, the degraded input path after
// recognition exhaustion. Also accepted mid-capture, where it cancels the
// armed session. Ignored before the devices are acquired.
func (c *Controller) SubmitManualAnswer(text string) {
	if c.turns != nil {
		c.turns.InjectManualAnswer(text)
	}
}

// SetMuted toggles interviewer speech playback.
func (c *Controller) SetMuted(muted bool) {
	if c.turns != nil {
		c.turns.SetMuted(muted)
	}
}

// HandleIntent dispatches one host intent.
func (c *Controller) HandleIntent(intent Intent) {
	switch intent.Type {
	case IntentNameSubmitted:
		c.SubmitName(intent.Name)
	case IntentRulesAgreed:
		c.ConfirmRules(intent.Agreed)
	case IntentManualAnswer:
		c.SubmitManualAnswer(intent.Text)
	case IntentMuteToggle:
		c.SetMuted(intent.Muted)
	}
}

// Run drives the session from its current phase to conclusion. It blocks
// until the session completes, aborts fatally, or the context is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	for {
		phase := c.machine.Current()
		next, done, err := c.processPhase(ctx, phase)
		if err != nil {
			c.abort(err)
			return err
		}
		if done {
			return nil
		}
		if next != phase {
			if err := c.machine.TransitionTo(ctx, next); err != nil {
				c.abort(err)
				return err
			}
		}
	}
}

// processPhase runs the logic for one phase and returns the transition
// signal: the next phase, whether the session is finished, and any fatal
// error.
func (c *Controller) processPhase(ctx context.Context, phase session.Phase) (session.Phase, bool, error) {
	switch phase {
	case session.PhaseSetup:
		return c.processSetup(ctx)
	case session.PhaseNameConfirmation:
		return c.processNameConfirmation(ctx)
	case session.PhaseLoading:
		return c.processLoading(ctx)
	case session.PhaseIntroduction:
		return c.processIntroduction(ctx)
	case session.PhaseFirstTimeFollowUp:
		return c.processFirstTimeFollowUp(ctx)
	case session.PhaseQuestionLoop:
		return c.processQuestionLoop(ctx)
	case session.PhaseCandidateQuestions:
		return c.processCandidateQuestions(ctx)
	case session.PhaseConclusion:
		return c.processConclusion(ctx)
	default:
		return phase, false, fmt.Errorf("unknown phase %s", phase)
	}
}

// processSetup waits for a non-empty candidate name from the host.
func (c *Controller) processSetup(ctx context.Context) (session.Phase, bool, error) {
	for {
		select {
		case name := <-c.nameCh:
			if name == "" {
				continue
			}
			if err := c.sess.SetCandidateName(name); err != nil {
				return session.PhaseSetup, false, err
			}
			return session.PhaseNameConfirmation, false, nil
		case <-ctx.Done():
			return session.PhaseSetup, false, ctx.Err()
		}
	}
}

// processNameConfirmation waits for the ground-rules decision. Rejection
// re-enters setup so the candidate can fix their name.
func (c *Controller) processNameConfirmation(ctx context.Context) (session.Phase, bool, error) {
	select {
	case agreed := <-c.rulesCh:
		if agreed {
			return session.PhaseLoading, false, nil
		}
		return session.PhaseSetup, false, nil
	case <-ctx.Done():
		return session.PhaseNameConfirmation, false, ctx.Err()
	}
}

// processLoading acquires the capture and playback devices under a bounded
// timeout. Failure here is fatal for the whole session.
func (c *Controller) processLoading(ctx context.Context) (session.Phase, bool, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, c.cfg.LoadingTimeout)
	defer cancel()

	capture, playback, err := c.devices.Acquire(acquireCtx)
	if err != nil {
		return session.PhaseLoading, false, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	c.turns = NewTurnOrchestrator(c.sess, capture, playback, c.cfg.Recorder, c.cfg.CapturePolicy)
	c.turns.SetCaptionFunc(func(text string) {
		c.emit(Event{Type: EventCaption, Speaker: session.SpeakerCandidate, Text: text})
	})

	return session.PhaseIntroduction, false, nil
}

// processIntroduction speaks the opening and runs one turn: the candidate
// says whether this is their first AI interview, which fixes the first-time
// flag and tailors the follow-up question.
func (c *Controller) processIntroduction(ctx context.Context) (session.Phase, bool, error) {
	opening := fmt.Sprintf(
		"Hello %s, welcome to your mock interview for the %s role. "+
			"Before we begin: is this your first time interviewing with an AI interviewer?",
		c.sess.CandidateName(), c.sess.Role())
	if err := c.say(ctx, opening); err != nil {
		return session.PhaseIntroduction, false, err
	}

	respond := func(turnCtx context.Context, transcript string) string {
		c.sess.SetFirstTime(scoring.IsAffirmative(transcript))
		instruction := "Ask the candidate an open question inviting them to introduce themselves and their background."
		if first, _ := c.sess.FirstTime(); first {
			instruction = "Reassure the candidate since this is their first AI interview, then ask an open question inviting them to introduce themselves."
		}
		return c.inv.GenerateQuestion(turnCtx, c.sess, instruction)
	}

	if err := c.runListeningTurn(ctx, respond); err != nil {
		return session.PhaseIntroduction, false, err
	}
	return session.PhaseFirstTimeFollowUp, false, nil
}

// processFirstTimeFollowUp runs the self-introduction turn. Its reply is the
// first main question; the question counter resets on the way out so this
// exchange does not count toward the cap.
func (c *Controller) processFirstTimeFollowUp(ctx context.Context) (session.Phase, bool, error) {
	respond := func(turnCtx context.Context, transcript string) string {
		question := c.inv.GenerateQuestion(turnCtx, c.sess,
			"Based on the candidate's introduction, ask the first interview question for the role.")
		c.lastQuestion = question
		return question
	}

	if err := c.runListeningTurn(ctx, respond); err != nil {
		return session.PhaseFirstTimeFollowUp, false, err
	}
	c.sess.ResetQuestionIndex()
	return session.PhaseQuestionLoop, false, nil
}

// processQuestionLoop runs one main-question cycle: evaluate the incoming
// answer, fold it into the metrics, advance the counter, then either ask the
// next adaptive question or synthesize the closing once the cap is reached.
// The closing is built locally, never via the provider, so the loop
// terminates even when the invoker is fully degraded.
func (c *Controller) processQuestionLoop(ctx context.Context) (session.Phase, bool, error) {
	capReached := false

	respond := func(turnCtx context.Context, transcript string) string {
		eval := c.inv.EvaluateAnswer(turnCtx, c.sess, c.lastQuestion, transcript)
		c.agg.Record(eval)
		if err := c.sess.AdvanceQuestion(); err != nil {
			c.logger.Warn("question counter: %v", err)
		}

		if c.sess.QuestionIndex() >= c.sess.MaxQuestions() {
			capReached = true
			return c.closingInvitation()
		}

		question := c.inv.GenerateQuestion(turnCtx, c.sess,
			"Evaluate nothing; simply ask the next interview question, adapted to the candidate's previous answers.")
		if scoring.IsInterviewerClosing(question) {
			c.logger.Info("Provider offered a closing line before the question cap; continuing the loop")
		}
		c.lastQuestion = question
		return question
	}

	if err := c.runListeningTurn(ctx, respond); err != nil {
		return session.PhaseQuestionLoop, false, err
	}
	if capReached {
		return session.PhaseCandidateQuestions, false, nil
	}
	return session.PhaseQuestionLoop, false, nil
}

// processCandidateQuestions answers candidate questions until a closing cue
// arrives, then speaks the farewell and moves to conclusion.
func (c *Controller) processCandidateQuestions(ctx context.Context) (session.Phase, bool, error) {
	candidateDone := false

	respond := func(turnCtx context.Context, transcript string) string {
		if scoring.IsCandidateDone(transcript) {
			candidateDone = true
			return c.farewell()
		}
		return c.inv.AnswerCandidateQuestion(turnCtx, c.sess, transcript)
	}

	if err := c.runListeningTurn(ctx, respond); err != nil {
		return session.PhaseCandidateQuestions, false, err
	}
	if candidateDone {
		return session.PhaseConclusion, false, nil
	}
	return session.PhaseCandidateQuestions, false, nil
}

// processConclusion finalizes scoring, persists the result, emits the
// completion event, and releases the devices. Terminal.
func (c *Controller) processConclusion(ctx context.Context) (session.Phase, bool, error) {
	feedback := c.inv.SynthesizeFeedback(ctx, c.sess)

	if c.store != nil {
		if err := c.store.SaveResult(ctx, c.sess, feedback); err != nil {
			c.logger.Error("Failed to persist session result: %v", err)
		}
	}

	c.emit(Event{
		Type:       EventSessionCompleted,
		Transcript: c.sess.Transcript(),
		Feedback:   &feedback,
	})

	c.devices.Release()
	return session.PhaseConclusion, true, nil
}

// runListeningTurn runs one turn, falling back to manual text entry when
// recognition is exhausted. The exhaustion condition is surfaced to the host
// exactly once per turn.
func (c *Controller) runListeningTurn(ctx context.Context, respond Responder) error {
	candidate, reply, err := c.turns.RunTurn(ctx, respond)
	if errors.Is(err, ErrRecognitionExhausted) {
		c.emit(Event{Type: EventRecognitionExhausted})
		text, waitErr := c.turns.AwaitManualAnswer(ctx)
		if waitErr != nil {
			return waitErr
		}
		candidate, reply, err = c.turns.RunTurnWithTranscript(ctx, text, respond)
	}
	if err != nil {
		return err
	}

	c.emit(Event{Type: EventUtterance, Speaker: session.SpeakerCandidate, Text: candidate})
	c.emit(Event{Type: EventUtterance, Speaker: session.SpeakerInterviewer, Text: reply})
	return nil
}

// say speaks one interviewer line and mirrors it to the host.
func (c *Controller) say(ctx context.Context, text string) error {
	if err := c.turns.Say(ctx, text); err != nil {
		return err
	}
	c.emit(Event{Type: EventUtterance, Speaker: session.SpeakerInterviewer, Text: text})
	return nil
}

// closingInvitation is the synthesized line spoken when the question cap is
// reached. Built without the provider so termination never depends on it.
func (c *Controller) closingInvitation() string {
	return fmt.Sprintf(
		"That concludes the main part of the interview, %s. Do you have any questions for me?",
		c.sess.CandidateName())
}

// farewell is the final interviewer line before conclusion.
func (c *Controller) farewell() string {
	return fmt.Sprintf(
		"Thank you for your time today, %s. We'll put your feedback together now. Best of luck!",
		c.sess.CandidateName())
}

// abort emits the fatal event and releases any held devices.
func (c *Controller) abort(err error) {
	c.logger.Error("Session aborted: %v", err)
	c.emit(Event{Type: EventSessionAborted, Error: err.Error()})
	if c.turns != nil {
		c.devices.Release()
	}
}

func (c *Controller) emit(event Event) {
	event.SessionID = c.sess.ID()
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	select {
	case c.events <- event:
	default:
		c.logger.Warn("Event channel full, dropping %s event", event.Type)
	}
}
