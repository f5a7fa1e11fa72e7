package interview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"interview/pkg/logx"
	"interview/pkg/session"
)

// ErrInvalidTransition is returned when a phase transition is not allowed.
var ErrInvalidTransition = errors.New("invalid phase transition")

// PhaseTransition records one applied transition.
type PhaseTransition struct {
	From      session.Phase
	To        session.Phase
	Timestamp time.Time
}

// TransitionTable enumerates the legal transitions per phase.
type TransitionTable map[session.Phase][]session.Phase

// DefaultTransitions returns the interview phase graph. The path is strictly
// forward except the name-confirmation rejection edge back to setup and the
// candidate-questions self-loop.
func DefaultTransitions() TransitionTable {
	return TransitionTable{
		session.PhaseSetup:              {session.PhaseNameConfirmation},
		session.PhaseNameConfirmation:   {session.PhaseLoading, session.PhaseSetup},
		session.PhaseLoading:            {session.PhaseIntroduction},
		session.PhaseIntroduction:       {session.PhaseFirstTimeFollowUp},
		session.PhaseFirstTimeFollowUp:  {session.PhaseQuestionLoop},
		session.PhaseQuestionLoop:       {session.PhaseCandidateQuestions},
		session.PhaseCandidateQuestions: {session.PhaseCandidateQuestions, session.PhaseConclusion},
		session.PhaseConclusion:         {},
	}
}

// PhaseMachine validates and applies phase transitions for one session. The
// session's State stores the current phase; the machine owns legality,
// history, and change notifications.
type PhaseMachine struct {
	sess        *session.State
	table       TransitionTable
	transitions []PhaseTransition
	logger      *logx.Logger
	notifCh     chan<- Event
	mu          sync.Mutex
}

// NewPhaseMachine creates a phase machine over a session. A nil table uses
// DefaultTransitions.
func NewPhaseMachine(sess *session.State, table TransitionTable) *PhaseMachine {
	if table == nil {
		table = DefaultTransitions()
	}
	return &PhaseMachine{
		sess:        sess,
		table:       table,
		transitions: make([]PhaseTransition, 0),
		logger:      logx.NewLogger(sess.ID()),
	}
}

// Current returns the current phase.
func (pm *PhaseMachine) Current() session.Phase {
	return pm.sess.Phase()
}

// IsValidTransition reports whether from → to is in the table. A phase may
// always "transition" to itself only if the table lists the self-edge.
func (pm *PhaseMachine) IsValidTransition(from, to session.Phase) bool {
	for _, allowed := range pm.table[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TransitionTo moves to a new phase, recording the transition and notifying
// the host. Illegal transitions return ErrInvalidTransition and change
// nothing.
func (pm *PhaseMachine) TransitionTo(ctx context.Context, to session.Phase) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("phase transition cancelled: %w", ctx.Err())
	default:
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()

	from := pm.sess.Phase()
	if !pm.IsValidTransition(from, to) {
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, from, to)
	}

	transition := PhaseTransition{
		From:      from,
		To:        to,
		Timestamp: time.Now().UTC(),
	}
	pm.transitions = append(pm.transitions, transition)
	pm.sess.SetPhase(to)

	pm.logger.Info("🔄 Phase transition: %s → %s", from, to)

	// Notify the host without blocking the state machine.
	if pm.notifCh != nil {
		event := Event{
			Type:      EventPhaseChange,
			SessionID: pm.sess.ID(),
			Timestamp: transition.Timestamp,
			FromPhase: from,
			ToPhase:   to,
		}
		select {
		case pm.notifCh <- event:
		default:
			pm.logger.Warn("Event channel full, dropping phase change %s → %s", from, to)
		}
	}

	return nil
}

// Transitions returns the transition history.
func (pm *PhaseMachine) Transitions() []PhaseTransition {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return append([]PhaseTransition{}, pm.transitions...)
}

// Terminal reports whether the current phase has no outgoing transitions.
func (pm *PhaseMachine) Terminal() bool {
	return len(pm.table[pm.sess.Phase()]) == 0
}

// SetNotificationChannel sets the channel phase-change events are sent to.
func (pm *PhaseMachine) SetNotificationChannel(ch chan<- Event) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.notifCh = ch
}
