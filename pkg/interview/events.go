package interview

import (
	"time"

	"interview/pkg/scoring"
	"interview/pkg/session"
)

// EventType identifies a host-facing event emitted by the engine.
type EventType string

const (
	// EventPhaseChange fires on every phase transition.
	EventPhaseChange EventType = "phase_change"

	// EventCaption carries partial transcript text for live captioning.
	EventCaption EventType = "caption"

	// EventUtterance carries one completed transcript line.
	EventUtterance EventType = "utterance"

	// EventRecognitionExhausted fires once when capture retries are used
	// up for a turn. The host should offer manual text entry.
	EventRecognitionExhausted EventType = "recognition_exhausted"

	// EventSessionCompleted carries the full transcript and final
	// feedback. Terminal.
	EventSessionCompleted EventType = "session_completed"

	// EventSessionAborted fires on a fatal error such as device
	// acquisition failure. Terminal.
	EventSessionAborted EventType = "session_aborted"
)

// Event is one notification to the host UI. Only the fields relevant to the
// event type are populated.
//
//nolint:govet // fieldalignment: logical grouping preferred
type Event struct {
	Type      EventType       `json:"type"`
	SessionID string          `json:"session_id"`
	Timestamp time.Time       `json:"timestamp"`

	// Phase change.
	FromPhase session.Phase `json:"from_phase,omitempty"`
	ToPhase   session.Phase `json:"to_phase,omitempty"`

	// Caption and utterance.
	Speaker session.Speaker `json:"speaker,omitempty"`
	Text    string          `json:"text,omitempty"`

	// Session completed.
	Transcript []session.TranscriptEntry `json:"transcript,omitempty"`
	Feedback   *scoring.Feedback         `json:"feedback,omitempty"`

	// Session aborted.
	Error string `json:"error,omitempty"`
}

// Intent is an input from the host UI into a running session.
type Intent struct {
	Type IntentType `json:"type"`

	// Name for IntentNameSubmitted; Text for IntentManualAnswer;
	// Agreed for IntentRulesAgreed; Muted for IntentMuteToggle.
	Name   string `json:"name,omitempty"`
	Text   string `json:"text,omitempty"`
	Agreed bool   `json:"agreed,omitempty"`
	Muted  bool   `json:"muted,omitempty"`
}

// IntentType identifies a host intent.
type IntentType string

const (
	IntentNameSubmitted IntentType = "name_submitted"
	IntentRulesAgreed   IntentType = "rules_agreed"
	IntentManualAnswer  IntentType = "manual_answer"
	IntentMuteToggle    IntentType = "mute_toggle"
)
