// Package session defines the authoritative state of one live interview.
// It is the shared leaf package: the phase controller, turn orchestrator,
// and scoring aggregator all mutate a single *State through its guarded
// methods, so callbacks created earlier always observe live values.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Phase represents a named state of the top-level interview state machine.
type Phase string

const (
	PhaseSetup              Phase = "SETUP"
	PhaseNameConfirmation   Phase = "NAME_CONFIRMATION"
	PhaseLoading            Phase = "LOADING"
	PhaseIntroduction       Phase = "INTRODUCTION"
	PhaseFirstTimeFollowUp  Phase = "FIRST_TIME_FOLLOW_UP"
	PhaseQuestionLoop       Phase = "QUESTION_LOOP"
	PhaseCandidateQuestions Phase = "CANDIDATE_QUESTIONS"
	PhaseConclusion         Phase = "CONCLUSION"
)

// Speaker identifies which side of the conversation produced a line.
type Speaker string

const (
	SpeakerInterviewer Speaker = "interviewer"
	SpeakerCandidate   Speaker = "candidate"
)

// DefaultMaxQuestions is the hard cap on main interview questions.
const DefaultMaxQuestions = 6

// TranscriptEntry is one line of the interview transcript.
type TranscriptEntry struct {
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// PerformanceTier is the coarse classification derived from running means.
type PerformanceTier string

const (
	TierExcellent PerformanceTier = "excellent"
	TierGood      PerformanceTier = "good"
	TierAverage   PerformanceTier = "average"
	TierPoor      PerformanceTier = "poor"
)

// RunningMetrics holds per-dimension running means over evaluated answers.
type RunningMetrics struct {
	Clarity   float64         `json:"clarity"`
	Relevance float64         `json:"relevance"`
	Depth     float64         `json:"depth"`
	Samples   int             `json:"samples"`
	Tier      PerformanceTier `json:"tier"`
}

// Mean returns the mean of the three dimension averages.
func (m *RunningMetrics) Mean() float64 {
	return (m.Clarity + m.Relevance + m.Depth) / 3.0
}

// Evaluation is the scored result of one candidate answer.
type Evaluation struct {
	Clarity   int `json:"clarity"`
	Relevance int `json:"relevance"`
	Depth     int `json:"depth"`
}

// State is the mutable record of one interview session. All access goes
// through the guarded methods; the struct is instantiated per candidate
// session and shares nothing with other sessions.
//
//nolint:govet // fieldalignment: logical grouping preferred
type State struct {
	mu sync.Mutex

	id            string
	role          string
	candidateName string
	phase         Phase
	firstTime     bool
	firstTimeSet  bool
	maxQuestions  int

	transcript    []TranscriptEntry
	questionIndex int

	metrics    RunningMetrics
	strengths  []string
	weakPoints []string

	createdAt time.Time
}

// New creates a session for the given target role. The session ID is
// assigned once and never changes.
func New(role string, maxQuestions int) *State {
	if maxQuestions <= 0 {
		maxQuestions = DefaultMaxQuestions
	}
	return &State{
		id:           uuid.New().String(),
		role:         role,
		phase:        PhaseSetup,
		maxQuestions: maxQuestions,
		transcript:   make([]TranscriptEntry, 0),
		metrics:      RunningMetrics{Tier: TierAverage},
		createdAt:    time.Now().UTC(),
	}
}

// ID returns the immutable session identifier.
func (s *State) ID() string { return s.id }

// Role returns the target role the candidate is interviewing for.
func (s *State) Role() string { return s.role }

// CreatedAt returns the session creation time.
func (s *State) CreatedAt() time.Time { return s.createdAt }

// MaxQuestions returns the main-question cap for this session.
func (s *State) MaxQuestions() int { return s.maxQuestions }

// SetCandidateName records the candidate name. It may only be set while the
// session is still in the setup phases; once the interview proper starts the
// name is immutable.
func (s *State) SetCandidateName(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseSetup && s.phase != PhaseNameConfirmation {
		return fmt.Errorf("candidate name is immutable after phase %s", PhaseNameConfirmation)
	}
	s.candidateName = name
	return nil
}

// CandidateName returns the candidate name recorded at setup.
func (s *State) CandidateName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.candidateName
}

// Phase returns the current phase.
func (s *State) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// SetPhase records the current phase. Transition legality is enforced by the
// phase controller; State only stores the result.
func (s *State) SetPhase(p Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = p
}

// SetFirstTime records whether this is the candidate's first AI interview.
// The flag is write-once; later calls are ignored.
func (s *State) SetFirstTime(firstTime bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.firstTimeSet {
		return
	}
	s.firstTime = firstTime
	s.firstTimeSet = true
}

// FirstTime reports the first-time flag and whether it has been set.
func (s *State) FirstTime() (firstTime, known bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.firstTime, s.firstTimeSet
}

// Append adds one line to the transcript. The transcript is append-only and
// ordered by turn completion.
func (s *State) Append(speaker Speaker, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = append(s.transcript, TranscriptEntry{
		Speaker:   speaker,
		Text:      text,
		Timestamp: time.Now().UTC(),
	})
}

// Transcript returns a copy of the transcript.
func (s *State) Transcript() []TranscriptEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]TranscriptEntry{}, s.transcript...)
}

// QuestionIndex returns the number of completed main questions.
func (s *State) QuestionIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questionIndex
}

// ResetQuestionIndex zeroes the counter on entry to the question loop. The
// first-time exchange does not count toward the cap.
func (s *State) ResetQuestionIndex() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questionIndex = 0
}

// AdvanceQuestion increments the question counter. It is legal only inside
// the question loop and never past the cap.
func (s *State) AdvanceQuestion() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseQuestionLoop {
		return fmt.Errorf("question index only advances in %s, current phase %s", PhaseQuestionLoop, s.phase)
	}
	if s.questionIndex >= s.maxQuestions {
		return fmt.Errorf("question index already at cap %d", s.maxQuestions)
	}
	s.questionIndex++
	return nil
}

// Metrics returns a copy of the running metrics.
func (s *State) Metrics() RunningMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics
}

// SetMetrics stores recomputed running metrics. Called by the scoring
// aggregator after folding an evaluation.
func (s *State) SetMetrics(m RunningMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m
}

// AddStrength appends a strength label. Labels are never removed during a
// session; duplicates are dropped.
func (s *State) AddStrength(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strengths = appendUnique(s.strengths, label)
}

// AddWeakPoint appends a weak-point label.
func (s *State) AddWeakPoint(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.weakPoints = appendUnique(s.weakPoints, label)
}

// Strengths returns a copy of the strength labels.
func (s *State) Strengths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.strengths...)
}

// WeakPoints returns a copy of the weak-point labels.
func (s *State) WeakPoints() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.weakPoints...)
}

// AnswerStats returns the number of candidate lines and their average word
// count. Used by the deterministic fallback score formula.
func (s *State) AnswerStats() (answers int, avgWords float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	totalWords := 0
	for i := range s.transcript {
		if s.transcript[i].Speaker != SpeakerCandidate {
			continue
		}
		answers++
		totalWords += wordCount(s.transcript[i].Text)
	}
	if answers == 0 {
		return 0, 0
	}
	return answers, float64(totalWords) / float64(answers)
}

func appendUnique(list []string, label string) []string {
	if label == "" {
		return list
	}
	for _, existing := range list {
		if existing == label {
			return list
		}
	}
	return append(list, label)
}

func wordCount(text string) int {
	count := 0
	inWord := false
	for _, r := range text {
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			inWord = false
		case !inWord:
			inWord = true
			count++
		}
	}
	return count
}
