package session

import (
	"testing"
)

func TestNewSessionDefaults(t *testing.T) {
	s := New("backend engineer", 0)

	if s.ID() == "" {
		t.Error("expected non-empty session ID")
	}
	if s.Phase() != PhaseSetup {
		t.Errorf("initial phase = %s, want %s", s.Phase(), PhaseSetup)
	}
	if s.MaxQuestions() != DefaultMaxQuestions {
		t.Errorf("maxQuestions = %d, want %d", s.MaxQuestions(), DefaultMaxQuestions)
	}
	if s.QuestionIndex() != 0 {
		t.Errorf("questionIndex = %d, want 0", s.QuestionIndex())
	}
}

func TestCandidateNameImmutableAfterConfirmation(t *testing.T) {
	s := New("data analyst", 6)

	if err := s.SetCandidateName("Priya"); err != nil {
		t.Fatalf("SetCandidateName() during setup: %v", err)
	}

	s.SetPhase(PhaseQuestionLoop)
	if err := s.SetCandidateName("someone else"); err == nil {
		t.Error("expected error setting name after setup phases")
	}
	if s.CandidateName() != "Priya" {
		t.Errorf("candidateName = %q, want Priya", s.CandidateName())
	}
}

func TestAdvanceQuestionOnlyInQuestionLoop(t *testing.T) {
	s := New("backend engineer", 3)

	if err := s.AdvanceQuestion(); err == nil {
		t.Error("expected error advancing outside QUESTION_LOOP")
	}

	s.SetPhase(PhaseQuestionLoop)
	for i := 0; i < 3; i++ {
		if err := s.AdvanceQuestion(); err != nil {
			t.Fatalf("AdvanceQuestion() %d: %v", i, err)
		}
	}
	if s.QuestionIndex() != 3 {
		t.Errorf("questionIndex = %d, want 3", s.QuestionIndex())
	}

	// Never exceeds the cap.
	if err := s.AdvanceQuestion(); err == nil {
		t.Error("expected error advancing past maxQuestions")
	}
	if s.QuestionIndex() != 3 {
		t.Errorf("questionIndex = %d after cap, want 3", s.QuestionIndex())
	}
}

func TestFirstTimeFlagWriteOnce(t *testing.T) {
	s := New("backend engineer", 6)

	if _, known := s.FirstTime(); known {
		t.Error("first-time flag should start unknown")
	}

	s.SetFirstTime(true)
	s.SetFirstTime(false) // ignored

	firstTime, known := s.FirstTime()
	if !known || !firstTime {
		t.Errorf("FirstTime() = (%v, %v), want (true, true)", firstTime, known)
	}
}

func TestTranscriptAppendOnly(t *testing.T) {
	s := New("backend engineer", 6)

	s.Append(SpeakerInterviewer, "Tell me about yourself.")
	s.Append(SpeakerCandidate, "I build distributed systems.")

	transcript := s.Transcript()
	if len(transcript) != 2 {
		t.Fatalf("transcript length = %d, want 2", len(transcript))
	}
	if transcript[0].Speaker != SpeakerInterviewer || transcript[1].Speaker != SpeakerCandidate {
		t.Error("transcript order does not match append order")
	}

	// Mutating the copy must not affect the session.
	transcript[0].Text = "tampered"
	if s.Transcript()[0].Text == "tampered" {
		t.Error("Transcript() returned a live reference")
	}
}

func TestAnswerStats(t *testing.T) {
	s := New("backend engineer", 6)
	s.Append(SpeakerInterviewer, "Question one?")
	s.Append(SpeakerCandidate, "one two three four")
	s.Append(SpeakerInterviewer, "Question two?")
	s.Append(SpeakerCandidate, "one two")

	answers, avgWords := s.AnswerStats()
	if answers != 2 {
		t.Errorf("answers = %d, want 2", answers)
	}
	if avgWords != 3 {
		t.Errorf("avgWords = %.1f, want 3.0", avgWords)
	}
}

func TestLabelsAppendUnique(t *testing.T) {
	s := New("backend engineer", 6)
	s.AddStrength("clear communication")
	s.AddStrength("clear communication")
	s.AddStrength("")
	s.AddWeakPoint("shallow examples")

	if got := s.Strengths(); len(got) != 1 {
		t.Errorf("strengths = %v, want one entry", got)
	}
	if got := s.WeakPoints(); len(got) != 1 {
		t.Errorf("weakPoints = %v, want one entry", got)
	}
}
