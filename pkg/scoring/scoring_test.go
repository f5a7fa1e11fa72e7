package scoring

import (
	"testing"

	"interview/pkg/session"
)

func TestFoldRunningMean(t *testing.T) {
	m := session.RunningMetrics{Tier: session.TierAverage}

	m = Fold(m, session.Evaluation{Clarity: 8, Relevance: 6, Depth: 4})
	if m.Samples != 1 {
		t.Fatalf("Samples = %d, want 1", m.Samples)
	}
	if m.Clarity != 8 || m.Relevance != 6 || m.Depth != 4 {
		t.Errorf("first fold should equal the evaluation, got %+v", m)
	}

	m = Fold(m, session.Evaluation{Clarity: 6, Relevance: 8, Depth: 6})
	if m.Clarity != 7 || m.Relevance != 7 || m.Depth != 5 {
		t.Errorf("second fold means wrong: %+v", m)
	}
	if m.Samples != 2 {
		t.Errorf("Samples = %d, want 2", m.Samples)
	}
}

func TestTierThresholds(t *testing.T) {
	tests := []struct {
		mean float64
		want session.PerformanceTier
	}{
		{9.5, session.TierExcellent},
		{8.0, session.TierExcellent},
		{7.9, session.TierGood},
		{6.0, session.TierGood},
		{5.9, session.TierAverage},
		{4.0, session.TierAverage},
		{3.9, session.TierPoor},
		{0, session.TierPoor},
	}
	for _, tt := range tests {
		if got := TierFromMean(tt.mean); got != tt.want {
			t.Errorf("TierFromMean(%v) = %s, want %s", tt.mean, got, tt.want)
		}
	}
}

func TestAggregatorRecordImpressions(t *testing.T) {
	sess := session.New("software engineer", 6)
	agg := NewAggregator(sess)

	agg.Record(session.Evaluation{Clarity: 9, Relevance: 5, Depth: 2})

	strengths := sess.Strengths()
	if len(strengths) != 1 || strengths[0] != "clear communication" {
		t.Errorf("Strengths = %v", strengths)
	}
	weak := sess.WeakPoints()
	if len(weak) != 1 || weak[0] != "answers lack depth" {
		t.Errorf("WeakPoints = %v", weak)
	}
	if sess.Metrics().Samples != 1 {
		t.Errorf("metrics not stored on session")
	}

	// Duplicate labels are dropped.
	agg.Record(session.Evaluation{Clarity: 9, Relevance: 5, Depth: 2})
	if len(sess.Strengths()) != 1 {
		t.Errorf("duplicate strength not dropped: %v", sess.Strengths())
	}
}

func TestFallbackScore(t *testing.T) {
	tests := []struct {
		answered int
		avgWords float64
		want     int
	}{
		{0, 0, 50},
		{3, 25, 70},       // 50 + 15 + 5
		{6, 200, 85},      // capped at 85
		{6, 0, 80},        // 50 + 30
		{1, 1000, 75},     // length bonus capped at 20
		{100, 1000, 85},   // overall cap
	}
	for _, tt := range tests {
		if got := FallbackScore(tt.answered, tt.avgWords); got != tt.want {
			t.Errorf("FallbackScore(%d, %v) = %d, want %d", tt.answered, tt.avgWords, got, tt.want)
		}
	}
}

func TestFallbackFeedbackDeterministic(t *testing.T) {
	sess := session.New("data analyst", 6)
	sess.Append(session.SpeakerInterviewer, "Tell me about a dataset you cleaned.")
	sess.Append(session.SpeakerCandidate, "I once cleaned a sales dataset with thousands of duplicate rows in it.")

	first := FallbackFeedback(sess)
	second := FallbackFeedback(sess)
	if first.OverallScore != second.OverallScore {
		t.Errorf("fallback score not deterministic: %d vs %d", first.OverallScore, second.OverallScore)
	}
	if !first.Fallback {
		t.Error("Fallback flag not set")
	}
	if len(first.Strengths) != 3 || len(first.Improvements) != 3 {
		t.Errorf("want 3 strengths and 3 improvements, got %d/%d", len(first.Strengths), len(first.Improvements))
	}
}

func TestFallbackFeedbackUsesRecordedImpressions(t *testing.T) {
	sess := session.New("software engineer", 6)
	agg := NewAggregator(sess)
	agg.Record(session.Evaluation{Clarity: 9, Relevance: 5, Depth: 2})

	fb := FallbackFeedback(sess)
	if len(fb.Strengths) != 1 || fb.Strengths[0] != "clear communication" {
		t.Errorf("Strengths = %v, want recorded impression", fb.Strengths)
	}
	if len(fb.Improvements) != 1 || fb.Improvements[0] != "answers lack depth" {
		t.Errorf("Improvements = %v, want recorded weak point", fb.Improvements)
	}
	if !fb.Fallback {
		t.Error("Fallback flag not set")
	}
}

func TestParseEvaluation(t *testing.T) {
	eval, err := ParseEvaluation(`Here are the scores: {"clarity": 7, "relevance": 9, "depth": 5} hope that helps`)
	if err != nil {
		t.Fatalf("ParseEvaluation() error = %v", err)
	}
	if eval.Clarity != 7 || eval.Relevance != 9 || eval.Depth != 5 {
		t.Errorf("ParseEvaluation() = %+v", eval)
	}

	// Out-of-range scores clamp rather than fail.
	eval, err = ParseEvaluation(`{"clarity": 15, "relevance": -2, "depth": 10}`)
	if err != nil {
		t.Fatalf("ParseEvaluation() error = %v", err)
	}
	if eval.Clarity != 10 || eval.Relevance != 0 || eval.Depth != 10 {
		t.Errorf("clamping wrong: %+v", eval)
	}

	if _, err := ParseEvaluation("no json here"); err == nil {
		t.Error("expected error for prose response")
	}
	if _, err := ParseEvaluation(`{"clarity": 7`); err == nil {
		t.Error("expected error for unbalanced JSON")
	}
}

func TestParseFeedback(t *testing.T) {
	raw := `{"overall_score": 78, "strengths": ["a", "b", "c"], "improvements": ["x"], "narrative": "Solid interview."}`
	fb, err := ParseFeedback(raw)
	if err != nil {
		t.Fatalf("ParseFeedback() error = %v", err)
	}
	if fb.OverallScore != 78 || fb.Narrative != "Solid interview." {
		t.Errorf("ParseFeedback() = %+v", fb)
	}
	if fb.Fallback {
		t.Error("parsed feedback must not carry the fallback flag")
	}

	if _, err := ParseFeedback(`{"overall_score": 150, "narrative": "x"}`); err == nil {
		t.Error("expected error for out-of-range score")
	}
	if _, err := ParseFeedback(`{"overall_score": 70}`); err == nil {
		t.Error("expected error for missing narrative")
	}
}

func TestParseFeedbackRejectsProviderFallback(t *testing.T) {
	raw := `{"overall_score": 90, "strengths": ["a"], "improvements": ["b"], "narrative": "good", "fallback": true}`
	if _, err := ParseFeedback(raw); err == nil {
		t.Error("expected error for provider-declared fallback flag")
	}
}

func TestClosingHeuristics(t *testing.T) {
	closing := []string{
		"That concludes our interview today.",
		"Do you have any questions for me?",
		"Thank you for your time, and best of luck!",
	}
	for _, text := range closing {
		if !IsInterviewerClosing(text) {
			t.Errorf("IsInterviewerClosing(%q) = false", text)
		}
	}
	if IsInterviewerClosing("Tell me about your last project.") {
		t.Error("regular question classified as closing")
	}

	done := []string{
		"No, that's all.",
		"no",
		"Nothing else from me, thanks.",
		"I'm good, thank you.",
	}
	for _, text := range done {
		if !IsCandidateDone(text) {
			t.Errorf("IsCandidateDone(%q) = false", text)
		}
	}
	if IsCandidateDone("Yes, what does the onboarding process look like?") {
		t.Error("real question classified as done")
	}
}

func TestIsAffirmative(t *testing.T) {
	yes := []string{"Yes", "yeah, it's my first time", "This is my first interview", "I guess so"}
	for _, text := range yes {
		if !IsAffirmative(text) {
			t.Errorf("IsAffirmative(%q) = false", text)
		}
	}
	no := []string{"No", "Nope, I've done a few", "no, not my first"}
	for _, text := range no {
		if IsAffirmative(text) {
			t.Errorf("IsAffirmative(%q) = true", text)
		}
	}
}
