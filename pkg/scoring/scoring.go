// Package scoring owns the numeric side of the interview: folding per-answer
// evaluations into running means, the tier thresholds, the deterministic
// fallback score formula, and parsing of provider-generated summaries.
// Everything here is pure; the AI gateway and phase controller call in.
package scoring

import (
	"encoding/json"
	"fmt"
	"strings"

	"interview/pkg/session"
)

// Feedback is the final structured result produced at the end of a session.
type Feedback struct {
	OverallScore int      `json:"overall_score"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
	Narrative    string   `json:"narrative"`

	// Fallback is true when the score came from the deterministic formula
	// rather than a provider-generated summary.
	Fallback bool `json:"fallback"`
}

// Fold merges one answer evaluation into the running metrics with a simple
// running mean and recomputes the performance tier.
func Fold(m session.RunningMetrics, eval session.Evaluation) session.RunningMetrics {
	n := float64(m.Samples)
	m.Clarity = (m.Clarity*n + float64(eval.Clarity)) / (n + 1)
	m.Relevance = (m.Relevance*n + float64(eval.Relevance)) / (n + 1)
	m.Depth = (m.Depth*n + float64(eval.Depth)) / (n + 1)
	m.Samples++
	m.Tier = TierFromMean(m.Mean())
	return m
}

// TierFromMean maps a 0-10 running mean onto the coarse performance tier.
func TierFromMean(mean float64) session.PerformanceTier {
	switch {
	case mean >= 8:
		return session.TierExcellent
	case mean >= 6:
		return session.TierGood
	case mean >= 4:
		return session.TierAverage
	default:
		return session.TierPoor
	}
}

// Aggregator folds evaluations into one session's running metrics and tracks
// qualitative impressions. It holds no state of its own beyond the session
// handle, so callbacks created earlier always see live values.
type Aggregator struct {
	sess *session.State
}

// NewAggregator binds an aggregator to a session.
func NewAggregator(sess *session.State) *Aggregator {
	return &Aggregator{sess: sess}
}

// Record folds one evaluation into the session metrics and updates the
// strength and weak-point labels from the sub-scores.
func (a *Aggregator) Record(eval session.Evaluation) session.RunningMetrics {
	metrics := Fold(a.sess.Metrics(), eval)
	a.sess.SetMetrics(metrics)

	impress := func(score int, strength, weakness string) {
		if score >= 8 {
			a.sess.AddStrength(strength)
		} else if score <= 3 {
			a.sess.AddWeakPoint(weakness)
		}
	}
	impress(eval.Clarity, "clear communication", "unclear answers")
	impress(eval.Relevance, "stays on topic", "answers drift off topic")
	impress(eval.Depth, "detailed, concrete examples", "answers lack depth")

	return metrics
}

// FallbackScore computes the deterministic score used when the provider
// cannot supply a final summary. It rewards participation and answer length
// and is capped at 85 so a fully degraded session never outranks a scored one.
func FallbackScore(questionsAnswered int, avgAnswerWordCount float64) int {
	lengthBonus := int(avgAnswerWordCount / 5)
	if lengthBonus > 20 {
		lengthBonus = 20
	}
	score := 50 + 5*questionsAnswered + lengthBonus
	if score > 85 {
		score = 85
	}
	return score
}

// FallbackFeedback builds the degraded-path final feedback from session
// statistics. Impression labels recorded during scored answers are reused
// when present; a session with no scored answers gets generic lists.
func FallbackFeedback(sess *session.State) Feedback {
	answered, avgWords := sess.AnswerStats()
	if answered > sess.QuestionIndex() && sess.QuestionIndex() > 0 {
		answered = sess.QuestionIndex()
	}
	strengths := sess.Strengths()
	if len(strengths) == 0 {
		strengths = []string{
			"completed the interview",
			"engaged with every question",
			"communicated throughout the session",
		}
	}
	improvements := sess.WeakPoints()
	if len(improvements) == 0 {
		improvements = []string{
			"add concrete examples with measurable outcomes",
			"structure answers as situation, action, result",
			"practice speaking at a steady, unhurried pace",
		}
	}
	return Feedback{
		OverallScore: FallbackScore(answered, avgWords),
		Strengths:    strengths,
		Improvements: improvements,
		Narrative: fmt.Sprintf(
			"You answered %d question(s) with an average of %.0f words per answer. "+
				"Keep practicing structured answers backed by specific examples.",
			answered, avgWords),
		Fallback: true,
	}
}

// ParseEvaluation extracts the three sub-scores from a provider response.
// The provider is asked for a JSON object; anything around it is ignored.
// Scores are clamped to 0-10.
func ParseEvaluation(raw string) (session.Evaluation, error) {
	payload, err := extractJSONObject(raw)
	if err != nil {
		return session.Evaluation{}, err
	}

	var eval session.Evaluation
	if err := json.Unmarshal([]byte(payload), &eval); err != nil {
		return session.Evaluation{}, fmt.Errorf("failed to parse evaluation: %w", err)
	}
	eval.Clarity = clampScore(eval.Clarity)
	eval.Relevance = clampScore(eval.Relevance)
	eval.Depth = clampScore(eval.Depth)
	return eval, nil
}

// ParseFeedback extracts the final structured summary from a provider
// response. An out-of-range overall score, a missing narrative, or a
// provider-declared fallback flag fails the parse so the caller falls back
// to the deterministic formula.
func ParseFeedback(raw string) (Feedback, error) {
	payload, err := extractJSONObject(raw)
	if err != nil {
		return Feedback{}, err
	}

	var fb Feedback
	if err := json.Unmarshal([]byte(payload), &fb); err != nil {
		return Feedback{}, fmt.Errorf("failed to parse feedback: %w", err)
	}
	if fb.OverallScore < 0 || fb.OverallScore > 100 {
		return Feedback{}, fmt.Errorf("overall score %d out of range", fb.OverallScore)
	}
	if fb.Narrative == "" {
		return Feedback{}, fmt.Errorf("feedback missing narrative")
	}
	if fb.Fallback {
		// Only the engine may declare the degraded path. A provider
		// claiming it is treated like any other unusable summary.
		return Feedback{}, fmt.Errorf("feedback carries provider-declared fallback flag")
	}
	return fb, nil
}

// extractJSONObject returns the first balanced {...} block in raw. Providers
// often wrap JSON in prose or code fences.
func extractJSONObject(raw string) (string, error) {
	start := strings.Index(raw, "{")
	if start < 0 {
		return "", fmt.Errorf("no JSON object in response")
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced JSON object in response")
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}
