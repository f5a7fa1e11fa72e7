// Package invoker is the fallback-protected gateway between the interview
// engine and the active LLM provider. Every method returns usable text or a
// usable score; provider failures are absorbed here and replaced with
// deterministic fallbacks so the phase controller never sees an error from
// a generative call.
package invoker

import (
	"context"
	"fmt"
	"strings"

	"interview/pkg/llm"
	"interview/pkg/llm/middleware/metrics"
	"interview/pkg/logx"
	"interview/pkg/questionpack"
	"interview/pkg/scoring"
	"interview/pkg/session"
	"interview/pkg/utils"
)

// historyTokenBudget bounds how much transcript is replayed to the provider
// per call. Old turns are dropped first.
const historyTokenBudget = 3000

// fallback kinds reported to the metrics recorder.
const (
	fallbackQuestion   = "question"
	fallbackAnswer     = "candidate_answer"
	fallbackEvaluation = "evaluation"
	fallbackFeedback   = "feedback"
)

// Invoker converts session context plus an instruction into interviewer
// text. One Invoker is bound to one session and one provider client, fixed
// for the session's lifetime.
type Invoker struct {
	client   llm.LLMClient
	pack     *questionpack.Pack
	recorder metrics.Recorder
	counter  *utils.TokenCounter
	logger   *logx.Logger
}

// New creates an invoker over an already-middleware-wrapped client. The
// question pack supplies the deterministic fallback rotation.
func New(client llm.LLMClient, pack *questionpack.Pack, recorder metrics.Recorder) *Invoker {
	if pack == nil {
		pack = questionpack.DefaultPack()
	}
	if recorder == nil {
		recorder = metrics.Nop()
	}
	counter, err := utils.NewTokenCounter()
	if err != nil {
		counter = nil // CountTokens degrades to a character estimate
	}
	return &Invoker{
		client:   client,
		pack:     pack,
		recorder: recorder,
		counter:  counter,
		logger:   logx.NewLogger("invoker"),
	}
}

// GenerateQuestion produces the next interviewer utterance for the given
// instruction. It never returns an error: on provider failure the canned
// line for the session's current question index is returned instead.
func (inv *Invoker) GenerateQuestion(ctx context.Context, sess *session.State, instruction string) string {
	text, err := inv.complete(ctx, sess, instruction, llm.TemperatureInterview)
	if err != nil {
		inv.logger.Warn("question generation failed, using fallback rotation: %v", err)
		inv.recorder.IncFallback(inv.client.GetModelName(), fallbackQuestion)
		return inv.pack.FallbackQuestion(sess.QuestionIndex())
	}
	return text
}

// AnswerCandidateQuestion produces a reply to a question the candidate asked
// the interviewer. Never returns an error.
func (inv *Invoker) AnswerCandidateQuestion(ctx context.Context, sess *session.State, question string) string {
	instruction := fmt.Sprintf(
		"The candidate asked you: %q. Answer briefly and honestly as the interviewer, "+
			"then ask whether they have any other questions.", question)
	text, err := inv.complete(ctx, sess, instruction, llm.TemperatureInterview)
	if err != nil {
		inv.logger.Warn("candidate-question answer failed, using fallback: %v", err)
		inv.recorder.IncFallback(inv.client.GetModelName(), fallbackAnswer)
		return inv.pack.CandidateQuestionFallback
	}
	return text
}

// EvaluateAnswer scores one candidate answer on clarity, relevance and
// depth. On provider or parse failure it falls back to a deterministic
// length-based estimate, so it never returns an error.
func (inv *Invoker) EvaluateAnswer(ctx context.Context, sess *session.State, lastQuestion, answer string) session.Evaluation {
	instruction := fmt.Sprintf(
		"Score the candidate's answer to %q on three dimensions from 0 to 10. "+
			"Answer: %q. Respond with only a JSON object: "+
			`{"clarity": n, "relevance": n, "depth": n}`,
		lastQuestion, answer)

	raw, err := inv.complete(ctx, sess, instruction, llm.TemperatureEvaluation)
	if err == nil {
		eval, parseErr := scoring.ParseEvaluation(raw)
		if parseErr == nil {
			return eval
		}
		err = parseErr
	}

	inv.logger.Warn("answer evaluation failed, using length estimate: %v", err)
	inv.recorder.IncFallback(inv.client.GetModelName(), fallbackEvaluation)
	return estimateEvaluation(answer)
}

// SynthesizeFeedback produces the final structured feedback at session end.
// On provider or parse failure it returns the deterministic formula result.
// Never returns an error.
func (inv *Invoker) SynthesizeFeedback(ctx context.Context, sess *session.State) scoring.Feedback {
	metricsNow := sess.Metrics()
	instruction := fmt.Sprintf(
		"The interview is over. Running means were clarity %.1f, relevance %.1f, depth %.1f "+
			"over %d answers. Produce final feedback as only a JSON object: "+
			`{"overall_score": 0-100, "strengths": ["..."], "improvements": ["..."], "narrative": "..."}`,
		metricsNow.Clarity, metricsNow.Relevance, metricsNow.Depth, metricsNow.Samples)

	raw, err := inv.complete(ctx, sess, instruction, llm.TemperatureEvaluation)
	if err == nil {
		fb, parseErr := scoring.ParseFeedback(raw)
		if parseErr == nil {
			return fb
		}
		err = parseErr
	}

	inv.logger.Warn("feedback synthesis failed, using formula: %v", err)
	inv.recorder.IncFallback(inv.client.GetModelName(), fallbackFeedback)
	return scoring.FallbackFeedback(sess)
}

// complete runs one provider call with the session's system context and
// transcript history. An empty response is an error so the fallback paths
// always have non-empty text to replace.
func (inv *Invoker) complete(ctx context.Context, sess *session.State, instruction string, temperature float32) (string, error) {
	req := llm.NewCompletionRequest(inv.buildMessages(sess, instruction))
	req.Temperature = temperature

	resp, err := inv.client.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return "", fmt.Errorf("provider returned empty response")
	}
	return text, nil
}

// buildMessages assembles system context plus recent transcript history,
// newest turns kept when the token budget forces a cut.
func (inv *Invoker) buildMessages(sess *session.State, instruction string) []llm.CompletionMessage {
	messages := []llm.CompletionMessage{llm.NewSystemMessage(inv.systemContext(sess))}

	transcript := sess.Transcript()
	start := 0
	budget := historyTokenBudget
	for i := len(transcript) - 1; i >= 0; i-- {
		budget -= inv.countTokens(transcript[i].Text)
		if budget < 0 {
			start = i + 1
			break
		}
	}
	for _, entry := range transcript[start:] {
		if entry.Speaker == session.SpeakerCandidate {
			messages = append(messages, llm.NewUserMessage(entry.Text))
		} else {
			messages = append(messages, llm.NewAssistantMessage(entry.Text))
		}
	}

	return append(messages, llm.NewUserMessage(instruction))
}

func (inv *Invoker) systemContext(sess *session.State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a professional interviewer running a mock interview for the role of %s.", sess.Role())
	if name := sess.CandidateName(); name != "" {
		fmt.Fprintf(&b, " The candidate's name is %s.", name)
	}
	fmt.Fprintf(&b, " Question %d of %d.", sess.QuestionIndex(), sess.MaxQuestions())
	b.WriteString(" Keep utterances short and conversational; they will be spoken aloud.")
	if seeds := inv.pack.SeedQuestions(sess.Role()); len(seeds) > 0 {
		b.WriteString(" Draw on question themes such as: ")
		b.WriteString(strings.Join(seeds, " / "))
	}
	return b.String()
}

func (inv *Invoker) countTokens(text string) int {
	if inv.counter == nil {
		return len(text) / 4
	}
	return inv.counter.CountTokens(text)
}

// estimateEvaluation derives sub-scores from answer length alone. Identical
// answers always get identical scores.
func estimateEvaluation(answer string) session.Evaluation {
	words := len(strings.Fields(answer))
	score := 3
	switch {
	case words >= 80:
		score = 7
	case words >= 40:
		score = 6
	case words >= 15:
		score = 5
	}
	return session.Evaluation{Clarity: score, Relevance: score, Depth: score}
}
