package invoker

import (
	"context"
	"fmt"
	"testing"

	"interview/internal/mocks"
	"interview/pkg/llm"
	"interview/pkg/questionpack"
	"interview/pkg/session"
)

func newTestSession(t *testing.T) *session.State {
	t.Helper()
	sess := session.New("software engineer", 6)
	if err := sess.SetCandidateName("Alex"); err != nil {
		t.Fatal(err)
	}
	return sess
}

func TestGenerateQuestionSuccess(t *testing.T) {
	client := mocks.NewMockLLMClient()
	client.OnComplete(func(_ context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
		if len(req.Messages) == 0 || req.Messages[0].Role != llm.RoleSystem {
			t.Error("request missing system context")
		}
		return llm.CompletionResponse{Content: "Tell me about your current role."}, nil
	})
	inv := New(client, nil, nil)

	got := inv.GenerateQuestion(context.Background(), newTestSession(t), "ask the next question")
	if got != "Tell me about your current role." {
		t.Errorf("GenerateQuestion() = %q", got)
	}
}

func TestGenerateQuestionFallbackDeterministic(t *testing.T) {
	client := mocks.NewMockLLMClient()
	client.OnComplete(func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		return llm.CompletionResponse{}, fmt.Errorf("provider down")
	})
	pack := questionpack.DefaultPack()
	inv := New(client, pack, nil)
	sess := newTestSession(t)

	first := inv.GenerateQuestion(context.Background(), sess, "ask")
	second := inv.GenerateQuestion(context.Background(), sess, "ask")
	if first != second {
		t.Errorf("fallback not deterministic for same index: %q vs %q", first, second)
	}
	if first != pack.FallbackQuestion(sess.QuestionIndex()) {
		t.Errorf("fallback did not come from rotation: %q", first)
	}
	if first == "" {
		t.Error("fallback must be non-empty")
	}
}

func TestGenerateQuestionEmptyResponseFallsBack(t *testing.T) {
	client := mocks.NewMockLLMClient()
	client.OnComplete(func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		return llm.CompletionResponse{Content: "   "}, nil
	})
	inv := New(client, nil, nil)

	if got := inv.GenerateQuestion(context.Background(), newTestSession(t), "ask"); got == "" {
		t.Error("empty provider response must still yield a question")
	}
}

func TestGenerateQuestionCancelledContextCompletesFallback(t *testing.T) {
	client := mocks.NewMockLLMClient()
	client.OnComplete(func(ctx context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		return llm.CompletionResponse{}, ctx.Err()
	})
	inv := New(client, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got := inv.GenerateQuestion(ctx, newTestSession(t), "ask"); got == "" {
		t.Error("cancelled call must still resolve to a fallback line")
	}
}

func TestAnswerCandidateQuestionFallback(t *testing.T) {
	client := mocks.NewMockLLMClient()
	client.OnComplete(func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		return llm.CompletionResponse{}, fmt.Errorf("timeout")
	})
	pack := questionpack.DefaultPack()
	inv := New(client, pack, nil)

	got := inv.AnswerCandidateQuestion(context.Background(), newTestSession(t), "What is the team like?")
	if got != pack.CandidateQuestionFallback {
		t.Errorf("AnswerCandidateQuestion() = %q, want pack fallback", got)
	}
}

func TestEvaluateAnswerParsesScores(t *testing.T) {
	client := mocks.NewMockLLMClient()
	client.OnComplete(func(_ context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
		if req.Temperature != llm.TemperatureEvaluation {
			t.Errorf("evaluation temperature = %v, want %v", req.Temperature, llm.TemperatureEvaluation)
		}
		return llm.CompletionResponse{Content: `{"clarity": 8, "relevance": 7, "depth": 6}`}, nil
	})
	inv := New(client, nil, nil)

	eval := inv.EvaluateAnswer(context.Background(), newTestSession(t), "Q", "a solid answer")
	if eval.Clarity != 8 || eval.Relevance != 7 || eval.Depth != 6 {
		t.Errorf("EvaluateAnswer() = %+v", eval)
	}
}

func TestEvaluateAnswerFallbackIsLengthBased(t *testing.T) {
	client := mocks.NewMockLLMClient()
	client.OnComplete(func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		return llm.CompletionResponse{Content: "not json at all"}, nil
	})
	inv := New(client, nil, nil)
	sess := newTestSession(t)

	short := inv.EvaluateAnswer(context.Background(), sess, "Q", "yes")
	long := inv.EvaluateAnswer(context.Background(), sess, "Q",
		"I led the migration of our payment service to a new queueing system, "+
			"wrote the rollout plan, coordinated with three other teams, and we "+
			"shipped it with zero downtime over a six week period of staged deploys.")
	if short.Clarity >= long.Clarity {
		t.Errorf("longer answer should estimate higher: short=%+v long=%+v", short, long)
	}

	again := inv.EvaluateAnswer(context.Background(), sess, "Q", "yes")
	if again != short {
		t.Errorf("fallback evaluation not deterministic: %+v vs %+v", again, short)
	}
}

func TestSynthesizeFeedbackParsed(t *testing.T) {
	client := mocks.NewMockLLMClient()
	client.OnComplete(func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		return llm.CompletionResponse{Content: `{"overall_score": 82, "strengths": ["s"], "improvements": ["i"], "narrative": "Well done."}`}, nil
	})
	inv := New(client, nil, nil)

	fb := inv.SynthesizeFeedback(context.Background(), newTestSession(t))
	if fb.OverallScore != 82 || fb.Fallback {
		t.Errorf("SynthesizeFeedback() = %+v", fb)
	}
}

func TestSynthesizeFeedbackFallbackFormula(t *testing.T) {
	client := mocks.NewMockLLMClient()
	client.OnComplete(func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		return llm.CompletionResponse{}, fmt.Errorf("provider down")
	})
	inv := New(client, nil, nil)

	sess := newTestSession(t)
	sess.Append(session.SpeakerInterviewer, "Tell me about yourself.")
	sess.Append(session.SpeakerCandidate, "I am a backend engineer with five years of experience in Go and distributed systems.")

	fb := inv.SynthesizeFeedback(context.Background(), sess)
	if !fb.Fallback {
		t.Fatal("expected fallback feedback")
	}
	// 1 answer, 15 words: 50 + 5*1 + 15/5 = 58
	if fb.OverallScore != 58 {
		t.Errorf("fallback score = %d, want 58", fb.OverallScore)
	}
}

func TestHistoryIncludedInPrompt(t *testing.T) {
	var captured llm.CompletionRequest
	client := mocks.NewMockLLMClient()
	client.OnComplete(func(_ context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
		captured = req
		return llm.CompletionResponse{Content: "ok"}, nil
	})
	inv := New(client, nil, nil)

	sess := newTestSession(t)
	sess.Append(session.SpeakerInterviewer, "Tell me about yourself.")
	sess.Append(session.SpeakerCandidate, "I build backend services.")

	inv.GenerateQuestion(context.Background(), sess, "ask the next question")

	// system + 2 history entries + instruction
	if len(captured.Messages) != 4 {
		t.Fatalf("message count = %d, want 4", len(captured.Messages))
	}
	if captured.Messages[1].Role != llm.RoleAssistant || captured.Messages[2].Role != llm.RoleUser {
		t.Errorf("history roles wrong: %v %v", captured.Messages[1].Role, captured.Messages[2].Role)
	}
}
