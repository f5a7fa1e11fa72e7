package anthropic

import (
	"strings"
	"testing"

	"interview/pkg/llm"
)

func TestEnsureAlternationInterviewerFirst(t *testing.T) {
	// The interviewer always speaks before the candidate, so real
	// transcripts reach the client assistant-first.
	history := []llm.CompletionMessage{
		llm.NewSystemMessage("You are a mock interviewer."),
		llm.NewAssistantMessage("Hello Jordan, welcome. Tell me about yourself."),
		llm.NewUserMessage("I'm a backend engineer with five years of experience."),
		llm.NewUserMessage("Ask the next question."),
	}

	system, merged, err := ensureAlternation(history)
	if err != nil {
		t.Fatalf("ensureAlternation() error = %v", err)
	}
	if system != "You are a mock interviewer." {
		t.Errorf("system prompt = %q", system)
	}
	if len(merged) != 3 {
		t.Fatalf("len(merged) = %d, want 3: %+v", len(merged), merged)
	}
	if merged[0].Role != llm.RoleUser || merged[0].Content != seedUserTurn {
		t.Errorf("history not seeded with a user turn: %+v", merged[0])
	}
	if merged[1].Role != llm.RoleAssistant {
		t.Errorf("merged[1].Role = %s, want assistant", merged[1].Role)
	}
	if merged[2].Role != llm.RoleUser {
		t.Errorf("merged[2].Role = %s, want user", merged[2].Role)
	}
	if !strings.Contains(merged[2].Content, "backend engineer") ||
		!strings.Contains(merged[2].Content, "Ask the next question.") {
		t.Errorf("consecutive user messages not merged: %q", merged[2].Content)
	}
}

func TestEnsureAlternationUserFirstUntouched(t *testing.T) {
	history := []llm.CompletionMessage{
		llm.NewUserMessage("hello"),
		llm.NewAssistantMessage("hi"),
		llm.NewUserMessage("question"),
	}

	_, merged, err := ensureAlternation(history)
	if err != nil {
		t.Fatalf("ensureAlternation() error = %v", err)
	}
	if len(merged) != 3 {
		t.Fatalf("len(merged) = %d, want 3", len(merged))
	}
	if merged[0].Content != "hello" {
		t.Errorf("user-first history should not be seeded: %+v", merged[0])
	}
}

func TestEnsureAlternationRejections(t *testing.T) {
	if _, _, err := ensureAlternation(nil); err == nil {
		t.Error("expected error for empty message list")
	}
	if _, _, err := ensureAlternation([]llm.CompletionMessage{
		llm.NewSystemMessage("only system"),
	}); err == nil {
		t.Error("expected error for system-only history")
	}
	if _, _, err := ensureAlternation([]llm.CompletionMessage{
		llm.NewUserMessage("hello"),
		llm.NewAssistantMessage("hi"),
	}); err == nil {
		t.Error("expected error for assistant-final history")
	}
}
