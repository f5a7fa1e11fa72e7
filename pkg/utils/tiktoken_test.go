package utils

import (
	"strings"
	"testing"
)

func TestCountTokens(t *testing.T) {
	counter, err := NewTokenCounter()
	if err != nil {
		t.Fatalf("NewTokenCounter() error = %v", err)
	}

	if got := counter.CountTokens(""); got != 0 {
		t.Errorf("CountTokens(\"\") = %d, want 0", got)
	}

	count := counter.CountTokens("Tell me about a time you disagreed with a teammate.")
	if count <= 0 || count > 20 {
		t.Errorf("CountTokens() = %d, want a small positive count", count)
	}
}

func TestTruncateToTokenLimit(t *testing.T) {
	counter, err := NewTokenCounter()
	if err != nil {
		t.Fatalf("NewTokenCounter() error = %v", err)
	}

	short := "brief answer"
	if got := counter.TruncateToTokenLimit(short, 100); got != short {
		t.Errorf("TruncateToTokenLimit() modified text within limit")
	}

	long := strings.Repeat("some words about my experience ", 200)
	truncated := counter.TruncateToTokenLimit(long, 50)
	if len(truncated) >= len(long) {
		t.Error("TruncateToTokenLimit() did not shrink text over limit")
	}
	if !strings.HasSuffix(truncated, "...") {
		t.Error("truncated text missing ellipsis")
	}
}
