package logx

import (
	"testing"
	"time"
)

func TestLogBufferCapture(t *testing.T) {
	logger := NewLogger("session-abc")
	logger.Info("turn %d complete", 3)

	entries := GetRecentLogEntries("session-abc", time.Time{})
	if len(entries) == 0 {
		t.Fatal("expected at least one buffered entry")
	}

	last := entries[len(entries)-1]
	if last.Level != string(LevelInfo) {
		t.Errorf("Level = %s, want INFO", last.Level)
	}
	if last.Message != "turn 3 complete" {
		t.Errorf("Message = %q, want 'turn 3 complete'", last.Message)
	}
}

func TestLogBufferFiltersByID(t *testing.T) {
	NewLogger("session-one").Info("hello")
	NewLogger("session-two").Info("world")

	entries := GetRecentLogEntries("session-two", time.Time{})
	for _, e := range entries {
		if e.ID != "session-two" {
			t.Errorf("entry ID = %s, want session-two", e.ID)
		}
	}
}

func TestDebugSuppressedByDefault(t *testing.T) {
	SetDebug(false)
	before := len(GetRecentLogEntries("debug-test", time.Time{}))
	NewLogger("debug-test").Debug("should not appear")
	after := len(GetRecentLogEntries("debug-test", time.Time{}))
	if after != before {
		t.Error("debug entry buffered while debug disabled")
	}

	SetDebug(true)
	defer SetDebug(false)
	NewLogger("debug-test").Debug("should appear")
	if len(GetRecentLogEntries("debug-test", time.Time{})) != before+1 {
		t.Error("debug entry missing while debug enabled")
	}
}
