package eventlog

import (
	"strings"
	"testing"
	"time"

	"interview/pkg/interview"
	"interview/pkg/session"
)

func TestWriteAndReadEvents(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewWriter(dir)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	defer func() { _ = writer.Close() }()

	events := []interview.Event{
		{
			Type:      interview.EventPhaseChange,
			SessionID: "sess-1",
			FromPhase: session.PhaseSetup,
			ToPhase:   session.PhaseNameConfirmation,
			Timestamp: time.Now().UTC(),
		},
		{
			Type:      interview.EventUtterance,
			SessionID: "sess-1",
			Speaker:   session.SpeakerInterviewer,
			Text:      "Tell me about yourself.",
			Timestamp: time.Now().UTC(),
		},
	}
	for _, event := range events {
		if err := writer.WriteEvent(event); err != nil {
			t.Fatalf("WriteEvent() error = %v", err)
		}
	}

	read, err := ReadEvents(writer.GetCurrentLogFile())
	if err != nil {
		t.Fatalf("ReadEvents() error = %v", err)
	}
	if len(read) != 2 {
		t.Fatalf("read %d events, want 2", len(read))
	}
	if read[0].Type != interview.EventPhaseChange || read[0].ToPhase != session.PhaseNameConfirmation {
		t.Errorf("first event = %+v", read[0])
	}
	if read[1].Text != "Tell me about yourself." {
		t.Errorf("second event = %+v", read[1])
	}
}

func TestCurrentLogFileNamedByDate(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewWriter(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = writer.Close() }()

	want := "events-" + time.Now().Format("2006-01-02") + ".jsonl"
	if got := writer.GetCurrentLogFile(); !strings.HasSuffix(got, want) {
		t.Errorf("GetCurrentLogFile() = %q, want suffix %q", got, want)
	}
}

func TestTailDrainsChannel(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewWriter(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = writer.Close() }()

	events := make(chan interview.Event, 2)
	events <- interview.Event{Type: interview.EventCaption, SessionID: "s", Text: "partial"}
	close(events)

	writer.Tail(events, nil, func(err error) { t.Errorf("tail error: %v", err) })

	read, err := ReadEvents(writer.GetCurrentLogFile())
	if err != nil {
		t.Fatal(err)
	}
	if len(read) != 1 || read[0].Type != interview.EventCaption {
		t.Errorf("read = %+v", read)
	}
}
