// Package eventlog provides an append-only JSONL audit trail of interview
// engine events: phase transitions, utterances, and session outcomes. Files
// rotate daily.
package eventlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"interview/pkg/interview"
)

// Writer handles structured logging of engine events to daily rotated JSONL
// files.
type Writer struct {
	logDir      string
	currentFile *os.File
	currentDate string
	mu          sync.Mutex
}

// NewWriter creates an event log writer with daily rotation in the specified
// directory.
func NewWriter(logDir string) (*Writer, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	writer := &Writer{logDir: logDir}
	if err := writer.rotateIfNeeded(); err != nil {
		return nil, fmt.Errorf("failed to initialize log file: %w", err)
	}
	return writer, nil
}

// WriteEvent appends one engine event to the current log file, rotating
// first if the day has changed.
func (w *Writer) WriteEvent(event interview.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.rotateIfNeeded(); err != nil {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}

	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}

	if _, err := w.currentFile.Write(jsonData); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	if _, err := w.currentFile.WriteString("\n"); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	if err := w.currentFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync file: %w", err)
	}
	return nil
}

func (w *Writer) rotateIfNeeded() error {
	newDate := time.Now().Format("2006-01-02")
	if w.currentFile == nil || w.currentDate != newDate {
		return w.rotate(newDate)
	}
	return nil
}

func (w *Writer) rotate(newDate string) error {
	if w.currentFile != nil {
		if err := w.currentFile.Close(); err != nil {
			return fmt.Errorf("failed to close current log file: %w", err)
		}
	}

	path := filepath.Join(w.logDir, fmt.Sprintf("events-%s.jsonl", newDate))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	w.currentFile = file
	w.currentDate = newDate
	return nil
}

// Close closes the current log file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.currentFile != nil {
		err := w.currentFile.Close()
		w.currentFile = nil
		if err != nil {
			return fmt.Errorf("failed to close event log file: %w", err)
		}
	}
	return nil
}

// GetCurrentLogFile returns the path of the currently active log file.
func (w *Writer) GetCurrentLogFile() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.currentFile == nil {
		return ""
	}
	return filepath.Join(w.logDir, fmt.Sprintf("events-%s.jsonl", w.currentDate))
}

// ReadEvents reads and parses events from a specific log file.
func ReadEvents(logFilePath string) ([]interview.Event, error) {
	data, err := os.ReadFile(logFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}

	events := []interview.Event{}
	start := 0
	for i, b := range data {
		if b != '\n' {
			continue
		}
		line := data[start:i]
		start = i + 1
		if len(line) == 0 {
			continue
		}
		var event interview.Event
		if err := json.Unmarshal(line, &event); err != nil {
			return nil, fmt.Errorf("failed to parse event: %w", err)
		}
		events = append(events, event)
	}
	return events, nil
}

// Tail consumes events from a controller's event channel and logs each one
// until the channel is drained or done is closed. Intended to run in its own
// goroutine; write failures are returned through the provided callback.
func (w *Writer) Tail(events <-chan interview.Event, done <-chan struct{}, onError func(error)) {
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := w.WriteEvent(event); err != nil && onError != nil {
				onError(err)
			}
		case <-done:
			return
		}
	}
}
