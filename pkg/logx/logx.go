// Package logx provides structured logging with per-session prefixes and an
// in-memory buffer consumed by the web UI live feed.
package logx

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

type Logger struct {
	id     string
	logger *log.Logger
}

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// LogEntry represents a structured log entry for the web UI.
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	ID        string `json:"id"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

// InMemoryLogBuffer stores recent log entries for the web UI.
type InMemoryLogBuffer struct {
	entries []LogEntry
	mutex   sync.RWMutex
	maxSize int
}

//nolint:gochecknoglobals // Package-level debug toggle and web UI buffer
var (
	debugEnabled bool
	debugMutex   sync.RWMutex

	logBuffer = &InMemoryLogBuffer{
		entries: make([]LogEntry, 0),
		maxSize: 1000, // Keep last 1000 log entries
	}
)

//nolint:gochecknoinits // Required for env var initialization
func init() {
	if debug := os.Getenv("DEBUG"); debug == "1" || strings.EqualFold(debug, "true") {
		debugEnabled = true
	}
}

// NewLogger creates a logger whose lines are prefixed with the given ID
// (a session ID, or a component name such as "config" or "persistence").
func NewLogger(id string) *Logger {
	return &Logger{
		id:     id,
		logger: log.New(os.Stderr, "", 0), // Log to stderr for CLI compatibility
	}
}

// SetDebug enables or disables debug logging globally.
func SetDebug(enabled bool) {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug logging is enabled.
func IsDebugEnabled() bool {
	debugMutex.RLock()
	defer debugMutex.RUnlock()
	return debugEnabled
}

// AddLogEntry adds a log entry to the in-memory buffer.
func (b *InMemoryLogBuffer) AddLogEntry(entry *LogEntry) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.entries = append(b.entries, *entry)

	// Keep only the last maxSize entries.
	if len(b.entries) > b.maxSize {
		b.entries = b.entries[len(b.entries)-b.maxSize:]
	}
}

// GetLogEntries returns a copy of current log entries, optionally filtered by
// ID and timestamp.
func (b *InMemoryLogBuffer) GetLogEntries(id string, since time.Time) []LogEntry {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	filtered := make([]LogEntry, 0, len(b.entries))
	for i := range b.entries {
		entry := &b.entries[i]
		if id != "" && !strings.EqualFold(entry.ID, id) {
			continue
		}
		if !since.IsZero() {
			entryTime, err := time.Parse("2006-01-02T15:04:05.000Z", entry.Timestamp)
			if err != nil || entryTime.Before(since) {
				continue
			}
		}
		filtered = append(filtered, *entry)
	}

	return filtered
}

// GetRecentLogEntries returns recent log entries for the web UI.
func GetRecentLogEntries(id string, since time.Time) []LogEntry {
	return logBuffer.GetLogEntries(id, since)
}

func (l *Logger) log(level Level, format string, args ...any) {
	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	message := fmt.Sprintf(format, args...)
	l.logger.Printf("[%s] [%s] %s: %s", timestamp, l.id, level, message)

	// Also capture in memory buffer for the web UI.
	logBuffer.AddLogEntry(&LogEntry{
		Timestamp: timestamp,
		ID:        l.id,
		Level:     string(level),
		Message:   message,
	})
}

func (l *Logger) Debug(format string, args ...any) {
	if !IsDebugEnabled() {
		return
	}
	l.log(LevelDebug, format, args...)
}

func (l *Logger) Info(format string, args ...any) {
	l.log(LevelInfo, format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.log(LevelWarn, format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.log(LevelError, format, args...)
}

// Package-level helpers for call sites without a logger instance.

//nolint:gochecknoglobals // Shared default logger
var defaultLogger = NewLogger("interview")

// Debugf logs a debug message with the default logger.
func Debugf(format string, args ...any) {
	defaultLogger.Debug(format, args...)
}

// Infof logs an info message with the default logger.
func Infof(format string, args ...any) {
	defaultLogger.Info(format, args...)
}

// Warnf logs a warning message with the default logger.
func Warnf(format string, args ...any) {
	defaultLogger.Warn(format, args...)
}

// Errorf logs an error message with the default logger and returns it as an
// error value so call sites can both log and propagate.
func Errorf(format string, args ...any) error {
	defaultLogger.Error(format, args...)
	return fmt.Errorf(format, args...)
}
