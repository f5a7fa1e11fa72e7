package webui

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"interview/pkg/logx"
	"interview/pkg/speech"
)

// Browser-originated message types carried on the session socket alongside
// host intents. The browser runs recognition and synthesis; the engine only
// ever sees transcripts and completion signals.
const (
	msgTranscriptPartial = "transcript_partial"
	msgTranscriptFinal   = "transcript_final"
	msgCaptureError      = "capture_error"
	msgPlaybackDone      = "playback_done"
)

// Engine-originated commands sent to the browser.
const (
	cmdListenStart = "listen_start"
	cmdListenStop  = "listen_stop"
	cmdSpeak       = "speak"
	cmdSpeakStop   = "speak_stop"
)

// speakWatchdogCap bounds how long a turn waits for playback_done when the
// browser disappears mid-utterance.
const speakWatchdogCap = 45 * time.Second

type bridgeCommand struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// speechBridge implements speech.Devices over a session websocket. Acquire
// blocks until a browser attaches, which is what makes the Loading phase
// timeout meaningful: no browser within the window means no devices.
type speechBridge struct {
	logger   *logx.Logger
	attached chan struct{}

	mu         sync.Mutex
	attachOnce sync.Once
	send       func(payload []byte)
	capture    *bridgeCaptureRun
	onSpoken   func()
	watchdog   *time.Timer
}

func newSpeechBridge(logger *logx.Logger) *speechBridge {
	return &speechBridge{
		logger:   logger,
		attached: make(chan struct{}),
		send:     func([]byte) {},
	}
}

// bind sets the outbound path for commands. Called once the session's
// broadcast loop exists.
func (b *speechBridge) bind(send func(payload []byte)) {
	b.mu.Lock()
	b.send = send
	b.mu.Unlock()
}

// clientAttached unblocks Acquire. Called on the first websocket attach;
// subsequent attaches are no-ops.
func (b *speechBridge) clientAttached() {
	b.attachOnce.Do(func() { close(b.attached) })
}

// Acquire waits for a browser to connect. The caller's context carries the
// loading deadline.
func (b *speechBridge) Acquire(ctx context.Context) (speech.Capture, speech.Playback, error) {
	select {
	case <-b.attached:
		return (*bridgeCapture)(b), (*bridgePlayback)(b), nil
	case <-ctx.Done():
		return nil, nil, ctx.Err() //nolint:wrapcheck // Caller classifies the timeout
	}
}

// Release stops any in-flight capture or playback.
func (b *speechBridge) Release() {
	b.command(bridgeCommand{Type: cmdListenStop})
	b.command(bridgeCommand{Type: cmdSpeakStop})
	b.mu.Lock()
	b.capture = nil
	b.stopWatchdogLocked()
	b.onSpoken = nil
	b.mu.Unlock()
}

func (b *speechBridge) command(cmd bridgeCommand) {
	payload, err := json.Marshal(cmd)
	if err != nil {
		b.logger.Error("Failed to marshal bridge command: %v", err)
		return
	}
	b.mu.Lock()
	send := b.send
	b.mu.Unlock()
	send(payload)
}

// handleMessage routes browser speech messages. Returns false for message
// types the bridge does not own, so the caller can treat them as intents.
func (b *speechBridge) handleMessage(msgType, text string) bool {
	switch msgType {
	case msgTranscriptPartial:
		b.mu.Lock()
		run := b.capture
		b.mu.Unlock()
		if run != nil {
			run.onPartial(text)
		}
	case msgTranscriptFinal:
		b.mu.Lock()
		run := b.capture
		b.capture = nil
		b.mu.Unlock()
		if run != nil {
			run.onFinal(text)
		}
	case msgCaptureError:
		b.mu.Lock()
		run := b.capture
		b.capture = nil
		b.mu.Unlock()
		if run != nil {
			run.onError(errors.New(text))
		}
	case msgPlaybackDone:
		b.finishSpeak()
	default:
		return false
	}
	return true
}

func (b *speechBridge) finishSpeak() {
	b.mu.Lock()
	done := b.onSpoken
	b.onSpoken = nil
	b.stopWatchdogLocked()
	b.mu.Unlock()
	if done != nil {
		done()
	}
}

func (b *speechBridge) stopWatchdogLocked() {
	if b.watchdog != nil {
		b.watchdog.Stop()
		b.watchdog = nil
	}
}

type bridgeCaptureRun struct {
	onPartial func(text string)
	onFinal   func(transcript string)
	onError   func(err error)
}

// bridgeCapture is the speech.Capture view of the bridge.
type bridgeCapture speechBridge

// Start asks the browser to begin recognition. Only one capture runs at a
// time; a second Start replaces the first.
func (c *bridgeCapture) Start(
	onPartial func(text string),
	onFinal func(transcript string),
	onError func(err error),
) (speech.Handle, error) {
	b := (*speechBridge)(c)
	b.mu.Lock()
	b.capture = &bridgeCaptureRun{onPartial: onPartial, onFinal: onFinal, onError: onError}
	b.mu.Unlock()
	b.command(bridgeCommand{Type: cmdListenStart})
	return bridgeHandle{b: b}, nil
}

type bridgeHandle struct {
	b *speechBridge
}

// Stop abandons the in-flight capture. Any transcript arriving afterwards
// is dropped.
func (h bridgeHandle) Stop() {
	h.b.mu.Lock()
	h.b.capture = nil
	h.b.mu.Unlock()
	h.b.command(bridgeCommand{Type: cmdListenStop})
}

// bridgePlayback is the speech.Playback view of the bridge.
type bridgePlayback speechBridge

// Speak sends the utterance to the browser for synthesis. A watchdog fires
// onComplete if the browser never reports playback_done, so a dropped
// connection cannot wedge the turn.
func (p *bridgePlayback) Speak(text string, onComplete func()) {
	b := (*speechBridge)(p)

	deadline := 2*time.Second + time.Duration(len(text))*60*time.Millisecond
	if deadline > speakWatchdogCap {
		deadline = speakWatchdogCap
	}

	b.mu.Lock()
	b.onSpoken = onComplete
	b.stopWatchdogLocked()
	b.watchdog = time.AfterFunc(deadline, func() {
		b.logger.Warn("Playback completion never arrived, releasing turn")
		b.finishSpeak()
	})
	b.mu.Unlock()

	b.command(bridgeCommand{Type: cmdSpeak, Text: text})
}

// Stop interrupts the current utterance and releases the waiting turn.
func (p *bridgePlayback) Stop() {
	b := (*speechBridge)(p)
	b.command(bridgeCommand{Type: cmdSpeakStop})
	b.finishSpeak()
}
