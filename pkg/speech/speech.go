// Package speech defines the capture and playback contracts the engine
// consumes. Concrete engines (browser audio bridged over the web UI, native
// devices, test fakes) implement these interfaces; the orchestration core
// never talks to hardware directly.
package speech

import "context"

// Handle refers to one armed capture session.
type Handle interface {
	// Stop cancels the capture session. After Stop returns, no further
	// callbacks fire for this handle.
	Stop()
}

// Capture is a speech-to-text source. Each Start arms exactly one capture
// session which reports exactly one of onFinal or onError, plus any number
// of onPartial fragments before that for live captioning.
type Capture interface {
	Start(onPartial func(text string), onFinal func(transcript string), onError func(err error)) (Handle, error)
}

// Playback is a text-to-speech sink. Speak must invoke onComplete exactly
// once, even on internal failure, so the turn loop never stalls. Stop aborts
// any utterance in progress, still firing its onComplete.
type Playback interface {
	Speak(text string, onComplete func())
	Stop()
}

// Devices bundles the two exclusive session-scoped resources. Acquire is
// called once during loading and must respect the context deadline; a
// failure there is fatal for the session. Release is called at conclusion
// or on abort.
type Devices interface {
	Acquire(ctx context.Context) (Capture, Playback, error)
	Release()
}
