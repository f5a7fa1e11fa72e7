// Package mocks provides shared mock implementations for testing.
//
// This package contains mock implementations of the external collaborators
// the engine depends on: the LLM client, speech capture, speech playback,
// and the device set.
//
// # Usage
//
//	import "interview/internal/mocks"
//
//	func TestSomething(t *testing.T) {
//	    mockLLM := mocks.NewMockLLMClient()
//	    mockLLM.OnComplete(func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
//	        return llm.CompletionResponse{Content: "test response"}, nil
//	    })
//	    // Use mockLLM in test...
//	}
//
// # Available Mocks
//
//   - MockLLMClient: Mock for pkg/llm.LLMClient
//   - MockCapture: Scripted speech.Capture
//   - MockPlayback: Recording speech.Playback
//   - MockDevices: speech.Devices over the two above
package mocks
