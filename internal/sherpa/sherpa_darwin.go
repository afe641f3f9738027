//go:build darwin

// Package sherpa re-exports the sherpa-onnx VAD bindings this repo
// actually uses, dispatching to the platform-specific prebuilt package
// (k2-fsa/sherpa-onnx-go-macos here, -go-linux on linux) behind a
// single cross-platform surface.
package sherpa

import impl "github.com/k2-fsa/sherpa-onnx-go-macos"

// Type aliases for VAD

type VoiceActivityDetector = impl.VoiceActivityDetector
type VadModelConfig = impl.VadModelConfig
type SpeechSegment = impl.SpeechSegment

// VAD functions

var NewVoiceActivityDetector = impl.NewVoiceActivityDetector
var DeleteVoiceActivityDetector = impl.DeleteVoiceActivityDetector

// DefaultProvider returns the recommended provider for this platform.
// On macOS, CoreML provides hardware acceleration via Apple's Neural Engine.
func DefaultProvider() string {
	return "coreml"
}

// AvailableProviders returns the list of available providers on this platform.
func AvailableProviders() []string {
	return []string{"cpu", "coreml"}
}

// HasNvidiaGPU returns false on macOS as NVIDIA GPUs are not supported.
func HasNvidiaGPU() bool {
	return false
}
