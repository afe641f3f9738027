// Package channel implements the cross-process SPSC audio ring described
// in the shared channel specification: a fixed-size, memory-mapped region
// carrying a header and a stereo Float32 audio ring between a single
// producer and a single consumer process.
package channel

const (
	// SampleRate is the fixed transport sample rate, in Hz.
	SampleRate = 48000

	// Channels is the fixed stereo channel count.
	Channels = 2

	// RingFrames is the ring capacity in frames (~85ms at 48kHz).
	RingFrames = 4096

	// DenoiseFrame is the frame size the denoiser operates on (10ms at 48kHz).
	DenoiseFrame = 480

	// Name is the rendezvous name both processes agree on at compile time.
	Name = "/micnoisegate_audio"

	bytesPerSample = 4 // float32
)

// Header field offsets. These are part of the external wire contract:
// two independently built binaries read them, so any change here is a
// breaking protocol change and requires a new Name.
const (
	offsetWriteIndex = 0  // int64, producer-owned, atomic
	offsetReadIndex  = 8  // int64, consumer-owned, atomic
	offsetIsActive   = 16 // int32 (1 declared byte + 3 reserved), atomic
	// offsetReserved7 = 17, 7 bytes reserved, zero
	offsetSampleRate = 24 // int32, constant
	offsetChannels   = 28 // int32, constant
	offsetRingFrames = 32 // int32, constant
	// offsetPadding = 36, 32 bytes reserved, zero
	offsetAudioData = 68

	// HeaderSize is the fixed size of the header region in bytes.
	HeaderSize = offsetAudioData
)

// RingBytes is the size in bytes of the audio ring.
const RingBytes = RingFrames * Channels * bytesPerSample

// TotalSize is the total size of the mapped region: header + audio ring.
const TotalSize = HeaderSize + RingBytes
