package denoise

// FrameTransform is the per-channel frame transform contract stage 4 of
// the denoise pipeline applies: a pure function of its own state and a
// fixed-size input block, fed blocks in order. The concrete neural
// noise-suppression algorithm is explicitly out of scope (spec.md §1);
// this interface is the seam a real implementation plugs into. Inputs
// and outputs are in the [-32768, 32767] domain — the pipeline handles
// the ±1.0 scale/rescale around each call (spec.md §4.4 stage 4).
type FrameTransform interface {
	// Process transforms one DenoiseFrame-sized block for the given
	// channel index (0-based) and returns a block of the same length.
	Process(channelIndex int, block []float32) []float32
}
