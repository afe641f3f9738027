// Package transform holds FrameTransform implementations. The real
// neural noise-suppression algorithm is out of scope per spec.md §1; this
// package ships only the reference no-op so the pipeline is runnable and
// testable end to end without a real model.
package transform

// Passthrough is a per-channel stateful FrameTransform that returns its
// input unchanged. It keeps per-channel state (a block counter) purely
// to demonstrate — and let tests exercise — the "fed in order, per
// channel" contract spec.md §4.4 stage 4 requires of a real transform.
type Passthrough struct {
	blocksSeen []int64
}

// NewPassthrough returns a Passthrough sized for channelCount channels.
func NewPassthrough(channelCount int) *Passthrough {
	return &Passthrough{blocksSeen: make([]int64, channelCount)}
}

// Process returns block unchanged, after recording that this channel has
// seen one more block.
func (p *Passthrough) Process(channelIndex int, block []float32) []float32 {
	p.blocksSeen[channelIndex]++
	out := make([]float32, len(block))
	copy(out, block)
	return out
}

// BlocksSeen reports how many blocks a given channel has processed
// (diagnostics/tests only).
func (p *Passthrough) BlocksSeen(channelIndex int) int64 {
	return p.blocksSeen[channelIndex]
}
