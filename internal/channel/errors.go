package channel

import "errors"

// ErrNotFound is returned by OpenExisting when the named region does not
// yet exist. Callers (the consumer) treat this as a soft, transient
// failure and retry on the next read callback.
var ErrNotFound = errors.New("channel: not found")

// ErrInvalidHeader is returned when a mapped region's declared
// sample_rate/channels/ring_frames do not match the compile-time
// constants. The caller should serve silence and must not retry with
// the current mapping.
var ErrInvalidHeader = errors.New("channel: invalid header")

// IOError wraps a syscall failure encountered while creating, opening,
// truncating, or mapping the shared region.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return "channel: " + e.Op + ": " + e.Err.Error()
}

func (e *IOError) Unwrap() error {
	return e.Err
}
