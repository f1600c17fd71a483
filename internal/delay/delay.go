// Package delay implements the single-slot "latest wins" frame handoff of
// §4.4: decoders push, the façade/renderer consumes, and only one frame is
// ever held at a time.
package delay

import "sync"

// Copyable is implemented by frame types that need a defensive deep copy on
// consume (the decoder reuses its internal buffers across decodes).
type Copyable[T any] interface {
	Copy() T
}

// Buffer is a single-slot frame holder. The zero value is ready to use.
type Buffer[T Copyable[T]] struct {
	mu       sync.Mutex
	pending  T
	hasFrame bool
	consumed bool
}

// Push stores frame as the pending slot, replacing whatever was there.
// It reports previousSkipped = true iff the prior pending frame had not
// been consumed yet (i.e. it is being dropped unread).
func (b *Buffer[T]) Push(frame T) (previousSkipped bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	previousSkipped = b.hasFrame && !b.consumed
	b.pending = frame
	b.hasFrame = true
	b.consumed = false
	return previousSkipped
}

// Consume returns a deep copy of the pending frame and marks it consumed.
// Returns ok=false if there is no frame, or the pending frame was already
// consumed.
func (b *Buffer[T]) Consume() (out T, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.hasFrame || b.consumed {
		return out, false
	}
	b.consumed = true
	return b.pending.Copy(), true
}

// Peek returns the pending frame without marking it consumed. Used by the
// screenshot path, which wants to read without disturbing delivery state.
func (b *Buffer[T]) Peek() (out T, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.hasFrame {
		return out, false
	}
	return b.pending, true
}

// Clear resets the buffer to empty.
func (b *Buffer[T]) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	var zero T
	b.pending = zero
	b.hasFrame = false
	b.consumed = true
}

// IsEmpty reports whether the buffer currently holds no frame.
func (b *Buffer[T]) IsEmpty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.hasFrame
}
