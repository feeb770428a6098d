// Package engine implements the rule-mining core: the bounded in-memory
// event log, the versioned rule repository, the pattern miner, and the
// background analysis scheduler.
package engine

// ringBuffer is a fixed-capacity append-only buffer that evicts the oldest
// element once full. Not safe for concurrent use; owners hold their own lock.
type ringBuffer[T any] struct {
	buf   []T
	head  int // index of the oldest element
	count int
}

func newRingBuffer[T any](capacity int) *ringBuffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &ringBuffer[T]{buf: make([]T, capacity)}
}

// Append adds v, evicting the oldest element when at capacity. O(1).
func (r *ringBuffer[T]) Append(v T) {
	if r.count < len(r.buf) {
		r.buf[(r.head+r.count)%len(r.buf)] = v
		r.count++
		return
	}
	r.buf[r.head] = v
	r.head = (r.head + 1) % len(r.buf)
}

// Len returns the number of retained elements.
func (r *ringBuffer[T]) Len() int { return r.count }

// Snapshot copies up to limit of the most recent elements in insertion
// order. limit <= 0 means all retained elements.
func (r *ringBuffer[T]) Snapshot(limit int) []T {
	n := r.count
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]T, n)
	start := r.count - n
	for i := 0; i < n; i++ {
		out[i] = r.buf[(r.head+start+i)%len(r.buf)]
	}
	return out
}
