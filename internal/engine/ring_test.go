package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRingBufferAppendBelowCapacity(t *testing.T) {
	r := newRingBuffer[int](5)
	r.Append(1)
	r.Append(2)
	r.Append(3)

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []int{1, 2, 3}, r.Snapshot(0))
}

func TestRingBufferEvictsOldest(t *testing.T) {
	r := newRingBuffer[int](3)
	for i := 1; i <= 5; i++ {
		r.Append(i)
	}

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []int{3, 4, 5}, r.Snapshot(0))
}

func TestRingBufferSnapshotLimit(t *testing.T) {
	r := newRingBuffer[int](10)
	for i := 1; i <= 6; i++ {
		r.Append(i)
	}

	// Limit keeps the most recent elements, still in insertion order.
	assert.Equal(t, []int{5, 6}, r.Snapshot(2))
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, r.Snapshot(100))
}

func TestRingBufferMinimumCapacity(t *testing.T) {
	r := newRingBuffer[string](0)
	r.Append("a")
	r.Append("b")

	assert.Equal(t, 1, r.Len())
	assert.Equal(t, []string{"b"}, r.Snapshot(0))
}
