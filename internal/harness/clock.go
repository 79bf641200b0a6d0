package harness

import "sync/atomic"

// Clock stamps example results with a strictly increasing seq.
// testutil.DeterministicClock satisfies it for tests.
type Clock interface {
	Next() int64
}

// SeqClock is a monotonic logical clock.
//
// Thread-safety: SeqClock is safe for concurrent use (atomic operations).
type SeqClock struct {
	seq atomic.Int64
}

// NewSeqClockAt creates a clock whose first Next() returns start+1.
// Used to continue numbering after the last run recorded in a store.
func NewSeqClockAt(start int64) *SeqClock {
	c := &SeqClock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *SeqClock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *SeqClock) Current() int64 {
	return c.seq.Load()
}
