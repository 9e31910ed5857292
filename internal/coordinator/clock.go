package coordinator

import "sync/atomic"

// Clock issues strictly increasing logical sequence numbers for ledger rows
// and journal events. Ordering never depends on wall time.
type Clock interface {
	Next() int64
}

// AtomicClock is the default Clock.
//
// Thread-safety: AtomicClock is safe for concurrent use (atomic operations).
type AtomicClock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *AtomicClock {
	return &AtomicClock{}
}

// NewClockAt creates a clock starting at a specific sequence number.
// Used on restart to resume after the ledger's highest seq.
func NewClockAt(start int64) *AtomicClock {
	c := &AtomicClock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *AtomicClock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *AtomicClock) Current() int64 {
	return c.seq.Load()
}
