package engine

import "sync/atomic"

// Clock is the monotonic logical clock stamping lifecycle events.
//
// Every lifecycle event carries a strictly increasing seq number so
// listeners and the trace store observe one deterministic total order,
// independent of wall-clock jitter.
//
// Thread-safety: atomic, though in practice only the engine loop calls
// Next().
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific sequence number,
// used when resuming from a recorded trace.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
