package engine

import "sync/atomic"

// Clock is the monotonic logical clock shared by a run's call boundaries
// and tier transitions. The first call to Next returns 1.
//
// Clock is safe for concurrent use, but a run only ever has one writer.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next advances the clock and returns the new sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number without advancing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
