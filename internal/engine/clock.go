package engine

import "sync/atomic"

// Clock hands out the sequence numbers stamped on ScriptEvent.Seq.
//
// One Clock may be shared by several engines through WithClock; their events
// then interleave in a single strictly increasing order, which is how an
// observer tells executing from executed without wall-clock time.
type Clock struct {
	last atomic.Int64
}

// NewClock returns a clock whose first Next is 1.
func NewClock() *Clock {
	return new(Clock)
}

// Next returns the sequence number for the next event.
func (c *Clock) Next() int64 {
	return c.last.Add(1)
}
