package engine

import "sync/atomic"

// Time is simulated time in integer ticks. It has no relation to the
// wall clock.
type Time int64

// Clock is a monotonic logical counter. The event queue stamps every
// scheduled event with Clock.Next() so that events with equal Time pop in
// the order they were scheduled.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
