package engine

import "sync/atomic"

// Sequencer hands out strictly increasing sequence numbers for journal
// entries. Clock is the production implementation; tests may substitute a
// resettable clock.
type Sequencer interface {
	Next() int64
}

// Clock is a monotonic logical clock.
//
// Journal entries are stamped with Clock.Next() rather than wall-clock time,
// so two runs of the same scenario produce identical traces.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock whose next value is start+1.
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
