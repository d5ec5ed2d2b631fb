package execution

import "sync/atomic"

// Clock stamps execution events with strictly increasing sequence numbers.
type Clock interface {
	Next() int64
	Current() int64
}

// LogicalClock is the production Clock. Safe for concurrent use.
type LogicalClock struct {
	seq atomic.Int64
}

// NewClock returns a clock whose first Next is 1.
func NewClock() *LogicalClock {
	return &LogicalClock{}
}

// NewClockAt returns a clock that resumes after start, typically the last
// sequence number found in the store.
func NewClockAt(start int64) *LogicalClock {
	c := &LogicalClock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *LogicalClock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *LogicalClock) Current() int64 {
	return c.seq.Load()
}

// draftClock continues from a shared clock without advancing it. Tracker
// stamps a pending change with one and catches the shared clock up only
// after the change is stored.
type draftClock struct {
	last int64
}

func (c *draftClock) Next() int64 {
	c.last++
	return c.last
}

func (c *draftClock) Current() int64 { return c.last }
