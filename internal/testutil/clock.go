// Package testutil holds deterministic stand-ins shared by package tests.
package testutil

import "sync/atomic"

// DeterministicClock satisfies execution.Clock. Each test builds its own,
// so event sequences in traces and goldens always start at 1.
type DeterministicClock struct {
	seq atomic.Int64
}

func NewDeterministicClock() *DeterministicClock { return &DeterministicClock{} }

func (c *DeterministicClock) Next() int64 { return c.seq.Add(1) }

func (c *DeterministicClock) Current() int64 { return c.seq.Load() }
