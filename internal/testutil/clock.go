package testutil

import (
	"sync"
	"time"
)

// Epoch is the default start of a DeterministicTime.
var Epoch = time.Date(2016, 6, 21, 0, 0, 0, 0, time.UTC)

// DeterministicTime is a wall clock for tests that advances by a fixed step
// on every reading.
//
// Plug Now into engine.WithNow so run records carry reproducible timestamps.
// Unlike time.Now, DeterministicTime can be reset for test reuse.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicTime struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	ticks int64
}

// NewDeterministicTime creates a clock starting at start. A zero start means
// Epoch; a non-positive step means one second.
//
// The first call to Now() returns start.
func NewDeterministicTime(start time.Time, step time.Duration) *DeterministicTime {
	if start.IsZero() {
		start = Epoch
	}
	if step <= 0 {
		step = time.Second
	}
	return &DeterministicTime{start: start, step: step}
}

// Now returns the current reading and advances the clock by one step.
func (c *DeterministicTime) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.start.Add(time.Duration(c.ticks) * c.step)
	c.ticks++
	return t
}

// Ticks returns how many readings have been taken.
func (c *DeterministicTime) Ticks() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

// Reset rewinds the clock. After Reset(), the next call to Now() returns start.
func (c *DeterministicTime) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks = 0
}
