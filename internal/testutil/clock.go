package testutil

import (
	"sync"
	"time"
)

// FixedNow is the wall-clock instant used by tests that rank by age.
var FixedNow = time.Date(2019, 4, 10, 12, 0, 0, 0, time.UTC)

// WallClock is a settable wall clock.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type WallClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewWallClock creates a clock frozen at t.
func NewWallClock(t time.Time) *WallClock {
	return &WallClock{now: t}
}

// Now returns the current frozen time. Its signature matches engine.WithNow.
func (c *WallClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *WallClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
