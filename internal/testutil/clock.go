// Package testutil provides small test doubles shared across package
// tests.
package testutil

import (
	"sync"
	"time"
)

// ManualClock is an advanceable time source for tests that exercise
// throttle and debounce bookkeeping without sleeping. Inject it with
// the engine's WithNowFunc option.
//
// Thread-safe: the engine loop reads it while the test advances it.
type ManualClock struct {
	mu sync.Mutex
	t  time.Time
}

// NewManualClock creates a clock frozen at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{t: start}
}

// Now returns the current manual time.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Advance moves the clock forward.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
