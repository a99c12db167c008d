package epoch

import "sync/atomic"

// Clock is the monotonic epoch counter supplied by the execution environment.
//
// Every mutation in the ledger and velocity engines is stamped with the
// current epoch read from this clock. The core never advances the clock
// itself; the surrounding environment (CLI, harness, embedding process)
// ticks it.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
// The engines' single-writer locking means mutations observe a stable
// epoch for the duration of an operation.
type Clock struct {
	epoch atomic.Uint64
}

// NewClock creates a clock starting at epoch 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific epoch.
// Used when restoring from a persisted journal.
func NewClockAt(start uint64) *Clock {
	c := &Clock{}
	c.epoch.Store(start)
	return c
}

// Current returns the current epoch without advancing it.
func (c *Clock) Current() uint64 {
	return c.epoch.Load()
}

// Advance moves the clock forward by n epochs and returns the new epoch.
func (c *Clock) Advance(n uint64) uint64 {
	return c.epoch.Add(n)
}

// SetAtLeast raises the clock to target if it is currently behind it.
// The clock never moves backwards; a stale target is a no-op.
// Returns the resulting epoch.
func (c *Clock) SetAtLeast(target uint64) uint64 {
	for {
		cur := c.epoch.Load()
		if target <= cur {
			return cur
		}
		if c.epoch.CompareAndSwap(cur, target) {
			return target
		}
	}
}
