package epoch

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClock_NewClock(t *testing.T) {
	c := NewClock()
	assert.Equal(t, uint64(0), c.Current(), "new clock should start at 0")
}

func TestClock_NewClockAt(t *testing.T) {
	c := NewClockAt(500)
	assert.Equal(t, uint64(500), c.Current(), "clock should start at specified epoch")
}

func TestClock_Advance(t *testing.T) {
	c := NewClock()

	assert.Equal(t, uint64(1), c.Advance(1))
	assert.Equal(t, uint64(11), c.Advance(10))
	assert.Equal(t, uint64(11), c.Current())
}

func TestClock_SetAtLeast_Raises(t *testing.T) {
	c := NewClockAt(10)

	assert.Equal(t, uint64(50), c.SetAtLeast(50))
	assert.Equal(t, uint64(50), c.Current())
}

func TestClock_SetAtLeast_NeverRewinds(t *testing.T) {
	c := NewClockAt(100)

	assert.Equal(t, uint64(100), c.SetAtLeast(7), "stale target must be a no-op")
	assert.Equal(t, uint64(100), c.Current())
}

func TestClock_Current_DoesNotAdvance(t *testing.T) {
	c := NewClock()
	c.Advance(3)

	assert.Equal(t, uint64(3), c.Current())
	assert.Equal(t, uint64(3), c.Current())
}

func TestClock_ThreadSafe(t *testing.T) {
	c := NewClock()
	const goroutines = 100
	const advancesPerGoroutine = 100

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < advancesPerGoroutine; j++ {
				c.Advance(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(goroutines*advancesPerGoroutine), c.Current())
}
