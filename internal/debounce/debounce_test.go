package debounce

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock drives timers manually.
type fakeClock struct {
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	due     time.Time
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	t := &fakeTimer{due: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

// advance moves time forward and fires due, unstopped timers.
func (c *fakeClock) advance(d time.Duration) {
	c.now = c.now.Add(d)
	for _, t := range c.timers {
		if !t.stopped && !t.due.After(c.now) {
			t.stopped = true
			t.fn()
		}
	}
}

func TestDebouncerCoalescesBursts(t *testing.T) {
	clock := newFakeClock()
	fired := 0
	d := NewWithClock(clock, 200*time.Millisecond, func() { fired++ })

	d.Trigger()
	clock.advance(50 * time.Millisecond)
	d.Trigger()
	clock.advance(50 * time.Millisecond)
	d.Trigger()
	assert.Equal(t, 0, fired)

	clock.advance(200 * time.Millisecond)
	assert.Equal(t, 1, fired)

	// a later trigger starts a fresh window
	d.Trigger()
	clock.advance(200 * time.Millisecond)
	assert.Equal(t, 2, fired)
}

func TestDebouncerStop(t *testing.T) {
	clock := newFakeClock()
	fired := 0
	d := NewWithClock(clock, 100*time.Millisecond, func() { fired++ })

	d.Trigger()
	d.Stop()
	clock.advance(time.Second)
	assert.Equal(t, 0, fired)

	// Stop with nothing pending is a no-op
	d.Stop()
}

func TestCooldownAllow(t *testing.T) {
	clock := newFakeClock()
	c := NewCooldownWithClock(clock, 8*time.Second)

	assert.True(t, c.Allow("a"))
	assert.False(t, c.Allow("a"))
	assert.True(t, c.Allow("b"), "keys are independent")

	clock.now = clock.now.Add(7 * time.Second)
	assert.False(t, c.Allow("a"))

	clock.now = clock.now.Add(time.Second)
	assert.True(t, c.Allow("a"))
}

func TestCooldownPrune(t *testing.T) {
	clock := newFakeClock()
	c := NewCooldownWithClock(clock, 8*time.Second)

	c.Allow("a")
	clock.now = clock.now.Add(10 * time.Second)
	c.Allow("b")
	c.Prune()

	assert.Len(t, c.last, 1)
	assert.Contains(t, c.last, "b")
}
