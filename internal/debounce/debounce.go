// Package debounce provides the timer-based coalescing primitives the
// controller uses as backpressure: a cancel-and-reschedule debouncer and
// a per-key cooldown. Both take a Clock so tests can drive time.
package debounce

import (
	"sync"
	"time"
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is the stoppable handle returned by Clock.AfterFunc.
type Timer interface {
	Stop() bool
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// SystemClock is the wall-clock implementation.
var SystemClock Clock = realClock{}

// Debouncer coalesces bursts of triggers into a single callback after
// the window closes. Only the latest trigger survives; intermediate ones
// are dropped.
type Debouncer struct {
	mu    sync.Mutex
	clock Clock
	delay time.Duration
	fn    func()
	timer Timer
}

// New creates a debouncer firing fn once per quiet window of delay.
func New(delay time.Duration, fn func()) *Debouncer {
	return NewWithClock(SystemClock, delay, fn)
}

// NewWithClock is New with an explicit clock, for tests.
func NewWithClock(clock Clock, delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{clock: clock, delay: delay, fn: fn}
}

// Trigger schedules the callback, cancelling any pending schedule.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.clock.AfterFunc(d.delay, d.fn)
}

// Stop cancels any pending callback.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
