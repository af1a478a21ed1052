package debounce

import (
	"sync"
	"time"
)

// Cooldown rate-limits repeated events per key, the Go analogue of the
// per-element last-fired map that throttles intent classification on
// rapid re-clicks.
type Cooldown struct {
	mu     sync.Mutex
	clock  Clock
	window time.Duration
	last   map[string]time.Time
}

// NewCooldown creates a cooldown with the given window.
func NewCooldown(window time.Duration) *Cooldown {
	return NewCooldownWithClock(SystemClock, window)
}

// NewCooldownWithClock is NewCooldown with an explicit clock.
func NewCooldownWithClock(clock Clock, window time.Duration) *Cooldown {
	return &Cooldown{clock: clock, window: window, last: make(map[string]time.Time)}
}

// Allow reports whether key may fire now, and records the firing when it
// may.
func (c *Cooldown) Allow(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock.Now()
	if last, ok := c.last[key]; ok && now.Sub(last) < c.window {
		return false
	}
	c.last[key] = now
	return true
}

// Prune drops entries older than the window to keep the map bounded on
// long-lived pages.
func (c *Cooldown) Prune() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock.Now()
	for key, last := range c.last {
		if now.Sub(last) >= c.window {
			delete(c.last, key)
		}
	}
}
