// Package clock provides the monotonic clock used throughout the tracker.
//
// The original service kept a single global tick driven by a 10ms
// time.Ticker, because wall-clock jumps (RTC battery-less reboots, NTP
// step corrections) would otherwise corrupt staleness math. This is the
// same idea, but owned per-Context instead of a package global so tests
// can run several independent clocks side by side.
package clock

import (
	"sync/atomic"
	"time"

	humanize "github.com/dustin/go-humanize"
)

// Clock is a monotonic, steppable time source. Production code drives it
// from a ticker; tests drive it by calling Advance directly.
type Clock struct {
	millis int64 // atomic, milliseconds since the Clock was created
	start  time.Time
	ticker *time.Ticker
	stop   chan struct{}
}

// New creates a running Clock, ticking every 10ms in the background.
func New() *Clock {
	c := &Clock{start: time.Now(), ticker: time.NewTicker(10 * time.Millisecond), stop: make(chan struct{})}
	go c.watch()
	return c
}

// NewStopped creates a Clock with no background ticker, for deterministic
// tests that want to call Advance explicitly.
func NewStopped() *Clock {
	return &Clock{start: time.Now()}
}

func (c *Clock) watch() {
	for {
		select {
		case <-c.ticker.C:
			atomic.AddInt64(&c.millis, 10)
		case <-c.stop:
			return
		}
	}
}

// Close stops the background ticker. Safe to call on a Clock created with
// NewStopped (no-op).
func (c *Clock) Close() {
	if c.ticker != nil {
		c.ticker.Stop()
		close(c.stop)
	}
}

// Advance steps a stopped clock forward by d. Intended for tests.
func (c *Clock) Advance(d time.Duration) {
	atomic.AddInt64(&c.millis, d.Milliseconds())
}

// Now returns the clock's current time, anchored to the Clock's creation.
func (c *Clock) Now() time.Time {
	return c.start.Add(time.Duration(atomic.LoadInt64(&c.millis)) * time.Millisecond)
}

// Millis returns milliseconds elapsed since the Clock was created.
func (c *Clock) Millis() int64 {
	return atomic.LoadInt64(&c.millis)
}

// Since reports how long ago t was relative to the clock's current time.
func (c *Clock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// HumanizeTime renders t relative to the clock's current time, e.g.
// "3 seconds ago".
func (c *Clock) HumanizeTime(t time.Time) string {
	return humanize.RelTime(t, c.Now(), "ago", "from now")
}
