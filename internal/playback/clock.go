// Package playback owns the shared timeline cursor and the clocks that
// move it.
package playback

import (
	"math"
	"sync"
	"time"
)

type Mode int

const (
	Stopped Mode = iota
	Live
	Capture
)

func (m Mode) String() string {
	switch m {
	case Live:
		return "live"
	case Capture:
		return "capture"
	default:
		return "stopped"
	}
}

// Cursor is the playback position of one open project.
type Cursor struct {
	CurrentTime float64
	Playing     bool
	Looping     bool
}

// Token identifies one run of the clock. Stopping or restarting the clock
// invalidates every token handed out before.
type Token uint64

// Tick is the outcome of one advance.
type Tick struct {
	Time    float64
	Wrapped bool
	Ended   bool
}

// Clock advances the cursor under a swappable Stepper. Only the holder of
// the current Token can advance it.
type Clock struct {
	mu      sync.Mutex
	cursor  Cursor
	mode    Mode
	stepper Stepper
	total   float64
	gen     uint64
	// origin and ticks anchor framed steppers.
	origin float64
	ticks  int
}

func NewClock(looping bool) *Clock {
	return &Clock{cursor: Cursor{Looping: looping}}
}

func (c *Clock) Cursor() Cursor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

func (c *Clock) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

func (c *Clock) TotalDuration() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// Start begins a run in mode with s. Any previous run is cancelled first.
// ok is false when there is nothing to play.
func (c *Clock) Start(mode Mode, s Stepper) (tok Token, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	if c.total <= 0 || mode == Stopped {
		c.mode = Stopped
		c.cursor.Playing = false
		return 0, false
	}
	if c.cursor.CurrentTime >= c.total {
		c.cursor.CurrentTime = 0
	}
	c.mode = mode
	c.stepper = s
	c.origin, c.ticks = c.cursor.CurrentTime, 0
	c.cursor.Playing = true
	return Token(c.gen), true
}

// Current reports whether tok still names the active run.
func (c *Clock) Current(tok Token) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return tok != 0 && uint64(tok) == c.gen && c.mode != Stopped
}

// Stop ends the current run. Ticks still carrying its token are ignored
// from the moment Stop returns.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// end stops the run named by tok and leaves any newer run alone.
func (c *Clock) end(tok Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if uint64(tok) == c.gen && c.mode != Stopped {
		c.stopLocked()
	}
}

func (c *Clock) stopLocked() {
	c.gen++
	c.mode = Stopped
	c.stepper = nil
	c.cursor.Playing = false
}

// Tick advances the cursor for the run identified by tok. It reports
// false for a stale token or a stopped clock.
func (c *Clock) Tick(tok Token, now time.Time) (Tick, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tok == 0 || uint64(tok) != c.gen || c.mode == Stopped {
		return Tick{}, false
	}

	var next float64
	if f, ok := c.stepper.(framed); ok {
		c.ticks++
		next = f.FrameTime(c.origin, c.ticks)
	} else {
		next = c.cursor.CurrentTime + c.stepper.NextDelta(now)
	}
	tick := Tick{Time: next}
	if next >= c.total {
		switch {
		case c.mode == Capture:
			tick.Time, tick.Ended = c.total, true
			c.stopLocked()
		case c.cursor.Looping:
			tick.Time, tick.Wrapped = 0, true
			c.origin, c.ticks = 0, 0
		default:
			tick.Time, tick.Ended = c.total, true
			c.stopLocked()
		}
	}
	c.cursor.CurrentTime = tick.Time
	return tick, true
}

// Seek moves the cursor, clamped to [0, total].
func (c *Clock) Seek(t float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if math.IsNaN(t) {
		t = 0
	}
	c.cursor.CurrentTime = math.Max(0, math.Min(t, c.total))
	c.origin, c.ticks = c.cursor.CurrentTime, 0
}

func (c *Clock) SetLooping(loop bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cursor.Looping = loop
}

// SetTotalDuration records a new schedule length. A cursor left beyond the
// end is reset to 0.
func (c *Clock) SetTotalDuration(d float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total = math.Max(0, d)
	if c.cursor.CurrentTime > c.total {
		c.cursor.CurrentTime = 0
	}
	if c.total == 0 && c.mode != Stopped {
		c.stopLocked()
	}
}

// Restore puts back a cursor saved before a capture.
func (c *Clock) Restore(cur Cursor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cursor.CurrentTime = math.Max(0, math.Min(cur.CurrentTime, c.total))
	c.cursor.Looping = cur.Looping
}
