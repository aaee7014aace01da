package playback

import "time"

// Stepper decides how far the cursor moves on each tick.
type Stepper interface {
	NextDelta(now time.Time) float64
}

// WallClock advances by real elapsed time since the previous tick. Long
// stalls (a backgrounded window, a debugger) are capped at MaxDelta so
// the preview never jumps across whole slides.
type WallClock struct {
	MaxDelta float64
	last     time.Time
}

func NewWallClock(maxDelta float64, start time.Time) *WallClock {
	return &WallClock{MaxDelta: maxDelta, last: start}
}

func (w *WallClock) NextDelta(now time.Time) float64 {
	d := now.Sub(w.last).Seconds()
	w.last = now
	if d < 0 {
		return 0
	}
	if w.MaxDelta > 0 && d > w.MaxDelta {
		return w.MaxDelta
	}
	return d
}

// FixedStep advances exactly one frame per tick whatever the host did in
// between, so recorded timing does not depend on render speed.
type FixedStep struct {
	FPS int
}

func (f FixedStep) NextDelta(time.Time) float64 {
	return 1 / float64(f.FPS)
}

// FrameTime is the time of the n-th frame after origin, computed without
// accumulating per-tick deltas.
func (f FixedStep) FrameTime(origin float64, n int) float64 {
	return origin + float64(n)/float64(f.FPS)
}

// framed is implemented by steppers that advance in whole frames.
type framed interface {
	FrameTime(origin float64, n int) float64
}
