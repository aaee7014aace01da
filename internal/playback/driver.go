package playback

import (
	"context"
	"sync"
	"time"
)

// Driver runs the live preview: a refresh-rate ticker that advances the
// clock with wall-clock deltas and hands every new position to onFrame.
type Driver struct {
	clock    *Clock
	interval time.Duration
	maxDelta float64
	onFrame  func(Tick)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewDriver(clock *Clock, fps int, maxDelta float64, onFrame func(Tick)) *Driver {
	if fps <= 0 {
		fps = 60
	}
	return &Driver{
		clock:    clock,
		interval: time.Second / time.Duration(fps),
		maxDelta: maxDelta,
		onFrame:  onFrame,
	}
}

// Play starts live playback, replacing any run in progress. It reports
// false when the timeline is empty.
func (d *Driver) Play(ctx context.Context) bool {
	d.Stop()

	tok, ok := d.clock.Start(Live, NewWallClock(d.maxDelta, time.Now()))
	if !ok {
		return false
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	d.mu.Lock()
	d.cancel, d.done = cancel, done
	d.mu.Unlock()

	go d.loop(ctx, tok, done)
	return true
}

func (d *Driver) loop(ctx context.Context, tok Token, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.clock.end(tok)
			return
		case now := <-ticker.C:
			tick, ok := d.clock.Tick(tok, now)
			if !ok {
				return
			}
			// An ended tick stops the run itself; any other tick is
			// dropped when Stop landed after Tick.
			if !tick.Ended && !d.clock.Current(tok) {
				return
			}
			if d.onFrame != nil {
				d.onFrame(tick)
			}
			if tick.Ended {
				return
			}
		}
	}
}

// Stop halts playback. The clock refuses the old run's ticks as soon as
// Stop returns; the goroutine itself exits on its next wake-up.
func (d *Driver) Stop() {
	d.clock.Stop()
	d.mu.Lock()
	cancel := d.cancel
	d.cancel = nil
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until the current loop goroutine has exited.
func (d *Driver) Wait() {
	d.mu.Lock()
	done := d.done
	d.mu.Unlock()
	if done != nil {
		<-done
	}
}
