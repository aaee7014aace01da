package engine

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/slideforge/internal/effects"
	"github.com/ivlev/slideforge/internal/playback"
	"github.com/ivlev/slideforge/internal/renderer"
	"github.com/ivlev/slideforge/internal/system"
	"github.com/ivlev/slideforge/internal/timeline"
	"github.com/ivlev/slideforge/internal/video"
)

// AssetStore is the decoded asset cache a capture renders from.
type AssetStore interface {
	renderer.Assets
	// Settled reports whether every ref has decoded or definitively failed.
	Settled(refs []string) bool
}

// CaptureReport describes a finished capture.
type CaptureReport struct {
	Frames   int
	Duration float64
	FPS      int
	Wall     time.Duration
	Skipped  int
	Artifact video.Artifact
	Host     *system.HostStats
}

// EffectiveFPS is frames rendered per second of wall time.
func (r CaptureReport) EffectiveFPS() float64 {
	if r.Wall <= 0 {
		return 0
	}
	return float64(r.Frames) / r.Wall.Seconds()
}

// FrameCount is the number of frames a capture of duration seconds at fps
// produces.
func FrameCount(duration float64, fps int) int {
	n := math.Round(duration * float64(fps))
	if math.IsNaN(n) || n <= 0 || fps <= 0 {
		return 0
	}
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}

// Capture records the whole schedule into sink. The clock runs in
// fixed-step mode, so frame timing never depends on how long a frame takes
// to rasterize. While it runs every edit, seek and live playback request
// fails with ErrCaptureActive. On any failure the sink is aborted, the
// live cursor is restored and a *CaptureError is returned.
func (s *Session) Capture(ctx context.Context, assets AssetStore, sink video.Sink) (CaptureReport, error) {
	start := time.Now()

	elements, tok, saved, err := s.beginCapture(assets)
	if err != nil {
		return CaptureReport{}, err
	}
	defer s.endCapture(saved)

	total := timeline.TotalDurationOf(elements)
	fps := s.cfg.Capture.FPS
	rep := CaptureReport{
		Frames:   FrameCount(total, fps),
		Duration: total,
		FPS:      fps,
	}
	log := Logger()
	log.Info("capture started",
		slog.Int("frames", rep.Frames),
		slog.Float64("duration", total),
		slog.Int("fps", fps),
		slog.Int("width", s.cfg.Capture.Width),
		slog.Int("height", s.cfg.Capture.Height))

	if err := sink.Begin(ctx, s.cfg.StreamParams(total)); err != nil {
		log.Error("capture sink failed to start", slog.Any("err", err))
		return rep, &CaptureError{Frame: 0, Err: err}
	}

	surface := renderer.NewSurface(
		s.cfg.Capture.Width, s.cfg.Capture.Height, s.cfg.SurfaceScale(),
		renderer.ParseColor(s.cfg.Canvas.Background, color.RGBA{A: 255}),
		assets,
	)

	written, skipped, err := s.pump(ctx, tok, elements, surface, sink, rep.Frames)
	rep.Skipped = skipped
	if err != nil {
		sink.Abort()
		log.Error("capture aborted", slog.Int("frame", written), slog.Any("err", err))
		return rep, &CaptureError{Frame: written, Err: err}
	}

	art, err := sink.Finalize(ctx)
	if err != nil {
		log.Error("capture finalize failed", slog.Any("err", err))
		return rep, &CaptureError{Frame: written, Err: err}
	}
	rep.Artifact = art
	rep.Wall = time.Since(start)

	if s.cfg.Capture.ShowStats {
		if st, err := system.ReadHostStats(); err == nil {
			rep.Host = &st
		} else {
			log.Warn("host stats unavailable", slog.Any("err", err))
		}
	}

	log.Info("capture finished",
		slog.Int("frames", written),
		slog.Int("skipped", skipped),
		slog.Duration("wall", rep.Wall),
		slog.String("output", art.Path))
	return rep, nil
}

func (s *Session) beginCapture(assets AssetStore) ([]timeline.Element, playback.Token, playback.Cursor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capturing {
		return nil, 0, playback.Cursor{}, ErrCaptureActive
	}
	if s.tl.TotalDuration() <= 0 {
		return nil, 0, playback.Cursor{}, ErrNothingToCapture
	}
	elements := s.tl.Elements()
	if refs := AssetRefs(elements); !assets.Settled(refs) {
		return nil, 0, playback.Cursor{}, ErrAssetsNotReady
	}

	saved := s.clock.Cursor()
	s.driver.Stop()
	s.clock.Seek(0)
	tok, ok := s.clock.Start(playback.Capture, playback.FixedStep{FPS: s.cfg.Capture.FPS})
	if !ok {
		s.clock.Restore(saved)
		return nil, 0, playback.Cursor{}, ErrNothingToCapture
	}

	s.capturing = true
	s.tl.Lock()
	return elements, tok, saved, nil
}

// endCapture puts the live state back as it was before beginCapture,
// including a live preview that was running at the time.
func (s *Session) endCapture(saved playback.Cursor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock.Stop()
	s.clock.Restore(saved)
	s.tl.Unlock()
	s.capturing = false

	if saved.Playing && s.playCtx != nil && s.playCtx.Err() == nil {
		s.driver.Play(s.playCtx)
	}
}

// pump renders frames on one goroutine and feeds the sink on another. The
// frame at index i shows the schedule at i/fps; the clock is ticked after
// each render.
func (s *Session) pump(ctx context.Context, tok playback.Token, elements []timeline.Element,
	surface *renderer.Surface, sink video.Sink, frames int) (written, skipped int, err error) {

	g, ctx := errgroup.WithContext(ctx)
	out := make(chan *image.RGBA, s.cfg.Capture.Workers)
	log := Logger()

	g.Go(func() error {
		defer close(out)
		t := s.clock.Cursor().CurrentTime
		ended := false
		for i := 0; i < frames; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			buf := surface.NewFrame()
			for _, sk := range surface.Render(buf, effects.Frame(elements, t)) {
				skipped++
				log.Debug("element skipped", slog.Int("frame", i), slog.String("element", sk.ElementID), slog.Any("err", sk.Err))
			}

			select {
			case out <- buf:
			case <-ctx.Done():
				surface.Release(buf)
				return ctx.Err()
			}

			if !ended {
				tick, ok := s.clock.Tick(tok, time.Time{})
				if !ok {
					return fmt.Errorf("capture clock stopped at frame %d", i)
				}
				t, ended = tick.Time, tick.Ended
			}
		}
		return nil
	})

	g.Go(func() error {
		for buf := range out {
			werr := sink.WriteFrame(buf)
			surface.Release(buf)
			if werr != nil {
				return werr
			}
			written++
		}
		return nil
	})

	err = g.Wait()
	return written, skipped, err
}

// AssetRefs lists the asset references used by image elements.
func AssetRefs(elements []timeline.Element) []string {
	var refs []string
	for _, e := range elements {
		if e.Image != nil && e.Image.Asset != "" {
			refs = append(refs, e.Image.Asset)
		}
	}
	return refs
}
