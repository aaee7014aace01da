package engine

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/ivlev/slideforge/internal/config"
	"github.com/ivlev/slideforge/internal/selection"
	"github.com/ivlev/slideforge/internal/timeline"
	"github.com/ivlev/slideforge/internal/video"
)

type fakeAssets struct {
	images  map[string]image.Image
	pending map[string]bool
}

func (a fakeAssets) Get(ref string) (image.Image, bool) {
	img, ok := a.images[ref]
	return img, ok
}

func (a fakeAssets) Settled(refs []string) bool {
	for _, r := range refs {
		if a.pending[r] {
			return false
		}
	}
	return true
}

func solidImage(c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

var (
	red  = color.RGBA{255, 0, 0, 255}
	blue = color.RGBA{0, 0, 255, 255}
)

type fakeSink struct {
	mu        sync.Mutex
	params    config.StreamParams
	centers   []color.RGBA
	failAt    int
	delay     func(i int) time.Duration
	started   chan struct{}
	release   chan struct{}
	aborted   bool
	finalized bool
}

func newFakeSink() *fakeSink {
	return &fakeSink{failAt: -1}
}

func (f *fakeSink) Begin(_ context.Context, p config.StreamParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.params = p
	return nil
}

func (f *fakeSink) WriteFrame(frame *image.RGBA) error {
	f.mu.Lock()
	i := len(f.centers)
	f.mu.Unlock()

	if i == 0 && f.started != nil {
		close(f.started)
		<-f.release
	}
	if f.delay != nil {
		time.Sleep(f.delay(i))
	}
	if i == f.failAt {
		return errors.New("disk full")
	}

	b := frame.Bounds()
	c := frame.RGBAAt(b.Min.X+b.Dx()/2, b.Min.Y+b.Dy()/2)
	f.mu.Lock()
	f.centers = append(f.centers, c)
	f.mu.Unlock()
	return nil
}

func (f *fakeSink) Finalize(context.Context) (video.Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finalized = true
	return video.Artifact{Path: f.params.Output, Frames: len(f.centers)}, nil
}

func (f *fakeSink) Abort() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aborted = true
}

func redBlue(t *testing.T) (*Session, fakeAssets) {
	t.Helper()
	s := loaded(t, img("red", 0, 1, 0), img("blue", 1, 1, 0))
	assets := fakeAssets{images: map[string]image.Image{
		"red":  solidImage(red),
		"blue": solidImage(blue),
	}}
	return s, assets
}

func TestFrameCount(t *testing.T) {
	tests := []struct {
		duration float64
		fps      int
		want     int
	}{
		{3, 60, 180},
		{2.5, 30, 75},
		{1.01, 24, 24},
		{1.03, 24, 25},
		{0.5, 1, 1},
		{0, 60, 0},
		{math.NaN(), 60, 0},
		{math.Inf(1), 60, math.MaxInt32},
		{-1, 60, 0},
	}
	for _, tt := range tests {
		if got := FrameCount(tt.duration, tt.fps); got != tt.want {
			t.Errorf("FrameCount(%v, %d) = %d, want %d", tt.duration, tt.fps, got, tt.want)
		}
	}
}

func TestCaptureFramesMatchSchedule(t *testing.T) {
	s, assets := redBlue(t)
	sink := newFakeSink()

	rep, err := s.Capture(context.Background(), assets, sink)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if rep.Frames != 20 || len(sink.centers) != 20 {
		t.Fatalf("frames: report %d, sink %d, want 20", rep.Frames, len(sink.centers))
	}
	if !sink.finalized || sink.aborted {
		t.Errorf("sink finalized=%v aborted=%v", sink.finalized, sink.aborted)
	}
	if sink.params.Width != 20 || sink.params.FPS != 10 || sink.params.Duration != 2 {
		t.Errorf("stream params %+v", sink.params)
	}
	if got := sink.centers[5]; got != red {
		t.Errorf("frame 5 (t=0.5): got %v, want red", got)
	}
	if got := sink.centers[15]; got != blue {
		t.Errorf("frame 15 (t=1.5): got %v, want blue", got)
	}
	if got := sink.centers[0]; got != red {
		t.Errorf("first frame shows t=0: got %v, want red", got)
	}
}

func TestCaptureTimingIgnoresRenderSpeed(t *testing.T) {
	for _, slow := range []bool{false, true} {
		s, assets := redBlue(t)
		s.SetDuration("blue", 1.25)
		sink := newFakeSink()
		if slow {
			sink.delay = func(i int) time.Duration { return time.Duration(i%3) * time.Millisecond }
		}

		rep, err := s.Capture(context.Background(), assets, sink)
		if err != nil {
			t.Fatalf("slow=%v: %v", slow, err)
		}
		// 2.25 s at 10 fps.
		if rep.Frames != 23 || len(sink.centers) != 23 {
			t.Errorf("slow=%v: got %d/%d frames, want 23", slow, rep.Frames, len(sink.centers))
		}
	}
}

func TestCaptureRestoresLiveState(t *testing.T) {
	s, assets := redBlue(t)
	s.Seek(1.5)
	s.SetLooping(false)

	if _, err := s.Capture(context.Background(), assets, newFakeSink()); err != nil {
		t.Fatal(err)
	}
	cur := s.Cursor()
	if cur.CurrentTime != 1.5 || cur.Looping || cur.Playing {
		t.Errorf("cursor after capture: %+v", cur)
	}
	if s.Capturing() {
		t.Error("session still capturing")
	}
	if _, err := s.AddImage(ImageSpec{Asset: "red"}); err != nil {
		t.Errorf("edits still disabled: %v", err)
	}
}

func TestCaptureResumesLivePlayback(t *testing.T) {
	s, assets := redBlue(t)
	s.SetLooping(true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if ok, err := s.Play(ctx); err != nil || !ok {
		t.Fatalf("Play: %v, %v", ok, err)
	}
	if _, err := s.Capture(context.Background(), assets, newFakeSink()); err != nil {
		t.Fatal(err)
	}
	cur := s.Cursor()
	if !cur.Playing || !cur.Looping {
		t.Errorf("cursor after capture: %+v, want live playback resumed", cur)
	}
	s.Pause()
	if s.Cursor().Playing {
		t.Error("Pause did not stop resumed playback")
	}

	// A preview whose context is gone stays stopped.
	if _, err := s.Play(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()
	if _, err := s.Capture(context.Background(), assets, newFakeSink()); err != nil {
		t.Fatal(err)
	}
	if s.Cursor().Playing {
		t.Error("playback resumed under a cancelled context")
	}
}

func TestCaptureSinkFailure(t *testing.T) {
	s, assets := redBlue(t)
	s.Seek(0.7)
	sink := newFakeSink()
	sink.failAt = 7

	_, err := s.Capture(context.Background(), assets, sink)
	var ce *CaptureError
	if !errors.As(err, &ce) {
		t.Fatalf("got %v, want *CaptureError", err)
	}
	if ce.Frame != 7 {
		t.Errorf("failed at frame %d, want 7", ce.Frame)
	}
	if !sink.aborted || sink.finalized {
		t.Errorf("sink aborted=%v finalized=%v", sink.aborted, sink.finalized)
	}
	if got := s.Cursor().CurrentTime; got != 0.7 {
		t.Errorf("cursor %v, want 0.7 restored", got)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("schedule damaged: %v", err)
	}
	if err := s.Seek(1); err != nil {
		t.Errorf("live preview not restored: %v", err)
	}
}

func TestCaptureLocksEditing(t *testing.T) {
	s, assets := redBlue(t)
	sink := newFakeSink()
	sink.started = make(chan struct{})
	sink.release = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := s.Capture(context.Background(), assets, sink)
		done <- err
	}()
	<-sink.started

	checks := map[string]error{
		"seek":    s.Seek(0.3),
		"select":  s.Select("red", selection.Modifiers{}),
		"looping": s.SetLooping(true),
		"update":  s.Update("red", timeline.Patch{}),
	}
	_, checks["add"] = s.AddImage(ImageSpec{Asset: "red"})
	_, checks["drag"] = s.Drag(GestureEvent{ElementID: "red", DX: 1})
	_, checks["remove"] = s.Remove("red")
	_, checks["play"] = s.Play(context.Background())
	_, checks["capture"] = s.Capture(context.Background(), assets, newFakeSink())

	close(sink.release)
	if err := <-done; err != nil {
		t.Fatalf("capture: %v", err)
	}

	for op, err := range checks {
		if !errors.Is(err, ErrCaptureActive) {
			t.Errorf("%s during capture: got %v, want ErrCaptureActive", op, err)
		}
	}
	if len(s.Elements()) != 2 {
		t.Errorf("schedule changed during capture")
	}
}

func TestCapturePreconditions(t *testing.T) {
	empty := NewSession(testConfig())
	if _, err := empty.Capture(context.Background(), fakeAssets{}, newFakeSink()); !errors.Is(err, ErrNothingToCapture) {
		t.Errorf("empty timeline: got %v", err)
	}

	s, assets := redBlue(t)
	assets.pending = map[string]bool{"blue": true}
	if _, err := s.Capture(context.Background(), assets, newFakeSink()); !errors.Is(err, ErrAssetsNotReady) {
		t.Errorf("pending asset: got %v", err)
	}
}

func TestCaptureSkipsFailedAsset(t *testing.T) {
	s, assets := redBlue(t)
	delete(assets.images, "blue")
	sink := newFakeSink()

	rep, err := s.Capture(context.Background(), assets, sink)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if rep.Skipped != 10 {
		t.Errorf("skipped %d element draws, want 10", rep.Skipped)
	}
	if got := sink.centers[15]; got != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("frame with missing asset should show the backdrop, got %v", got)
	}
}

func TestCaptureCancel(t *testing.T) {
	s, assets := redBlue(t)
	ctx, cancel := context.WithCancel(context.Background())
	sink := newFakeSink()
	sink.delay = func(i int) time.Duration {
		if i == 3 {
			cancel()
		}
		return 0
	}

	_, err := s.Capture(ctx, assets, sink)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
	if s.Capturing() {
		t.Error("session stuck in capture")
	}
}
