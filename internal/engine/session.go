// Package engine ties the timeline, selection and playback clock into one
// editing session and drives the capture pipeline.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ivlev/slideforge/internal/config"
	"github.com/ivlev/slideforge/internal/effects"
	"github.com/ivlev/slideforge/internal/playback"
	"github.com/ivlev/slideforge/internal/selection"
	"github.com/ivlev/slideforge/internal/timeline"
)

// GestureEvent is a completed drag on the timeline: DX in seconds, DY in
// tracks. The gesture layer has already converted device pixels.
type GestureEvent struct {
	ElementID string
	DX, DY    float64
	Modifiers selection.Modifiers
}

// FrameFunc receives every live preview frame.
type FrameFunc func(t float64, states []effects.VisualState)

// ImageSpec describes a new image element. Width and Height are the
// decoded asset size; zero means not decoded yet (see AttachAsset).
type ImageSpec struct {
	Asset         string
	Width, Height float64
	Position      timeline.Position
}

type TextSpec struct {
	Text       string
	FontSize   float64
	Color      string
	Background string
	MaxWidth   float64
	Align      timeline.Align
	Position   timeline.Position
}

// Session is one open project. All editing goes through it; it is safe
// for use from the live preview goroutine and a caller at the same time.
type Session struct {
	cfg *config.Config

	mu        sync.Mutex
	tl        *timeline.Timeline
	sel       *selection.Selection
	clock     *playback.Clock
	driver    *playback.Driver
	capturing bool
	onFrame   FrameFunc
	// playCtx is the context of the last Play, reused to resume live
	// playback after a capture.
	playCtx context.Context
}

func NewSession(cfg *config.Config) *Session {
	s := &Session{
		cfg: cfg,
		tl: timeline.New(
			timeline.WithMaxTracks(cfg.Timeline.MaxTracks),
			timeline.WithSnapTolerance(cfg.Timeline.SnapTolerance),
			timeline.WithDurationBounds(cfg.Timeline.MinDuration, cfg.Timeline.MaxDuration),
		),
		sel:   selection.New(),
		clock: playback.NewClock(cfg.Playback.Loop),
	}
	s.driver = playback.NewDriver(s.clock, cfg.Playback.LiveFPS, cfg.Playback.MaxLiveDelta, s.liveFrame)
	return s
}

// OnFrame installs the live preview callback.
func (s *Session) OnFrame(fn FrameFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFrame = fn
}

func (s *Session) liveFrame(tick playback.Tick) {
	s.mu.Lock()
	fn := s.onFrame
	var states []effects.VisualState
	if fn != nil {
		states = effects.Frame(s.tl.Elements(), tick.Time)
	}
	s.mu.Unlock()
	if fn != nil {
		fn(tick.Time, states)
	}
}

// editable is checked under s.mu by every operation that touches the
// schedule or the cursor.
func (s *Session) editable() error {
	if s.capturing {
		return ErrCaptureActive
	}
	return nil
}

// changed recomputes derived state after a timeline mutation.
func (s *Session) changed() {
	s.clock.SetTotalDuration(s.tl.TotalDuration())
	s.sel.Prune(s.tl.Has)
}

func (s *Session) Load(elements []timeline.Element) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	if err := s.tl.Restore(elements); err != nil {
		return err
	}
	s.sel.Clear()
	s.changed()
	return nil
}

func (s *Session) Snapshot() []timeline.Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tl.Snapshot()
}

func (s *Session) Elements() []timeline.Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tl.Elements()
}

func (s *Session) Element(id string) (timeline.Element, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tl.Get(id)
}

func (s *Session) TotalDuration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tl.TotalDuration()
}

// Validate checks the no-overlap invariant over the whole schedule.
func (s *Session) Validate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tl.Validate()
}

func (s *Session) defaultTransition() timeline.Transition {
	return timeline.Transition{
		Type:     timeline.TransitionType(s.cfg.Timeline.DefaultTransition),
		Duration: s.cfg.Timeline.DefaultTransitionDuration,
	}
}

// AddImage places a new image with the earliest-finish-track rule. Images
// stack in insertion order below the text band.
func (s *Session) AddImage(spec ImageSpec) (timeline.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return timeline.Element{}, err
	}

	e, err := s.tl.Place(timeline.Element{
		Kind:       timeline.KindImage,
		Duration:   s.cfg.Timeline.DefaultDuration,
		ZIndex:     s.tl.Len(),
		Position:   spec.Position,
		Transition: s.defaultTransition(),
		Image: &timeline.ImageContent{
			Asset:  spec.Asset,
			Width:  spec.Width,
			Height: spec.Height,
			Scale:  1,
		},
	})
	if err != nil {
		return timeline.Element{}, err
	}
	s.changed()
	return e, nil
}

func (s *Session) AddText(spec TextSpec) (timeline.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return timeline.Element{}, err
	}

	txt := &timeline.TextContent{
		Text:       spec.Text,
		FontSize:   spec.FontSize,
		Color:      spec.Color,
		Background: spec.Background,
		MaxWidth:   spec.MaxWidth,
		Align:      spec.Align,
	}
	if txt.FontSize <= 0 {
		txt.FontSize = 32
	}
	if txt.Color == "" {
		txt.Color = "#ffffff"
	}
	if txt.MaxWidth <= 0 {
		txt.MaxWidth = float64(s.cfg.Canvas.Width) / 2
	}
	if txt.Align == "" {
		txt.Align = timeline.AlignCenter
	}

	e, err := s.tl.Place(timeline.Element{
		Kind:       timeline.KindText,
		Duration:   s.cfg.Timeline.DefaultDuration,
		ZIndex:     timeline.TextZIndex,
		Position:   spec.Position,
		Transition: s.defaultTransition(),
		Text:       txt,
	})
	if err != nil {
		return timeline.Element{}, err
	}
	s.changed()
	return e, nil
}

// Remove deletes elements and prunes the selection. A cursor left past the
// new end of the schedule goes back to 0.
func (s *Session) Remove(ids ...string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return 0, err
	}
	n, err := s.tl.Remove(ids...)
	if err != nil {
		return n, err
	}
	s.changed()
	return n, nil
}

func (s *Session) RemoveSelected() (int, error) {
	s.mu.Lock()
	ids := s.sel.IDs()
	s.mu.Unlock()
	return s.Remove(ids...)
}

// Select applies a click. Selecting an element also scrubs the cursor to
// its start so it can be previewed.
func (s *Session) Select(id string, mod selection.Modifiers) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	return s.selectLocked(id, mod)
}

func (s *Session) selectLocked(id string, mod selection.Modifiers) error {
	if id == selection.None {
		s.sel.Clear()
		return nil
	}
	e, ok := s.tl.Get(id)
	if !ok {
		return timeline.ErrUnknownElement
	}
	s.sel.Select(s.tl.Elements(), id, mod)
	s.clock.Seek(e.StartTime)
	return nil
}

func (s *Session) Selection() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel.IDs()
}

// Drag resolves a timeline drag. An unselected element becomes the single
// selection first, so the drag always has a well-defined scope. Rejections
// are results, not errors.
func (s *Session) Drag(ev GestureEvent) (timeline.EditResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return timeline.EditResult{}, err
	}
	if !s.sel.Contains(ev.ElementID) {
		if err := s.selectLocked(ev.ElementID, selection.Modifiers{}); err != nil {
			return timeline.EditResult{}, err
		}
	}

	res := s.tl.Move(timeline.MoveRequest{
		IDs: s.sel.Scope(ev.ElementID),
		DX:  ev.DX,
		DY:  ev.DY,
	})
	s.report("move", ev.ElementID, res)
	if res.Accepted {
		s.changed()
	}
	return res, nil
}

// SetDuration resizes id, or the whole selection when id is part of it.
func (s *Session) SetDuration(id string, d float64) (timeline.EditResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return timeline.EditResult{}, err
	}
	res := s.tl.SetDuration(s.sel.Scope(id), d)
	s.report("resize", id, res)
	if res.Accepted {
		s.changed()
	}
	return res, nil
}

func (s *Session) report(op, id string, res timeline.EditResult) {
	if res.Accepted {
		return
	}
	attrs := []any{slog.String("op", op), slog.String("element", id), slog.String("reason", res.Reason.String())}
	if c := res.Conflict; c != nil {
		attrs = append(attrs, slog.String("blocking", c.Blocking), slog.Int("track", c.Track))
	}
	Logger().Debug("edit rejected", attrs...)
}

// Update edits element properties that do not affect scheduling.
func (s *Session) Update(id string, p timeline.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	return s.tl.Update(id, p)
}

// Nudge moves an element on the canvas by a delta in canvas units.
func (s *Session) Nudge(id string, dx, dy float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	e, ok := s.tl.Get(id)
	if !ok {
		return timeline.ErrUnknownElement
	}
	pos := timeline.Position{X: e.Position.X + dx, Y: e.Position.Y + dy}
	return s.tl.Update(id, timeline.Patch{Position: &pos})
}

// AttachAsset records the decoded size of an image. Decodes finish
// asynchronously, so the element may be gone by now; that is reported as
// ErrUnknownElement and nothing changes.
func (s *Session) AttachAsset(id string, width, height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	if !s.tl.Has(id) {
		Logger().Debug("asset arrived for removed element", slog.String("element", id))
		return timeline.ErrUnknownElement
	}
	if err := s.tl.SetAssetSize(id, float64(width), float64(height)); err != nil {
		return fmt.Errorf("attach asset to %s: %w", id, err)
	}
	return nil
}

// AttachAssetByRef attaches a decoded size to every image using ref.
func (s *Session) AttachAssetByRef(ref string, width, height int) int {
	s.mu.Lock()
	var ids []string
	for _, e := range s.tl.Elements() {
		if e.Image != nil && e.Image.Asset == ref {
			ids = append(ids, e.ID)
		}
	}
	s.mu.Unlock()

	n := 0
	for _, id := range ids {
		if s.AttachAsset(id, width, height) == nil {
			n++
		}
	}
	return n
}

// Play starts the live preview. It reports false when there is nothing to
// play.
func (s *Session) Play(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return false, err
	}
	s.playCtx = ctx
	return s.driver.Play(ctx), nil
}

func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.capturing {
		return
	}
	s.driver.Stop()
}

func (s *Session) Seek(t float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	s.clock.Seek(t)
	return nil
}

func (s *Session) SetLooping(loop bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	s.clock.SetLooping(loop)
	return nil
}

func (s *Session) Cursor() playback.Cursor {
	return s.clock.Cursor()
}

func (s *Session) Capturing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capturing
}

// FrameAt composites the schedule at t.
func (s *Session) FrameAt(t float64) []effects.VisualState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return effects.Frame(s.tl.Elements(), t)
}
