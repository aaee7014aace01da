package effects

import (
	"sync"

	"github.com/ivlev/slideforge/internal/timeline"
)

// Transform is the transition part of an element's visual state. The
// static placement (position, size, rotation) lives in VisualState.
type Transform struct {
	Opacity float64
	// Scale multiplies the element's size about its center.
	Scale float64
	// OffsetX is a horizontal shift in units of the element's width.
	OffsetX float64
	// RotateY is rotation about the vertical axis in degrees.
	RotateY float64
}

// Identity is the transform outside both transition windows.
func Identity() Transform {
	return Transform{Opacity: 1, Scale: 1}
}

// Effect shapes one transition type. progress runs from 0 to 1 towards
// the fully visible state in both windows: the entry window counts up
// from the start, the exit window counts down to the end.
type Effect interface {
	Entry(progress float64, tr *Transform)
	Exit(progress float64, tr *Transform)
}

type FadeEffect struct{}

func (FadeEffect) Entry(p float64, tr *Transform) { tr.Opacity *= p }
func (FadeEffect) Exit(p float64, tr *Transform)  { tr.Opacity *= p }

// SlideEffect enters from the right and leaves to the left.
type SlideEffect struct{}

func (SlideEffect) Entry(p float64, tr *Transform) { tr.OffsetX += lerp(1, 0, p) }
func (SlideEffect) Exit(p float64, tr *Transform)  { tr.OffsetX += lerp(-1, 0, p) }

type ZoomEffect struct{}

func (ZoomEffect) Entry(p float64, tr *Transform) { tr.Scale *= p }
func (ZoomEffect) Exit(p float64, tr *Transform)  { tr.Scale *= p }

// FlipEffect turns the element edge-on: 90° at the start of the entry
// window, -90° at the very end.
type FlipEffect struct{}

func (FlipEffect) Entry(p float64, tr *Transform) { tr.RotateY += lerp(90, 0, p) }
func (FlipEffect) Exit(p float64, tr *Transform)  { tr.RotateY += lerp(-90, 0, p) }

var (
	registryMu sync.RWMutex
	registry   = map[timeline.TransitionType]Effect{
		timeline.TransitionFade:  FadeEffect{},
		timeline.TransitionSlide: SlideEffect{},
		timeline.TransitionZoom:  ZoomEffect{},
		timeline.TransitionFlip:  FlipEffect{},
	}
)

// Register installs or replaces the effect for a transition type.
func Register(t timeline.TransitionType, e Effect) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if e == nil {
		delete(registry, t)
		return
	}
	registry[t] = e
}

// Lookup returns the effect for t. "none" and unknown types have none.
func Lookup(t timeline.TransitionType) (Effect, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	e, ok := registry[t]
	return e, ok
}
