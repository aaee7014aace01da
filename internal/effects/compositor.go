// Package effects maps an element and an instant to its resolved visual
// state. Live preview and capture share this one code path.
package effects

import (
	"math"
	"sort"

	"github.com/ivlev/slideforge/internal/timeline"
)

// VisualState is an element resolved at one instant, in canvas units.
type VisualState struct {
	ElementID string
	Kind      timeline.Kind
	ZIndex    int
	Seq       int

	// X and Y are the top-left corner before any rotation.
	X, Y float64
	// Width and Height already include the static image scale. Text boxes
	// report zero; their size comes from text layout.
	Width, Height float64
	// Rotation is the static rotation about the element center, degrees.
	Rotation float64

	Transform

	Image *timeline.ImageContent
	Text  *timeline.TextContent
}

// Visible reports whether drawing the state would change any pixel.
func (v VisualState) Visible() bool {
	return v.Opacity > 0 && v.Scale > 0
}

// Compose resolves e at time t. ok is false outside [StartTime, EndTime):
// the element is absent, not transparent.
func Compose(e timeline.Element, t float64) (VisualState, bool) {
	if math.IsNaN(t) || !e.ActiveAt(t) {
		return VisualState{}, false
	}

	v := VisualState{
		ElementID: e.ID,
		Kind:      e.Kind,
		ZIndex:    e.ZIndex,
		Seq:       e.Seq(),
		X:         e.Position.X,
		Y:         e.Position.Y,
		Rotation:  e.Rotation,
		Transform: transitionAt(e, t),
		Image:     e.Image,
		Text:      e.Text,
	}
	if e.Image != nil {
		scale := e.Image.Scale
		if scale <= 0 {
			scale = 1
		}
		v.Width = e.Image.Width * scale
		v.Height = e.Image.Height * scale
	}
	return v, true
}

// transitionAt applies the entry and exit windows independently. When the
// transition is longer than half the element both windows can cover t;
// their effects then stack, each with its own clamped progress.
func transitionAt(e timeline.Element, t float64) Transform {
	tr := Identity()
	td := e.Transition.Duration
	if !(td > 0) {
		return tr
	}
	eff, ok := Lookup(e.Transition.Type)
	if !ok {
		return tr
	}

	if into := t - e.StartTime; into < td {
		eff.Entry(clamp01(into/td), &tr)
	}
	if left := e.EndTime() - t; left <= td {
		eff.Exit(clamp01(left/td), &tr)
	}

	tr.Opacity = clamp01(tr.Opacity)
	if tr.Scale < 0 {
		tr.Scale = 0
	}
	return tr
}

// Frame resolves every element active at t, in paint order: ascending
// zIndex, ties broken by insertion order.
func Frame(elements []timeline.Element, t float64) []VisualState {
	out := make([]VisualState, 0, len(elements))
	for _, e := range elements {
		if v, ok := Compose(e, t); ok {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ZIndex != out[j].ZIndex {
			return out[i].ZIndex < out[j].ZIndex
		}
		return out[i].Seq < out[j].Seq
	})
	return out
}
