package timeline

import "math"

const (
	minScale              = 0.1
	maxScale              = 3
	maxTransitionDuration = 2
)

// Patch edits non-scheduling properties. Nil fields are left alone.
// Numeric values are clamped into range rather than refused.
type Patch struct {
	Position   *Position
	Rotation   *float64
	Transition *Transition

	Scale *float64

	Text       *string
	FontSize   *float64
	Color      *string
	Background *string
	MaxWidth   *float64
	Align      *Align
}

// Update applies p to one element. Fields that do not apply to the
// element's kind are ignored.
func (tl *Timeline) Update(id string, p Patch) error {
	if tl.locked {
		return ErrLocked
	}
	e, ok := tl.byID[id]
	if !ok {
		return ErrUnknownElement
	}

	if p.Position != nil && finite(p.Position.X) && finite(p.Position.Y) {
		e.Position = *p.Position
	}
	if p.Rotation != nil {
		e.Rotation = normalizeRotation(*p.Rotation)
	}
	if p.Transition != nil {
		t := *p.Transition
		if t.Type == "" {
			t.Type = e.Transition.Type
		}
		t.Duration = clampTransition(t.Duration)
		e.Transition = t
	}
	if img := e.Image; img != nil && p.Scale != nil {
		img.Scale = clamp(*p.Scale, minScale, maxScale)
	}
	if txt := e.Text; txt != nil {
		if p.Text != nil {
			txt.Text = *p.Text
		}
		if p.FontSize != nil && *p.FontSize > 0 {
			txt.FontSize = *p.FontSize
		}
		if p.Color != nil {
			txt.Color = *p.Color
		}
		if p.Background != nil {
			txt.Background = *p.Background
		}
		if p.MaxWidth != nil && *p.MaxWidth > 0 {
			txt.MaxWidth = *p.MaxWidth
		}
		if p.Align != nil {
			txt.Align = *p.Align
		}
	}
	tl.version++
	return nil
}

// SetAssetSize records decoded pixel dimensions on an image element. The
// caller may be a decode callback, so a vanished element is reported, not
// resurrected.
func (tl *Timeline) SetAssetSize(id string, w, h float64) error {
	if tl.locked {
		return ErrLocked
	}
	e, ok := tl.byID[id]
	if !ok {
		return ErrUnknownElement
	}
	if e.Image == nil {
		return ErrInvalidElement
	}
	e.Image.Width, e.Image.Height = w, h
	tl.version++
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(v, hi))
}

func clampTransition(d float64) float64 {
	return clamp(d, 0, maxTransitionDuration)
}

// normalizeRotation maps degrees into [0, 360).
func normalizeRotation(deg float64) float64 {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0
	}
	r := math.Mod(deg, 360)
	if r < 0 {
		r += 360
	}
	return r
}
