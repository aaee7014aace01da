// Package renderer rasterizes composited frames onto an RGBA surface.
package renderer

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/f64"

	"github.com/ivlev/slideforge/internal/effects"
	"github.com/ivlev/slideforge/internal/timeline"
)

var ErrAssetMissing = errors.New("asset not decoded")

// Assets looks up decoded images by reference.
type Assets interface {
	Get(ref string) (image.Image, bool)
}

// Skipped records an element left out of a frame.
type Skipped struct {
	ElementID string
	Err       error
}

// Surface paints frames of a fixed pixel size. Canvas units are
// multiplied by Scale to get surface pixels.
type Surface struct {
	width, height int
	scale         float64
	background    color.RGBA
	assets        Assets
	interp        draw.Transformer

	mu      sync.Mutex
	faces   map[float64]font.Face
	texts   map[textKey]*image.RGBA
	scratch *image.RGBA

	frames sync.Pool
}

func NewSurface(width, height int, scale float64, background color.RGBA, assets Assets) *Surface {
	if scale <= 0 {
		scale = 1
	}
	s := &Surface{
		width:      width,
		height:     height,
		scale:      scale,
		background: background,
		assets:     assets,
		interp:     draw.BiLinear,
		faces:      make(map[float64]font.Face),
		texts:      make(map[textKey]*image.RGBA),
	}
	s.frames.New = func() any { return image.NewRGBA(s.Bounds()) }
	return s
}

func (s *Surface) Bounds() image.Rectangle {
	return image.Rect(0, 0, s.width, s.height)
}

func (s *Surface) Scale() float64 { return s.scale }

// Render paints the backdrop and then states in order. Elements whose
// asset is missing or fails to lay out are skipped and reported; they
// never abort the frame.
func (s *Surface) Render(dst *image.RGBA, states []effects.VisualState) []Skipped {
	s.mu.Lock()
	defer s.mu.Unlock()

	draw.Draw(dst, dst.Bounds(), image.NewUniform(s.background), image.Point{}, draw.Src)

	var skipped []Skipped
	for _, v := range states {
		if !v.Visible() {
			continue
		}
		if err := s.paint(dst, v); err != nil {
			skipped = append(skipped, Skipped{ElementID: v.ElementID, Err: err})
		}
	}
	return skipped
}

func (s *Surface) paint(dst *image.RGBA, v effects.VisualState) error {
	var (
		src        image.Image
		boxW, boxH float64
	)
	switch v.Kind {
	case timeline.KindImage:
		if v.Image == nil {
			return fmt.Errorf("image element without content")
		}
		img, ok := s.lookup(v.Image.Asset)
		if !ok {
			return fmt.Errorf("%w: %s", ErrAssetMissing, v.Image.Asset)
		}
		src = img
		boxW, boxH = v.Width*s.scale, v.Height*s.scale
	case timeline.KindText:
		if v.Text == nil {
			return fmt.Errorf("text element without content")
		}
		layer, err := s.textLayer(v.Text)
		if err != nil {
			return err
		}
		src = layer
		boxW, boxH = float64(layer.Rect.Dx()), float64(layer.Rect.Dy())
	default:
		return fmt.Errorf("unknown element kind %s", v.Kind)
	}

	cx := v.X*s.scale + boxW/2 + v.OffsetX*boxW
	cy := v.Y*s.scale + boxH/2
	s.drawTransformed(dst, src, boxW, boxH, cx, cy, v)
	return nil
}

func (s *Surface) lookup(ref string) (image.Image, bool) {
	if s.assets == nil || ref == "" {
		return nil, false
	}
	return s.assets.Get(ref)
}

// drawTransformed maps src onto a boxW x boxH box centered on (cx, cy),
// rotated about that center. RotateY is rendered as a horizontal squash
// without perspective.
func (s *Surface) drawTransformed(dst *image.RGBA, src image.Image, boxW, boxH, cx, cy float64, v effects.VisualState) {
	sr := src.Bounds()
	if sr.Empty() {
		return
	}
	kx := boxW * v.Scale * math.Cos(v.RotateY*math.Pi/180) / float64(sr.Dx())
	ky := boxH * v.Scale / float64(sr.Dy())
	if math.Abs(kx) < 1e-6 || math.Abs(ky) < 1e-6 {
		return
	}

	sin, cos := math.Sincos(v.Rotation * math.Pi / 180)
	a, b := cos*kx, -sin*ky
	d, e := sin*kx, cos*ky
	mx := float64(sr.Min.X) + float64(sr.Dx())/2
	my := float64(sr.Min.Y) + float64(sr.Dy())/2
	m := f64.Aff3{
		a, b, cx - a*mx - b*my,
		d, e, cy - d*mx - e*my,
	}

	box := transformedBounds(m, sr).Intersect(dst.Bounds())
	if box.Empty() {
		return
	}

	alpha := opacityAlpha(v.Opacity)
	if alpha == 255 {
		s.interp.Transform(dst, m, src, sr, draw.Over, nil)
		return
	}

	if s.scratch == nil || s.scratch.Rect != dst.Bounds() {
		s.scratch = image.NewRGBA(dst.Bounds())
	}
	draw.Draw(s.scratch, box, image.Transparent, image.Point{}, draw.Src)
	s.interp.Transform(s.scratch, m, src, sr, draw.Over, nil)
	draw.DrawMask(dst, box, s.scratch, box.Min, image.NewUniform(color.Alpha{A: alpha}), image.Point{}, draw.Over)
}

func opacityAlpha(opacity float64) uint8 {
	if !(opacity > 0) {
		return 0
	}
	if opacity >= 1 {
		return 255
	}
	return uint8(math.Round(opacity * 255))
}

func transformedBounds(m f64.Aff3, r image.Rectangle) image.Rectangle {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range [4][2]float64{
		{float64(r.Min.X), float64(r.Min.Y)},
		{float64(r.Max.X), float64(r.Min.Y)},
		{float64(r.Min.X), float64(r.Max.Y)},
		{float64(r.Max.X), float64(r.Max.Y)},
	} {
		x := m[0]*p[0] + m[1]*p[1] + m[2]
		y := m[3]*p[0] + m[4]*p[1] + m[5]
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	return image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX)), int(math.Ceil(maxY)))
}
