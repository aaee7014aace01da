package renderer

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"

	"github.com/ivlev/slideforge/internal/effects"
	"github.com/ivlev/slideforge/internal/timeline"
)

type mapAssets map[string]image.Image

func (m mapAssets) Get(ref string) (image.Image, bool) {
	img, ok := m[ref]
	return img, ok
}

var (
	black = color.RGBA{0, 0, 0, 255}
	red   = color.RGBA{255, 0, 0, 255}
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func imageState(x, y, w, h, rotation float64) effects.VisualState {
	return effects.VisualState{
		ElementID: "img",
		Kind:      timeline.KindImage,
		X:         x,
		Y:         y,
		Width:     w,
		Height:    h,
		Rotation:  rotation,
		Transform: effects.Identity(),
		Image:     &timeline.ImageContent{Asset: "red.png", Width: w, Height: h, Scale: 1},
	}
}

func at(img *image.RGBA, x, y int) color.RGBA {
	return img.RGBAAt(x, y)
}

func TestRenderPlacesImage(t *testing.T) {
	s := NewSurface(100, 100, 1, black, mapAssets{"red.png": solid(20, 10, red)})
	dst := image.NewRGBA(s.Bounds())

	if skipped := s.Render(dst, []effects.VisualState{imageState(10, 20, 20, 10, 0)}); len(skipped) != 0 {
		t.Fatalf("unexpected skips: %v", skipped)
	}
	if got := at(dst, 20, 25); got != red {
		t.Errorf("center pixel: got %v, want red", got)
	}
	if got := at(dst, 5, 5); got != black {
		t.Errorf("backdrop pixel: got %v, want black", got)
	}
}

func TestRenderRotatesAboutCenter(t *testing.T) {
	s := NewSurface(100, 100, 1, black, mapAssets{"red.png": solid(20, 10, red)})
	dst := image.NewRGBA(s.Bounds())
	s.Render(dst, []effects.VisualState{imageState(10, 20, 20, 10, 90)})

	// The 20x10 box centered on (20,25) now stands 10 wide and 20 tall.
	if got := at(dst, 20, 18); got != red {
		t.Errorf("rotated top: got %v, want red", got)
	}
	if got := at(dst, 12, 25); got != black {
		t.Errorf("old left edge should be empty after rotation, got %v", got)
	}
}

func TestRenderAppliesSurfaceScale(t *testing.T) {
	s := NewSurface(100, 100, 2, black, mapAssets{"red.png": solid(20, 10, red)})
	dst := image.NewRGBA(s.Bounds())
	s.Render(dst, []effects.VisualState{imageState(5, 10, 10, 5, 0)})

	if got := at(dst, 20, 25); got != red {
		t.Errorf("scaled center: got %v, want red", got)
	}
	if got := at(dst, 8, 25); got != black {
		t.Errorf("left of scaled box: got %v, want black", got)
	}
}

func TestRenderOpacityBlends(t *testing.T) {
	s := NewSurface(50, 50, 1, black, mapAssets{"red.png": solid(20, 20, red)})
	dst := image.NewRGBA(s.Bounds())
	v := imageState(10, 10, 20, 20, 0)
	v.Opacity = 0.5
	s.Render(dst, []effects.VisualState{v})

	got := at(dst, 20, 20)
	if got.R < 126 || got.R > 129 || got.G != 0 || got.A != 255 {
		t.Errorf("half opacity red over black: got %v", got)
	}
}

func TestRenderSkipsMissingAsset(t *testing.T) {
	s := NewSurface(50, 50, 1, black, mapAssets{})
	dst := image.NewRGBA(s.Bounds())
	skipped := s.Render(dst, []effects.VisualState{imageState(0, 0, 10, 10, 0)})

	if len(skipped) != 1 || skipped[0].ElementID != "img" || !errors.Is(skipped[0].Err, ErrAssetMissing) {
		t.Fatalf("got %+v, want one ErrAssetMissing skip", skipped)
	}
	if got := at(dst, 5, 5); got != black {
		t.Errorf("frame not painted: %v", got)
	}
}

func TestRenderSkipsInvisibleStates(t *testing.T) {
	s := NewSurface(50, 50, 1, black, mapAssets{"red.png": solid(10, 10, red)})
	dst := image.NewRGBA(s.Bounds())

	faded := imageState(0, 0, 10, 10, 0)
	faded.Opacity = 0
	edgeOn := imageState(20, 20, 10, 10, 0)
	edgeOn.RotateY = 90
	s.Render(dst, []effects.VisualState{faded, edgeOn})

	if at(dst, 5, 5) != black || at(dst, 25, 25) != black {
		t.Error("invisible elements were painted")
	}
}

func TestRenderText(t *testing.T) {
	s := NewSurface(400, 200, 1, black, nil)
	dst := image.NewRGBA(s.Bounds())
	v := effects.VisualState{
		ElementID: "title",
		Kind:      timeline.KindText,
		X:         10,
		Y:         10,
		Transform: effects.Identity(),
		Text: &timeline.TextContent{
			Text:       "Hello world",
			FontSize:   24,
			Color:      "#fff",
			Background: "#0000ff",
			MaxWidth:   300,
		},
	}
	if skipped := s.Render(dst, []effects.VisualState{v}); len(skipped) != 0 {
		t.Fatalf("unexpected skips: %v", skipped)
	}

	// Inside the padding the background box shows through.
	if got := at(dst, 14, 13); got.B < 250 || got.R != 0 {
		t.Errorf("background box: got %v, want blue", got)
	}

	white := false
	for x := 22; x < 150 && !white; x++ {
		for y := 18; y < 45; y++ {
			if c := at(dst, x, y); c.R > 200 && c.G > 200 {
				white = true
				break
			}
		}
	}
	if !white {
		t.Error("no glyph pixels drawn")
	}
}

func TestSurfaceRecyclesFrames(t *testing.T) {
	s := NewSurface(4, 2, 1, black, nil)
	frame := s.NewFrame()
	if frame.Rect != s.Bounds() {
		t.Fatalf("frame rect %v, want %v", frame.Rect, s.Bounds())
	}
	s.Release(frame)
	s.Release(image.NewRGBA(image.Rect(0, 0, 3, 3)))
	s.Release(nil)

	for i := 0; i < 4; i++ {
		if got := s.NewFrame(); got.Rect != s.Bounds() {
			t.Errorf("frame %d: rect %v, want %v", i, got.Rect, s.Bounds())
		}
	}
}

func TestTextLayerCacheIsBounded(t *testing.T) {
	s := NewSurface(200, 100, 1, black, nil)
	dst := image.NewRGBA(s.Bounds())
	for i := 0; i < 3*maxTextLayers; i++ {
		v := effects.VisualState{
			ElementID: "title",
			Kind:      timeline.KindText,
			Transform: effects.Identity(),
			Text:      &timeline.TextContent{Text: fmt.Sprintf("draft %d", i), FontSize: 12},
		}
		if skipped := s.Render(dst, []effects.VisualState{v}); len(skipped) != 0 {
			t.Fatalf("edit %d: unexpected skips: %v", i, skipped)
		}
	}

	if n := len(s.texts); n == 0 || n > maxTextLayers {
		t.Errorf("cached layers = %d, want 1..%d", n, maxTextLayers)
	}
	last := timeline.TextContent{Text: fmt.Sprintf("draft %d", 3*maxTextLayers-1), FontSize: 12}
	if _, ok := s.texts[textKey{content: last, scale: 1}]; !ok {
		t.Error("most recent layer not cached")
	}
}

func testFace(t *testing.T) font.Face {
	t.Helper()
	f, err := defaultFont()
	if err != nil {
		t.Fatal(err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: 20, DPI: 72})
	if err != nil {
		t.Fatal(err)
	}
	return face
}

func TestLayoutTextWraps(t *testing.T) {
	face := testFace(t)
	text := "the quick brown fox jumps over the lazy dog"
	maxW := measure(face, "the quick brown")

	l := LayoutText(face, text, maxW, 12, 8)
	if len(l.Lines) < 3 {
		t.Fatalf("expected wrapping, got %q", l.Lines)
	}
	if got := strings.Join(l.Lines, " "); got != text {
		t.Errorf("words lost in wrapping: %q", got)
	}
	for i, w := range l.Widths {
		if w > maxW {
			t.Errorf("line %d %q is %dpx, max %d", i, l.Lines[i], w, maxW)
		}
	}
	if l.Height != len(l.Lines)*l.LineHeight+16 {
		t.Errorf("box height %d does not fit %d lines", l.Height, len(l.Lines))
	}
}

func TestLayoutTextBreaksLongWords(t *testing.T) {
	face := testFace(t)
	maxW := measure(face, "abcd")
	l := LayoutText(face, "abcdefghijklmnop", maxW, 0, 0)

	if len(l.Lines) < 3 {
		t.Fatalf("long word not split: %q", l.Lines)
	}
	if strings.Join(l.Lines, "") != "abcdefghijklmnop" {
		t.Errorf("runes lost: %q", l.Lines)
	}
}

func TestLayoutTextKeepsNewlines(t *testing.T) {
	face := testFace(t)
	l := LayoutText(face, "one\n\ntwo", 0, 0, 0)
	if len(l.Lines) != 3 || l.Lines[1] != "" {
		t.Errorf("got %q", l.Lines)
	}
}

func TestParseColor(t *testing.T) {
	fallback := color.RGBA{1, 2, 3, 255}
	tests := []struct {
		in   string
		want color.RGBA
	}{
		{"#ff0000", color.RGBA{255, 0, 0, 255}},
		{"#0f0", color.RGBA{0, 255, 0, 255}},
		{"00F", color.RGBA{0, 0, 255, 255}},
		{"#ffffff80", color.RGBA{128, 128, 128, 128}},
		{"", color.RGBA{}},
		{"transparent", color.RGBA{}},
		{"#zzz", fallback},
		{"rgb(1,2,3)", fallback},
	}
	for _, tt := range tests {
		if got := ParseColor(tt.in, fallback); got != tt.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
