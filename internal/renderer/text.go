package renderer

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/ivlev/slideforge/internal/timeline"
)

// Text box padding in canvas units.
const (
	textPadX        = 12
	textPadY        = 8
	defaultFontSize = 24
)

var (
	defaultTextColor = color.RGBA{255, 255, 255, 255}

	fontOnce  sync.Once
	goRegular *opentype.Font
	fontErr   error
)

func defaultFont() (*opentype.Font, error) {
	fontOnce.Do(func() {
		goRegular, fontErr = opentype.Parse(goregular.TTF)
	})
	return goRegular, fontErr
}

// TextLayout is a wrapped text box in surface pixels.
type TextLayout struct {
	Lines      []string
	Widths     []int
	LineHeight int
	Ascent     int
	PadX, PadY int
	// Width and Height include the padding.
	Width, Height int
}

// LayoutText wraps s so that no line is wider than maxWidth pixels. Words
// break at spaces first; a single word wider than the box is split
// between runes. maxWidth <= 0 disables wrapping.
func LayoutText(face font.Face, s string, maxWidth, padX, padY int) TextLayout {
	m := face.Metrics()
	l := TextLayout{
		LineHeight: m.Height.Ceil(),
		Ascent:     m.Ascent.Ceil(),
		PadX:       padX,
		PadY:       padY,
	}

	for _, para := range strings.Split(s, "\n") {
		l.Lines = append(l.Lines, wrapParagraph(face, para, maxWidth)...)
	}

	content := 0
	for _, line := range l.Lines {
		w := measure(face, line)
		l.Widths = append(l.Widths, w)
		content = max(content, w)
	}
	l.Width = content + 2*padX
	l.Height = len(l.Lines)*l.LineHeight + 2*padY
	return l
}

func measure(face font.Face, s string) int {
	return font.MeasureString(face, s).Ceil()
}

func wrapParagraph(face font.Face, para string, maxWidth int) []string {
	words := strings.Fields(para)
	if len(words) == 0 {
		return []string{""}
	}
	if maxWidth <= 0 {
		return []string{strings.Join(words, " ")}
	}

	var lines []string
	line := ""
	for _, word := range words {
		candidate := word
		if line != "" {
			candidate = line + " " + word
		}
		if measure(face, candidate) <= maxWidth {
			line = candidate
			continue
		}
		if line != "" {
			lines = append(lines, line)
		}
		line = word
		if measure(face, word) > maxWidth {
			chunks := breakWord(face, word, maxWidth)
			lines = append(lines, chunks[:len(chunks)-1]...)
			line = chunks[len(chunks)-1]
		}
	}
	return append(lines, line)
}

// breakWord splits word into pieces no wider than maxWidth, keeping at
// least one rune per piece.
func breakWord(face font.Face, word string, maxWidth int) []string {
	var chunks []string
	var cur []rune
	for _, r := range word {
		next := append(cur, r)
		if len(cur) > 0 && measure(face, string(next)) > maxWidth {
			chunks = append(chunks, string(cur))
			cur = []rune{r}
			continue
		}
		cur = next
	}
	return append(chunks, string(cur))
}

// maxTextLayers bounds the rasterized text cache. Edits to a text element
// each leave a layer behind, so the cache starts over once it is full.
const maxTextLayers = 64

type textKey struct {
	content timeline.TextContent
	scale   float64
}

// face returns a cached face for a pixel size. Callers hold s.mu.
func (s *Surface) face(size float64) (font.Face, error) {
	size = math.Round(size*4) / 4
	if f, ok := s.faces[size]; ok {
		return f, nil
	}
	otf, err := defaultFont()
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	f, err := opentype.NewFace(otf, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create face: %w", err)
	}
	s.faces[size] = f
	return f, nil
}

// textLayer rasterizes a text box at the surface scale. Layers are cached
// by content, so a static title costs one layout per project. Callers
// hold s.mu.
func (s *Surface) textLayer(txt *timeline.TextContent) (*image.RGBA, error) {
	key := textKey{content: *txt, scale: s.scale}
	if img, ok := s.texts[key]; ok {
		return img, nil
	}

	size := txt.FontSize
	if size <= 0 {
		size = defaultFontSize
	}
	face, err := s.face(size * s.scale)
	if err != nil {
		return nil, err
	}

	maxW := int(math.Round(txt.MaxWidth * s.scale))
	padX := int(math.Round(textPadX * s.scale))
	padY := int(math.Round(textPadY * s.scale))
	l := LayoutText(face, txt.Text, maxW, padX, padY)

	layer := image.NewRGBA(image.Rect(0, 0, max(l.Width, 1), max(l.Height, 1)))
	if bg := ParseColor(txt.Background, color.RGBA{}); bg.A > 0 {
		draw.Draw(layer, layer.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	}

	d := &font.Drawer{
		Dst:  layer,
		Src:  image.NewUniform(ParseColor(txt.Color, defaultTextColor)),
		Face: face,
	}
	content := l.Width - 2*l.PadX
	for i, line := range l.Lines {
		x := l.PadX
		switch txt.Align {
		case timeline.AlignCenter:
			x += (content - l.Widths[i]) / 2
		case timeline.AlignRight:
			x += content - l.Widths[i]
		}
		y := l.PadY + i*l.LineHeight + l.Ascent
		d.Dot = fixed.P(x, y)
		d.DrawString(line)
	}

	if len(s.texts) >= maxTextLayers {
		clear(s.texts)
	}
	s.texts[key] = layer
	return layer, nil
}
