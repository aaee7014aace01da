package project

import (
	"errors"
	"fmt"
	"math"

	"github.com/ivlev/slideforge/internal/engine"
	"github.com/ivlev/slideforge/internal/timeline"
)

// Page is one asset of a deck with its decoded pixel size.
type Page struct {
	Ref           string
	Width, Height float64
}

// Layout fits a deck of pages onto the canvas, one slide after the other.
type Layout struct {
	CanvasWidth  float64
	CanvasHeight float64
	Padding      float64 // Share of the canvas a page may cover
	MinScale     float64
	MaxScale     float64
	MinDwell     float64 // Minimum time per page (seconds)
	MaxDwell     float64 // Maximum time per page (seconds)
}

// NewLayout creates a Layout with default settings
func NewLayout(canvasWidth, canvasHeight int) *Layout {
	return &Layout{
		CanvasWidth:  float64(canvasWidth),
		CanvasHeight: float64(canvasHeight),
		Padding:      0.9,
		MinScale:     0.1,
		MaxScale:     3.0,
		MinDwell:     1.0,
		MaxDwell:     10.0,
	}
}

// Fit returns the scale that fits a w x h page inside the padded canvas
// and the top-left position that centres it.
func (l *Layout) Fit(w, h float64) (float64, timeline.Position) {
	if w <= 0 || h <= 0 {
		return 1, timeline.Position{}
	}

	scale := math.Min(l.CanvasWidth*l.Padding/w, l.CanvasHeight*l.Padding/h)
	scale = math.Max(l.MinScale, math.Min(scale, l.MaxScale))

	return scale, timeline.Position{
		X: (l.CanvasWidth - w*scale) / 2,
		Y: (l.CanvasHeight - h*scale) / 2,
	}
}

// Dwell splits totalDuration evenly over count pages. A non-positive
// total yields fallback per page.
func (l *Layout) Dwell(totalDuration float64, count int, fallback float64) float64 {
	if count <= 0 || totalDuration <= 0 {
		return fallback
	}

	dwell := totalDuration / float64(count)
	if dwell < l.MinDwell {
		dwell = l.MinDwell
	}
	if dwell > l.MaxDwell {
		dwell = l.MaxDwell
	}
	return dwell
}

// Build places pages into s one after another, preceded by a title card
// when title is set. dwell is the time each page stays on screen.
func (l *Layout) Build(s *engine.Session, pages []Page, title string, dwell float64) error {
	if len(pages) == 0 {
		return errors.New("no pages to place")
	}

	if title != "" {
		e, err := s.AddText(engine.TextSpec{
			Text:     title,
			FontSize: 64,
			MaxWidth: l.CanvasWidth * l.Padding,
			Position: timeline.Position{X: l.CanvasWidth * (1 - l.Padding) / 2, Y: l.CanvasHeight * 0.4},
		})
		if err != nil {
			return fmt.Errorf("title: %w", err)
		}
		if err := l.resize(s, e.ID, dwell); err != nil {
			return fmt.Errorf("title: %w", err)
		}
	}

	for i, p := range pages {
		scale, pos := l.Fit(p.Width, p.Height)
		e, err := s.AddImage(engine.ImageSpec{
			Asset:    p.Ref,
			Width:    p.Width,
			Height:   p.Height,
			Position: pos,
		})
		if err != nil {
			return fmt.Errorf("page %d: %w", i+1, err)
		}
		if err := s.Update(e.ID, timeline.Patch{Scale: &scale}); err != nil {
			return fmt.Errorf("page %d: %w", i+1, err)
		}
		if err := l.resize(s, e.ID, dwell); err != nil {
			return fmt.Errorf("page %d: %w", i+1, err)
		}
	}
	return nil
}

func (l *Layout) resize(s *engine.Session, id string, dwell float64) error {
	if dwell <= 0 {
		return nil
	}
	res, err := s.SetDuration(id, dwell)
	if err != nil {
		return err
	}
	if !res.Accepted {
		return fmt.Errorf("resize %s: %s", id, res.Reason)
	}
	return nil
}
