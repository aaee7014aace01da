package project

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ivlev/slideforge/internal/config"
	"github.com/ivlev/slideforge/internal/engine"
	"github.com/ivlev/slideforge/internal/timeline"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Canvas.Width, cfg.Canvas.Height = 1000, 500
	return cfg
}

func TestGeneratePath(t *testing.T) {
	now := time.Date(2026, 2, 13, 1, 2, 3, 0, time.UTC)
	path := GeneratePath("projects", now)

	want := filepath.Join("projects", "project_2026-02-13_01-02-03.yaml")
	if path != want {
		t.Errorf("got %s, want %s", path, want)
	}
}

func TestFindLatest(t *testing.T) {
	dir := t.TempDir()

	files := []string{
		filepath.Join(dir, "project_2026-02-12_10-00-00.yaml"),
		filepath.Join(dir, "project_2026-02-13_01-00-00.yaml"),
		filepath.Join(dir, "project_2026-02-11_15-30-00.yaml"),
	}
	for i, f := range files {
		if err := os.WriteFile(f, []byte("version: \"1.0\"\n"), 0644); err != nil {
			t.Fatal(err)
		}
		modTime := time.Now().Add(time.Duration(i) * time.Hour)
		os.Chtimes(f, modTime, modTime)
	}
	// Not a project file, even though it is the newest.
	other := filepath.Join(dir, "notes.txt")
	os.WriteFile(other, []byte("x"), 0644)
	future := time.Now().Add(10 * time.Hour)
	os.Chtimes(other, future, future)

	latest, err := FindLatest(dir)
	if err != nil {
		t.Fatalf("FindLatest failed: %v", err)
	}
	if latest != files[len(files)-1] {
		t.Errorf("Expected latest to be %s, got %s", files[len(files)-1], latest)
	}

	if _, err := FindLatest(t.TempDir()); err == nil {
		t.Error("expected error for empty directory")
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	cfg := testConfig()
	s := engine.NewSession(cfg)
	if _, err := s.AddImage(engine.ImageSpec{Asset: "deck.pdf#1", Width: 800, Height: 600}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddText(engine.TextSpec{Text: "Hello"}); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "p.yaml")
	if err := Write(New("Demo", cfg.Canvas, s.Snapshot()), path); err != nil {
		t.Fatalf("Write: %v", err)
	}

	doc, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if doc.Title != "Demo" || doc.Canvas.Width != 1000 {
		t.Errorf("header lost: %+v", doc)
	}

	restored := engine.NewSession(cfg)
	if err := restored.Load(doc.Elements); err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, want := restored.Snapshot(), s.Snapshot()
	if len(got) != len(want) {
		t.Fatalf("got %d elements, want %d", len(got), len(want))
	}
	for i := range want {
		g, w := got[i], want[i]
		if g.ID != w.ID || g.Kind != w.Kind || g.StartTime != w.StartTime || g.Track != w.Track || g.ZIndex != w.ZIndex {
			t.Errorf("element %d: got %+v, want %+v", i, g, w)
		}
	}
	if got[1].Text == nil || got[1].Text.Text != "Hello" {
		t.Errorf("text payload lost: %+v", got[1].Text)
	}
}

func TestReadRejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.yaml")
	os.WriteFile(path, []byte("version: \"9\"\nelements: []\n"), 0644)

	if _, err := Read(path); err == nil || !strings.Contains(err.Error(), "version") {
		t.Errorf("expected version error, got %v", err)
	}
}

func TestApplyCanvas(t *testing.T) {
	cfg := config.Default()
	doc := New("", config.CanvasConfig{Width: 640, Background: "#ff0000"}, nil)
	doc.Apply(cfg)

	if cfg.Canvas.Width != 640 || cfg.Canvas.Background != "#ff0000" {
		t.Errorf("canvas not applied: %+v", cfg.Canvas)
	}
	if cfg.Canvas.Height != config.Default().Canvas.Height {
		t.Errorf("zero height overwrote config: %d", cfg.Canvas.Height)
	}
}

func TestFit(t *testing.T) {
	l := NewLayout(1000, 500)

	tests := []struct {
		name      string
		w, h      float64
		wantScale float64
	}{
		{"wide page limited by width", 2000, 500, 0.45},
		{"tall page limited by height", 300, 900, 0.5},
		{"tiny page clamped to max", 10, 10, 3},
		{"huge page clamped to min", 100000, 100000, 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scale, pos := l.Fit(tt.w, tt.h)
			if math.Abs(scale-tt.wantScale) > 1e-9 {
				t.Errorf("scale: got %f, want %f", scale, tt.wantScale)
			}
			cx := pos.X + tt.w*scale/2
			cy := pos.Y + tt.h*scale/2
			if math.Abs(cx-500) > 1e-9 || math.Abs(cy-250) > 1e-9 {
				t.Errorf("not centred: centre at (%f, %f)", cx, cy)
			}
		})
	}
}

func TestDwell(t *testing.T) {
	l := NewLayout(1000, 500)

	tests := []struct {
		total float64
		count int
		want  float64
	}{
		{30, 10, 3},
		{5, 10, 1},   // clamped to MinDwell
		{100, 2, 10}, // clamped to MaxDwell
		{0, 4, 3},    // fallback
		{10, 0, 3},   // fallback
	}

	for _, tt := range tests {
		if got := l.Dwell(tt.total, tt.count, 3); got != tt.want {
			t.Errorf("Dwell(%v, %d): got %v, want %v", tt.total, tt.count, got, tt.want)
		}
	}
}

func TestBuildPlacesPagesInSequence(t *testing.T) {
	cfg := testConfig()
	s := engine.NewSession(cfg)
	l := NewLayout(cfg.Canvas.Width, cfg.Canvas.Height)

	pages := []Page{
		{Ref: "deck.pdf#1", Width: 2000, Height: 1000},
		{Ref: "deck.pdf#2", Width: 2000, Height: 1000},
		{Ref: "deck.pdf#3", Width: 2000, Height: 1000},
	}
	if err := l.Build(s, pages, "Quarterly review", 2); err != nil {
		t.Fatalf("Build: %v", err)
	}

	elems := s.Elements()
	if len(elems) != 4 {
		t.Fatalf("got %d elements, want 4", len(elems))
	}
	if elems[0].Kind != timeline.KindText || elems[0].StartTime != 0 {
		t.Errorf("title card should open the project: %+v", elems[0])
	}
	for i, e := range elems {
		if e.Track != 0 {
			t.Errorf("element %d on track %d", i, e.Track)
		}
		if e.StartTime != float64(i)*2 || e.Duration != 2 {
			t.Errorf("element %d at [%v, +%v], want [%v, +2]", i, e.StartTime, e.Duration, float64(i)*2)
		}
	}
	if got := elems[1].Image.Scale; math.Abs(got-0.45) > 1e-9 {
		t.Errorf("page scale: got %f, want 0.45", got)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("schedule invalid: %v", err)
	}
	if got := s.TotalDuration(); got != 8 {
		t.Errorf("total duration: got %v, want 8", got)
	}
}

func TestBuildEmptyDeck(t *testing.T) {
	s := engine.NewSession(testConfig())
	if err := NewLayout(1000, 500).Build(s, nil, "", 3); err == nil {
		t.Error("expected error for empty deck")
	}
}
