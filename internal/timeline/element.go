package timeline

import "fmt"

// TextZIndex is the render band text elements live in. Images get their
// insertion index, so text stays above them for any realistic project.
const TextZIndex = 999

type Kind int

const (
	KindImage Kind = iota
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindText:
		return "text"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "image", "":
		*k = KindImage
	case "text":
		*k = KindText
	default:
		return fmt.Errorf("unknown element kind %q", string(b))
	}
	return nil
}

// Position is in canvas units, not surface pixels.
type Position struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

type TransitionType string

const (
	TransitionNone  TransitionType = "none"
	TransitionFade  TransitionType = "fade"
	TransitionSlide TransitionType = "slide"
	TransitionZoom  TransitionType = "zoom"
	TransitionFlip  TransitionType = "flip"
)

// Transition defines the easing windows at both ends of an element's
// active interval.
type Transition struct {
	Type     TransitionType `yaml:"type" json:"type"`
	Duration float64        `yaml:"duration" json:"duration"`
}

type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

type ImageContent struct {
	Asset  string  `yaml:"asset" json:"asset"`
	Width  float64 `yaml:"width" json:"width"`
	Height float64 `yaml:"height" json:"height"`
	Scale  float64 `yaml:"scale" json:"scale"`
}

type TextContent struct {
	Text       string  `yaml:"text" json:"text"`
	FontSize   float64 `yaml:"font_size" json:"fontSize"`
	Color      string  `yaml:"color" json:"color"`
	Background string  `yaml:"background" json:"background"`
	MaxWidth   float64 `yaml:"max_width" json:"maxWidth"`
	Align      Align   `yaml:"align" json:"align"`
}

// Element is a timed item on a track. Values handed out by Timeline are
// copies; mutate through Timeline methods only.
type Element struct {
	ID         string        `yaml:"id" json:"id"`
	Kind       Kind          `yaml:"kind" json:"kind"`
	StartTime  float64       `yaml:"start" json:"startTime"`
	Duration   float64       `yaml:"duration" json:"duration"`
	Track      int           `yaml:"track" json:"track"`
	ZIndex     int           `yaml:"z_index" json:"zIndex"`
	Position   Position      `yaml:"position" json:"position"`
	Rotation   float64       `yaml:"rotation" json:"rotation"`
	Transition Transition    `yaml:"transition" json:"transition"`
	Image      *ImageContent `yaml:"image,omitempty" json:"image,omitempty"`
	Text       *TextContent  `yaml:"text,omitempty" json:"text,omitempty"`

	seq int
}

func (e Element) EndTime() float64 {
	return e.StartTime + e.Duration
}

// ActiveAt reports whether t falls in [StartTime, EndTime).
func (e Element) ActiveAt(t float64) bool {
	return t >= e.StartTime && t < e.EndTime()
}

// Seq is the insertion order, used to break zIndex ties.
func (e Element) Seq() int {
	return e.seq
}

func (e Element) clone() Element {
	c := e
	if e.Image != nil {
		img := *e.Image
		c.Image = &img
	}
	if e.Text != nil {
		txt := *e.Text
		c.Text = &txt
	}
	return c
}

// overlaps is the half-open interval test. eps absorbs float noise from
// snapping so that abutting elements never count as colliding.
func overlaps(s1, d1, s2, d2 float64) bool {
	const eps = 1e-9
	return s1 < s2+d2-eps && s1+d1 > s2+eps
}
