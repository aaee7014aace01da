package timeline

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
)

// Option configures a Timeline during creation.
type Option func(*options)

type options struct {
	maxTracks     int
	snapTolerance float64
	minDuration   float64
	maxDuration   float64
	newID         func() string
}

func defaultOptions() options {
	return options{
		maxTracks:     5,
		snapTolerance: 10.0 / 60.0,
		minDuration:   0.5,
		maxDuration:   100,
		newID:         func() string { return uuid.NewString() },
	}
}

// WithMaxTracks bounds the track index a drag can reach (indices 0..n-1).
func WithMaxTracks(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxTracks = n
		}
	}
}

// WithSnapTolerance sets the snapping window in seconds.
func WithSnapTolerance(sec float64) Option {
	return func(o *options) {
		if sec >= 0 {
			o.snapTolerance = sec
		}
	}
}

// WithDurationBounds sets the clamp applied to every duration edit.
func WithDurationBounds(min, max float64) Option {
	return func(o *options) {
		if min > 0 && max >= min {
			o.minDuration, o.maxDuration = min, max
		}
	}
}

// WithIDGenerator replaces the uuid generator, mostly for tests.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.newID = fn
		}
	}
}

// Timeline is a multi-track schedule of non-overlapping timed elements.
// It is not safe for concurrent use; the editing session serializes access.
type Timeline struct {
	opts     options
	elements []*Element
	byID     map[string]*Element
	nextSeq  int
	version  uint64
	locked   bool
}

func New(opts ...Option) *Timeline {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Timeline{
		opts: o,
		byID: make(map[string]*Element),
	}
}

func (tl *Timeline) Len() int { return len(tl.elements) }

func (tl *Timeline) MaxTracks() int { return tl.opts.maxTracks }

func (tl *Timeline) SnapTolerance() float64 { return tl.opts.snapTolerance }

// Version changes on every applied mutation.
func (tl *Timeline) Version() uint64 { return tl.version }

// Lock freezes the schedule, e.g. while a capture is running. Every
// mutation is refused until Unlock.
func (tl *Timeline) Lock()   { tl.locked = true }
func (tl *Timeline) Unlock() { tl.locked = false }

func (tl *Timeline) Locked() bool { return tl.locked }

func (tl *Timeline) Get(id string) (Element, bool) {
	e, ok := tl.byID[id]
	if !ok {
		return Element{}, false
	}
	return e.clone(), true
}

func (tl *Timeline) Has(id string) bool {
	_, ok := tl.byID[id]
	return ok
}

// Elements returns copies in insertion order.
func (tl *Timeline) Elements() []Element {
	out := make([]Element, len(tl.elements))
	for i, e := range tl.elements {
		out[i] = e.clone()
	}
	return out
}

// ActiveAt returns the elements whose interval contains t, in insertion order.
func (tl *Timeline) ActiveAt(t float64) []Element {
	var out []Element
	for _, e := range tl.elements {
		if e.ActiveAt(t) {
			out = append(out, e.clone())
		}
	}
	return out
}

// TotalDuration is the latest end time over all elements.
func (tl *Timeline) TotalDuration() float64 {
	total := 0.0
	for _, e := range tl.elements {
		total = math.Max(total, e.EndTime())
	}
	return total
}

// TotalDurationOf is the latest end time among elements.
func TotalDurationOf(elements []Element) float64 {
	total := 0.0
	for _, e := range elements {
		total = math.Max(total, e.EndTime())
	}
	return total
}

func (tl *Timeline) clampDuration(d float64) float64 {
	if math.IsNaN(d) {
		return tl.opts.minDuration
	}
	return math.Max(tl.opts.minDuration, math.Min(d, tl.opts.maxDuration))
}

// Place schedules a new element with the earliest-finish-track rule and
// returns the stored copy. StartTime and Track on e are ignored.
func (tl *Timeline) Place(e Element) (Element, error) {
	if tl.locked {
		return Element{}, ErrLocked
	}
	if err := checkPayload(e); err != nil {
		return Element{}, err
	}
	slot := tl.NextSlot()
	e.StartTime = slot.Start
	e.Track = slot.Track
	return tl.insert(e)
}

// Insert stores an element at the placement it already carries. The
// element is refused if it would overlap a neighbour.
func (tl *Timeline) Insert(e Element) (Element, error) {
	if tl.locked {
		return Element{}, ErrLocked
	}
	if err := checkPayload(e); err != nil {
		return Element{}, err
	}
	if !finite(e.StartTime) || !finite(e.Duration) {
		return Element{}, fmt.Errorf("%w: non-finite placement (%g, %g)", ErrInvalidElement, e.StartTime, e.Duration)
	}
	if e.StartTime < 0 || e.Track < 0 {
		return Element{}, fmt.Errorf("%w: negative placement (%g, %d)", ErrInvalidElement, e.StartTime, e.Track)
	}
	e.Duration = tl.clampDuration(e.Duration)
	for _, other := range tl.elements {
		if other.Track == e.Track && overlaps(e.StartTime, e.Duration, other.StartTime, other.Duration) {
			return Element{}, &InvariantError{Track: e.Track, A: e.ID, B: other.ID}
		}
	}
	return tl.insert(e)
}

func (tl *Timeline) insert(e Element) (Element, error) {
	if e.ID == "" {
		e.ID = tl.opts.newID()
	}
	if _, dup := tl.byID[e.ID]; dup {
		return Element{}, fmt.Errorf("%w: duplicate id %s", ErrInvalidElement, e.ID)
	}
	e.Duration = tl.clampDuration(e.Duration)
	if e.Transition.Type == "" {
		e.Transition.Type = TransitionNone
	}
	e.Transition.Duration = clampTransition(e.Transition.Duration)
	e.Rotation = normalizeRotation(e.Rotation)
	if e.Image != nil {
		if e.Image.Scale == 0 {
			e.Image.Scale = 1
		}
		e.Image.Scale = clamp(e.Image.Scale, minScale, maxScale)
	}
	e.seq = tl.nextSeq
	tl.nextSeq++

	stored := e.clone()
	tl.elements = append(tl.elements, &stored)
	tl.byID[stored.ID] = &stored
	tl.version++
	return stored.clone(), nil
}

func checkPayload(e Element) error {
	switch e.Kind {
	case KindImage:
		if e.Image == nil {
			return fmt.Errorf("%w: image element without image content", ErrInvalidElement)
		}
	case KindText:
		if e.Text == nil {
			return fmt.Errorf("%w: text element without text content", ErrInvalidElement)
		}
	default:
		return fmt.Errorf("%w: %s", ErrInvalidElement, e.Kind)
	}
	return nil
}

// Remove deletes the given elements and returns how many existed.
func (tl *Timeline) Remove(ids ...string) (int, error) {
	if tl.locked {
		return 0, ErrLocked
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := tl.byID[id]; ok {
			drop[id] = true
		}
	}
	if len(drop) == 0 {
		return 0, nil
	}
	kept := tl.elements[:0]
	for _, e := range tl.elements {
		if drop[e.ID] {
			delete(tl.byID, e.ID)
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(tl.elements); i++ {
		tl.elements[i] = nil
	}
	tl.elements = kept
	tl.version++
	return len(drop), nil
}

// Validate checks the per-track non-overlap invariant. A failure means a
// defect, never a user mistake.
func (tl *Timeline) Validate() error {
	byTrack := make(map[int][]*Element)
	for _, e := range tl.elements {
		byTrack[e.Track] = append(byTrack[e.Track], e)
	}
	tracks := make([]int, 0, len(byTrack))
	for tr := range byTrack {
		tracks = append(tracks, tr)
	}
	sort.Ints(tracks)

	for _, tr := range tracks {
		list := byTrack[tr]
		sort.SliceStable(list, func(i, j int) bool { return list[i].StartTime < list[j].StartTime })
		for i := 1; i < len(list); i++ {
			prev, cur := list[i-1], list[i]
			if overlaps(prev.StartTime, prev.Duration, cur.StartTime, cur.Duration) {
				return &InvariantError{Track: tr, A: prev.ID, B: cur.ID}
			}
		}
	}
	return nil
}

// Snapshot returns a plain structural copy of every element in insertion
// order, suitable for any serialization collaborator.
func (tl *Timeline) Snapshot() []Element {
	return tl.Elements()
}

// Restore replaces the contents with snap. Nothing changes unless the
// whole snapshot is valid.
func (tl *Timeline) Restore(snap []Element) error {
	if tl.locked {
		return ErrLocked
	}
	fresh := New()
	fresh.opts = tl.opts
	for _, e := range snap {
		if _, err := fresh.Insert(e); err != nil {
			return fmt.Errorf("restore %s: %w", e.ID, err)
		}
	}
	tl.elements = fresh.elements
	tl.byID = fresh.byID
	tl.nextSeq = fresh.nextSeq
	tl.version++
	return nil
}
