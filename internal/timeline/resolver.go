package timeline

import "math"

// MoveRequest is a drag delta in timeline units: seconds along X and
// tracks along Y. With more than one id it is a group move.
type MoveRequest struct {
	IDs []string
	DX  float64
	DY  float64
}

// Placement is the (start, track) an element ends up at.
type Placement struct {
	ID    string
	Start float64
	Track int
}

// EditResult reports an all-or-nothing edit. When Accepted is false no
// element changed; Conflict names the pair that blocked it, if any.
type EditResult struct {
	Accepted   bool
	Reason     RejectReason
	Placements []Placement
	Conflict   *Conflict
}

type Conflict struct {
	Moved    string
	Blocking string
	Track    int
}

func rejected(reason RejectReason) EditResult {
	return EditResult{Reason: reason}
}

// Move resolves a drag for one element or a selection group. Single
// element moves snap to neighbours first; group moves never snap. The
// move is rejected as a whole if any moved element would overlap an
// element that stays put, or another moved element after track clamping
// folded them onto the same track.
func (tl *Timeline) Move(req MoveRequest) EditResult {
	if tl.locked {
		return rejected(RejectLocked)
	}
	ids := dedupe(req.IDs)
	if len(ids) == 0 {
		return rejected(RejectEmpty)
	}
	if !finite(req.DX) || !finite(req.DY) {
		return rejected(RejectInvalid)
	}
	moving := make(map[string]*Element, len(ids))
	for _, id := range ids {
		e, ok := tl.byID[id]
		if !ok {
			return rejected(RejectUnknown)
		}
		moving[id] = e
	}

	placements := make([]Placement, 0, len(ids))
	for _, id := range ids {
		e := moving[id]
		start := math.Max(0, e.StartTime+req.DX)
		track := tl.clampTrack(e.Track, req.DY)
		if len(ids) == 1 {
			start = tl.snap(e, start, track)
		}
		placements = append(placements, Placement{ID: id, Start: start, Track: track})
	}

	if c := tl.findConflict(placements, moving, func(e *Element) float64 { return e.Duration }); c != nil {
		return EditResult{Reason: RejectCollision, Conflict: c}
	}

	for _, p := range placements {
		e := moving[p.ID]
		e.StartTime = p.Start
		e.Track = p.Track
	}
	tl.version++
	return EditResult{Accepted: true, Placements: placements}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// clampTrack rounds half up and keeps the result inside the configured
// track range.
func (tl *Timeline) clampTrack(track int, dy float64) int {
	t := int(math.Floor(float64(track) + dy + 0.5))
	if t < 0 {
		return 0
	}
	if t > tl.opts.maxTracks-1 {
		return tl.opts.maxTracks - 1
	}
	return t
}

// snap pulls start onto the end of a neighbour, or so that the element's
// end meets a neighbour's start. First neighbour within tolerance wins.
func (tl *Timeline) snap(e *Element, start float64, track int) float64 {
	tol := tl.opts.snapTolerance
	for _, other := range tl.elements {
		if other.ID == e.ID || other.Track != track {
			continue
		}
		if math.Abs(start-other.EndTime()) < tol {
			start = other.EndTime()
			break
		}
		if math.Abs(start+e.Duration-other.StartTime) < tol {
			start = other.StartTime - e.Duration
			break
		}
	}
	return math.Max(0, start)
}

func (tl *Timeline) findConflict(placements []Placement, moving map[string]*Element, duration func(*Element) float64) *Conflict {
	for i, p := range placements {
		d := duration(moving[p.ID])
		for _, other := range tl.elements {
			if _, moved := moving[other.ID]; moved || other.Track != p.Track {
				continue
			}
			if overlaps(p.Start, d, other.StartTime, other.Duration) {
				return &Conflict{Moved: p.ID, Blocking: other.ID, Track: p.Track}
			}
		}
		for _, q := range placements[i+1:] {
			if q.Track != p.Track {
				continue
			}
			if overlaps(p.Start, d, q.Start, duration(moving[q.ID])) {
				return &Conflict{Moved: p.ID, Blocking: q.ID, Track: p.Track}
			}
		}
	}
	return nil
}

// SetDuration resizes every listed element to d (clamped) in place. Like
// Move, it applies to all or none.
func (tl *Timeline) SetDuration(ids []string, d float64) EditResult {
	if tl.locked {
		return rejected(RejectLocked)
	}
	ids = dedupe(ids)
	if len(ids) == 0 {
		return rejected(RejectEmpty)
	}
	d = tl.clampDuration(d)
	resizing := make(map[string]*Element, len(ids))
	placements := make([]Placement, 0, len(ids))
	for _, id := range ids {
		e, ok := tl.byID[id]
		if !ok {
			return rejected(RejectUnknown)
		}
		resizing[id] = e
		placements = append(placements, Placement{ID: id, Start: e.StartTime, Track: e.Track})
	}

	if c := tl.findConflict(placements, resizing, func(*Element) float64 { return d }); c != nil {
		return EditResult{Reason: RejectCollision, Conflict: c}
	}
	for _, e := range resizing {
		e.Duration = d
	}
	tl.version++
	return EditResult{Accepted: true, Placements: placements}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
