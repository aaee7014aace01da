package timeline

// Slot is a (track, start) pair chosen for a new element.
type Slot struct {
	Track int
	Start float64
}

// NextSlot picks where the next placed element goes: the track that
// finishes earliest, lowest index on ties, starting at that track's end.
// Tracks are considered from 0 up to the highest occupied index, so an
// unused index below it counts as an empty track ending at 0 and gets
// filled before anything is appended further right. The first element of
// an empty timeline always lands on (0, 0). Placement never opens a
// track above the highest occupied index; only a drag does that.
//
// The result depends only on the current schedule, never on the new
// element's duration, so repeated calls agree until the timeline changes.
func (tl *Timeline) NextSlot() Slot {
	if len(tl.elements) == 0 {
		return Slot{}
	}

	maxTrack := 0
	for _, e := range tl.elements {
		if e.Track > maxTrack {
			maxTrack = e.Track
		}
	}
	ends := make([]float64, maxTrack+1)
	for _, e := range tl.elements {
		if end := e.EndTime(); end > ends[e.Track] {
			ends[e.Track] = end
		}
	}

	best := 0
	for tr := 1; tr <= maxTrack; tr++ {
		if ends[tr] < ends[best] {
			best = tr
		}
	}
	return Slot{Track: best, Start: ends[best]}
}
