// Package selection tracks which timeline elements are selected and which
// one anchors range selection.
package selection

import (
	"sort"

	"github.com/ivlev/slideforge/internal/timeline"
)

// None is the sentinel id for clicks on empty canvas; selecting it clears
// everything.
const None = ""

// Modifiers mirror the shift/ctrl keys of a pointer gesture.
type Modifiers struct {
	Range  bool
	Toggle bool
}

type Selection struct {
	ids    []string
	anchor string
}

func New() *Selection {
	return &Selection{}
}

// IDs returns the selected ids in the order they were selected, or in
// start-time order after a range selection.
func (s *Selection) IDs() []string {
	return append([]string(nil), s.ids...)
}

func (s *Selection) Anchor() string { return s.anchor }

func (s *Selection) Len() int { return len(s.ids) }

func (s *Selection) Contains(id string) bool {
	for _, sel := range s.ids {
		if sel == id {
			return true
		}
	}
	return false
}

func (s *Selection) Clear() {
	s.ids = nil
	s.anchor = ""
}

// Select applies one click on id against the current elements. Range wins
// over Toggle when both modifiers are held.
func (s *Selection) Select(elements []timeline.Element, id string, mod Modifiers) {
	if id == None {
		s.Clear()
		return
	}
	switch {
	case mod.Range && s.anchor != "":
		s.selectRange(elements, id)
	case mod.Toggle:
		s.toggle(id)
	default:
		s.ids = []string{id}
		s.anchor = id
	}
}

// selectRange selects the closed range between the anchor and id in
// start-time order. The anchor is kept so the range can be re-extended.
func (s *Selection) selectRange(elements []timeline.Element, id string) {
	sorted := make([]timeline.Element, len(elements))
	copy(sorted, elements)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime < sorted[j].StartTime
	})

	from, to := -1, -1
	for i, e := range sorted {
		if e.ID == s.anchor {
			from = i
		}
		if e.ID == id {
			to = i
		}
	}
	if from < 0 || to < 0 {
		s.ids = []string{id}
		s.anchor = id
		return
	}
	if from > to {
		from, to = to, from
	}
	s.ids = s.ids[:0]
	for _, e := range sorted[from : to+1] {
		s.ids = append(s.ids, e.ID)
	}
}

func (s *Selection) toggle(id string) {
	s.anchor = id
	for i, sel := range s.ids {
		if sel == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			return
		}
	}
	s.ids = append(s.ids, id)
}

// Scope is the set of ids a gesture on id operates on: the whole
// selection if id is part of it, otherwise just id.
func (s *Selection) Scope(id string) []string {
	if s.Contains(id) {
		return s.IDs()
	}
	return []string{id}
}

// Prune drops ids that no longer exist.
func (s *Selection) Prune(exists func(id string) bool) {
	kept := s.ids[:0]
	for _, id := range s.ids {
		if exists(id) {
			kept = append(kept, id)
		}
	}
	s.ids = kept
	if s.anchor != "" && !exists(s.anchor) {
		s.anchor = ""
	}
}
