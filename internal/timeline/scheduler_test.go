package timeline

import "testing"

func TestNextSlot(t *testing.T) {
	tests := []struct {
		name     string
		existing []Element
		want     Slot
	}{
		{
			name: "empty timeline starts at origin",
			want: Slot{Track: 0, Start: 0},
		},
		{
			name:     "append after the only element",
			existing: []Element{image("a", 0, 3, 0)},
			want:     Slot{Track: 0, Start: 3},
		},
		{
			name:     "earliest finishing track wins",
			existing: []Element{image("a", 0, 5, 0), image("b", 0, 2, 1)},
			want:     Slot{Track: 1, Start: 2},
		},
		{
			name:     "ties go to the lowest index",
			existing: []Element{image("a", 0, 4, 0), image("b", 1, 3, 1), image("c", 0, 4, 2)},
			want:     Slot{Track: 0, Start: 4},
		},
		{
			name:     "unused index below the highest track is filled first",
			existing: []Element{image("a", 0, 4, 0), image("b", 0, 1, 2)},
			want:     Slot{Track: 1, Start: 0},
		},
		{
			name:     "text shares the track space",
			existing: []Element{image("a", 0, 4, 0), text("t", 0, 6, 1)},
			want:     Slot{Track: 0, Start: 4},
		},
		{
			name:     "end time is the max over the track, not the last inserted",
			existing: []Element{image("a", 5, 2, 0), image("b", 0, 1, 0)},
			want:     Slot{Track: 0, Start: 7},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl := New()
			mustInsert(t, tl, tt.existing...)
			if got := tl.NextSlot(); got != tt.want {
				t.Errorf("NextSlot() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNextSlotIsDeterministic(t *testing.T) {
	tl := New()
	mustInsert(t, tl, image("a", 0, 3, 0), image("b", 0, 2, 1), text("t", 2, 2, 1))

	first := tl.NextSlot()
	for i := 0; i < 10; i++ {
		if got := tl.NextSlot(); got != first {
			t.Fatalf("call %d: got %+v, want %+v", i, got, first)
		}
	}
}

func TestPlaceStaysWithinOccupiedTracks(t *testing.T) {
	tl := New(seqIDs())
	mustInsert(t, tl, image("a", 0, 1, 0), image("b", 0, 5, 2))
	for i := 0; i < 6; i++ {
		e, err := tl.Place(image("", 0, 2, 0))
		if err != nil {
			t.Fatalf("Place %d: %v", i, err)
		}
		if e.Track > 2 {
			t.Fatalf("Place %d opened track %d above the highest occupied one", i, e.Track)
		}
	}
}

func TestPlaceKeepsInvariant(t *testing.T) {
	tl := New(seqIDs())
	durations := []float64{3, 1, 2.5, 4, 0.5, 3, 2}
	for _, d := range durations {
		if _, err := tl.Place(image("", 0, d, 0)); err != nil {
			t.Fatalf("Place(%g): %v", d, err)
		}
		if err := tl.Validate(); err != nil {
			t.Fatalf("invariant broken after placing %g: %v", d, err)
		}
	}
	if tl.Len() != len(durations) {
		t.Errorf("len: got %d, want %d", tl.Len(), len(durations))
	}

	first, _ := tl.Get("e1")
	if first.Track != 0 || first.StartTime != 0 {
		t.Errorf("first element at (%d, %g), want (0, 0)", first.Track, first.StartTime)
	}
	second, _ := tl.Get("e2")
	if second.Track != 0 || second.StartTime != 3 {
		t.Errorf("second element at (%d, %g), want (0, 3)", second.Track, second.StartTime)
	}
}
