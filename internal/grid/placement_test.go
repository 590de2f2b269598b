package grid

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var widgetA = Item{ID: "A", Rect: Rect{ColStart: 1, ColSpan: 4, RowStart: 1, RowSpan: 4}}

func TestPlace_AcceptedMove(t *testing.T) {
	r := NewResolver(0)
	got, err := r.Place("B", Size{Width: 4, Height: 4}, Cell{Col: 5, Row: 1}, []Item{widgetA})
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	want := Rect{ColStart: 5, ColSpan: 4, RowStart: 1, RowSpan: 4}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Place mismatch (-want +got):\n%s", diff)
	}
}

func TestPlace_RejectedMove(t *testing.T) {
	r := NewResolver(0)
	items := []Item{widgetA, {ID: "B", Rect: Rect{ColStart: 9, ColSpan: 4, RowStart: 1, RowSpan: 4}}}
	got, err := r.Place("B", Size{Width: 4, Height: 4}, Cell{Col: 2, Row: 1}, items)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if got != (Rect{}) {
		t.Errorf("expected zero rect on conflict, got %v", got)
	}
}

func TestPlace_RejectionIsIdempotent(t *testing.T) {
	r := NewResolver(0)
	items := []Item{widgetA}
	for i := 0; i < 3; i++ {
		if _, err := r.Place("B", Size{Width: 4, Height: 4}, Cell{Col: 3, Row: 2}, items); !errors.Is(err, ErrConflict) {
			t.Fatalf("attempt %d: expected ErrConflict, got %v", i, err)
		}
	}
	if items[0] != widgetA {
		t.Errorf("items mutated: %v", items[0])
	}
}

func TestPlace_Clamps(t *testing.T) {
	r := NewResolver(0)
	tests := []struct {
		name string
		size Size
		at   Cell
		want Rect
	}{
		{"column past edge", Size{Width: 4, Height: 1}, Cell{Col: 11, Row: 6}, Rect{ColStart: 9, ColSpan: 4, RowStart: 6, RowSpan: 1}},
		{"row past edge", Size{Width: 2, Height: 3}, Cell{Col: 6, Row: 12}, Rect{ColStart: 6, ColSpan: 2, RowStart: 10, RowSpan: 3}},
		{"below one", Size{Width: 2, Height: 2}, Cell{Col: -3, Row: 0}, Rect{ColStart: 1, ColSpan: 2, RowStart: 1, RowSpan: 2}},
		{"oversized", Size{Width: 20, Height: 1}, Cell{Col: 5, Row: 12}, Rect{ColStart: 1, ColSpan: 12, RowStart: 12, RowSpan: 1}},
		{"default span", Size{}, Cell{Col: 12, Row: 12}, Rect{ColStart: 9, ColSpan: 4, RowStart: 9, RowSpan: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Place("x", tt.size, tt.at, nil)
			if err != nil {
				t.Fatalf("Place: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Place mismatch (-want +got):\n%s", diff)
			}
			if !got.InBounds(Columns, Rows) {
				t.Errorf("%v is out of bounds", got)
			}
		})
	}
}

func TestPlace_ClampThenCollide(t *testing.T) {
	r := NewResolver(0)
	blocker := Item{ID: "right", Rect: Rect{ColStart: 9, ColSpan: 4, RowStart: 1, RowSpan: 1}}
	// The raw request at column 11 overlaps nothing until it is clamped to 9.
	if _, err := r.Place("x", Size{Width: 4, Height: 1}, Cell{Col: 11, Row: 1}, []Item{blocker}); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict after clamping, got %v", err)
	}
}

func TestResize(t *testing.T) {
	r := NewResolver(0)
	b := Item{ID: "B", Rect: Rect{ColStart: 5, ColSpan: 2, RowStart: 1, RowSpan: 2}}
	items := []Item{widgetA, b}

	got, err := r.Resize("B", b.Rect, Size{Width: 6, Height: 3}, items)
	if err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if diff := cmp.Diff(Rect{ColStart: 5, ColSpan: 6, RowStart: 1, RowSpan: 3}, got); diff != "" {
		t.Errorf("Resize mismatch (-want +got):\n%s", diff)
	}

	// Growing to full width pulls the start back to column 1 and hits A.
	if _, err := r.Resize("B", b.Rect, Size{Width: 12, Height: 1}, items); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestDuplicateOffset(t *testing.T) {
	r := NewResolver(0)
	tests := []struct {
		src  Rect
		want Cell
	}{
		{Rect{ColStart: 1, ColSpan: 4, RowStart: 3, RowSpan: 2}, Cell{Col: 5, Row: 3}},
		{Rect{ColStart: 5, ColSpan: 4, RowStart: 1, RowSpan: 4}, Cell{Col: 9, Row: 1}},
		{Rect{ColStart: 8, ColSpan: 4, RowStart: 2, RowSpan: 4}, Cell{Col: 1, Row: 2}},
	}
	for _, tt := range tests {
		if got := r.DuplicateOffset(tt.src); got != tt.want {
			t.Errorf("DuplicateOffset(%v) = %v, want %v", tt.src, got, tt.want)
		}
	}
}

func TestDuplicate_WrapNeverOverlaps(t *testing.T) {
	r := NewResolver(0)
	src := Item{ID: "src", Rect: Rect{ColStart: 8, ColSpan: 4, RowStart: 1, RowSpan: 4}}
	items := []Item{widgetA, src}

	got, err := r.Duplicate(src.Rect, items)
	if err != nil {
		t.Fatalf("Duplicate: %v", err)
	}
	if WouldCollide(got, items, "") {
		t.Errorf("duplicate %v overlaps an existing widget", got)
	}
	if got.Size() != src.Rect.Size() {
		t.Errorf("duplicate size %v, want %v", got.Size(), src.Rect.Size())
	}
}

func TestDuplicate_UsesOffsetWhenFree(t *testing.T) {
	r := NewResolver(0)
	got, err := r.Duplicate(widgetA.Rect, []Item{widgetA})
	if err != nil {
		t.Fatalf("Duplicate: %v", err)
	}
	if diff := cmp.Diff(Rect{ColStart: 5, ColSpan: 4, RowStart: 1, RowSpan: 4}, got); diff != "" {
		t.Errorf("Duplicate mismatch (-want +got):\n%s", diff)
	}
}

func TestFirstFit_FullGrid(t *testing.T) {
	r := NewResolver(0)
	full := []Item{{ID: "all", Rect: Rect{ColStart: 1, ColSpan: 12, RowStart: 1, RowSpan: 12}}}
	if _, err := r.FirstFit(Size{Width: 1, Height: 1}, full); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict on a full grid, got %v", err)
	}
}

func TestFirstFit_RowMajor(t *testing.T) {
	r := NewResolver(0)
	got, err := r.FirstFit(Size{Width: 4, Height: 4}, []Item{widgetA})
	if err != nil {
		t.Fatalf("FirstFit: %v", err)
	}
	if got.TopLeft() != (Cell{Col: 5, Row: 1}) {
		t.Errorf("FirstFit = %v, want top-left 5,1", got)
	}
}
