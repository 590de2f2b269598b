package grid

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConflict is returned when a candidate footprint overlaps another widget.
	ErrConflict = errors.New("position conflict")
	// ErrUnknownWidget is returned when an id is not on the page.
	ErrUnknownWidget = errors.New("unknown widget")
)

// Duplicates are offset one footprint to the right while the copy starts at
// or before this column; otherwise they wrap to column 1.
const duplicateWrapColumn = 9

// Resolver turns a requested position or size into a footprint that fits the
// grid and does not overlap other widgets.
type Resolver struct {
	cols, rows  int
	defaultSpan int
}

// NewResolver returns a resolver for the 12 × 12 layout grid.
func NewResolver(defaultSpan int) *Resolver {
	if defaultSpan <= 0 {
		defaultSpan = DefaultSpan
	}
	return &Resolver{cols: Columns, rows: Rows, defaultSpan: defaultSpan}
}

// Place resolves a move of widget id, with the given size, to the desired
// top-left cell. The position is clamped into the grid before the collision
// check; on conflict nothing is returned and the caller must not mutate state.
func (r *Resolver) Place(id string, size Size, at Cell, items []Item) (Rect, error) {
	size = r.normalize(size)
	candidate := NewRect(r.clamp(at, size), size)

	if hits := Collisions(candidate, items, id); len(hits) > 0 {
		return Rect{}, fmt.Errorf("%w: %s overlaps %s", ErrConflict, candidate, strings.Join(hits, ", "))
	}
	return candidate, nil
}

// Resize keeps the current top-left cell and applies the new size through
// the same clamp-then-collide path as Place.
func (r *Resolver) Resize(id string, current Rect, size Size, items []Item) (Rect, error) {
	return r.Place(id, size, current.TopLeft(), items)
}

// DuplicateOffset is the position a copy of src is first tried at: directly
// to the right of src on the same row, or column 1 when that would run past
// the wrap column.
func (r *Resolver) DuplicateOffset(src Rect) Cell {
	col := src.ColStart + src.ColSpan
	if col > duplicateWrapColumn {
		col = 1
	}
	return Cell{Col: col, Row: src.RowStart}
}

// Duplicate finds a footprint for a copy of src. The offset position is tried
// first; if it collides the first free slot of the same size is used.
func (r *Resolver) Duplicate(src Rect, items []Item) (Rect, error) {
	size := Size{Width: src.ColSpan, Height: src.RowSpan}
	if rect, err := r.Place("", size, r.DuplicateOffset(src), items); err == nil {
		return rect, nil
	}
	return r.FirstFit(size, items)
}

// FirstFit scans rows top to bottom and columns left to right for the first
// position where a footprint of the given size fits without overlap.
func (r *Resolver) FirstFit(size Size, items []Item) (Rect, error) {
	size = r.normalize(size)
	for row := 1; row+size.Height <= r.rows+1; row++ {
		for col := 1; col+size.Width <= r.cols+1; col++ {
			candidate := NewRect(Cell{Col: col, Row: row}, size)
			if !overlapsAny(candidate, items) {
				return candidate, nil
			}
		}
	}
	return Rect{}, fmt.Errorf("%w: no free %dx%d slot", ErrConflict, size.Width, size.Height)
}

// normalize substitutes the default span for unset extents and caps extents
// at the grid size.
func (r *Resolver) normalize(size Size) Size {
	if size.Width <= 0 {
		size.Width = r.defaultSpan
	}
	if size.Height <= 0 {
		size.Height = r.defaultSpan
	}
	size.Width = min(size.Width, r.cols)
	size.Height = min(size.Height, r.rows)
	return size
}

// clamp caps the start so the far edge stays on the grid and floors it at 1.
func (r *Resolver) clamp(at Cell, size Size) Cell {
	col := min(at.Col, r.cols+1-size.Width)
	row := min(at.Row, r.rows+1-size.Height)
	return Cell{Col: max(col, 1), Row: max(row, 1)}
}

func overlapsAny(candidate Rect, items []Item) bool {
	for _, it := range items {
		if candidate.Intersects(it.Rect) {
			return true
		}
	}
	return false
}
