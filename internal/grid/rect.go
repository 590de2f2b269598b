package grid

import "fmt"

const (
	Columns = 12
	Rows    = 12

	// DefaultSpan is used for either axis when a stored position has no
	// readable span. New widgets are also created at DefaultSpan × DefaultSpan.
	DefaultSpan = 4
)

// Cell addresses a single 1-indexed grid cell.
type Cell struct {
	Col int `json:"col"`
	Row int `json:"row"`
}

// Size is a footprint extent in cells.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rect is a widget footprint. Starts are 1-indexed and each axis covers the
// half-open interval [start, start+span).
type Rect struct {
	ColStart int `json:"colStart"`
	ColSpan  int `json:"colSpan"`
	RowStart int `json:"rowStart"`
	RowSpan  int `json:"rowSpan"`
}

// NewRect builds a footprint from a top-left cell and a size.
func NewRect(at Cell, size Size) Rect {
	return Rect{ColStart: at.Col, ColSpan: size.Width, RowStart: at.Row, RowSpan: size.Height}
}

// ColEnd is the first column past the footprint.
func (r Rect) ColEnd() int { return r.ColStart + r.ColSpan }

// RowEnd is the first row past the footprint.
func (r Rect) RowEnd() int { return r.RowStart + r.RowSpan }

func (r Rect) TopLeft() Cell { return Cell{Col: r.ColStart, Row: r.RowStart} }

func (r Rect) Size() Size { return Size{Width: r.ColSpan, Height: r.RowSpan} }

// Intersects reports whether r and o share at least one cell. Footprints that
// only touch along an edge do not intersect.
func (r Rect) Intersects(o Rect) bool {
	return r.ColStart < o.ColEnd() && r.ColEnd() > o.ColStart &&
		r.RowStart < o.RowEnd() && r.RowEnd() > o.RowStart
}

// Contains reports whether the cell (col, row) lies inside r.
func (r Rect) Contains(col, row int) bool {
	return col >= r.ColStart && col < r.ColEnd() &&
		row >= r.RowStart && row < r.RowEnd()
}

// InBounds reports whether r has positive spans and fits inside a
// cols × rows grid.
func (r Rect) InBounds(cols, rows int) bool {
	return r.ColStart >= 1 && r.RowStart >= 1 &&
		r.ColSpan >= 1 && r.RowSpan >= 1 &&
		r.ColEnd() <= cols+1 && r.RowEnd() <= rows+1
}

func (r Rect) String() string {
	return fmt.Sprintf("col %d+%d row %d+%d", r.ColStart, r.ColSpan, r.RowStart, r.RowSpan)
}

// Intersects is the free-function form of Rect.Intersects.
func Intersects(a, b Rect) bool {
	return a.Intersects(b)
}
