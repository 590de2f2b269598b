package grid

import (
	"errors"
	"fmt"
)

// Item is the footprint of one widget on a page.
type Item struct {
	ID   string `json:"id"`
	Rect Rect   `json:"rect"`
}

// ErrOutOfBounds marks a footprint that does not fit the grid.
var ErrOutOfBounds = errors.New("footprint outside grid")

// IsCellOccupied reports whether any item covers (col, row).
func IsCellOccupied(col, row int, items []Item) bool {
	_, ok := OccupiedBy(col, row, items)
	return ok
}

// OccupiedBy returns the id of the first item covering (col, row).
func OccupiedBy(col, row int, items []Item) (string, bool) {
	for _, it := range items {
		if it.Rect.Contains(col, row) {
			return it.ID, true
		}
	}
	return "", false
}

// WouldCollide reports whether candidate intersects any item other than
// the one identified by excludeID.
func WouldCollide(candidate Rect, items []Item, excludeID string) bool {
	return len(Collisions(candidate, items, excludeID)) > 0
}

// Collisions lists the ids of items, other than excludeID, that candidate
// intersects.
func Collisions(candidate Rect, items []Item, excludeID string) []string {
	var ids []string
	for _, it := range items {
		if it.ID == excludeID {
			continue
		}
		if candidate.Intersects(it.Rect) {
			ids = append(ids, it.ID)
		}
	}
	return ids
}

// Overlap names two items whose footprints intersect.
type Overlap struct {
	A string `json:"a"`
	B string `json:"b"`
}

// Overlaps lists every intersecting pair, in item order.
func Overlaps(items []Item) []Overlap {
	var out []Overlap
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			if items[i].Rect.Intersects(items[j].Rect) {
				out = append(out, Overlap{A: items[i].ID, B: items[j].ID})
			}
		}
	}
	return out
}

// Validate checks that every item lies inside a cols × rows grid and that no
// two items intersect. All violations are joined into the returned error.
func Validate(items []Item, cols, rows int) error {
	var errs []error
	for _, it := range items {
		if !it.Rect.InBounds(cols, rows) {
			errs = append(errs, fmt.Errorf("%w: widget %s at %s", ErrOutOfBounds, it.ID, it.Rect))
		}
	}
	for _, o := range Overlaps(items) {
		errs = append(errs, fmt.Errorf("%w: widgets %s and %s overlap", ErrConflict, o.A, o.B))
	}
	return errors.Join(errs...)
}
