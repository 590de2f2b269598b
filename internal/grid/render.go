package grid

import (
	"fmt"
	"strings"
)

const markers = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Render draws a cols × rows occupancy map, one marker per item in item
// order, followed by a legend. Free cells are dots; cells claimed by more
// than one item are '#'.
func Render(items []Item, cols, rows int) string {
	cells := make([][]byte, rows)
	for r := range cells {
		cells[r] = []byte(strings.Repeat(".", cols))
	}
	for i, it := range items {
		m := byte('*')
		if i < len(markers) {
			m = markers[i]
		}
		for row := it.Rect.RowStart; row < it.Rect.RowEnd(); row++ {
			for col := it.Rect.ColStart; col < it.Rect.ColEnd(); col++ {
				if row < 1 || row > rows || col < 1 || col > cols {
					continue
				}
				if c := &cells[row-1][col-1]; *c == '.' {
					*c = m
				} else {
					*c = '#'
				}
			}
		}
	}

	var b strings.Builder
	b.WriteString("   ")
	for col := 1; col <= cols; col++ {
		fmt.Fprintf(&b, "%3d", col)
	}
	b.WriteByte('\n')
	for r, line := range cells {
		fmt.Fprintf(&b, "%3d", r+1)
		for _, c := range line {
			fmt.Fprintf(&b, "  %c", c)
		}
		b.WriteByte('\n')
	}
	for i, it := range items {
		m := byte('*')
		if i < len(markers) {
			m = markers[i]
		}
		fmt.Fprintf(&b, "%c  %s  %s\n", m, it.ID, it.Rect)
	}
	return b.String()
}
