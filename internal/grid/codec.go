package grid

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

var (
	leadingIntRe = regexp.MustCompile(`^\s*([+-]?\d+)`)
	spanRe       = regexp.MustCompile(`span\s+(\d+)`)
)

// ParseError describes a stored position that could not be read. Decode
// still returns a usable footprint alongside it.
type ParseError struct {
	Axis string // "column" or "row"
	Part string // "start" or "span"
	Text string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("grid: unreadable %s %s in %q", e.Axis, e.Part, e.Text)
}

// Codec converts between the stored "<start> / span <n>" strings and Rect.
type Codec struct {
	defaultSpan int
}

// NewCodec returns a codec that substitutes defaultSpan for missing spans.
// Non-positive values fall back to DefaultSpan.
func NewCodec(defaultSpan int) Codec {
	if defaultSpan <= 0 {
		defaultSpan = DefaultSpan
	}
	return Codec{defaultSpan: defaultSpan}
}

// DefaultSpan returns the span substituted for unreadable positions.
func (c Codec) DefaultSpan() int {
	if c.defaultSpan <= 0 {
		return DefaultSpan
	}
	return c.defaultSpan
}

// Decode parses a column and row position pair. Unreadable starts become 1
// and unreadable spans become the codec's default span; every substitution
// is reported through the returned error, which callers may ignore.
func (c Codec) Decode(columnSpec, rowSpec string) (Rect, error) {
	colStart, colSpan, colErr := c.decodeAxis("column", columnSpec)
	rowStart, rowSpan, rowErr := c.decodeAxis("row", rowSpec)
	r := Rect{ColStart: colStart, ColSpan: colSpan, RowStart: rowStart, RowSpan: rowSpan}
	return r, errors.Join(colErr, rowErr)
}

// Encode renders r in canonical form.
func (c Codec) Encode(r Rect) (columnSpec, rowSpec string) {
	return encodeAxis(r.ColStart, r.ColSpan), encodeAxis(r.RowStart, r.RowSpan)
}

func encodeAxis(start, span int) string {
	return fmt.Sprintf("%d / span %d", start, span)
}

func (c Codec) decodeAxis(axis, spec string) (start, span int, err error) {
	start, span = 1, c.DefaultSpan()

	var errs []error
	if n, ok := startOf(spec); ok {
		start = n
	} else {
		errs = append(errs, &ParseError{Axis: axis, Part: "start", Text: spec})
	}
	if n, ok := spanOf(spec); ok {
		span = n
	} else {
		errs = append(errs, &ParseError{Axis: axis, Part: "span", Text: spec})
	}
	return start, span, errors.Join(errs...)
}

// startOf reads the leading integer, ignoring any trailing text such as a
// unit or the "/ span" part.
func startOf(spec string) (int, bool) {
	m := leadingIntRe.FindStringSubmatch(spec)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	return n, err == nil
}

// spanOf reads the integer following the first "span" keyword.
func spanOf(spec string) (int, bool) {
	m := spanRe.FindStringSubmatch(spec)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
