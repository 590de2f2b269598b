package grid

import (
	"errors"
	"fmt"
)

var (
	ErrNotDragging     = errors.New("no drag in progress")
	ErrAlreadyDragging = errors.New("drag already in progress")
	ErrCellOccupied    = errors.New("cell is occupied")
)

// Phase is the state of a drag gesture.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDragging
)

func (p Phase) String() string {
	if p == PhaseDragging {
		return "dragging"
	}
	return "idle"
}

// Resolution is how the last gesture ended.
type Resolution int

const (
	ResolutionNone Resolution = iota
	ResolutionAccepted
	ResolutionRejected
	ResolutionCancelled
)

func (r Resolution) String() string {
	switch r {
	case ResolutionAccepted:
		return "accepted"
	case ResolutionRejected:
		return "rejected"
	case ResolutionCancelled:
		return "cancelled"
	default:
		return "none"
	}
}

// Board is the live widget collection a coordinator works against. Items is
// read fresh on every query; Commit is the only write path.
type Board interface {
	Items() ([]Item, error)
	Commit(id string, r Rect) error
}

// CellState describes one rendered grid cell.
type CellState struct {
	Cell
	Droppable  bool   `json:"droppable"`
	OccupiedBy string `json:"occupiedBy,omitempty"`
}

// Outcome is the result of ending a drag gesture.
type Outcome struct {
	WidgetID   string     `json:"widgetId"`
	Resolution Resolution `json:"-"`
	Status     string     `json:"status"`
	Rect       Rect       `json:"rect"`
}

// Coordinator maps drag gestures over the 12 × 12 cell array to placement
// requests. A gesture goes Idle → Dragging → {accepted, rejected, cancelled}
// → Idle, and only an accepted drop writes to the board.
//
// A Coordinator is not safe for concurrent use.
type Coordinator struct {
	resolver *Resolver
	board    Board

	phase  Phase
	dragID string
	origin Rect
	last   Resolution
}

func NewCoordinator(resolver *Resolver, board Board) *Coordinator {
	return &Coordinator{resolver: resolver, board: board}
}

func (c *Coordinator) Phase() Phase { return c.phase }

// Last returns how the most recent gesture ended.
func (c *Coordinator) Last() Resolution { return c.last }

// Dragging returns the id of the widget being dragged, if any.
func (c *Coordinator) Dragging() (string, bool) {
	return c.dragID, c.phase == PhaseDragging
}

// Cells returns every grid cell in row-major order. A cell is droppable when
// no widget covers it.
func (c *Coordinator) Cells() ([]CellState, error) {
	items, err := c.board.Items()
	if err != nil {
		return nil, err
	}
	cells := make([]CellState, 0, c.resolver.cols*c.resolver.rows)
	for row := 1; row <= c.resolver.rows; row++ {
		for col := 1; col <= c.resolver.cols; col++ {
			id, occupied := OccupiedBy(col, row, items)
			cells = append(cells, CellState{
				Cell:       Cell{Col: col, Row: row},
				Droppable:  !occupied,
				OccupiedBy: id,
			})
		}
	}
	return cells, nil
}

// BeginDrag starts a gesture for widget id.
func (c *Coordinator) BeginDrag(id string) error {
	if c.phase == PhaseDragging {
		return fmt.Errorf("%w: %s", ErrAlreadyDragging, c.dragID)
	}
	items, err := c.board.Items()
	if err != nil {
		return err
	}
	it, ok := findItem(items, id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownWidget, id)
	}
	c.phase = PhaseDragging
	c.dragID = id
	c.origin = it.Rect
	return nil
}

// Drop ends the gesture on target. A target outside the grid cancels the
// gesture. A target that is not droppable, including a cell the dragged
// widget itself covers, rejects it, as does a resolved footprint that
// collides. Board failures end the gesture as cancelled and return the
// error. Only an accepted drop writes to the board.
func (c *Coordinator) Drop(target Cell) (Outcome, error) {
	if c.phase != PhaseDragging {
		return Outcome{}, ErrNotDragging
	}
	id, origin := c.dragID, c.origin
	defer c.reset()

	if target.Col < 1 || target.Col > c.resolver.cols || target.Row < 1 || target.Row > c.resolver.rows {
		return c.finish(id, ResolutionCancelled, origin), nil
	}

	items, err := c.board.Items()
	if err != nil {
		return c.finish(id, ResolutionCancelled, origin), err
	}
	if owner, ok := OccupiedBy(target.Col, target.Row, items); ok {
		return c.finish(id, ResolutionRejected, origin), fmt.Errorf("%w: %d,%d by %s", ErrCellOccupied, target.Col, target.Row, owner)
	}

	size := origin.Size()
	if it, ok := findItem(items, id); ok {
		size = it.Rect.Size()
	}
	rect, err := c.resolver.Place(id, size, target, items)
	if err != nil {
		return c.finish(id, ResolutionRejected, origin), err
	}
	if err := c.board.Commit(id, rect); err != nil {
		return c.finish(id, ResolutionCancelled, origin), err
	}
	return c.finish(id, ResolutionAccepted, rect), nil
}

// Cancel abandons the gesture without touching the board.
func (c *Coordinator) Cancel() Outcome {
	if c.phase != PhaseDragging {
		return Outcome{Resolution: ResolutionNone, Status: ResolutionNone.String()}
	}
	id, origin := c.dragID, c.origin
	c.reset()
	return c.finish(id, ResolutionCancelled, origin)
}

func (c *Coordinator) finish(id string, res Resolution, r Rect) Outcome {
	c.last = res
	return Outcome{WidgetID: id, Resolution: res, Status: res.String(), Rect: r}
}

func (c *Coordinator) reset() {
	c.phase = PhaseIdle
	c.dragID = ""
	c.origin = Rect{}
}

func findItem(items []Item, id string) (Item, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}
