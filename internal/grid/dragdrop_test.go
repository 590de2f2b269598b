package grid

import (
	"errors"
	"testing"
)

type memBoard struct {
	items   []Item
	commits int
}

func (b *memBoard) Items() ([]Item, error) {
	out := make([]Item, len(b.items))
	copy(out, b.items)
	return out, nil
}

func (b *memBoard) Commit(id string, r Rect) error {
	for i := range b.items {
		if b.items[i].ID == id {
			b.items[i].Rect = r
			b.commits++
			return nil
		}
	}
	return ErrUnknownWidget
}

func (b *memBoard) rect(id string) Rect {
	it, _ := findItem(b.items, id)
	return it.Rect
}

func newBoard() *memBoard {
	return &memBoard{items: []Item{
		widgetA,
		{ID: "B", Rect: Rect{ColStart: 1, ColSpan: 4, RowStart: 6, RowSpan: 4}},
	}}
}

func TestCoordinator_Cells(t *testing.T) {
	c := NewCoordinator(NewResolver(0), newBoard())
	cells, err := c.Cells()
	if err != nil {
		t.Fatalf("Cells: %v", err)
	}
	if len(cells) != Columns*Rows {
		t.Fatalf("got %d cells, want %d", len(cells), Columns*Rows)
	}
	if cells[0].Cell != (Cell{Col: 1, Row: 1}) || cells[1].Cell != (Cell{Col: 2, Row: 1}) {
		t.Errorf("cells are not row-major: %v, %v", cells[0].Cell, cells[1].Cell)
	}
	occupied := 0
	for _, cs := range cells {
		if !cs.Droppable {
			occupied++
		}
	}
	if occupied != 32 {
		t.Errorf("occupied cells = %d, want 32", occupied)
	}
}

func TestCoordinator_AcceptedDrop(t *testing.T) {
	board := newBoard()
	c := NewCoordinator(NewResolver(0), board)

	if err := c.BeginDrag("B"); err != nil {
		t.Fatalf("BeginDrag: %v", err)
	}
	if c.Phase() != PhaseDragging {
		t.Fatalf("phase = %v, want dragging", c.Phase())
	}
	out, err := c.Drop(Cell{Col: 5, Row: 1})
	if err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if out.Resolution != ResolutionAccepted {
		t.Errorf("resolution = %v, want accepted", out.Resolution)
	}
	want := Rect{ColStart: 5, ColSpan: 4, RowStart: 1, RowSpan: 4}
	if board.rect("B") != want {
		t.Errorf("B at %v, want %v", board.rect("B"), want)
	}
	if c.Phase() != PhaseIdle {
		t.Errorf("phase = %v after drop, want idle", c.Phase())
	}
	if len(Overlaps(board.items)) != 0 {
		t.Errorf("board has overlaps after accepted drop: %v", Overlaps(board.items))
	}
}

func TestCoordinator_RejectedDropOnOccupiedCell(t *testing.T) {
	board := newBoard()
	c := NewCoordinator(NewResolver(0), board)
	before := board.rect("B")

	if err := c.BeginDrag("B"); err != nil {
		t.Fatalf("BeginDrag: %v", err)
	}
	out, err := c.Drop(Cell{Col: 2, Row: 2})
	if !errors.Is(err, ErrCellOccupied) {
		t.Fatalf("expected ErrCellOccupied, got %v", err)
	}
	if out.Resolution != ResolutionRejected || c.Last() != ResolutionRejected {
		t.Errorf("resolution = %v, want rejected", out.Resolution)
	}
	if board.rect("B") != before || board.commits != 0 {
		t.Errorf("board changed on rejection: %v, %d commits", board.rect("B"), board.commits)
	}
	if c.Phase() != PhaseIdle {
		t.Errorf("phase = %v after rejection, want idle", c.Phase())
	}
}

func TestCoordinator_RejectedDropOnFreeCellThatCollides(t *testing.T) {
	board := newBoard()
	c := NewCoordinator(NewResolver(0), board)

	if err := c.BeginDrag("B"); err != nil {
		t.Fatalf("BeginDrag: %v", err)
	}
	out, err := c.Drop(Cell{Col: 3, Row: 5})
	if err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if out.Resolution != ResolutionAccepted {
		t.Fatalf("resolution = %v, want accepted", out.Resolution)
	}

	if err := c.BeginDrag("A"); err != nil {
		t.Fatalf("BeginDrag: %v", err)
	}
	// (1,8) itself is free, but a 4×4 footprint there reaches into B.
	_, err = c.Drop(Cell{Col: 1, Row: 8})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if board.rect("A") != widgetA.Rect {
		t.Errorf("A moved on conflict: %v", board.rect("A"))
	}
}

func TestCoordinator_DropFollowsCellState(t *testing.T) {
	board := newBoard()
	c := NewCoordinator(NewResolver(0), board)

	if err := c.BeginDrag("A"); err != nil {
		t.Fatalf("BeginDrag: %v", err)
	}
	cells, err := c.Cells()
	if err != nil {
		t.Fatalf("Cells: %v", err)
	}
	state := cells[1] // (2,1), under A
	if state.Droppable || state.OccupiedBy != "A" {
		t.Fatalf("cell %v = droppable %v occupiedBy %q", state.Cell, state.Droppable, state.OccupiedBy)
	}

	out, err := c.Drop(state.Cell)
	if !errors.Is(err, ErrCellOccupied) {
		t.Fatalf("drop on own footprint: expected ErrCellOccupied, got %v", err)
	}
	if out.Resolution != ResolutionRejected || board.commits != 0 {
		t.Errorf("resolution = %v, commits = %d", out.Resolution, board.commits)
	}

	// Every cell reported as droppable must accept or reject through
	// placement only, never through the occupancy check.
	for _, cs := range cells {
		if !cs.Droppable {
			continue
		}
		if err := c.BeginDrag("A"); err != nil {
			t.Fatalf("BeginDrag: %v", err)
		}
		if _, err := c.Drop(cs.Cell); errors.Is(err, ErrCellOccupied) {
			t.Fatalf("droppable cell %v refused as occupied", cs.Cell)
		}
		board.items[0] = widgetA
	}
}

type failingBoard struct {
	memBoard
	err error
}

func (b *failingBoard) Commit(string, Rect) error { return b.err }

func TestCoordinator_BoardFailureIsNotRejection(t *testing.T) {
	boom := errors.New("disk full")
	board := &failingBoard{memBoard: *newBoard(), err: boom}
	c := NewCoordinator(NewResolver(0), board)

	if err := c.BeginDrag("B"); err != nil {
		t.Fatalf("BeginDrag: %v", err)
	}
	out, err := c.Drop(Cell{Col: 9, Row: 9})
	if !errors.Is(err, boom) {
		t.Fatalf("expected board error, got %v", err)
	}
	if out.Resolution == ResolutionRejected || c.Last() == ResolutionRejected {
		t.Errorf("board failure reported as rejected")
	}
	if c.Phase() != PhaseIdle {
		t.Errorf("phase = %v, want idle", c.Phase())
	}
}

func TestCoordinator_Cancel(t *testing.T) {
	board := newBoard()
	c := NewCoordinator(NewResolver(0), board)

	if err := c.BeginDrag("A"); err != nil {
		t.Fatalf("BeginDrag: %v", err)
	}
	out := c.Cancel()
	if out.Resolution != ResolutionCancelled {
		t.Errorf("resolution = %v, want cancelled", out.Resolution)
	}
	if board.rect("A") != widgetA.Rect || board.commits != 0 {
		t.Errorf("cancel touched the board")
	}

	if err := c.BeginDrag("A"); err != nil {
		t.Fatalf("BeginDrag: %v", err)
	}
	out, err := c.Drop(Cell{Col: 13, Row: 1})
	if err != nil {
		t.Fatalf("Drop outside grid: %v", err)
	}
	if out.Resolution != ResolutionCancelled || board.commits != 0 {
		t.Errorf("drop outside grid should cancel, got %v", out.Resolution)
	}
}

func TestCoordinator_PhaseErrors(t *testing.T) {
	c := NewCoordinator(NewResolver(0), newBoard())

	if _, err := c.Drop(Cell{Col: 1, Row: 1}); !errors.Is(err, ErrNotDragging) {
		t.Errorf("Drop while idle: %v", err)
	}
	if err := c.BeginDrag("missing"); !errors.Is(err, ErrUnknownWidget) {
		t.Errorf("BeginDrag unknown: %v", err)
	}
	if err := c.BeginDrag("A"); err != nil {
		t.Fatalf("BeginDrag: %v", err)
	}
	if err := c.BeginDrag("B"); !errors.Is(err, ErrAlreadyDragging) {
		t.Errorf("second BeginDrag: %v", err)
	}
	if id, ok := c.Dragging(); !ok || id != "A" {
		t.Errorf("Dragging() = %q, %v", id, ok)
	}
}
