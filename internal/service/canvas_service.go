package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"sync"

	"sitebuilder/internal/domain"
	"sitebuilder/internal/grid"
	"sitebuilder/internal/storage"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// CanvasService owns widget layout on pages. Every geometry change goes
// through the grid resolver and is checked against the live widget list
// before it is written, so a page never holds overlapping widgets.
type CanvasService struct {
	widgets  domain.WidgetStore
	pages    domain.PageStore
	history  *storage.UndoStore
	registry *WidgetRegistry
	emitter  EventEmitter

	codec    grid.Codec
	resolver *grid.Resolver

	mu    sync.Mutex
	drags map[string]*grid.Coordinator
}

// NewCanvasService creates a CanvasService. history and registry may be nil.
func NewCanvasService(
	widgets domain.WidgetStore,
	pages domain.PageStore,
	history *storage.UndoStore,
	registry *WidgetRegistry,
	emitter EventEmitter,
	defaultSpan int,
) *CanvasService {
	return &CanvasService{
		widgets:  widgets,
		pages:    pages,
		history:  history,
		registry: registry,
		emitter:  emitter,
		codec:    grid.NewCodec(defaultSpan),
		resolver: grid.NewResolver(defaultSpan),
		drags:    make(map[string]*grid.Coordinator),
	}
}

// Footprint decodes a widget's stored position. Unreadable parts fall back
// to the defaults and are only logged.
func (s *CanvasService) Footprint(w domain.Widget) grid.Rect {
	r, err := s.codec.Decode(w.GridColumn, w.GridRow)
	if err != nil {
		log.Debug("widget position substituted", "widget", w.ID, "err", err)
	}
	return r
}

func (s *CanvasService) applyRect(w *domain.Widget, r grid.Rect) {
	w.GridColumn, w.GridRow = s.codec.Encode(r)
	w.Width, w.Height = r.ColSpan, r.RowSpan
}

// ListWidgets returns the widgets of a page in creation order.
func (s *CanvasService) ListWidgets(pageID string) ([]domain.Widget, error) {
	widgets, err := s.widgets.ListWidgets(pageID)
	if err != nil {
		return nil, fmt.Errorf("list widgets: %w", err)
	}
	if widgets == nil {
		widgets = []domain.Widget{}
	}
	return widgets, nil
}

func (s *CanvasService) GetWidget(id string) (*domain.Widget, error) {
	return s.widgets.GetWidget(id)
}

// Footprints returns the decoded footprint of every widget on a page.
func (s *CanvasService) Footprints(pageID string) ([]grid.Item, error) {
	_, items, err := s.load(pageID)
	return items, err
}

func (s *CanvasService) load(pageID string) ([]domain.Widget, []grid.Item, error) {
	widgets, err := s.ListWidgets(pageID)
	if err != nil {
		return nil, nil, err
	}
	items := make([]grid.Item, len(widgets))
	for i, w := range widgets {
		items[i] = grid.Item{ID: w.ID, Rect: s.Footprint(w)}
	}
	return widgets, items, nil
}

// AddWidget places a new widget of type t on a page at the first free
// default-sized slot. An empty title uses the type's default title.
func (s *CanvasService) AddWidget(ctx context.Context, pageID string, t domain.WidgetType, title string) (*domain.Widget, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidWidgetType, t)
	}
	if _, err := s.pages.GetPage(pageID); err != nil {
		return nil, err
	}
	if title == "" {
		title = t.DefaultTitle()
	}
	cfg, err := s.registry.Normalize(t, t.DefaultConfig())
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	before, items, err := s.load(pageID)
	if err != nil {
		return nil, err
	}
	rect, err := s.resolver.FirstFit(grid.Size{}, items)
	if err != nil {
		s.reject(ctx, pageID, "", err)
		return nil, err
	}

	w := &domain.Widget{
		ID:     "widget-" + uuid.New().String(),
		PageID: pageID,
		Type:   t,
		Title:  title,
		Config: cfg,
	}
	s.applyRect(w, rect)
	if err := s.widgets.CreateWidget(w); err != nil {
		return nil, fmt.Errorf("create widget: %w", err)
	}
	s.changed(ctx, pageID, "add "+w.Title, before)
	return w, nil
}

// UpdateWidget is the single mutation entry point for an existing widget.
// Geometry changes are resolved against the other widgets on the page; on a
// conflict nothing is written and grid.ErrConflict is returned.
func (s *CanvasService) UpdateWidget(ctx context.Context, id string, patch domain.WidgetPatch) (*domain.Widget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.widgets.GetWidget(id)
	if err != nil {
		return nil, err
	}
	before, items, err := s.load(w.PageID)
	if err != nil {
		return nil, err
	}

	if patch.MovesGeometry() {
		if (patch.Width != nil && *patch.Width <= 0) || (patch.Height != nil && *patch.Height <= 0) {
			return nil, fmt.Errorf("%w: widget size must be at least 1x1", ErrInvalid)
		}
		current := s.Footprint(*w)
		size := current.Size()
		if patch.Width != nil {
			size.Width = *patch.Width
		}
		if patch.Height != nil {
			size.Height = *patch.Height
		}

		var rect grid.Rect
		if patch.Col == nil && patch.Row == nil {
			rect, err = s.resolver.Resize(id, current, size, items)
		} else {
			at := current.TopLeft()
			if patch.Col != nil {
				at.Col = *patch.Col
			}
			if patch.Row != nil {
				at.Row = *patch.Row
			}
			rect, err = s.resolver.Place(id, size, at, items)
		}
		if err != nil {
			s.reject(ctx, w.PageID, id, err)
			return nil, err
		}
		s.applyRect(w, rect)
	}
	if patch.Title != nil {
		w.Title = *patch.Title
	}
	if patch.Config != nil {
		cfg, err := s.registry.Normalize(w.Type, patch.Config)
		if err != nil {
			return nil, err
		}
		w.Config = cfg
	}

	if err := s.widgets.UpdateWidget(w); err != nil {
		return nil, fmt.Errorf("update widget: %w", err)
	}
	s.changed(ctx, w.PageID, "update "+w.Title, before)
	return w, nil
}

// MoveWidget moves a widget's top-left cell, keeping its size.
func (s *CanvasService) MoveWidget(ctx context.Context, id string, col, row int) (*domain.Widget, error) {
	return s.UpdateWidget(ctx, id, domain.WidgetPatch{Col: &col, Row: &row})
}

// ResizeWidget changes a widget's spans, keeping its top-left cell.
func (s *CanvasService) ResizeWidget(ctx context.Context, id string, width, height int) (*domain.Widget, error) {
	return s.UpdateWidget(ctx, id, domain.WidgetPatch{Width: &width, Height: &height})
}

// DuplicateWidget copies a widget next to the original, or into the first
// free slot when that position is taken.
func (s *CanvasService) DuplicateWidget(ctx context.Context, id string) (*domain.Widget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, err := s.widgets.GetWidget(id)
	if err != nil {
		return nil, err
	}
	before, items, err := s.load(src.PageID)
	if err != nil {
		return nil, err
	}
	rect, err := s.resolver.Duplicate(s.Footprint(*src), items)
	if err != nil {
		s.reject(ctx, src.PageID, id, err)
		return nil, err
	}

	dup := &domain.Widget{
		ID:     fmt.Sprintf("%s-copy-%s", src.ID, uuid.New().String()[:8]),
		PageID: src.PageID,
		Type:   src.Type,
		Title:  src.Title + " (Copy)",
		Config: maps.Clone(src.Config),
	}
	s.applyRect(dup, rect)
	if err := s.widgets.CreateWidget(dup); err != nil {
		return nil, fmt.Errorf("create widget: %w", err)
	}
	s.changed(ctx, src.PageID, "duplicate "+src.Title, before)
	return dup, nil
}

// RemoveWidget deletes a widget.
func (s *CanvasService) RemoveWidget(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.widgets.GetWidget(id)
	if err != nil {
		return err
	}
	before, _, err := s.load(w.PageID)
	if err != nil {
		return err
	}
	if err := s.widgets.DeleteWidget(id); err != nil {
		return fmt.Errorf("delete widget: %w", err)
	}
	s.changed(ctx, w.PageID, "remove "+w.Title, before)
	return nil
}

// ── Drag and drop ──────────────────────────────────────────

// pageBoard exposes one page to a grid.Coordinator. Callers hold s.mu.
type pageBoard struct {
	svc    *CanvasService
	pageID string
}

func (b pageBoard) Items() ([]grid.Item, error) {
	_, items, err := b.svc.load(b.pageID)
	return items, err
}

func (b pageBoard) Commit(id string, r grid.Rect) error {
	w, err := b.svc.widgets.GetWidget(id)
	if err != nil {
		return fmt.Errorf("%w: %s", grid.ErrUnknownWidget, id)
	}
	b.svc.applyRect(w, r)
	return b.svc.widgets.UpdateWidget(w)
}

func (s *CanvasService) coordinator(pageID string) *grid.Coordinator {
	c, ok := s.drags[pageID]
	if !ok {
		c = grid.NewCoordinator(s.resolver, pageBoard{svc: s, pageID: pageID})
		s.drags[pageID] = c
	}
	return c
}

// Cells returns the 144 cell descriptors of a page in row-major order.
func (s *CanvasService) Cells(pageID string) ([]grid.CellState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coordinator(pageID).Cells()
}

// DragState reports the widget being dragged on a page, if any.
type DragState struct {
	PageID   string `json:"pageId"`
	Phase    string `json:"phase"`
	WidgetID string `json:"widgetId,omitempty"`
	Last     string `json:"last"`
}

func (s *CanvasService) DragState(pageID string) DragState {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.coordinator(pageID)
	id, _ := c.Dragging()
	return DragState{PageID: pageID, Phase: c.Phase().String(), WidgetID: id, Last: c.Last().String()}
}

// BeginDrag starts a drag gesture for a widget on a page.
func (s *CanvasService) BeginDrag(ctx context.Context, pageID, widgetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.coordinator(pageID).BeginDrag(widgetID); err != nil {
		return err
	}
	s.emitter.Emit(ctx, EventDragChanged, map[string]string{"pageId": pageID, "widgetId": widgetID, "phase": "dragging"})
	return nil
}

// Drop ends the drag gesture on a page at the given cell.
func (s *CanvasService) Drop(ctx context.Context, pageID string, target grid.Cell) (grid.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before, _, err := s.load(pageID)
	if err != nil {
		return grid.Outcome{}, err
	}
	out, err := s.coordinator(pageID).Drop(target)
	switch out.Resolution {
	case grid.ResolutionAccepted:
		s.changed(ctx, pageID, "move "+out.WidgetID, before)
	case grid.ResolutionRejected:
		s.reject(ctx, pageID, out.WidgetID, err)
	}
	if out.Resolution != grid.ResolutionNone {
		s.emitter.Emit(ctx, EventDragChanged, map[string]string{"pageId": pageID, "widgetId": out.WidgetID, "phase": "idle", "resolution": out.Status})
	}
	return out, err
}

// CancelDrag abandons the drag gesture on a page.
func (s *CanvasService) CancelDrag(ctx context.Context, pageID string) grid.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.coordinator(pageID).Cancel()
	if out.Resolution == grid.ResolutionCancelled {
		s.emitter.Emit(ctx, EventDragChanged, map[string]string{"pageId": pageID, "widgetId": out.WidgetID, "phase": "idle", "resolution": out.Status})
	}
	return out
}

// ── Undo / redo ────────────────────────────────────────────

// Undo restores the previous layout of a page.
func (s *CanvasService) Undo(ctx context.Context, pageID string) ([]domain.Widget, error) {
	return s.restore(ctx, pageID, func() (*storage.UndoNode, error) { return s.history.Back(pageID) }, ErrNothingToUndo)
}

// Redo re-applies the most recently undone layout of a page.
func (s *CanvasService) Redo(ctx context.Context, pageID string) ([]domain.Widget, error) {
	return s.restore(ctx, pageID, func() (*storage.UndoNode, error) { return s.history.Forward(pageID) }, ErrNothingToRedo)
}

// History returns the layout history of a page. A page without history
// yields an empty tree.
func (s *CanvasService) History(pageID string) (*storage.UndoTree, error) {
	empty := &storage.UndoTree{Nodes: []storage.UndoNode{}}
	if s.history == nil {
		return empty, nil
	}
	tree, err := s.history.LoadTree(pageID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if tree == nil {
		return empty, nil
	}
	return tree, nil
}

func (s *CanvasService) restore(ctx context.Context, pageID string, step func() (*storage.UndoNode, error), none error) ([]domain.Widget, error) {
	if s.history == nil {
		return nil, none
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.drags[pageID]; ok {
		c.Cancel()
	}
	node, err := step()
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, none
	}
	var widgets []domain.Widget
	if err := json.Unmarshal([]byte(node.SnapshotJSON), &widgets); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if err := s.widgets.ReplacePageWidgets(pageID, widgets); err != nil {
		return nil, fmt.Errorf("restore snapshot: %w", err)
	}
	s.emitter.Emit(ctx, EventWidgetsChanged, map[string]string{"pageId": pageID, "reason": node.Label})
	return s.ListWidgets(pageID)
}

// record pushes the layout after a mutation onto the page history. The first
// recorded mutation also stores the layout it started from. History failures
// are logged since the mutation itself has been committed.
func (s *CanvasService) record(pageID, label string, before []domain.Widget) {
	if s.history == nil {
		return
	}
	cur, err := s.history.Current(pageID)
	if err != nil {
		log.Warn("load layout history", "page", pageID, "err", err)
		return
	}
	if cur == nil {
		if err := s.pushSnapshot(pageID, "initial", before); err != nil {
			log.Warn("record layout history", "page", pageID, "err", err)
			return
		}
	}
	after, err := s.ListWidgets(pageID)
	if err != nil {
		log.Warn("record layout history", "page", pageID, "err", err)
		return
	}
	if err := s.pushSnapshot(pageID, label, after); err != nil {
		log.Warn("record layout history", "page", pageID, "err", err)
	}
}

func (s *CanvasService) pushSnapshot(pageID, label string, widgets []domain.Widget) error {
	if widgets == nil {
		widgets = []domain.Widget{}
	}
	data, err := json.Marshal(widgets)
	if err != nil {
		return err
	}
	_, err = s.history.Push(pageID, label, string(data))
	return err
}

// ClearHistory drops the layout history and any drag gesture of a page.
func (s *CanvasService) ClearHistory(pageID string) error {
	s.mu.Lock()
	delete(s.drags, pageID)
	s.mu.Unlock()
	if s.history == nil {
		return nil
	}
	return s.history.ClearPage(pageID)
}

func (s *CanvasService) changed(ctx context.Context, pageID, label string, before []domain.Widget) {
	s.record(pageID, label, before)
	s.emitter.Emit(ctx, EventWidgetsChanged, map[string]string{"pageId": pageID, "reason": label})
}

func (s *CanvasService) reject(ctx context.Context, pageID, widgetID string, err error) {
	if !errors.Is(err, grid.ErrConflict) && !errors.Is(err, grid.ErrCellOccupied) {
		return
	}
	log.Info("placement rejected", "page", pageID, "widget", widgetID, "err", err)
	s.emitter.Emit(ctx, EventPlacementRejected, map[string]string{
		"pageId":   pageID,
		"widgetId": widgetID,
		"title":    "Position conflict",
		"message":  err.Error(),
	})
}
