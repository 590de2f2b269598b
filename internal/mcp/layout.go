package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"sitebuilder/internal/domain"
	"sitebuilder/internal/grid"
	"sitebuilder/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerLayoutTools() {
	// ── move_widget ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("move_widget",
		mcp.WithDescription("Move a widget so its top-left cell is (col, row). Columns and rows are 1-12; the widget keeps its size and is clamped to fit. Fails with a position conflict when it would overlap another widget."),
		mcp.WithString("widgetId", mcp.Description("Widget ID"), mcp.Required()),
		mcp.WithNumber("col", mcp.Description("Target column (1-12)"), mcp.Required()),
		mcp.WithNumber("row", mcp.Description("Target row (1-12)"), mcp.Required()),
	), s.handleMoveWidget)

	// ── resize_widget ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("resize_widget",
		mcp.WithDescription("Resize a widget, keeping its top-left cell. Spans are 1-12 columns/rows."),
		mcp.WithString("widgetId", mcp.Description("Widget ID"), mcp.Required()),
		mcp.WithNumber("width", mcp.Description("Column span"), mcp.Required()),
		mcp.WithNumber("height", mcp.Description("Row span"), mcp.Required()),
	), s.handleResizeWidget)

	// ── duplicate_widget ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("duplicate_widget",
		mcp.WithDescription("Copy a widget next to the original, or into the first free slot when that is taken"),
		mcp.WithString("widgetId", mcp.Description("Widget ID"), mcp.Required()),
	), s.handleDuplicateWidget)

	// ── grid_occupancy ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("grid_occupancy",
		mcp.WithDescription("Show which cells of the 12x12 grid are occupied on a page, as a text map with a legend"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleGridOccupancy)

	// ── undo_layout / redo_layout ──────────────────────
	s.mcp.AddTool(mcp.NewTool("undo_layout",
		mcp.WithDescription("Undo the last layout change on a page"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleUndoLayout)

	s.mcp.AddTool(mcp.NewTool("redo_layout",
		mcp.WithDescription("Redo the last undone layout change on a page"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleRedoLayout)
}

func (s *Server) handleMoveWidget(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	w, err := s.getWidgetForTool(args)
	if err != nil {
		return nil, err
	}
	col, okCol := getInt(args, "col")
	row, okRow := getInt(args, "row")
	if !okCol || !okRow {
		return nil, fmt.Errorf("col and row are required")
	}
	moved, err := s.canvas.MoveWidget(ctx, w.ID, col, row)
	if err != nil {
		return placementResult(err)
	}
	return jsonResult(s.summarizeWidget(*moved))
}

func (s *Server) handleResizeWidget(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	w, err := s.getWidgetForTool(args)
	if err != nil {
		return nil, err
	}
	width, okW := getInt(args, "width")
	height, okH := getInt(args, "height")
	if !okW || !okH {
		return nil, fmt.Errorf("width and height are required")
	}
	resized, err := s.canvas.ResizeWidget(ctx, w.ID, width, height)
	if err != nil {
		return placementResult(err)
	}
	return jsonResult(s.summarizeWidget(*resized))
}

func (s *Server) handleDuplicateWidget(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	w, err := s.getWidgetForTool(req.GetArguments())
	if err != nil {
		return nil, err
	}
	dup, err := s.canvas.DuplicateWidget(ctx, w.ID)
	if err != nil {
		return placementResult(err)
	}
	return jsonResult(s.summarizeWidget(*dup))
}

func (s *Server) handleGridOccupancy(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, err := s.resolvePageID(req.GetArguments())
	if err != nil {
		return nil, err
	}
	items, err := s.canvas.Footprints(pageID)
	if err != nil {
		return nil, err
	}
	return textResult(grid.Render(items, grid.Columns, grid.Rows)), nil
}

func (s *Server) handleUndoLayout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.stepLayout(ctx, req, s.canvas.Undo, service.ErrNothingToUndo)
}

func (s *Server) handleRedoLayout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.stepLayout(ctx, req, s.canvas.Redo, service.ErrNothingToRedo)
}

func (s *Server) stepLayout(
	ctx context.Context,
	req mcp.CallToolRequest,
	step func(context.Context, string) ([]domain.Widget, error),
	none error,
) (*mcp.CallToolResult, error) {
	pageID, err := s.resolvePageID(req.GetArguments())
	if err != nil {
		return nil, err
	}
	widgets, err := step(ctx, pageID)
	if errors.Is(err, none) {
		return textResult(none.Error()), nil
	}
	if err != nil {
		return nil, err
	}
	summaries := make([]widgetSummary, len(widgets))
	for i, w := range widgets {
		summaries[i] = s.summarizeWidget(w)
	}
	return jsonResult(summaries)
}

// ── Helper types ───────────────────────────────────────────

type widgetSummary struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Title      string `json:"title"`
	GridColumn string `json:"gridColumn"`
	GridRow    string `json:"gridRow"`
	Col        int    `json:"col"`
	Row        int    `json:"row"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
}

func (s *Server) summarizeWidget(w domain.Widget) widgetSummary {
	r := s.canvas.Footprint(w)
	return widgetSummary{
		ID:         w.ID,
		Type:       string(w.Type),
		Title:      w.Title,
		GridColumn: w.GridColumn,
		GridRow:    w.GridRow,
		Col:        r.ColStart,
		Row:        r.RowStart,
		Width:      r.ColSpan,
		Height:     r.RowSpan,
	}
}

// getInt reads a numeric argument. JSON numbers arrive as float64.
func getInt(args map[string]any, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}
