package mcpserver

import (
	"context"
	"fmt"

	"sitebuilder/internal/domain"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerWidgetTools() {
	// ── list_widgets ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_widgets",
		mcp.WithDescription("List all widgets on a page with their grid footprints, optionally filtered by type"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithString("type", mcp.Description("Filter by widget type (optional)")),
	), s.handleListWidgets)

	// ── add_widget ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_widget",
		mcp.WithDescription("Add a widget to a page. It is placed 4x4 at the first free slot of the 12x12 grid."),
		mcp.WithString("type",
			mcp.Description("Widget type: exchangeRates, converter, transaction, menu, form"),
			mcp.Required(),
		),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithString("title", mcp.Description("Widget title (optional, defaults per type)")),
	), s.handleAddWidget)

	// ── update_widget ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_widget",
		mcp.WithDescription("Update a widget's title and/or config. Pass config as a JSON object string."),
		mcp.WithString("widgetId", mcp.Description("Widget ID"), mcp.Required()),
		mcp.WithString("title", mcp.Description("New title (optional)")),
		mcp.WithString("config", mcp.Description(`New config as JSON, e.g. {"currencies":["BTC","ETH"]} (optional)`)),
	), s.handleUpdateWidget)

	// ── remove_widget (destructive) ────────────────────
	s.mcp.AddTool(mcp.NewTool("remove_widget",
		mcp.WithDescription("🛑 DESTRUCTIVE: Remove a widget from its page. Requires user approval."),
		mcp.WithString("widgetId", mcp.Description("Widget ID to remove"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleRemoveWidget)
}

func boolPtr(v bool) *bool { return &v }

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handleListWidgets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	pageID, err := s.resolvePageID(args)
	if err != nil {
		return nil, err
	}
	widgets, err := s.canvas.ListWidgets(pageID)
	if err != nil {
		return nil, err
	}

	filterType, _ := args["type"].(string)
	summaries := make([]widgetSummary, 0, len(widgets))
	for _, w := range widgets {
		if filterType != "" && string(w.Type) != filterType {
			continue
		}
		summaries = append(summaries, s.summarizeWidget(w))
	}
	return jsonResult(summaries)
}

func (s *Server) handleAddWidget(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	widgetType, _ := args["type"].(string)
	if widgetType == "" {
		return nil, fmt.Errorf("type is required")
	}
	pageID, err := s.resolvePageID(args)
	if err != nil {
		return nil, err
	}
	title, _ := args["title"].(string)

	w, err := s.canvas.AddWidget(ctx, pageID, domain.WidgetType(widgetType), title)
	if err != nil {
		return placementResult(err)
	}
	return jsonResult(s.summarizeWidget(*w))
}

func (s *Server) handleUpdateWidget(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	w, err := s.getWidgetForTool(args)
	if err != nil {
		return nil, err
	}

	var patch domain.WidgetPatch
	if title, ok := args["title"].(string); ok && title != "" {
		patch.Title = &title
	}
	if raw, ok := args["config"].(string); ok && raw != "" {
		if err := parseJSON(raw, &patch.Config); err != nil {
			return nil, fmt.Errorf("config is not a JSON object: %w", err)
		}
	}
	if patch.Title == nil && patch.Config == nil {
		return nil, fmt.Errorf("nothing to update: pass title and/or config")
	}

	updated, err := s.canvas.UpdateWidget(ctx, w.ID, patch)
	if err != nil {
		return nil, err
	}
	return jsonResult(updated)
}

func (s *Server) handleRemoveWidget(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	w, err := s.getWidgetForTool(args)
	if err != nil {
		return nil, err
	}

	meta, err := marshalJSON(map[string]any{"widgetIds": []string{w.ID}, "pageId": w.PageID})
	if err != nil {
		return nil, err
	}
	approved, err := s.approval.Request("remove_widget",
		fmt.Sprintf("Remove %s widget %q (%s)", w.Type, w.Title, w.ID), string(meta))
	if err != nil || !approved {
		return textResult("Action rejected by user"), nil
	}

	if err := s.canvas.RemoveWidget(ctx, w.ID); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Widget %s removed", w.ID)), nil
}
