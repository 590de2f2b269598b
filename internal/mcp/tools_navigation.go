package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerSiteTools() {
	// ── list_configurations ────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_configurations",
		mcp.WithDescription("List all site configurations"),
	), s.handleListConfigurations)

	// ── list_pages ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_pages",
		mcp.WithDescription("List all pages of a site configuration"),
		mcp.WithString("configurationId",
			mcp.Description("ID of the configuration"),
			mcp.Required(),
		),
	), s.handleListPages)

	// ── set_active_page ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_active_page",
		mcp.WithDescription("Set the active page for subsequent tool calls. Tools that accept pageId will default to this."),
		mcp.WithString("pageId",
			mcp.Description("ID of the page to make active"),
			mcp.Required(),
		),
	), s.handleSetActivePage)
}

func (s *Server) handleListConfigurations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	configs, err := s.site.ListConfigurations()
	if err != nil {
		return nil, err
	}
	return jsonResult(configs)
}

func (s *Server) handleListPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	configID := req.GetString("configurationId", "")
	if configID == "" {
		return nil, fmt.Errorf("configurationId is required")
	}
	pages, err := s.site.ListPages(configID)
	if err != nil {
		return nil, err
	}
	return jsonResult(pages)
}

func (s *Server) handleSetActivePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID := req.GetString("pageId", "")
	if pageID == "" {
		return nil, fmt.Errorf("pageId is required")
	}
	page, err := s.site.GetPage(pageID)
	if err != nil {
		return nil, fmt.Errorf("page %s: %w", pageID, err)
	}
	s.setActivePage(page.ID)
	return textResult(fmt.Sprintf("Active page set to %s (%s)", page.Title, page.ID)), nil
}
