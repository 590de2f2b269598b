package mcpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"sitebuilder/internal/domain"
	"sitebuilder/internal/grid"
	"sitebuilder/internal/service"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server is the MCP server for the site builder.
// It exposes tools, resources, and prompts so AI agents can lay out widgets
// on the pages of a site configuration.
type Server struct {
	mcp      *server.MCPServer
	emitter  EventEmitter
	approval *ApprovalQueue

	canvas *service.CanvasService
	site   *service.SiteService

	mu           sync.Mutex
	activePageID string
}

// Deps holds all dependencies passed from the app layer to the MCP server.
type Deps struct {
	Emitter    EventEmitter
	Canvas     *service.CanvasService
	Site       *service.SiteService
	ApprovalDB *sql.DB // When set, use SQLite-based approval (standalone mode)
}

// New creates and configures a new MCP server with all tools and resources.
func New(ctx context.Context, deps Deps) *Server {
	approval := NewApprovalQueue(ctx, deps.Emitter)
	if deps.ApprovalDB != nil {
		approval.SetDB(deps.ApprovalDB)
	}
	s := &Server{
		emitter:  deps.Emitter,
		approval: approval,
		canvas:   deps.Canvas,
		site:     deps.Site,
	}

	s.mcp = server.NewMCPServer(
		"sitebuilder-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerSiteTools()
	s.registerWidgetTools()
	s.registerLayoutTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	log.Info("starting MCP stdio server")
	return server.ServeStdio(s.mcp)
}

// Approve forwards a user approval to the approval queue.
func (s *Server) Approve(actionID string) {
	s.approval.Approve(actionID)
}

// Reject forwards a user rejection to the approval queue.
func (s *Server) Reject(actionID string) {
	s.approval.Reject(actionID)
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

// placementResult turns a rejected placement into an error result the agent
// can read and retry from. Other errors are returned as is.
func placementResult(err error) (*mcp.CallToolResult, error) {
	if errors.Is(err, grid.ErrConflict) || errors.Is(err, grid.ErrCellOccupied) {
		res := textResult("Position conflict: " + err.Error())
		res.IsError = true
		return res, nil
	}
	return nil, err
}

func (s *Server) setActivePage(id string) {
	s.mu.Lock()
	s.activePageID = id
	s.mu.Unlock()
}

// resolvePageID returns the pageId from tool args or falls back to the active page.
func (s *Server) resolvePageID(args map[string]any) (string, error) {
	if pid, ok := args["pageId"].(string); ok && pid != "" {
		return pid, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activePageID != "" {
		return s.activePageID, nil
	}
	return "", fmt.Errorf("no pageId provided and no active page set (use set_active_page first)")
}

// getWidgetForTool retrieves a widget and validates it exists.
func (s *Server) getWidgetForTool(args map[string]any) (*domain.Widget, error) {
	widgetID, ok := args["widgetId"].(string)
	if !ok || widgetID == "" {
		return nil, fmt.Errorf("widgetId is required")
	}
	return s.canvas.GetWidget(widgetID)
}
