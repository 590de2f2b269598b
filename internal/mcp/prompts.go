package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("exchange_homepage",
		mcp.WithPromptDescription("Lay out an exchange homepage with rates, a converter and a navigation menu"),
		mcp.WithArgument("pageId",
			mcp.ArgumentDescription("Page to lay out"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("currencies",
			mcp.ArgumentDescription("Comma-separated currency codes to feature (e.g. BTC,ETH,XMR)"),
		),
	), s.handleExchangeHomepagePrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("tidy_layout",
		mcp.WithPromptDescription("Rearrange the widgets of a page into a clean grid without overlaps"),
		mcp.WithArgument("pageId",
			mcp.ArgumentDescription("Page to tidy"),
			mcp.RequiredArgument(),
		),
	), s.handleTidyLayoutPrompt)
}

func (s *Server) handleExchangeHomepagePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	pageID := req.Params.Arguments["pageId"]
	currencies := req.Params.Arguments["currencies"]
	if currencies == "" {
		currencies = "BTC,ETH,XMR,LTC"
	}
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Lay out an exchange homepage on page %s", pageID),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Build an exchange homepage on page %s. The page is a 12x12 grid and widgets may never overlap. Follow these steps:

1. Call set_active_page with pageId %s, then grid_occupancy to see what is already there
2. Add a menu widget (add_widget type "menu") and resize it to span the full width: width 12, height 1, then move it to col 1, row 1
3. Add an exchangeRates widget and set its config with update_widget to {"currencies": [%s]}
4. Add a converter widget next to the rates
5. Add a transaction widget below them
6. Finish with grid_occupancy and check that every widget is where you expect

If a tool answers "Position conflict", read the occupancy map and pick a free spot instead of retrying the same cell.`, pageID, pageID, quoteList(currencies)),
				},
			},
		},
	}, nil
}

func (s *Server) handleTidyLayoutPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	pageID := req.Params.Arguments["pageId"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Tidy the layout of page %s", pageID),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Tidy the widget layout of page %s. Follow these steps:

1. Call list_widgets with pageId %s and grid_occupancy to see the current footprints
2. Decide on a target arrangement that keeps related widgets next to each other and leaves no gaps at the top
3. Move widgets one at a time with move_widget, starting with those whose target cells are already free
4. If a move is rejected with "Position conflict", move the blocking widget out of the way first
5. If the result is worse than before, use undo_layout to step back

Widgets keep their size when moved; use resize_widget only when a widget clearly needs more room.`, pageID, pageID),
				},
			},
		},
	}, nil
}

func quoteList(csv string) string {
	ids := splitIDs(csv)
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%q", id)
	}
	return out
}
