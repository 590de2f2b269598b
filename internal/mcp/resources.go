package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerResources() {
	// ── site://configurations ──────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		"site://configurations",
		"All Site Configurations",
		mcp.WithMIMEType("application/json"),
	), s.handleConfigurationsResource)

	// ── site://page/{pageId}/widgets ───────────────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"site://page/{pageId}/widgets",
			"Widgets on a Page",
		),
		s.handlePageWidgetsResource,
	)
}

func (s *Server) handleConfigurationsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	configs, err := s.site.ListConfigurations()
	if err != nil {
		return nil, err
	}

	type configurationSummary struct {
		ID            string `json:"id"`
		Name          string `json:"name"`
		Template      string `json:"template"`
		CurrentPageID string `json:"currentPageId"`
	}

	summaries := make([]configurationSummary, 0, len(configs))
	for _, c := range configs {
		summaries = append(summaries, configurationSummary{
			ID:            c.ID,
			Name:          c.Name,
			Template:      c.Template.ID,
			CurrentPageID: c.CurrentPageID,
		})
	}

	data, _ := json.MarshalIndent(summaries, "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "site://configurations",
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handlePageWidgetsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	pageID := extractPageIDFromURI(uri)
	if pageID == "" {
		return nil, fmt.Errorf("could not extract pageId from URI: %s", uri)
	}

	widgets, err := s.canvas.ListWidgets(pageID)
	if err != nil {
		return nil, err
	}
	summaries := make([]widgetSummary, len(widgets))
	for i, w := range widgets {
		summaries[i] = s.summarizeWidget(w)
	}

	data, _ := json.MarshalIndent(summaries, "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// extractPageIDFromURI extracts the page ID from "site://page/{id}/widgets".
func extractPageIDFromURI(uri string) string {
	rest, ok := strings.CutPrefix(uri, "site://page/")
	if !ok {
		return ""
	}
	id, ok := strings.CutSuffix(rest, "/widgets")
	if !ok || id == "" || strings.Contains(id, "/") {
		return ""
	}
	return id
}
