package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	mcpserver "sitebuilder/internal/mcp"
	"sitebuilder/internal/storage"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
)

const keepAliveInterval = 15 * time.Second

// handleEvents streams emitter events as server-sent events until the
// client disconnects. A pageId query parameter limits the stream to events
// about that page.
func (s *Server) handleEvents(c echo.Context) error {
	ch, unsubscribe := s.events.Subscribe()
	defer unsubscribe()

	pageID := c.QueryParam("pageId")
	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return nil
			}
			w.Flush()
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			if pageID != "" && !aboutPage(ev.Data, pageID) {
				continue
			}
			data, err := json.Marshal(ev.Data)
			if err != nil {
				log.Warn("encode event", "event", ev.Name, "err", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, data); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}

func aboutPage(data any, pageID string) bool {
	switch d := data.(type) {
	case map[string]string:
		return d["pageId"] == pageID
	case map[string]any:
		return d["pageId"] == pageID
	default:
		return false
	}
}

func (s *Server) handleListApprovals(c echo.Context) error {
	pending, err := s.approvals.ListPending()
	if err != nil {
		return err
	}
	if pending == nil {
		pending = []storage.Approval{}
	}
	return c.JSON(http.StatusOK, pending)
}

func (s *Server) handleResolveApproval(approved bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		if err := s.approvals.Resolve(id, approved); err != nil {
			return err
		}
		s.emitter.Emit(c.Request().Context(), mcpserver.EventApprovalDismissed, map[string]string{"id": id})
		return c.NoContent(http.StatusNoContent)
	}
}
