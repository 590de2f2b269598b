package api

import (
	"net/http"

	"sitebuilder/internal/domain"
	"sitebuilder/internal/grid"

	"github.com/labstack/echo/v4"
)

// page resolves :pageId, failing with 404 for unknown pages.
func (s *Server) page(c echo.Context) (string, error) {
	p, err := s.site.GetPage(c.Param("pageId"))
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

func widgetList(ws []domain.Widget) []domain.Widget {
	if ws == nil {
		return []domain.Widget{}
	}
	return ws
}

func (s *Server) handleListWidgets(c echo.Context) error {
	pageID, err := s.page(c)
	if err != nil {
		return err
	}
	widgets, err := s.canvas.ListWidgets(pageID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, widgetList(widgets))
}

type addWidgetRequest struct {
	Type  domain.WidgetType `json:"type"`
	Title string            `json:"title"`
}

func (s *Server) handleAddWidget(c echo.Context) error {
	pageID, err := s.page(c)
	if err != nil {
		return err
	}
	var req addWidgetRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	w, err := s.canvas.AddWidget(c.Request().Context(), pageID, req.Type, req.Title)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, w)
}

func (s *Server) handleCells(c echo.Context) error {
	pageID, err := s.page(c)
	if err != nil {
		return err
	}
	cells, err := s.canvas.Cells(pageID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cells)
}

func (s *Server) handleUpdateWidget(c echo.Context) error {
	var patch domain.WidgetPatch
	if err := bindBody(c, &patch); err != nil {
		return err
	}
	w, err := s.canvas.UpdateWidget(c.Request().Context(), c.Param("id"), patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, w)
}

func (s *Server) handleMoveWidget(c echo.Context) error {
	var cell grid.Cell
	if err := bindBody(c, &cell); err != nil {
		return err
	}
	w, err := s.canvas.MoveWidget(c.Request().Context(), c.Param("id"), cell.Col, cell.Row)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, w)
}

func (s *Server) handleResizeWidget(c echo.Context) error {
	var size grid.Size
	if err := bindBody(c, &size); err != nil {
		return err
	}
	w, err := s.canvas.ResizeWidget(c.Request().Context(), c.Param("id"), size.Width, size.Height)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, w)
}

func (s *Server) handleDuplicateWidget(c echo.Context) error {
	w, err := s.canvas.DuplicateWidget(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, w)
}

func (s *Server) handleRemoveWidget(c echo.Context) error {
	if err := s.canvas.RemoveWidget(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ── Drag and drop ──────────────────────────────────────────

func (s *Server) handleDragState(c echo.Context) error {
	pageID, err := s.page(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.canvas.DragState(pageID))
}

type beginDragRequest struct {
	WidgetID string `json:"widgetId"`
}

func (s *Server) handleBeginDrag(c echo.Context) error {
	pageID, err := s.page(c)
	if err != nil {
		return err
	}
	var req beginDragRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	if err := s.canvas.BeginDrag(c.Request().Context(), pageID, req.WidgetID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.canvas.DragState(pageID))
}

// handleDrop answers a rejected drop with 409 and the outcome, so the
// editor can show where the widget went back to.
func (s *Server) handleDrop(c echo.Context) error {
	pageID, err := s.page(c)
	if err != nil {
		return err
	}
	var cell grid.Cell
	if err := bindBody(c, &cell); err != nil {
		return err
	}
	out, err := s.canvas.Drop(c.Request().Context(), pageID, cell)
	if out.Resolution == grid.ResolutionRejected {
		return c.JSON(http.StatusConflict, out)
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleCancelDrag(c echo.Context) error {
	pageID, err := s.page(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.canvas.CancelDrag(c.Request().Context(), pageID))
}

// ── History ────────────────────────────────────────────────

func (s *Server) handleUndo(c echo.Context) error {
	pageID, err := s.page(c)
	if err != nil {
		return err
	}
	widgets, err := s.canvas.Undo(c.Request().Context(), pageID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, widgetList(widgets))
}

func (s *Server) handleRedo(c echo.Context) error {
	pageID, err := s.page(c)
	if err != nil {
		return err
	}
	widgets, err := s.canvas.Redo(c.Request().Context(), pageID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, widgetList(widgets))
}

func (s *Server) handleHistory(c echo.Context) error {
	pageID, err := s.page(c)
	if err != nil {
		return err
	}
	tree, err := s.canvas.History(pageID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tree)
}
