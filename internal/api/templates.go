package api

import (
	"net/http"
	"strconv"

	"sitebuilder/internal/domain"

	"github.com/labstack/echo/v4"
)

func (s *Server) handleListTemplates(c echo.Context) error {
	configs, err := s.site.ListConfigurations()
	if err != nil {
		return err
	}
	if configs == nil {
		configs = []domain.Configuration{}
	}
	return c.JSON(http.StatusOK, configs)
}

func (s *Server) handleGetTemplate(c echo.Context) error {
	doc, err := s.site.Document(c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, doc)
}

// handleCreateTemplate stores a new site document. A body without pages
// gets a homepage.
func (s *Server) handleCreateTemplate(c echo.Context) error {
	var doc domain.SiteDocument
	if err := bindBody(c, &doc); err != nil {
		return err
	}
	doc.Configuration.ID = ""
	cfg, err := s.site.ImportDocument(c.Request().Context(), &doc)
	if err != nil {
		return err
	}
	out, err := s.site.Document(cfg.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, out)
}

func (s *Server) handleReplaceTemplate(c echo.Context) error {
	id := c.Param("id")
	if _, err := s.site.GetConfiguration(id); err != nil {
		return err
	}
	var doc domain.SiteDocument
	if err := bindBody(c, &doc); err != nil {
		return err
	}
	doc.Configuration.ID = id
	if _, err := s.site.ImportDocument(c.Request().Context(), &doc); err != nil {
		return err
	}
	out, err := s.site.Document(id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleDeleteTemplate(c echo.Context) error {
	if err := s.site.DeleteConfiguration(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleListPages(c echo.Context) error {
	pages, err := s.site.ListPages(c.Param("id"))
	if err != nil {
		return err
	}
	if pages == nil {
		pages = []domain.Page{}
	}
	return c.JSON(http.StatusOK, pages)
}

type addPageRequest struct {
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

func (s *Server) handleAddPage(c echo.Context) error {
	var req addPageRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	p, err := s.site.AddPage(c.Request().Context(), c.Param("id"), req.Title, req.Slug)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (s *Server) handlePublish(c echo.Context) error {
	id := c.Param("id")
	if _, err := s.site.GetConfiguration(id); err != nil {
		return err
	}
	if err := s.publish.Publish(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusAccepted)
}

func (s *Server) handlePublishHistory(c echo.Context) error {
	limit := 20
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}
	runs, err := s.publish.History(c.Param("id"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, runs)
}
