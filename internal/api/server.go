// Package api serves the site builder over HTTP: the site document API the
// editor front end talks to, canvas operations and a server-sent event
// stream.
package api

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"sitebuilder/internal/grid"
	"sitebuilder/internal/service"
	"sitebuilder/internal/storage"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Deps are the services the API exposes. Publish and Approvals may be nil,
// in which case their routes are not registered.
type Deps struct {
	Site      *service.SiteService
	Canvas    *service.CanvasService
	Publish   *service.PublishService
	Approvals *storage.ApprovalStore
	Events    *service.Broadcaster
	Emitter   service.EventEmitter
}

type Server struct {
	echo      *echo.Echo
	site      *service.SiteService
	canvas    *service.CanvasService
	publish   *service.PublishService
	approvals *storage.ApprovalStore
	events    *service.Broadcaster
	emitter   service.EventEmitter
}

func New(deps Deps) *Server {
	s := &Server{
		echo:      echo.New(),
		site:      deps.Site,
		canvas:    deps.Canvas,
		publish:   deps.Publish,
		approvals: deps.Approvals,
		events:    deps.Events,
		emitter:   deps.Emitter,
	}
	if s.emitter == nil {
		s.emitter = service.LogEmitter{}
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Start listens on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			log.Warn("api shutdown", "err", err)
		}
	}()
	log.Info("api listening", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) setupMiddleware() {
	e := s.echo
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Debug("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.BodyLimit("2M"))
}

func (s *Server) setupRoutes() {
	e := s.echo

	e.GET("/api/templates/", s.handleListTemplates)
	e.POST("/api/templates/", s.handleCreateTemplate)
	e.GET("/api/templates/:id/", s.handleGetTemplate)
	e.PUT("/api/templates/:id/", s.handleReplaceTemplate)
	e.DELETE("/api/templates/:id/", s.handleDeleteTemplate)
	e.GET("/api/templates/:id/pages", s.handleListPages)
	e.POST("/api/templates/:id/pages", s.handleAddPage)

	e.GET("/api/pages/:pageId/widgets", s.handleListWidgets)
	e.POST("/api/pages/:pageId/widgets", s.handleAddWidget)
	e.GET("/api/pages/:pageId/cells", s.handleCells)
	e.GET("/api/pages/:pageId/drag", s.handleDragState)
	e.POST("/api/pages/:pageId/drag", s.handleBeginDrag)
	e.DELETE("/api/pages/:pageId/drag", s.handleCancelDrag)
	e.POST("/api/pages/:pageId/drop", s.handleDrop)
	e.POST("/api/pages/:pageId/undo", s.handleUndo)
	e.POST("/api/pages/:pageId/redo", s.handleRedo)
	e.GET("/api/pages/:pageId/history", s.handleHistory)

	e.PATCH("/api/widgets/:id", s.handleUpdateWidget)
	e.POST("/api/widgets/:id/move", s.handleMoveWidget)
	e.POST("/api/widgets/:id/resize", s.handleResizeWidget)
	e.POST("/api/widgets/:id/duplicate", s.handleDuplicateWidget)
	e.DELETE("/api/widgets/:id", s.handleRemoveWidget)

	if s.events != nil {
		e.GET("/api/events", s.handleEvents)
	}
	if s.publish != nil {
		e.POST("/api/templates/:id/publish", s.handlePublish)
		e.GET("/api/templates/:id/publish", s.handlePublishHistory)
	}
	if s.approvals != nil {
		e.GET("/api/approvals", s.handleListApprovals)
		e.POST("/api/approvals/:id/approve", s.handleResolveApproval(true))
		e.POST("/api/approvals/:id/reject", s.handleResolveApproval(false))
	}
}

// statusFor maps service errors to HTTP status codes. Validation is checked
// first: import errors can wrap both a validation and a conflict error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalid):
		return http.StatusUnprocessableEntity
	case errors.Is(err, sql.ErrNoRows), errors.Is(err, grid.ErrUnknownWidget):
		return http.StatusNotFound
	case errors.Is(err, grid.ErrConflict), errors.Is(err, grid.ErrCellOccupied),
		errors.Is(err, grid.ErrNotDragging), errors.Is(err, grid.ErrAlreadyDragging),
		errors.Is(err, service.ErrNothingToUndo), errors.Is(err, service.ErrNothingToRedo),
		errors.Is(err, service.ErrBusy):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code, msg := statusFor(err), err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		}
	}
	if code >= 500 {
		log.Error("server error", "method", c.Request().Method, "path", c.Path(), "err", err)
		msg = http.StatusText(code)
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, errorBody{Error: msg})
}

func bindBody(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return nil
}
