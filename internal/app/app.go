// Package app wires storage, services and transports together from a
// loaded configuration.
package app

import (
	"context"
	"fmt"
	"time"

	"sitebuilder/internal/api"
	"sitebuilder/internal/config"
	mcpserver "sitebuilder/internal/mcp"
	"sitebuilder/internal/plugins"
	"sitebuilder/internal/secret"
	"sitebuilder/internal/service"
	"sitebuilder/internal/storage"

	"github.com/charmbracelet/log"
)

// App holds the opened database and the services built on it.
type App struct {
	cfg    *config.Config
	db     *storage.DB
	events *service.Broadcaster

	Canvas  *service.CanvasService
	Site    *service.SiteService
	Publish *service.PublishService
}

// New opens the database under cfg.DataDir and builds the services. Every
// service event goes to the broadcaster and the debug log.
func New(cfg *config.Config) (*App, error) {
	db, err := storage.New(cfg.DBPath(), cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	events := service.NewBroadcaster()
	emitter := service.MultiEmitter{events, service.LogEmitter{}}

	registry := service.NewWidgetRegistry()
	plugins.Register(registry)

	widgets := storage.NewWidgetStore(db)
	pages := storage.NewPageStore(db)
	secrets := secret.New(cfg.DataDir)

	canvas := service.NewCanvasService(widgets, pages, storage.NewUndoStore(db), registry, emitter, cfg.Grid.DefaultSpan)
	site := service.NewSiteService(storage.NewConfigurationStore(db), pages, widgets, canvas, secrets, emitter)
	publish := service.NewPublishService(site, storage.NewPublishRunStore(db), secrets, emitter, cfg.Publish.Target)

	return &App{
		cfg:     cfg,
		db:      db,
		events:  events,
		Canvas:  canvas,
		Site:    site,
		Publish: publish,
	}, nil
}

func (a *App) Close() error {
	a.Publish.Stop()
	return a.db.Close()
}

// Serve runs the HTTP API together with the page watcher, the publish
// schedule and the import watcher until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	watcher := newPageWatcher(a.db, a.events, a.cfg.Watch.PollInterval)
	watcher.Start(ctx)
	defer watcher.Stop()

	if a.cfg.Publish.Schedule != "" {
		if err := a.Publish.StartSchedule(ctx, a.cfg.Publish.Schedule, a.cfg.Publish.Configurations); err != nil {
			return err
		}
		log.Info("publish schedule started", "spec", a.cfg.Publish.Schedule, "target", a.cfg.Publish.Kind)
	}
	if a.cfg.Watch.ImportFile != "" {
		if err := a.Publish.WatchImport(ctx, a.cfg.Watch.ImportFile); err != nil {
			return err
		}
		log.Info("watching import file", "path", a.cfg.Watch.ImportFile)
	}

	srv := api.New(api.Deps{
		Site:      a.Site,
		Canvas:    a.Canvas,
		Publish:   a.Publish,
		Approvals: storage.NewApprovalStore(a.db),
		Events:    a.events,
		Emitter:   a.events,
	})
	err := srv.Start(ctx, a.cfg.Server.Addr)

	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	a.Publish.WaitRunning(drainCtx)
	return err
}

// ServeMCP runs a standalone MCP server on stdin/stdout. Destructive tools
// wait for approvals in the database, which a running `serve` resolves.
func (a *App) ServeMCP(ctx context.Context) error {
	srv := mcpserver.New(ctx, mcpserver.Deps{
		Emitter:    service.LogEmitter{},
		Canvas:     a.Canvas,
		Site:       a.Site,
		ApprovalDB: a.db.Conn(),
	})
	return srv.ServeStdio()
}
