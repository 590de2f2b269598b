package app

import (
	"context"
	"testing"

	"sitebuilder/internal/config"
	"sitebuilder/internal/domain"
	mcpserver "sitebuilder/internal/mcp"
	"sitebuilder/internal/service"
	"sitebuilder/internal/storage"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	t.Setenv("SITEBUILDER_DATA_DIR", t.TempDir())
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestPageWatcher_DetectsExternalChanges(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	c, err := a.Site.CreateConfiguration(ctx, "Exchange", "", "")
	if err != nil {
		t.Fatalf("CreateConfiguration: %v", err)
	}

	emitter := &service.MockEmitter{}
	w := newPageWatcher(a.db, emitter, 0)
	w.check(ctx)
	if len(emitter.Events) != 0 {
		t.Fatalf("first poll emitted %+v", emitter.Events)
	}

	// Writes through a second store stand in for another process.
	other := storage.NewWidgetStore(a.db)
	if err := other.CreateWidget(&domain.Widget{ID: "w1", PageID: c.CurrentPageID, Type: domain.WidgetTypeForm}); err != nil {
		t.Fatalf("CreateWidget: %v", err)
	}
	w.check(ctx)
	got := emitter.Named(service.EventWidgetsChanged)
	if len(got) != 1 || got[0].Data.(map[string]string)["pageId"] != c.CurrentPageID {
		t.Fatalf("widgets-changed events %+v", got)
	}

	w.check(ctx)
	if n := len(emitter.Named(service.EventWidgetsChanged)); n != 1 {
		t.Errorf("unchanged poll emitted again, %d events", n)
	}

	if err := other.DeleteWidget("w1"); err != nil {
		t.Fatalf("DeleteWidget: %v", err)
	}
	w.check(ctx)
	if n := len(emitter.Named(service.EventWidgetsChanged)); n != 2 {
		t.Errorf("removing the last widget emitted %d events, want 2", n)
	}

	if _, err := a.Site.AddPage(ctx, c.ID, "About", "about"); err != nil {
		t.Fatalf("AddPage: %v", err)
	}
	w.check(ctx)
	pages := emitter.Named(service.EventPagesChanged)
	if len(pages) != 1 || pages[0].Data.(map[string]string)["configurationId"] != c.ID {
		t.Errorf("pages-changed events %+v", pages)
	}
}

func TestPageWatcher_AnnouncesApprovalsOnce(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	emitter := &service.MockEmitter{}
	w := newPageWatcher(a.db, emitter, 0)

	if _, err := a.db.Conn().Exec(
		`INSERT INTO mcp_approvals (id, tool, description, status, metadata) VALUES ('a1', 'remove_widget', 'Remove w1', 'pending', '{}')`,
	); err != nil {
		t.Fatalf("insert: %v", err)
	}
	w.check(ctx)
	w.check(ctx)
	got := emitter.Named(mcpserver.EventApprovalRequired)
	if len(got) != 1 {
		t.Fatalf("got %d approval events, want 1", len(got))
	}
	if a1, ok := got[0].Data.(storage.Approval); !ok || a1.Tool != "remove_widget" {
		t.Errorf("approval payload %+v", got[0].Data)
	}

	if err := storage.NewApprovalStore(a.db).Resolve("a1", true); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	w.check(ctx)
	if len(w.emittedApprovals) != 0 {
		t.Errorf("resolved approval still tracked: %v", w.emittedApprovals)
	}
}
