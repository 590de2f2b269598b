package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"sitebuilder/internal/domain"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	db, err := New(filepath.Join(dir, "site.db"), dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrateIsRepeatable(t *testing.T) {
	db := newTestDB(t)
	if err := db.migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestWidgetStore_CRUD(t *testing.T) {
	db := newTestDB(t)
	s := NewWidgetStore(db)

	w := &domain.Widget{
		ID:         "w1",
		PageID:     "p1",
		Type:       domain.WidgetTypeExchangeRates,
		Title:      "Rates",
		GridColumn: "1 / span 4",
		GridRow:    "1 / span 4",
		Width:      4,
		Height:     4,
		Config:     map[string]any{"currencies": []any{"BTC", "ETH"}},
	}
	if err := s.CreateWidget(w); err != nil {
		t.Fatalf("CreateWidget: %v", err)
	}

	got, err := s.GetWidget("w1")
	if err != nil {
		t.Fatalf("GetWidget: %v", err)
	}
	opts := cmpopts.IgnoreFields(domain.Widget{}, "CreatedAt", "UpdatedAt")
	if diff := cmp.Diff(w, got, opts); diff != "" {
		t.Errorf("widget mismatch (-want +got):\n%s", diff)
	}

	got.GridColumn = "5 / span 4"
	if err := s.UpdateWidget(got); err != nil {
		t.Fatalf("UpdateWidget: %v", err)
	}
	list, err := s.ListWidgets("p1")
	if err != nil {
		t.Fatalf("ListWidgets: %v", err)
	}
	if len(list) != 1 || list[0].GridColumn != "5 / span 4" {
		t.Errorf("unexpected list %+v", list)
	}

	missing := &domain.Widget{ID: "nope", PageID: "p1"}
	if err := s.UpdateWidget(missing); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}

	if err := s.DeleteWidget("w1"); err != nil {
		t.Fatalf("DeleteWidget: %v", err)
	}
	if _, err := s.GetWidget("w1"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows after delete, got %v", err)
	}
}

func TestWidgetStore_ReplacePageWidgets(t *testing.T) {
	db := newTestDB(t)
	s := NewWidgetStore(db)

	for i := range 3 {
		if err := s.CreateWidget(&domain.Widget{ID: fmt.Sprintf("old-%d", i), PageID: "p1", Type: domain.WidgetTypeForm}); err != nil {
			t.Fatalf("CreateWidget: %v", err)
		}
	}
	if err := s.CreateWidget(&domain.Widget{ID: "other", PageID: "p2", Type: domain.WidgetTypeForm}); err != nil {
		t.Fatalf("CreateWidget: %v", err)
	}

	snapshot := []domain.Widget{{ID: "new", Type: domain.WidgetTypeMenu, GridColumn: "1 / span 12", GridRow: "1 / span 1", Width: 12, Height: 1}}
	if err := s.ReplacePageWidgets("p1", snapshot); err != nil {
		t.Fatalf("ReplacePageWidgets: %v", err)
	}

	list, _ := s.ListWidgets("p1")
	if len(list) != 1 || list[0].ID != "new" || list[0].PageID != "p1" {
		t.Errorf("unexpected page widgets %+v", list)
	}
	if other, _ := s.ListWidgets("p2"); len(other) != 1 {
		t.Errorf("replace touched another page")
	}
}

func TestUndoStore_BackForwardBranch(t *testing.T) {
	db := newTestDB(t)
	s := NewUndoStore(db)

	if cur, err := s.Current("p1"); err != nil || cur != nil {
		t.Fatalf("Current on empty history = %v, %v", cur, err)
	}
	if n, _ := s.Back("p1"); n != nil {
		t.Fatal("Back on empty history returned a node")
	}

	root, _ := s.Push("p1", "initial", "[]")
	a, _ := s.Push("p1", "a", `[{"id":"a"}]`)

	back, err := s.Back("p1")
	if err != nil || back.ID != root.ID {
		t.Fatalf("Back = %v, %v", back, err)
	}
	if n, _ := s.Back("p1"); n != nil {
		t.Error("Back past the root returned a node")
	}

	b, _ := s.Push("p1", "b", `[{"id":"b"}]`)
	if *b.ParentID != root.ID {
		t.Errorf("branch parent = %s, want root", *b.ParentID)
	}
	s.Back("p1")
	fwd, err := s.Forward("p1")
	if err != nil || fwd.ID != b.ID {
		t.Errorf("Forward should follow the newest branch, got %v (a=%s)", fwd, a.ID)
	}

	tree, err := s.LoadTree("p1")
	if err != nil {
		t.Fatalf("LoadTree: %v", err)
	}
	if len(tree.Nodes) != 3 || tree.RootID != root.ID || tree.CurrentID != b.ID {
		t.Errorf("unexpected tree %+v", tree)
	}

	if err := s.ClearPage("p1"); err != nil {
		t.Fatalf("ClearPage: %v", err)
	}
	if tree, _ := s.LoadTree("p1"); tree != nil {
		t.Errorf("history survived ClearPage")
	}
}

func TestUndoStore_Prune(t *testing.T) {
	db := newTestDB(t)
	s := NewUndoStore(db)

	var last *UndoNode
	for i := range maxUndoNodes + 5 {
		n, err := s.Push("p1", fmt.Sprintf("step %d", i), "[]")
		if err != nil {
			t.Fatalf("Push: %v", err)
		}
		last = n
	}
	tree, err := s.LoadTree("p1")
	if err != nil {
		t.Fatalf("LoadTree: %v", err)
	}
	if len(tree.Nodes) != maxUndoNodes {
		t.Errorf("kept %d nodes, want %d", len(tree.Nodes), maxUndoNodes)
	}
	if tree.CurrentID != last.ID {
		t.Errorf("current node pruned")
	}
	roots := 0
	for _, n := range tree.Nodes {
		if n.ParentID == nil {
			roots++
		}
	}
	if roots != 1 {
		t.Errorf("pruned tree has %d roots", roots)
	}
}

func TestApprovalStore(t *testing.T) {
	db := newTestDB(t)
	s := NewApprovalStore(db)

	if _, err := db.conn.Exec(
		`INSERT INTO mcp_approvals (id, tool, description, status, metadata) VALUES ('a1', 'remove_widget', 'Remove w1', 'pending', '{}')`,
	); err != nil {
		t.Fatalf("insert: %v", err)
	}

	pending, err := s.ListPending()
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 1 || pending[0].Tool != "remove_widget" {
		t.Fatalf("unexpected pending %+v", pending)
	}

	if err := s.Resolve("a1", true); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ok, _ := s.IsPending("a1"); ok {
		t.Error("approval still pending after Resolve")
	}
	if err := s.Resolve("a1", false); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows resolving twice, got %v", err)
	}
}

func TestPublishRunStore(t *testing.T) {
	db := newTestDB(t)
	s := NewPublishRunStore(db)

	ok, _ := s.Start("c1", "file")
	if err := s.Finish(ok, nil); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	failed, _ := s.Start("c1", "postgres")
	if err := s.Finish(failed, errors.New("connection refused")); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	runs, err := s.List("c1", 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs", len(runs))
	}
	byTarget := map[string]PublishRun{}
	for _, r := range runs {
		byTarget[r.Target] = r
	}
	if byTarget["file"].Status != "success" || byTarget["postgres"].Error != "connection refused" {
		t.Errorf("unexpected runs %+v", runs)
	}
	if byTarget["file"].FinishedAt == nil {
		t.Error("finished run has no finish time")
	}
}
