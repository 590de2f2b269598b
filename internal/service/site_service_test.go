package service_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"sitebuilder/internal/domain"
	"sitebuilder/internal/grid"
	"sitebuilder/internal/service"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestSite_CreateConfigurationHasHomepage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.site.CreateConfiguration(ctx, "Exchange", "spot desk", "crypto")
	if err != nil {
		t.Fatalf("CreateConfiguration: %v", err)
	}
	if c.Template.ID != "crypto" || c.ColorScheme != domain.DefaultColorScheme() {
		t.Errorf("unexpected configuration %+v", c)
	}
	pages, err := f.site.ListPages(c.ID)
	if err != nil {
		t.Fatalf("ListPages: %v", err)
	}
	if len(pages) != 1 || !pages[0].IsHomepage || pages[0].Slug != "/" || pages[0].ID != c.CurrentPageID {
		t.Errorf("unexpected pages %+v", pages)
	}

	if _, err := f.site.CreateConfiguration(ctx, "", "", ""); !errors.Is(err, service.ErrInvalid) {
		t.Errorf("expected ErrInvalid for empty name, got %v", err)
	}
	if _, err := f.site.CreateConfiguration(ctx, "X", "", "brutalist"); !errors.Is(err, service.ErrUnknownTemplate) {
		t.Errorf("expected ErrUnknownTemplate, got %v", err)
	}
}

func TestSite_Pages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	configID, home := f.homepage(t)

	about, err := f.site.AddPage(ctx, configID, "About", "about")
	if err != nil {
		t.Fatalf("AddPage: %v", err)
	}
	if about.Slug != "/about" || about.Order != 1 {
		t.Errorf("unexpected page %+v", about)
	}
	if _, err := f.site.AddPage(ctx, configID, "About again", "/about"); !errors.Is(err, service.ErrDuplicateSlug) {
		t.Errorf("expected ErrDuplicateSlug, got %v", err)
	}

	got, err := f.site.PageBySlug(configID, "about")
	if err != nil || got.ID != about.ID {
		t.Errorf("PageBySlug = %v, %v", got, err)
	}
	if _, err := f.site.PageBySlug(configID, "/missing"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}

	if err := f.site.RemovePage(ctx, home); !errors.Is(err, service.ErrHomepageRemoval) {
		t.Errorf("expected ErrHomepageRemoval, got %v", err)
	}

	if _, err := f.site.SetCurrentPage(ctx, configID, about.ID); err != nil {
		t.Fatalf("SetCurrentPage: %v", err)
	}
	if _, err := f.canvas.AddWidget(ctx, about.ID, domain.WidgetTypeForm, ""); err != nil {
		t.Fatalf("AddWidget: %v", err)
	}
	if err := f.site.RemovePage(ctx, about.ID); err != nil {
		t.Fatalf("RemovePage: %v", err)
	}
	c, err := f.site.GetConfiguration(configID)
	if err != nil {
		t.Fatalf("GetConfiguration: %v", err)
	}
	if c.CurrentPageID != home {
		t.Errorf("current page = %s, want homepage %s", c.CurrentPageID, home)
	}
	widgets, err := f.canvas.ListWidgets(about.ID)
	if err != nil {
		t.Fatalf("ListWidgets: %v", err)
	}
	if len(widgets) != 0 {
		t.Errorf("removed page still has %d widgets", len(widgets))
	}
}

func TestSite_SetCurrentPageRejectsForeignPage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	configA, _ := f.homepage(t)
	_, pageB := f.homepage(t)

	if _, err := f.site.SetCurrentPage(ctx, configA, pageB); !errors.Is(err, service.ErrForeignPage) {
		t.Errorf("expected ErrForeignPage, got %v", err)
	}
}

func TestSite_UpdateConfiguration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	configID, _ := f.homepage(t)

	c, err := f.site.SetTemplate(ctx, configID, "classic")
	if err != nil {
		t.Fatalf("SetTemplate: %v", err)
	}
	if c.Template.ID != "classic" {
		t.Errorf("template = %q", c.Template.ID)
	}
	scheme := domain.DefaultColorScheme()
	scheme.Primary = "#000000"
	if c, err = f.site.SetColorScheme(ctx, configID, scheme); err != nil {
		t.Fatalf("SetColorScheme: %v", err)
	}
	stored, err := f.site.GetConfiguration(configID)
	if err != nil {
		t.Fatalf("GetConfiguration: %v", err)
	}
	if diff := cmp.Diff(c, stored, cmpopts.IgnoreFields(domain.Configuration{}, "CreatedAt", "UpdatedAt")); diff != "" {
		t.Errorf("stored configuration mismatch (-want +got):\n%s", diff)
	}
}

func TestSite_APIKeyStaysOutOfDocument(t *testing.T) {
	f := newFixture(t)
	configID, _ := f.homepage(t)

	if err := f.site.SetAPIKey(configID, "k-123"); err != nil {
		t.Fatalf("SetAPIKey: %v", err)
	}
	key, err := f.site.APIKey(configID)
	if err != nil || key != "k-123" {
		t.Fatalf("APIKey = %q, %v", key, err)
	}
	doc, err := f.site.Document(configID)
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if doc.Configuration.APIKey != "" {
		t.Error("document leaked the API key")
	}

	if err := f.site.SetAPIKey(configID, ""); err != nil {
		t.Fatalf("clear API key: %v", err)
	}
	if key, _ := f.site.APIKey(configID); key != "" {
		t.Errorf("API key not cleared: %q", key)
	}
}

func TestSite_ImportDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc := &domain.SiteDocument{
		Configuration: domain.Configuration{Name: "Imported", APIKey: "secret"},
		Pages: []domain.PageState{{
			Page: domain.Page{Title: "Home", Slug: "/"},
			Widgets: []domain.Widget{
				{Type: domain.WidgetTypeConverter, Title: "Convert", GridColumn: "1 / span 4", GridRow: "1 / span 4"},
				{Type: domain.WidgetTypeForm, Title: "Signup", GridColumn: "garbage", GridRow: "9"},
			},
		}},
	}
	c, err := f.site.ImportDocument(ctx, doc)
	if err != nil {
		t.Fatalf("ImportDocument: %v", err)
	}
	if c.CurrentPageID == "" {
		t.Error("imported configuration has no current page")
	}
	if key, _ := f.site.APIKey(c.ID); key != "secret" {
		t.Errorf("api key = %q", key)
	}

	out, err := f.site.Document(c.ID)
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if len(out.Pages) != 1 || !out.Pages[0].Page.IsHomepage {
		t.Fatalf("unexpected pages %+v", out.Pages)
	}
	var positions [][2]string
	for _, w := range out.Pages[0].Widgets {
		positions = append(positions, [2]string{w.GridColumn, w.GridRow})
	}
	want := [][2]string{{"1 / span 4", "1 / span 4"}, {"1 / span 4", "9 / span 4"}}
	sortPos := cmpopts.SortSlices(func(a, b [2]string) bool { return a[1] < b[1] })
	if diff := cmp.Diff(want, positions, sortPos); diff != "" {
		t.Errorf("widget positions mismatch (-want +got):\n%s", diff)
	}
}

func TestSite_ImportDocumentRejectsOverlap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc := &domain.SiteDocument{
		Configuration: domain.Configuration{Name: "Broken"},
		Pages: []domain.PageState{{
			Page: domain.Page{Title: "Home", Slug: "/", IsHomepage: true},
			Widgets: []domain.Widget{
				{ID: "a", Type: domain.WidgetTypeForm, GridColumn: "1 / span 4", GridRow: "1 / span 4"},
				{ID: "b", Type: domain.WidgetTypeForm, GridColumn: "3 / span 4", GridRow: "2 / span 4"},
			},
		}},
	}
	_, err := f.site.ImportDocument(ctx, doc)
	if !errors.Is(err, service.ErrInvalid) || !errors.Is(err, grid.ErrConflict) {
		t.Fatalf("expected ErrInvalid and ErrConflict, got %v", err)
	}
	configs, err := f.site.ListConfigurations()
	if err != nil {
		t.Fatalf("ListConfigurations: %v", err)
	}
	if len(configs) != 0 {
		t.Errorf("rejected import stored %d configurations", len(configs))
	}
}

func TestSite_DeleteConfiguration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	configID, page := f.homepage(t)
	if _, err := f.canvas.AddWidget(ctx, page, domain.WidgetTypeMenu, ""); err != nil {
		t.Fatalf("AddWidget: %v", err)
	}

	if err := f.site.DeleteConfiguration(ctx, configID); err != nil {
		t.Fatalf("DeleteConfiguration: %v", err)
	}
	if _, err := f.site.GetConfiguration(configID); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
	if widgets, _ := f.canvas.ListWidgets(page); len(widgets) != 0 {
		t.Errorf("widgets survived configuration delete")
	}
}
