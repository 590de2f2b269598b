package publish

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sitebuilder/internal/domain"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func sampleDoc() *domain.SiteDocument {
	return &domain.SiteDocument{
		Configuration: domain.Configuration{
			ID:          "cfg-1",
			Name:        "Exchange",
			Template:    domain.BuiltinTemplates()[0],
			ColorScheme: domain.DefaultColorScheme(),
		},
		Pages: []domain.PageState{{
			Page: domain.Page{ID: "home", ConfigurationID: "cfg-1", Title: "Home", Slug: "/", IsHomepage: true},
			Widgets: []domain.Widget{{
				ID: "w1", PageID: "home", Type: domain.WidgetTypeConverter, Title: "Currency Converter",
				GridColumn: "1 / span 4", GridRow: "1 / span 4", Width: 4, Height: 4,
				Config: map[string]any{"fromCurrency": "BTC", "toCurrency": "USD"},
			}},
		}},
	}
}

func TestFilePublisher_YAMLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p, err := New(context.Background(), Target{Kind: KindFile, Path: dir}, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	doc := sampleDoc()
	if err := p.Publish(context.Background(), doc); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	path := filepath.Join(dir, "cfg-1.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read published file: %v", err)
	}
	got, err := Decode(path, data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if diff := cmp.Diff(doc, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}
}

func TestFilePublisher_JSON(t *testing.T) {
	dir := t.TempDir()
	p, err := New(context.Background(), Target{Kind: KindFile, Path: dir, Format: "json"}, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.Publish(context.Background(), sampleDoc()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "cfg-1.json"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("published file is not JSON: %v", err)
	}
	if _, ok := raw["configuration"]; !ok {
		t.Errorf("missing configuration key in %s", data)
	}
}

func TestFilePublisher_RejectsUnknownFormat(t *testing.T) {
	if _, err := New(context.Background(), Target{Kind: KindFile, Path: t.TempDir(), Format: "xml"}, ""); err == nil {
		t.Error("expected error for xml format")
	}
}

func TestSQLPublisher_SQLiteReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "published.db")
	p, err := New(context.Background(), Target{Kind: KindSQLite, Path: path}, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	doc := sampleDoc()
	if err := p.Publish(context.Background(), doc); err != nil {
		t.Fatalf("first Publish: %v", err)
	}
	doc.Configuration.Name = "Exchange v2"
	if err := p.Publish(context.Background(), doc); err != nil {
		t.Fatalf("second Publish: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	var count int
	var name, body string
	if err := db.QueryRow(`SELECT COUNT(*) FROM published_sites`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("rows = %d, want 1", count)
	}
	if err := db.QueryRow(`SELECT name, document FROM published_sites WHERE id = ?`, "cfg-1").Scan(&name, &body); err != nil {
		t.Fatalf("select: %v", err)
	}
	if name != "Exchange v2" || !strings.Contains(body, `"gridColumn":"1 / span 4"`) {
		t.Errorf("unexpected row: %s %s", name, body)
	}
}

func TestNew_UnknownKind(t *testing.T) {
	if _, err := New(context.Background(), Target{Kind: "redis"}, ""); err == nil {
		t.Error("expected error for unknown target")
	}
}

func TestDSNBuilders(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{
			"postgres defaults",
			buildPostgresDSN(Target{Host: "db", Username: "site", Database: "pub"}, "pw"),
			"host=db port=5432 user=site password=pw dbname=pub sslmode=disable",
		},
		{
			"mysql tls",
			buildMySQLDSN(Target{Host: "db", Username: "site", Database: "pub", SSLMode: "require"}, "pw"),
			"site:pw@tcp(db:3306)/pub?parseTime=true&charset=utf8mb4&tls=true",
		},
		{
			"mongo placeholder",
			buildMongoURI(Target{DSN: "mongodb+srv://u:<password>@cluster.example"}, "pw"),
			"mongodb+srv://u:pw@cluster.example",
		},
		{
			"mongo host",
			buildMongoURI(Target{Host: "localhost"}, ""),
			"mongodb://localhost:27017",
		},
		{
			"explicit dsn wins",
			buildPostgresDSN(Target{DSN: "postgres://x", Host: "ignored"}, "pw"),
			"postgres://x",
		},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, tt.got, tt.want)
		}
	}
	if got := redact("user:secret@host", "secret"); got != "user:***@host" {
		t.Errorf("redact = %q", got)
	}
}
