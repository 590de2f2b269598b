package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sitebuilder/internal/publish"

	"github.com/google/go-cmp/cmp"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("SITEBUILDER_DATA_DIR", "/tmp/sb")
	c, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := &Config{
		DataDir: "/tmp/sb",
		Server:  ServerConfig{Addr: ":8080"},
		Grid:    GridConfig{DefaultSpan: 4},
		Log:     LogConfig{Level: "info"},
		Publish: PublishConfig{Target: publish.Target{Kind: publish.KindFile, Path: "/tmp/sb/published", Format: "yaml"}},
		Watch:   WatchConfig{PollInterval: 2 * time.Second},
	}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	if c.DBPath() != "/tmp/sb/sitebuilder.db" {
		t.Errorf("DBPath = %s", c.DBPath())
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
data_dir = "/srv/sitebuilder"

[server]
addr = "127.0.0.1:9000"

[grid]
default_span = 3

[publish]
target = "postgres"
host = "db.internal"
port = 5432
username = "builder"
database = "sites"
schedule = "@hourly"
configurations = ["c1", "c2"]

[watch]
import_file = "site.yaml"
poll_interval = "5s"
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SITEBUILDER_ADDR", ":7000")
	t.Setenv("SITEBUILDER_LOG_LEVEL", "debug")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Server.Addr != ":7000" || c.Log.Level != "debug" {
		t.Errorf("env overrides not applied: %+v", c)
	}
	if c.Grid.DefaultSpan != 3 || c.Watch.PollInterval != 5*time.Second || c.Watch.ImportFile != "site.yaml" {
		t.Errorf("file values not applied: %+v", c)
	}
	wantTarget := publish.Target{Kind: publish.KindPostgres, Host: "db.internal", Port: 5432, Username: "builder", Database: "sites", Format: "yaml"}
	if diff := cmp.Diff(wantTarget, c.Publish.Target); diff != "" {
		t.Errorf("publish target mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"c1", "c2"}, c.Publish.Configurations); diff != "" {
		t.Errorf("configurations mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
		want string
	}{
		{name: "span too large", file: "[grid]\ndefault_span = 13\n", want: "default_span"},
		{name: "bad target", file: "[publish]\ntarget = \"ftp\"\n", want: "unsupported target"},
		{name: "bad format", file: "[publish]\nformat = \"xml\"\n", want: "publish.format"},
		{name: "bad toml", file: "data_dir = \n", want: "read config"},
		{name: "bad env span", env: map[string]string{"SITEBUILDER_DEFAULT_SPAN": "wide"}, want: "SITEBUILDER_DEFAULT_SPAN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.file), 0644); err != nil {
				t.Fatal(err)
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestWrite_RoundTrip(t *testing.T) {
	t.Setenv("SITEBUILDER_DATA_DIR", "/tmp/sb")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	want := Default()
	want.Publish.Schedule = "@daily"

	if err := Write(path, want); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := Write(path, want); err == nil {
		t.Error("expected Write to refuse overwriting an existing file")
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEnvOr(t *testing.T) {
	t.Setenv("SITEBUILDER_TEST_KEY", "set")
	if got := EnvOr("SITEBUILDER_TEST_KEY", "fallback"); got != "set" {
		t.Errorf("EnvOr = %q", got)
	}
	if got := EnvOr("SITEBUILDER_TEST_UNSET", "fallback"); got != "fallback" {
		t.Errorf("EnvOr = %q", got)
	}
}
