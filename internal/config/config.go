// Package config loads the sitebuilder TOML configuration file and applies
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"sitebuilder/internal/grid"
	"sitebuilder/internal/publish"

	"github.com/BurntSushi/toml"
)

// Config is the full application configuration.
type Config struct {
	DataDir string        `toml:"data_dir"`
	Server  ServerConfig  `toml:"server"`
	Grid    GridConfig    `toml:"grid"`
	Log     LogConfig     `toml:"log"`
	Publish PublishConfig `toml:"publish"`
	Watch   WatchConfig   `toml:"watch"`
}

type ServerConfig struct {
	Addr string `toml:"addr"` // listen address (default ":8080")
}

type GridConfig struct {
	DefaultSpan int `toml:"default_span"` // span for missing or unreadable positions (default 4)
}

type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error (default info)
}

// PublishConfig selects where published documents go and, optionally, when.
type PublishConfig struct {
	publish.Target
	Schedule       string   `toml:"schedule"`       // cron expression; empty disables scheduled publishing
	Configurations []string `toml:"configurations"` // configurations the schedule publishes; empty means all
}

type WatchConfig struct {
	ImportFile   string        `toml:"import_file"`   // document re-imported whenever it changes
	PollInterval time.Duration `toml:"poll_interval"` // page watcher interval (default 2s)
}

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{}
	c.setDefaults()
	return c
}

func (c *Config) setDefaults() {
	if c.DataDir == "" {
		home, _ := os.UserHomeDir()
		c.DataDir = filepath.Join(home, ".local", "share", "sitebuilder")
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Grid.DefaultSpan == 0 {
		c.Grid.DefaultSpan = grid.DefaultSpan
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Publish.Kind == "" {
		c.Publish.Kind = publish.KindFile
	}
	if c.Publish.Kind == publish.KindFile && c.Publish.Path == "" {
		c.Publish.Path = filepath.Join(c.DataDir, "published")
	}
	if c.Publish.Format == "" {
		c.Publish.Format = "yaml"
	}
	if c.Watch.PollInterval == 0 {
		c.Watch.PollInterval = 2 * time.Second
	}
}

// DBPath is the SQLite database inside the data directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "sitebuilder.db")
}

// DefaultPath returns ~/.config/sitebuilder/config.toml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "sitebuilder", "config.toml")
}

// Load reads the file at path. A missing file yields the defaults.
// Environment overrides are applied before defaults are filled in.
func Load(path string) (*Config, error) {
	c := &Config{}
	if path != "" {
		if _, err := toml.DecodeFile(path, c); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	c.setDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	c.DataDir = EnvOr("SITEBUILDER_DATA_DIR", c.DataDir)
	c.Server.Addr = EnvOr("SITEBUILDER_ADDR", c.Server.Addr)
	c.Log.Level = EnvOr("SITEBUILDER_LOG_LEVEL", c.Log.Level)
	c.Publish.Kind = publish.Kind(EnvOr("SITEBUILDER_PUBLISH_TARGET", string(c.Publish.Kind)))
	c.Publish.DSN = EnvOr("SITEBUILDER_PUBLISH_DSN", c.Publish.DSN)
	c.Publish.Schedule = EnvOr("SITEBUILDER_PUBLISH_SCHEDULE", c.Publish.Schedule)
	c.Watch.ImportFile = EnvOr("SITEBUILDER_IMPORT_FILE", c.Watch.ImportFile)
	if v := os.Getenv("SITEBUILDER_DEFAULT_SPAN"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SITEBUILDER_DEFAULT_SPAN: %w", err)
		}
		c.Grid.DefaultSpan = n
	}
	return nil
}

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	if c.Grid.DefaultSpan < 1 || c.Grid.DefaultSpan > grid.Columns {
		return fmt.Errorf("grid.default_span must be between 1 and %d, got %d", grid.Columns, c.Grid.DefaultSpan)
	}
	switch c.Publish.Kind {
	case publish.KindFile, publish.KindSQLite, publish.KindPostgres, publish.KindMySQL, publish.KindMongoDB:
	default:
		return fmt.Errorf("publish.target: unsupported target %q", c.Publish.Kind)
	}
	if c.Publish.Format != "yaml" && c.Publish.Format != "json" {
		return fmt.Errorf("publish.format must be yaml or json, got %q", c.Publish.Format)
	}
	return nil
}

// Write stores c at path as TOML, creating parent directories.
func Write(path string, c *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
