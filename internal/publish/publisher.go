// Package publish pushes rendered site documents to external targets: a
// directory of YAML/JSON files, a SQL database or a MongoDB collection.
package publish

import (
	"context"
	"fmt"

	"sitebuilder/internal/domain"
)

// Kind names a publish target.
type Kind string

const (
	KindFile     Kind = "file"
	KindSQLite   Kind = "sqlite"
	KindPostgres Kind = "postgres"
	KindMySQL    Kind = "mysql"
	KindMongoDB  Kind = "mongodb"
)

// Target describes where documents are published. DSN, when set, is used as
// is; otherwise the connection string is built from the host fields. The
// password is supplied separately from the secret store.
type Target struct {
	Kind     Kind   `toml:"target"`
	DSN      string `toml:"dsn"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`
	Database string `toml:"database"`
	SSLMode  string `toml:"ssl_mode"`
	Path     string `toml:"path"`   // output directory (file) or database file (sqlite)
	Format   string `toml:"format"` // "yaml" or "json" (file)
}

// Publisher writes a site document to one target. Publishing the same
// configuration again replaces the previous copy.
type Publisher interface {
	Publish(ctx context.Context, doc *domain.SiteDocument) error
	Name() string
	Close() error
}

// New creates a Publisher for the given target.
func New(ctx context.Context, t Target, password string) (Publisher, error) {
	switch t.Kind {
	case KindFile, "":
		return newFilePublisher(t)
	case KindSQLite:
		return newSQLPublisher("sqlite", sqliteDSN(t))
	case KindPostgres:
		return newSQLPublisher("postgres", buildPostgresDSN(t, password))
	case KindMySQL:
		return newSQLPublisher("mysql", buildMySQLDSN(t, password))
	case KindMongoDB:
		return newMongoPublisher(ctx, t, password)
	default:
		return nil, fmt.Errorf("unsupported publish target: %s", t.Kind)
	}
}
