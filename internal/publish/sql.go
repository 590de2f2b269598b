package publish

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"sitebuilder/internal/domain"

	"github.com/charmbracelet/log"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// sqlPublisher stores documents as JSON in a published_sites table. The DDL
// is kept portable across SQLite, Postgres and MySQL.
type sqlPublisher struct {
	driverName string
	db         *sql.DB
}

func newSQLPublisher(driverName, dsn string) (*sqlPublisher, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}
	db.SetMaxOpenConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)
	return &sqlPublisher{driverName: driverName, db: db}, nil
}

func (p *sqlPublisher) Name() string { return p.driverName }

func (p *sqlPublisher) Close() error { return p.db.Close() }

// bind returns the n-th placeholder for the driver.
func (p *sqlPublisher) bind(n int) string {
	if p.driverName == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (p *sqlPublisher) ensureTable(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS published_sites (
		id VARCHAR(64) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		document TEXT NOT NULL,
		published_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create published_sites: %w", err)
	}
	return nil
}

func (p *sqlPublisher) Publish(ctx context.Context, doc *domain.SiteDocument) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := p.ensureTable(ctx); err != nil {
		return err
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	id := doc.Configuration.ID
	if _, err := tx.ExecContext(ctx, `DELETE FROM published_sites WHERE id = `+p.bind(1), id); err != nil {
		return fmt.Errorf("delete previous: %w", err)
	}
	insert := fmt.Sprintf(`INSERT INTO published_sites (id, name, document, published_at) VALUES (%s, %s, %s, %s)`,
		p.bind(1), p.bind(2), p.bind(3), p.bind(4))
	if _, err := tx.ExecContext(ctx, insert, id, doc.Configuration.Name, string(body), time.Now().UTC()); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	log.Debug("published document", "driver", p.driverName, "configuration", id, "bytes", len(body))
	return nil
}
