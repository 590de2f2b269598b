package publish

import (
	"fmt"
	"strings"
)

// buildPostgresDSN constructs a Postgres connection string from a Target.
func buildPostgresDSN(t Target, password string) string {
	if t.DSN != "" {
		return t.DSN
	}
	port := t.Port
	if port == 0 {
		port = 5432
	}
	sslMode := t.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		t.Host, port, t.Username, password, t.Database, sslMode,
	)
}

// buildMySQLDSN constructs a MySQL DSN from a Target.
func buildMySQLDSN(t Target, password string) string {
	if t.DSN != "" {
		return t.DSN
	}
	port := t.Port
	if port == 0 {
		port = 3306
	}
	// Format: user:password@tcp(host:port)/dbname?parseTime=true
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		t.Username, password, t.Host, port, t.Database,
	)
	if t.SSLMode == "require" {
		dsn += "&tls=true"
	}
	return dsn
}

// buildMongoURI returns a mongodb:// URI. Full URIs in DSN are used with any
// <password> placeholder filled in.
func buildMongoURI(t Target, password string) string {
	if t.DSN != "" {
		uri := t.DSN
		if password != "" {
			uri = strings.ReplaceAll(uri, "<password>", password)
			uri = strings.ReplaceAll(uri, "<db_password>", password)
		}
		return uri
	}
	port := t.Port
	if port == 0 {
		port = 27017
	}
	if t.Username != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s:%d", t.Username, password, t.Host, port)
	}
	return fmt.Sprintf("mongodb://%s:%d", t.Host, port)
}

func sqliteDSN(t Target) string {
	path := t.Path
	if path == "" {
		path = t.DSN
	}
	return path + "?_journal_mode=WAL&_busy_timeout=5000"
}

// redact masks password in s for logging.
func redact(s, password string) string {
	if password == "" {
		return s
	}
	return strings.ReplaceAll(s, password, "***")
}
