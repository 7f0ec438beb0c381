package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pressly/goose/v3"
	// SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/incognish/incognish/internal/db/queries"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	driver      = "sqlite"
	defaultPath = "db/tracker"
)

// Database wraps sqlc queries with the shared connection pool.
type Database struct {
	*queries.Queries
	db      *sql.DB
	tracker *queryLatencyTracker
}

// New opens (creating when missing) the tracker database at path and applies
// pending migrations. ".sqlite" is appended to path.
func New(path string, openParams ...string) (*Database, error) {
	if strings.TrimSpace(path) == "" {
		path = defaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	conn, err := sql.Open(driver, sqliteDSN(path, openParams...))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := migrate(context.Background(), conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	tracker := newQueryLatencyTracker()
	return &Database{
		db:      conn,
		Queries: queries.New(newInstrumentedDBTX(conn, tracker)),
		tracker: tracker,
	}, nil
}

func migrate(ctx context.Context, conn *sql.DB) error {
	migrations, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, conn, migrations)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func sqliteDSN(path string, openParams ...string) string {
	values := url.Values{}
	values.Add("_pragma", "foreign_keys(ON)")
	values.Add("_pragma", "journal_mode(WAL)")
	values.Add("_pragma", "synchronous(NORMAL)")
	values.Add("_pragma", "busy_timeout(5000)")
	values.Add("_pragma", "temp_store(MEMORY)")
	values.Add("_pragma", "wal_autocheckpoint(1000)")

	for _, param := range openParams {
		part := strings.TrimSpace(strings.TrimPrefix(param, "&"))
		key, value, ok := strings.Cut(part, "=")
		if !ok || strings.TrimSpace(key) == "" {
			continue
		}
		values.Add(strings.TrimSpace(key), strings.TrimSpace(value))
	}

	return fmt.Sprintf("file:%s.sqlite?%s", path, values.Encode())
}

// Close closes the underlying connection pool.
func (c *Database) Close() error {
	return c.db.Close()
}
