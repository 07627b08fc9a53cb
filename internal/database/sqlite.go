package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"handbook/internal/middleware"

	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" driver
)

// MemoryPath opens a private in-memory sqlite database.
const MemoryPath = ":memory:"

// OpenSQLite opens (creating if needed) the embedded database file at path.
// Parent directories are created. The pool is limited to one connection so
// writes are serialized and in-memory databases stay shared.
func OpenSQLite(ctx context.Context, path string) (Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, &ConnectionError{Backend: DialectSQLite, Err: fmt.Errorf("database path is empty")}
	}

	if path != MemoryPath {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, &ConnectionError{Backend: DialectSQLite, Err: fmt.Errorf("create data directory: %w", err)}
			}
		}
	}

	db, err := sql.Open("sqlite3", sqliteDSN(path))
	if err != nil {
		return nil, &ConnectionError{Backend: DialectSQLite, Err: err}
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &ConnectionError{Backend: DialectSQLite, Err: err}
	}

	middleware.Logger.Info("Connected to SQLite database", slog.String("path", path))
	return NewStore(db, DialectSQLite), nil
}

func sqliteDSN(path string) string {
	return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
}
