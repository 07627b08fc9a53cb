// Package database provides the storage adapter shared by every repository:
// one Store contract over an embedded sqlite file or a networked postgres server.
package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Dialect identifies the SQL backend behind a Store.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Result describes the outcome of a mutating statement.
// InsertedID is only ever valid on the sqlite backend; postgres callers must
// generate identifiers client-side.
type Result struct {
	InsertedID sql.NullInt64
	Affected   int64
}

// Executor runs statements written with `?` placeholders against one backend.
type Executor interface {
	// Run executes a mutating statement.
	Run(ctx context.Context, query string, args ...any) (Result, error)
	// Get returns the first matching row. A missing row is reported as
	// found == false with a nil error.
	Get(ctx context.Context, query string, args ...any) (row Row, found bool, err error)
	// All returns every matching row in order. The slice is never nil.
	All(ctx context.Context, query string, args ...any) ([]Row, error)
}

// Store is an explicitly owned database handle.
type Store interface {
	Executor
	Dialect() Dialect
	// WithTx runs fn inside a transaction. The transaction commits when fn
	// returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx Executor) error) error
	Ping(ctx context.Context) error
	DB() *sql.DB
	Close() error
}

// ConnectionError reports a failure to open or probe the backend.
type ConnectionError struct {
	Backend Dialect
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s connection failed: %v", e.Backend, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// QueryError wraps a backend error raised while executing a statement.
// Error() keeps the backend's own message.
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return e.Err.Error()
}

func (e *QueryError) Unwrap() error {
	return e.Err
}
