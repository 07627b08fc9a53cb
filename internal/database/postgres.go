package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"handbook/internal/middleware"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
)

// PoolOptions bounds the postgres connection pool.
type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultPoolOptions mirrors the limits used in production.
var DefaultPoolOptions = PoolOptions{
	MaxOpenConns:    25,
	MaxIdleConns:    5,
	ConnMaxLifetime: 5 * time.Minute,
}

// OpenPostgres opens a pooled connection to the networked backend and
// probes it with SELECT NOW(). A failed probe closes the pool.
func OpenPostgres(ctx context.Context, dsn string, pool PoolOptions) (Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, &ConnectionError{Backend: DialectPostgres, Err: err}
	}
	configurePool(db, pool)

	if err := probe(ctx, db); err != nil {
		_ = db.Close()
		return nil, &ConnectionError{Backend: DialectPostgres, Err: err}
	}

	middleware.Logger.Info("Connected to PostgreSQL")
	return NewStore(db, DialectPostgres), nil
}

func configurePool(db *sql.DB, pool PoolOptions) {
	if pool.MaxOpenConns <= 0 {
		pool.MaxOpenConns = DefaultPoolOptions.MaxOpenConns
	}
	if pool.MaxIdleConns <= 0 {
		pool.MaxIdleConns = DefaultPoolOptions.MaxIdleConns
	}
	if pool.ConnMaxLifetime <= 0 {
		pool.ConnMaxLifetime = DefaultPoolOptions.ConnMaxLifetime
	}
	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)
}

func probe(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var now time.Time
	if err := db.QueryRowContext(ctx, "SELECT NOW()").Scan(&now); err != nil {
		return fmt.Errorf("connectivity probe: %w", err)
	}
	return nil
}
