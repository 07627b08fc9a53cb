package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"handbook/internal/middleware"
	"handbook/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type executor struct {
	q       queryer
	dialect Dialect
}

func (e *executor) Run(ctx context.Context, query string, args ...any) (Result, error) {
	ctx, done := e.observe(ctx, "run", query)
	res, err := e.q.ExecContext(ctx, Rebind(e.dialect, query), bindArgs(e.dialect, args)...)
	if err != nil {
		done(err)
		return Result{}, &QueryError{Query: query, Err: err}
	}
	done(nil)

	var out Result
	if n, err := res.RowsAffected(); err == nil {
		out.Affected = n
	}
	if e.dialect == DialectSQLite {
		if id, err := res.LastInsertId(); err == nil {
			out.InsertedID = sql.NullInt64{Int64: id, Valid: true}
		}
	}
	return out, nil
}

func (e *executor) Get(ctx context.Context, query string, args ...any) (Row, bool, error) {
	rows, err := e.query(ctx, "get", query, args, 1)
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows[0], true, nil
}

func (e *executor) All(ctx context.Context, query string, args ...any) ([]Row, error) {
	return e.query(ctx, "all", query, args, 0)
}

func (e *executor) query(ctx context.Context, op, query string, args []any, limit int) ([]Row, error) {
	ctx, done := e.observe(ctx, op, query)
	rows, err := e.q.QueryContext(ctx, Rebind(e.dialect, query), bindArgs(e.dialect, args)...)
	if err != nil {
		done(err)
		return nil, &QueryError{Query: query, Err: err}
	}
	defer func() { _ = rows.Close() }()

	out, err := scanRows(rows, limit)
	done(err)
	if err != nil {
		return nil, &QueryError{Query: query, Err: err}
	}
	return out, nil
}

// observe opens a span and returns a completion func that records latency and errors.
func (e *executor) observe(ctx context.Context, op, query string) (context.Context, func(error)) {
	table := tableOf(query)
	start := time.Now()
	ctx, span := observability.Tracer.Start(ctx, "db."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", string(e.dialect)),
			attribute.String("db.operation", op),
			attribute.String("db.table", table),
		),
	)

	return ctx, func(err error) {
		observability.DatabaseQueryLatency.WithLabelValues(op, table).Observe(time.Since(start).Seconds())
		if err != nil {
			observability.DatabaseQueryErrors.WithLabelValues(op, table).Inc()
			span.RecordError(err)
		}
		span.End()
	}
}

// tableOf extracts the first table named after FROM, INTO or UPDATE, for metric labels.
func tableOf(query string) string {
	fields := strings.Fields(query)
	for i, f := range fields {
		switch strings.ToUpper(f) {
		case "FROM", "INTO", "UPDATE", "TABLE":
			if i+1 < len(fields) {
				name := strings.ToLower(strings.Trim(fields[i+1], "(),;\""))
				if name == "if" || name == "exists" || name == "not" {
					continue
				}
				return name
			}
		}
	}
	return "unknown"
}

// sqlStore is the database/sql backed Store shared by both dialects.
type sqlStore struct {
	executor
	db        *sql.DB
	closeOnce sync.Once
	closeErr  error
}

// NewStore wraps an already opened *sql.DB. It is how tests inject sqlmock
// or in-memory handles; production code goes through Open.
func NewStore(db *sql.DB, dialect Dialect) Store {
	return &sqlStore{
		executor: executor{q: db, dialect: dialect},
		db:       db,
	}
}

func (s *sqlStore) Dialect() Dialect {
	return s.dialect
}

func (s *sqlStore) DB() *sql.DB {
	if s == nil {
		return nil
	}
	return s.db
}

func (s *sqlStore) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return &ConnectionError{Err: errors.New("store is not connected")}
	}
	if err := s.db.PingContext(ctx); err != nil {
		return &ConnectionError{Backend: s.dialect, Err: err}
	}
	return nil
}

func (s *sqlStore) WithTx(ctx context.Context, fn func(tx Executor) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &QueryError{Query: "BEGIN", Err: err}
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&executor{q: tx, dialect: s.dialect}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			middleware.Logger.WarnContext(ctx, "transaction rollback failed",
				slog.String("error", rbErr.Error()),
			)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return &QueryError{Query: "COMMIT", Err: err}
	}
	return nil
}

// Close releases the pool. It is a no-op on a nil or never-connected store
// and safe to call more than once.
func (s *sqlStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		s.closeErr = s.db.Close()
		if s.closeErr == nil {
			middleware.Logger.Info("Database connection closed", slog.String("backend", string(s.dialect)))
		}
	})
	if s.closeErr != nil {
		return fmt.Errorf("close %s store: %w", s.dialect, s.closeErr)
	}
	return nil
}
