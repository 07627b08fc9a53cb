package database

import (
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestRebind(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		query   string
		want    string
	}{
		{"SQLite untouched", DialectSQLite, "SELECT * FROM users WHERE id = ? AND email = ?", "SELECT * FROM users WHERE id = ? AND email = ?"},
		{"Postgres numbered left to right", DialectPostgres, "SELECT * FROM users WHERE id = ? AND email = ?", "SELECT * FROM users WHERE id = $1 AND email = $2"},
		{"Postgres without placeholders", DialectPostgres, "SELECT NOW()", "SELECT NOW()"},
		{"Postgres double digits", DialectPostgres, "VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", "VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)"},
		{"Postgres adjacent placeholders", DialectPostgres, "??", "$1$2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Rebind(tt.dialect, tt.query))
		})
	}
}

func TestBindArgs_SQLiteFormatsTimes(t *testing.T) {
	ts := time.Date(2025, 1, 10, 18, 30, 0, 0, time.FixedZone("EAT", 3*3600))

	out := bindArgs(DialectSQLite, []any{ts, "x", 1, (*time.Time)(nil)})
	assert.Equal(t, "2025-01-10 15:30:00", out[0])
	assert.Equal(t, "x", out[1])
	assert.Equal(t, 1, out[2])
	assert.Nil(t, out[3])

	pg := bindArgs(DialectPostgres, []any{ts})
	assert.Equal(t, ts, pg[0])
}

func TestCeilTimeArg(t *testing.T) {
	whole := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	frac := whole.Add(900 * time.Millisecond)

	assert.Equal(t, "2025-01-01 10:00:00", CeilTimeArg(DialectSQLite, whole))
	assert.Equal(t, "2025-01-01 10:00:01", CeilTimeArg(DialectSQLite, frac))
	assert.Equal(t, "2025-01-01 10:00:00", TimeArg(DialectSQLite, frac))
	assert.Equal(t, frac, CeilTimeArg(DialectPostgres, frac))
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"Nil", nil, false},
		{"Postgres SQLSTATE", &QueryError{Err: &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}}, true},
		{"Postgres other code", &pgconn.PgError{Code: "23503"}, false},
		{"SQLite message fallback", errors.New("UNIQUE constraint failed: events.id"), true},
		{"Unrelated", errors.New("no such table: events"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUniqueViolation(tt.err))
		})
	}
}

func TestTableOf(t *testing.T) {
	assert.Equal(t, "users", tableOf("SELECT id FROM users WHERE id = ?"))
	assert.Equal(t, "messages", tableOf("INSERT INTO messages (id) VALUES (?)"))
	assert.Equal(t, "channels", tableOf("UPDATE channels SET member_count = member_count + 1"))
	assert.Equal(t, "unknown", tableOf("SELECT NOW()"))
}
