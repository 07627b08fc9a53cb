package database

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// Rebind rewrites `?` placeholders into postgres `$1..$n` form, scanning left
// to right. Queries must not contain a literal `?` in their text. sqlite
// queries are returned unchanged.
func Rebind(d Dialect, query string) string {
	if d != DialectPostgres || !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// bindArgs converts time values into the text layout sqlite stores, so that
// comparisons against CURRENT_TIMESTAMP columns order correctly.
func bindArgs(d Dialect, args []any) []any {
	if d != DialectSQLite {
		return args
	}
	out := make([]any, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case time.Time:
			out[i] = TimeArg(d, v)
		case *time.Time:
			if v == nil {
				out[i] = nil
			} else {
				out[i] = TimeArg(d, *v)
			}
		default:
			out[i] = a
		}
	}
	return out
}

// TimeArg renders t the way the dialect stores timestamps. Callers writing
// through another layer (the gorm bridge) use it to match CURRENT_TIMESTAMP rows.
func TimeArg(d Dialect, t time.Time) any {
	if d != DialectSQLite {
		return t.UTC()
	}
	return t.UTC().Format(sqliteTimeLayout)
}

// CeilTimeArg is TimeArg rounded up to the stored precision, for
// `col < ?` and `col >= ?` bounds. SQLite keeps whole seconds, so truncating
// a fractional bound would drop rows stamped in that same second.
func CeilTimeArg(d Dialect, t time.Time) any {
	if d == DialectSQLite {
		if frac := t.Sub(t.Truncate(time.Second)); frac > 0 {
			t = t.Add(time.Second - frac)
		}
	}
	return TimeArg(d, t)
}

// IsUniqueViolation reports whether err is a uniqueness constraint failure on either backend.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") || strings.Contains(msg, "duplicate key")
}

// IsAlreadyExists reports whether a DDL error means the object is already present.
func IsAlreadyExists(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "already exists")
}
