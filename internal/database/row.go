package database

import (
	"database/sql"
	"strconv"
	"strings"
	"time"
)

// Row is one result row keyed by column name. Accessors fold the differences
// between backends: sqlite reports booleans as 0/1 integers and may hand back
// timestamps as text, postgres returns native bool and time.Time values.
type Row map[string]any

// sqliteTimeLayout matches what CURRENT_TIMESTAMP stores on sqlite.
const sqliteTimeLayout = "2006-01-02 15:04:05"

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	sqliteTimeLayout,
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTime accepts RFC3339 and the text layouts sqlite stores timestamps in.
// Layouts without a zone are read as UTC.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// String returns the column as text; NULL and missing columns read as "".
func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// NullString keeps the distinction between NULL and an empty string.
func (r Row) NullString(col string) sql.NullString {
	if r[col] == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: r.String(col), Valid: true}
}

// Int64 returns the column as an integer; non-numeric values read as 0.
func (r Row) Int64(col string) int64 {
	switch v := r[col].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		n, _ := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n
	case []byte:
		n, _ := strconv.ParseInt(strings.TrimSpace(string(v)), 10, 64)
		return n
	default:
		return 0
	}
}

// Bool treats any non-zero integer, true, "t", "true" and "1" as true.
func (r Row) Bool(col string) bool {
	switch v := r[col].(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(v)
		return err == nil && b
	case []byte:
		b, err := strconv.ParseBool(string(v))
		return err == nil && b
	default:
		return r.Int64(col) != 0
	}
}

// Time returns the column as a UTC time; NULL or unparseable values read as the zero time.
func (r Row) Time(col string) time.Time {
	t := r.NullTime(col)
	return t.Time
}

// NullTime returns the column as a UTC time, invalid when NULL or unparseable.
func (r Row) NullTime(col string) sql.NullTime {
	switch v := r[col].(type) {
	case time.Time:
		return sql.NullTime{Time: v.UTC(), Valid: true}
	case string:
		if t, ok := ParseTime(v); ok {
			return sql.NullTime{Time: t.UTC(), Valid: true}
		}
	case []byte:
		if t, ok := ParseTime(string(v)); ok {
			return sql.NullTime{Time: t.UTC(), Valid: true}
		}
	}
	return sql.NullTime{}
}

// Has reports whether the column is present in the row.
func (r Row) Has(col string) bool {
	_, ok := r[col]
	return ok
}

func scanRows(rows *sql.Rows, limit int) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := make([]Row, 0)
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		out = append(out, row)

		if limit > 0 && len(out) >= limit {
			break
		}
	}

	return out, rows.Err()
}
