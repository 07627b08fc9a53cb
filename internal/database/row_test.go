package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRow_Accessors(t *testing.T) {
	ts := time.Date(2025, 1, 10, 18, 0, 0, 0, time.UTC)
	r := Row{
		"text":       "hello",
		"bytes":      "raw",
		"null":       nil,
		"lite_bool":  int64(1),
		"lite_false": int64(0),
		"pg_bool":    true,
		"count":      int64(7),
		"lite_time":  "2025-01-10 18:00:00",
		"iso_time":   "2025-01-10T18:00:00Z",
		"pg_time":    ts,
	}

	assert.Equal(t, "hello", r.String("text"))
	assert.Equal(t, "", r.String("null"))
	assert.Equal(t, "", r.String("missing"))
	assert.False(t, r.NullString("null").Valid)
	assert.True(t, r.NullString("text").Valid)

	assert.True(t, r.Bool("lite_bool"))
	assert.False(t, r.Bool("lite_false"))
	assert.True(t, r.Bool("pg_bool"))
	assert.False(t, r.Bool("missing"))

	assert.Equal(t, int64(7), r.Int64("count"))
	assert.Equal(t, int64(1), r.Int64("pg_bool"))

	assert.True(t, ts.Equal(r.Time("lite_time")))
	assert.True(t, ts.Equal(r.Time("iso_time")))
	assert.True(t, ts.Equal(r.Time("pg_time")))
	assert.False(t, r.NullTime("null").Valid)
	assert.True(t, r.Has("null"))
	assert.False(t, r.Has("missing"))
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in string
		ok bool
	}{
		{"2025-01-10T18:00:00Z", true},
		{"2025-01-10T18:00:00+03:00", true},
		{"2025-01-10 18:00:00", true},
		{"2025-01-10T18:00:00.123", true},
		{"2025-01-10", true},
		{"yesterday", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, ok := ParseTime(tt.in)
			assert.Equal(t, tt.ok, ok)
		})
	}
}
