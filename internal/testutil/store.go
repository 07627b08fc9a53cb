package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"handbook/internal/database"

	"github.com/stretchr/testify/require"
)

// NewSQLiteStore opens a throwaway sqlite file with the application schema applied.
func NewSQLiteStore(t *testing.T) database.Store {
	t.Helper()

	store, err := database.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "handbook_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, err = database.ApplySchema(context.Background(), store, database.SchemaOptions{Strict: true})
	require.NoError(t, err)
	return store
}

// CountRows returns the number of rows in table.
func CountRows(t *testing.T, exec database.Executor, table string) int64 {
	t.Helper()
	row, found, err := exec.Get(context.Background(), "SELECT COUNT(*) AS n FROM "+table)
	require.NoError(t, err)
	require.True(t, found)
	return row.Int64("n")
}

// InsertUser creates a minimal user row.
func InsertUser(t *testing.T, exec database.Executor, id, username string) {
	t.Helper()
	_, err := exec.Run(context.Background(), "INSERT INTO users (id, username) VALUES (?, ?)", id, username)
	require.NoError(t, err)
}

// InsertChannel creates a channel row with the given announcement flag.
func InsertChannel(t *testing.T, exec database.Executor, id, name string, announcement bool) {
	t.Helper()
	_, err := exec.Run(context.Background(),
		"INSERT INTO channels (id, name, icon, is_announcement, member_count) VALUES (?, ?, ?, ?, 0)",
		id, name, "chatbubbles", announcement)
	require.NoError(t, err)
}
