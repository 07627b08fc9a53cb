package database

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockStore(t *testing.T) (Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db, DialectPostgres), mock
}

func TestPostgresStore_RunRewritesPlaceholders(t *testing.T) {
	store, mock := setupMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO channels (id, name) VALUES ($1, $2)")).
		WithArgs("ch_1", "General").
		WillReturnResult(sqlmock.NewResult(99, 1))

	res, err := store.Run(context.Background(), "INSERT INTO channels (id, name) VALUES (?, ?)", "ch_1", "General")
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Affected)
	assert.False(t, res.InsertedID.Valid, "postgres never reports an inserted id")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetAndAll(t *testing.T) {
	store, mock := setupMockStore(t)
	ctx := context.Background()
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM channels WHERE id = $1")).
		WithArgs("ch_general").
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_announcement", "member_count", "created_at"}).
			AddRow("ch_general", false, int64(120), created))

	row, found, err := store.Get(ctx, "SELECT * FROM channels WHERE id = ?", "ch_general")
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, row.Bool("is_announcement"))
	assert.Equal(t, int64(120), row.Int64("member_count"))
	assert.True(t, created.Equal(row.Time("created_at")))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM channels WHERE id = $1")).
		WithArgs("ch_missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, found, err = store.Get(ctx, "SELECT * FROM channels WHERE id = ?", "ch_missing")
	assert.NoError(t, err)
	assert.False(t, found)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM channels ORDER BY is_announcement DESC, name ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("ch_announcements").AddRow("ch_general"))

	rows, err := store.All(ctx, "SELECT id FROM channels ORDER BY is_announcement DESC, name ASC")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ch_announcements", rows[0].String("id"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_QueryErrorKeepsBackendMessage(t *testing.T) {
	store, mock := setupMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM events WHERE id = $1")).
		WithArgs("w3-1").
		WillReturnError(errors.New("connection reset by peer"))

	_, err := store.Run(context.Background(), "DELETE FROM events WHERE id = ?", "w3-1")

	var qErr *QueryError
	require.True(t, errors.As(err, &qErr))
	assert.Equal(t, "connection reset by peer", qErr.Error())
	assert.Equal(t, "DELETE FROM events WHERE id = ?", qErr.Query)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_WithTx(t *testing.T) {
	store, mock := setupMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2")).
		WithArgs("post_1", "user_1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE posts SET likes_count = likes_count - 1 WHERE id = $1")).
		WithArgs("post_1").
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	err := store.WithTx(ctx, func(tx Executor) error {
		if _, err := tx.Run(ctx, "DELETE FROM post_likes WHERE post_id = ? AND user_id = ?", "post_1", "user_1"); err != nil {
			return err
		}
		_, err := tx.Run(ctx, "UPDATE posts SET likes_count = likes_count - 1 WHERE id = ?", "post_1")
		return err
	})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProbe(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT NOW()")).
		WillReturnRows(sqlmock.NewRows([]string{"now"}).AddRow(time.Now()))
	assert.NoError(t, probe(context.Background(), db))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT NOW()")).
		WillReturnError(errors.New("password authentication failed"))
	assert.ErrorContains(t, probe(context.Background(), db), "password authentication failed")
}
