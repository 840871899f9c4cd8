package todos

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/todosync/internal/common"
	"github.com/dmitrijs2005/todosync/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

var (
	upsertQuery = regexp.QuoteMeta("INSERT INTO todos") + `.*ON CONFLICT \(user_id, id\).*WHERE todos\.updated_at <= EXCLUDED\.updated_at.*RETURNING .*\(xmax = 0\)`
	updateQuery = regexp.QuoteMeta("UPDATE todos SET") + `.*updated_at <= \$6.*RETURNING`
	selectOneQ  = regexp.QuoteMeta("SELECT id, text, done, deleted, created_at, updated_at, counter FROM todos WHERE user_id = $1 AND id = $2")
	todoCols    = []string{"id", "text", "done", "deleted", "created_at", "updated_at", "counter"}
)

func TestPostgres_UpsertInserted(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	in := row("a", "Buy milk", t1)

	mock.ExpectBegin()
	mock.ExpectQuery(upsertQuery).
		WithArgs("u1", "a", "Buy milk", false, false, t0, t1).
		WillReturnRows(sqlmock.NewRows(append(todoCols, "inserted")).
			AddRow("a", "Buy milk", false, false, t0, t1, int64(7), true))
	mock.ExpectCommit()

	got, res, err := repo.Upsert(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, models.Inserted, res)
	assert.Equal(t, int64(7), got.Counter)
	assert.Equal(t, "u1", got.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpsertUpdatedExisting(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(upsertQuery).
		WillReturnRows(sqlmock.NewRows(append(todoCols, "inserted")).
			AddRow("a", "v2", true, false, t0, t2, int64(7), false))
	mock.ExpectCommit()

	got, res, err := repo.Upsert(context.Background(), row("a", "v2", t2))
	require.NoError(t, err)
	assert.Equal(t, models.Updated, res)
	assert.True(t, got.Done)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpsertStaleReturnsStoredRow(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(upsertQuery).WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(selectOneQ).
		WithArgs("u1", "a").
		WillReturnRows(sqlmock.NewRows(todoCols).AddRow("a", "newer", false, false, t0, t2, int64(3)))
	mock.ExpectCommit()

	got, res, err := repo.Upsert(context.Background(), row("a", "older", t1))
	require.NoError(t, err)
	assert.Equal(t, models.Stale, res)
	assert.Equal(t, "newer", got.Text)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpsertDBErrorRollsBack(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(upsertQuery).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, _, err := repo.Upsert(context.Background(), row("a", "x", t1))
	assert.ErrorContains(t, err, "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Update(t *testing.T) {
	t.Run("applied", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(updateQuery).
			WithArgs("u1", "a", "v2", false, false, t2).
			WillReturnRows(sqlmock.NewRows(todoCols).AddRow("a", "v2", false, false, t0, t2, int64(1)))
		mock.ExpectCommit()

		got, res, err := repo.Update(context.Background(), row("a", "v2", t2))
		require.NoError(t, err)
		assert.Equal(t, models.Updated, res)
		assert.Equal(t, "v2", got.Text)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(updateQuery).WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(selectOneQ).
			WillReturnRows(sqlmock.NewRows(todoCols).AddRow("a", "newer", false, false, t0, t2, int64(1)))
		mock.ExpectCommit()

		got, res, err := repo.Update(context.Background(), row("a", "v1", t1))
		require.NoError(t, err)
		assert.Equal(t, models.Stale, res)
		assert.Equal(t, "newer", got.Text)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(updateQuery).WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(selectOneQ).WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		_, _, err := repo.Update(context.Background(), row("a", "v1", t1))
		assert.ErrorIs(t, err, common.ErrorNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgres_Delete(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	q := regexp.QuoteMeta("DELETE FROM todos WHERE user_id = $1 AND id = $2")

	mock.ExpectExec(q).WithArgs("u1", "a").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("u1", "a").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q).WithArgs("u1", "b").WillReturnError(errors.New("boom"))

	existed, err := repo.Delete(context.Background(), "u1", "a")
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = repo.Delete(context.Background(), "u1", "a")
	require.NoError(t, err)
	assert.False(t, existed)

	_, err = repo.Delete(context.Background(), "u1", "b")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SelectSince(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	since := t0

	mock.ExpectQuery(`SELECT .* FROM todos\s+WHERE user_id = \$1 AND updated_at > \$2\s+ORDER BY updated_at DESC, id ASC`).
		WithArgs("u1", since).
		WillReturnRows(sqlmock.NewRows(todoCols).
			AddRow("c", "c", false, false, t0, t2, int64(3)).
			AddRow("a", "a", true, true, t0, t1, int64(1)))

	rows, err := repo.SelectSince(context.Background(), "u1", since)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "c", rows[0].ID)
	assert.True(t, rows[1].Deleted)
	assert.Equal(t, time.UTC, rows[0].UpdatedAt.Location())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SelectSinceScanError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT .* FROM todos`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("a"))

	_, err := repo.SelectSince(context.Background(), "u1", t0)
	assert.Error(t, err)
}
