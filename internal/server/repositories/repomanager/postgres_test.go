package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/todosync/internal/server/repositories/todos"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManagerWithMock(t *testing.T) (*PostgresRepositoryManager, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &PostgresRepositoryManager{db: db}, mock
}

func stubGoose(t *testing.T, fn func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error) {
	t.Helper()
	orig := gooseUpContext
	gooseUpContext = fn
	t.Cleanup(func() { gooseUpContext = orig })
}

func TestPostgresManager_Todos(t *testing.T) {
	m, _ := newManagerWithMock(t)
	assert.IsType(t, &todos.PostgresRepository{}, m.Todos())
}

func TestRunMigrations_Success(t *testing.T) {
	m, _ := newManagerWithMock(t)

	stubGoose(t, func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		if dir != "." {
			return errors.New("unexpected dir")
		}
		return nil
	})

	assert.NoError(t, m.RunMigrations(context.Background()))
}

func TestRunMigrations_Error(t *testing.T) {
	m, _ := newManagerWithMock(t)

	stubGoose(t, func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	})

	assert.ErrorContains(t, m.RunMigrations(context.Background()), "boom")
}

func TestOpen_InMemoryWithoutDSN(t *testing.T) {
	m, err := Open(context.Background(), "")
	require.NoError(t, err)
	defer m.Close()

	assert.IsType(t, &todos.InMemoryRepository{}, m.Todos())
}

func TestOpen_PostgresRunsMigrations(t *testing.T) {
	called := false
	stubGoose(t, func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		called = true
		return nil
	})

	m, err := Open(context.Background(), "postgres://user:pw@127.0.0.1:1/todos")
	require.NoError(t, err)
	defer m.Close()

	assert.True(t, called)
	assert.IsType(t, &todos.PostgresRepository{}, m.Todos())
}

func TestOpen_MigrationFailureClosesDB(t *testing.T) {
	stubGoose(t, func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	})

	_, err := Open(context.Background(), "postgres://user:pw@127.0.0.1:1/todos")
	assert.Error(t, err)
}

func TestOpen_DriverError(t *testing.T) {
	orig := sqlOpen
	sqlOpen = func(driverName, dataSourceName string) (*sql.DB, error) { return nil, errors.New("no driver") }
	t.Cleanup(func() { sqlOpen = orig })

	_, err := Open(context.Background(), "postgres://x")
	assert.ErrorContains(t, err, "no driver")
}
