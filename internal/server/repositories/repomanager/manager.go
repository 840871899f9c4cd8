// Package repomanager picks the todo storage backend: PostgreSQL when a DSN
// is configured, process memory otherwise.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/todosync/internal/server/repositories/todos"
)

type RepositoryManager interface {
	RunMigrations(context.Context) error
	Todos() todos.Repository
	Close() error
}

// Open returns a PostgreSQL manager for a non-empty dsn and an in-memory
// one otherwise. Migrations are applied before returning.
func Open(ctx context.Context, dsn string) (RepositoryManager, error) {
	var (
		m   RepositoryManager
		err error
	)
	if dsn == "" {
		m = NewInMemoryRepositoryManager()
	} else {
		m, err = NewPostgresRepositoryManager(dsn)
		if err != nil {
			return nil, err
		}
	}

	if err := m.RunMigrations(ctx); err != nil {
		_ = m.Close()
		return nil, err
	}
	return m, nil
}

type InMemoryRepositoryManager struct {
	todos *todos.InMemoryRepository
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{todos: todos.NewInMemoryRepository()}
}

func (m *InMemoryRepositoryManager) RunMigrations(context.Context) error { return nil }
func (m *InMemoryRepositoryManager) Todos() todos.Repository            { return m.todos }
func (m *InMemoryRepositoryManager) Close() error                        { return nil }

// sqlOpen is a seam for tests.
var sqlOpen = sql.Open
