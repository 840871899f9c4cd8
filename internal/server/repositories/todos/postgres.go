package todos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/todosync/internal/common"
	"github.com/dmitrijs2005/todosync/internal/dbx"
	"github.com/dmitrijs2005/todosync/internal/server/models"
)

// Database is what PostgresRepository needs: plain queries plus transactions.
// *sql.DB satisfies it.
type Database interface {
	dbx.DBTX
	dbx.TxBeginner
}

// PostgresRepository implements Repository over PostgreSQL.
type PostgresRepository struct {
	db Database
}

func NewPostgresRepository(db Database) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const todoColumns = `id, text, done, deleted, created_at, updated_at, counter`

func scanTodo(row interface{ Scan(...any) error }, userID string) (models.Todo, error) {
	t := models.Todo{UserID: userID}
	err := row.Scan(&t.ID, &t.Text, &t.Done, &t.Deleted, &t.CreatedAt, &t.UpdatedAt, &t.Counter)
	if err != nil {
		return models.Todo{}, err
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}

func selectOne(ctx context.Context, db dbx.DBTX, userID, id string) (models.Todo, error) {
	query := `SELECT ` + todoColumns + ` FROM todos WHERE user_id = $1 AND id = $2`
	t, err := scanTodo(db.QueryRowContext(ctx, query, userID, id), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Todo{}, common.ErrorNotFound
	}
	if err != nil {
		return models.Todo{}, fmt.Errorf("select todo: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, t models.Todo) (models.Todo, models.WriteResult, error) {
	query := `
		INSERT INTO todos (user_id, id, text, done, deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, id)
		DO UPDATE SET
			text = EXCLUDED.text,
			done = EXCLUDED.done,
			deleted = EXCLUDED.deleted,
			updated_at = EXCLUDED.updated_at
			WHERE todos.updated_at <= EXCLUDED.updated_at
		RETURNING ` + todoColumns + `, (xmax = 0) AS inserted`

	var (
		out    models.Todo
		result models.WriteResult
	)
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var inserted bool
		row := tx.QueryRowContext(ctx, query, t.UserID, t.ID, t.Text, t.Done, t.Deleted, t.CreatedAt, t.UpdatedAt)
		err := row.Scan(&out.ID, &out.Text, &out.Done, &out.Deleted, &out.CreatedAt, &out.UpdatedAt, &out.Counter, &inserted)
		switch {
		case err == nil:
			out.UserID = t.UserID
			out.CreatedAt = out.CreatedAt.UTC()
			out.UpdatedAt = out.UpdatedAt.UTC()
			result = models.Updated
			if inserted {
				result = models.Inserted
			}
			return nil
		case errors.Is(err, sql.ErrNoRows):
			// conflict with a newer row: the WHERE filtered the update out
			out, err = selectOne(ctx, tx, t.UserID, t.ID)
			result = models.Stale
			return err
		default:
			return fmt.Errorf("upsert todo: %w", err)
		}
	})
	if err != nil {
		return models.Todo{}, models.Stale, err
	}
	return out, result, nil
}

func (r *PostgresRepository) Update(ctx context.Context, t models.Todo) (models.Todo, models.WriteResult, error) {
	query := `
		UPDATE todos SET text = $3, done = $4, deleted = $5, updated_at = $6
		WHERE user_id = $1 AND id = $2 AND updated_at <= $6
		RETURNING ` + todoColumns

	var (
		out    models.Todo
		result models.WriteResult
	)
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		out, err = scanTodo(tx.QueryRowContext(ctx, query, t.UserID, t.ID, t.Text, t.Done, t.Deleted, t.UpdatedAt), t.UserID)
		switch {
		case err == nil:
			result = models.Updated
			return nil
		case errors.Is(err, sql.ErrNoRows):
			out, err = selectOne(ctx, tx, t.UserID, t.ID)
			result = models.Stale
			return err
		default:
			return fmt.Errorf("update todo: %w", err)
		}
	})
	if err != nil {
		return models.Todo{}, models.Stale, err
	}
	return out, result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM todos WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return false, fmt.Errorf("delete todo: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) SelectSince(ctx context.Context, userID string, since time.Time) ([]models.Todo, error) {
	query := `SELECT ` + todoColumns + ` FROM todos
		WHERE user_id = $1 AND updated_at > $2
		ORDER BY updated_at DESC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to select todos: %w", err)
	}
	defer rows.Close()

	var result []models.Todo
	for rows.Next() {
		t, err := scanTodo(rows, userID)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
