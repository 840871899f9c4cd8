package todos

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/todosync/internal/common"
	"github.com/dmitrijs2005/todosync/internal/server/models"
)

// InMemoryRepository keeps rows in process memory with the same write
// rules as PostgresRepository.
type InMemoryRepository struct {
	mu      sync.RWMutex
	rows    map[string]map[string]models.Todo
	counter int64
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{rows: make(map[string]map[string]models.Todo)}
}

func (r *InMemoryRepository) userRows(userID string) map[string]models.Todo {
	rows, ok := r.rows[userID]
	if !ok {
		rows = make(map[string]models.Todo)
		r.rows[userID] = rows
	}
	return rows
}

func (r *InMemoryRepository) Upsert(ctx context.Context, t models.Todo) (models.Todo, models.WriteResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := r.userRows(t.UserID)
	cur, ok := rows[t.ID]
	if !ok {
		r.counter++
		t.Counter = r.counter
		rows[t.ID] = t
		return t, models.Inserted, nil
	}
	if cur.UpdatedAt.After(t.UpdatedAt) {
		return cur, models.Stale, nil
	}
	t.CreatedAt = cur.CreatedAt
	t.Counter = cur.Counter
	rows[t.ID] = t
	return t, models.Updated, nil
}

func (r *InMemoryRepository) Update(ctx context.Context, t models.Todo) (models.Todo, models.WriteResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := r.userRows(t.UserID)
	cur, ok := rows[t.ID]
	if !ok {
		return models.Todo{}, models.Stale, common.ErrorNotFound
	}
	if cur.UpdatedAt.After(t.UpdatedAt) {
		return cur, models.Stale, nil
	}
	t.CreatedAt = cur.CreatedAt
	t.Counter = cur.Counter
	rows[t.ID] = t
	return t, models.Updated, nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, userID, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := r.userRows(userID)
	_, ok := rows[id]
	delete(rows, id)
	return ok, nil
}

func (r *InMemoryRepository) SelectSince(ctx context.Context, userID string, since time.Time) ([]models.Todo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Todo
	for _, t := range r.rows[userID] {
		if t.UpdatedAt.After(since) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
