// Package todos stores todo rows per user. Writes are conditional on
// updated_at: a row is only replaced by one that is at least as new.
package todos

import (
	"context"
	"time"

	"github.com/dmitrijs2005/todosync/internal/server/models"
)

type Repository interface {
	// Upsert inserts t, or replaces the stored row when t is at least as
	// new. The returned row is what is stored afterwards.
	Upsert(ctx context.Context, t models.Todo) (models.Todo, models.WriteResult, error)
	// Update replaces an existing row when t is at least as new. A missing
	// row yields common.ErrorNotFound.
	Update(ctx context.Context, t models.Todo) (models.Todo, models.WriteResult, error)
	// Delete removes the row and reports whether it existed.
	Delete(ctx context.Context, userID, id string) (bool, error)
	// SelectSince returns rows with updated_at > since, newest first.
	SelectSince(ctx context.Context, userID string, since time.Time) ([]models.Todo, error)
}
