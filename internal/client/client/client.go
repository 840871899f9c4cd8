package client

import (
	"context"
	"time"

	"github.com/dmitrijs2005/todosync/internal/client/models"
)

// Client is the remote data service the sync engine talks to.
type Client interface {
	Close() error
	Ping(ctx context.Context) error
	// Select returns rows with updatedAt strictly after since, newest
	// first, tombstones included.
	Select(ctx context.Context, since time.Time) ([]models.Todo, error)
	// Insert is an upsert by id and returns the stored row.
	Insert(ctx context.Context, t models.Todo) (models.Todo, error)
	// Update returns ErrNotFound when the row no longer exists.
	Update(ctx context.Context, t models.Todo) (models.Todo, error)
	// Delete succeeds for missing ids.
	Delete(ctx context.Context, id string) error
}

// Subscriber opens the realtime change feed.
type Subscriber interface {
	Subscribe(ctx context.Context) (Subscription, error)
}

// Subscription is one open feed connection. Recv blocks until the next
// event, ctx is done or the feed breaks.
type Subscription interface {
	Recv(ctx context.Context) (models.RemoteEvent, error)
	Close() error
}
