package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/todosync/internal/client/models"
	"github.com/dmitrijs2005/todosync/internal/client/repositories/kv"
)

// SnapshotKey is the KV key the engine state is stored under.
const SnapshotKey = "todos"

const snapshotVersion = 1

var (
	ErrSnapshotVersion = errors.New("unsupported snapshot version")
	ErrSnapshotCorrupt = errors.New("corrupt snapshot")
)

type snapshot struct {
	Version int                    `json:"version"`
	Cursor  time.Time              `json:"cursor"`
	Todos   map[string]models.Todo `json:"todos"`
	Outbox  []models.PendingOp     `json:"outbox"`
	// Purged maps locally hard-deleted ids to the time the server
	// acknowledged the delete; zero while the delete is still queued.
	Purged map[string]time.Time `json:"purged,omitempty"`
}

func loadSnapshot(ctx context.Context, repo kv.Repository) (*snapshot, error) {
	b, err := repo.Get(ctx, SnapshotKey)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var s snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
	}
	if s.Version != snapshotVersion {
		return nil, fmt.Errorf("%w: %d", ErrSnapshotVersion, s.Version)
	}
	return &s, nil
}

func saveSnapshot(ctx context.Context, repo kv.Repository, s *snapshot) error {
	s.Version = snapshotVersion
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := repo.Set(ctx, SnapshotKey, b); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}
