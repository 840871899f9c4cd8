package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/todosync/internal/client/repositories/kv"
	"github.com/google/uuid"
)

// DeviceIDKey is the KV key of the generated device id.
const DeviceIDKey = "device_id"

// ResolveDeviceID returns configured when set. Otherwise it returns the id
// stored in repo, generating and storing a new one on first use.
func ResolveDeviceID(ctx context.Context, repo kv.Repository, configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}

	b, err := repo.Get(ctx, DeviceIDKey)
	if err == nil && len(b) > 0 {
		return string(b), nil
	}
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		return "", fmt.Errorf("read device id: %w", err)
	}

	id := uuid.NewString()
	if err := repo.Set(ctx, DeviceIDKey, []byte(id)); err != nil {
		return "", fmt.Errorf("store device id: %w", err)
	}
	return id, nil
}
