// Package kv is the on-device key/value blob store the sync engine persists
// its snapshot and device id into. Every implementation is scoped to one
// namespace, so several profiles can share a database or bucket.
package kv

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

type Repository interface {
	// Get returns ErrNotFound for a missing key.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Remove succeeds for a missing key.
	Remove(ctx context.Context, key string) error
}
