package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/dmitrijs2005/todosync/internal/client/client"
	"github.com/dmitrijs2005/todosync/internal/client/config"
	"github.com/dmitrijs2005/todosync/internal/client/repositories/kv"
	"github.com/dmitrijs2005/todosync/internal/filex"
)

const (
	dbFileName   = "todosync.db"
	lockFileName = "todosync.lock"
	logFileName  = "todosync.log"
)

// openRepository builds the KV backend named by cfg.KVBackend, wrapped in a
// sealed repository when a passphrase is set. The returned closer may be nil.
func openRepository(ctx context.Context, cfg *config.Config, passphrase string) (kv.Repository, io.Closer, error) {
	var (
		repo   kv.Repository
		closer io.Closer
	)

	switch cfg.KVBackend {
	case config.BackendSQLite:
		db, err := client.InitDatabase(ctx, filepath.Join(cfg.DataDir, dbFileName))
		if err != nil {
			return nil, nil, fmt.Errorf("open local database: %w", err)
		}
		repo, closer = kv.NewSQLiteRepository(db, cfg.Namespace), db
	case config.BackendS3:
		api, err := kv.NewS3Client(ctx, cfg.S3)
		if err != nil {
			return nil, nil, err
		}
		repo = kv.NewS3Repository(api, cfg.S3.Bucket, cfg.S3.Prefix, cfg.Namespace)
	case config.BackendMemory:
		repo = kv.NewMemoryRepository()
	default:
		return nil, nil, fmt.Errorf("%w: unknown kv backend %q", config.ErrInvalidConfig, cfg.KVBackend)
	}

	if passphrase == "" {
		return repo, closer, nil
	}

	sealed, err := kv.NewSealedRepository(ctx, repo, passphrase)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, nil, err
	}
	return sealed, closer, nil
}

func ensureDataDir(dir string) error {
	if _, err := filex.EnsureDir(dir); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return nil
}
