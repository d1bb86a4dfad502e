package storage

import (
	"context"
	"fmt"

	"github.com/TambongStercy/SBC-MS-sub012/internal/config"
	"github.com/TambongStercy/SBC-MS-sub012/internal/dbpool"
)

// pooledPostgresStore closes the shared dbpool.SharedPool it was built from
// on Close, since NewPostgresStoreWithDB itself assumes a caller elsewhere
// owns that pool's lifecycle (ownsDB=false) — here, nobody else does.
type pooledPostgresStore struct {
	*PostgresStore
	pool *dbpool.SharedPool
}

func (p *pooledPostgresStore) Close(ctx context.Context) error {
	if err := p.PostgresStore.Close(ctx); err != nil {
		return err
	}
	return p.pool.Close()
}

// NewStore dispatches on cfg.Backend to construct the configured Store
// implementation (§4.1/§4.2/§4.4 backend selection). The postgres backend
// goes through the shared connection pool rather than opening its own, since
// every C1/C2/C4 concern lives in this one Store and there is no other
// repository left to share a *sql.DB with.
func NewStore(cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "postgres":
		pool, err := dbpool.NewSharedPool(cfg.PostgresURL, cfg.PostgresPool)
		if err != nil {
			return nil, fmt.Errorf("open postgres pool: %w", err)
		}
		pgStore, err := NewPostgresStoreWithDB(pool.DB())
		if err != nil {
			_ = pool.Close()
			return nil, err
		}
		return &pooledPostgresStore{PostgresStore: pgStore, pool: pool}, nil
	case "mongodb":
		return NewMongoDBStore(cfg.MongoDBURL, cfg.MongoDBDatabase)
	case "file":
		return NewFileStore(cfg.FilePath)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.Backend)
	}
}
