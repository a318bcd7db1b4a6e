package factory

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/newsmaker-md/content-pipeline/internal/storage"
	"github.com/newsmaker-md/content-pipeline/internal/storage/in_mem"
	"github.com/newsmaker-md/content-pipeline/internal/storage/pg"
)

type StorageConfig struct {
	ConnStr string
}

func LoadEnv() StorageConfig {
	return StorageConfig{ConnStr: os.Getenv("PG_CONNECTION_STRING")}
}

// NewStore builds a Postgres-backed store when a connection string is
// configured, otherwise an in-memory store for local runs. The returned
// cleanup releases the pool; the pool is nil for the in-memory store.
func NewStore(ctx context.Context, cfg StorageConfig) (storage.Store, *pg.ConnectionPool, func(), error) {
	if cfg.ConnStr == "" {
		slog.Info("PG_CONNECTION_STRING not set, using in-memory store")
		return in_mem.NewStore(), nil, func() {}, nil
	}

	pool, err := pg.NewConnectionPool(ctx, pg.PoolConfig{ConnStr: cfg.ConnStr})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pg.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("migrate schema: %w", err)
	}
	return pg.NewStore(pool), pool, pool.Close, nil
}
