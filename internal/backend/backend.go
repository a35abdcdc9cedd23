// Package backend opens the storage gateway named by the configuration.
package backend

import (
	"context"
	"fmt"
	"io"

	"github.com/mesh-intelligence/pantry/internal/memory"
	"github.com/mesh-intelligence/pantry/internal/postgres"
	"github.com/mesh-intelligence/pantry/internal/redisstore"
	"github.com/mesh-intelligence/pantry/internal/sqlite"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open validates cfg and opens its backend for the given schemas. The
// closer releases connections and must be called when done.
func Open(ctx context.Context, cfg types.Config, schemas ...types.Schema) (types.Gateway, io.Closer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	switch cfg.Backend {
	case types.BackendMemory:
		if cfg.DataDir == "" {
			return memory.New(schemas), nopCloser{}, nil
		}
		g, err := memory.Open(cfg.DataDir, schemas)
		if err != nil {
			return nil, nil, fmt.Errorf("open memory backend: %w", err)
		}
		return g, nopCloser{}, nil
	case types.BackendSQLite:
		g, err := sqlite.Open(ctx, cfg.DataDir, schemas...)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite backend: %w", err)
		}
		return g, g, nil
	case types.BackendPostgres:
		g, err := postgres.Open(ctx, cfg.PostgresDSN, schemas...)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres backend: %w", err)
		}
		return g, g, nil
	case types.BackendRedis:
		g, err := redisstore.Open(ctx, cfg.RedisAddr, cfg.RedisPrefix, schemas...)
		if err != nil {
			return nil, nil, fmt.Errorf("open redis backend: %w", err)
		}
		return g, g, nil
	}
	return nil, nil, types.ErrBackendUnknown
}
