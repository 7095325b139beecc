// Package storage provides the durable key-value slots the deployment
// session and its artifacts are written to.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/Bidon15/orbit-setup/internal/config"
)

// ErrNotFound is returned by Get when a key has never been written.
var ErrNotFound = errors.New("not found")

// Storage is a string key-value store.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// Open creates the backend selected by cfg.Storage.Backend.
func Open(ctx context.Context, cfg *config.Config) (Storage, error) {
	switch cfg.Storage.Backend {
	case "", "leveldb":
		return NewLevelDB(cfg.Storage.Path)
	case "redis":
		return NewRedis(ctx, cfg.Redis)
	case "postgres":
		return NewPostgres(ctx, cfg.Database)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
