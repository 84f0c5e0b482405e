package storage

import (
	"fmt"
	"log/slog"

	"github.com/jwebster45206/campaign-engine/internal/config"
	"github.com/jwebster45206/campaign-engine/internal/services/queue"
	"github.com/jwebster45206/campaign-engine/pkg/storage"
	"github.com/redis/go-redis/v9"
)

// Storage is the snapshot persistence interface implemented by this package
type Storage = storage.Storage

// New creates the snapshot backend selected by the configuration
func New(cfg *config.Config, logger *slog.Logger) (Storage, error) {
	switch cfg.SnapshotBackend {
	case config.BackendRedis:
		opt, err := queue.ParseAddr(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return NewRedisStorageWithClient(redis.NewClient(opt), logger), nil
	case config.BackendFile:
		return NewFileStorage(cfg.DataDir, logger)
	default:
		return nil, fmt.Errorf("unknown snapshot backend: %q", cfg.SnapshotBackend)
	}
}
