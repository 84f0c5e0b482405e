package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/campaign-engine/pkg/state"
	"github.com/redis/go-redis/v9"
)

const (
	campaignKeyPrefix = "campaign:"
	campaignTTL       = 7 * 24 * time.Hour
)

// RedisStorage implements the Storage interface using Redis for campaign snapshots
type RedisStorage struct {
	client *redis.Client
	logger *slog.Logger
}

// Ensure RedisStorage implements Storage interface
var _ Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance
func NewRedisStorage(redisURL string, logger *slog.Logger) *RedisStorage {
	rdb := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})
	return NewRedisStorageWithClient(rdb, logger)
}

// NewRedisStorageWithClient wraps an existing Redis client
func NewRedisStorageWithClient(client *redis.Client, logger *slog.Logger) *RedisStorage {
	return &RedisStorage{
		client: client,
		logger: logger,
	}
}

func campaignKey(id uuid.UUID) string {
	return campaignKeyPrefix + id.String()
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// Campaign operations

func (r *RedisStorage) SaveCampaign(ctx context.Context, id uuid.UUID, s *state.Snapshot) error {
	if s == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}
	data, err := json.Marshal(s)
	if err != nil {
		r.logger.Error("Failed to marshal campaign", "campaign_id", id, "error", err)
		return fmt.Errorf("failed to marshal campaign: %w", err)
	}

	if err := r.client.Set(ctx, campaignKey(id), data, campaignTTL).Err(); err != nil {
		r.logger.Error("Failed to save campaign", "campaign_id", id, "error", err)
		return fmt.Errorf("failed to save campaign: %w", err)
	}
	return nil
}

func (r *RedisStorage) LoadCampaign(ctx context.Context, id uuid.UUID) (*state.Snapshot, error) {
	data, err := r.client.Get(ctx, campaignKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.logger.Warn("Campaign not found", "campaign_id", id)
			return nil, nil // Return nil for not found
		}
		r.logger.Error("Failed to load campaign", "campaign_id", id, "error", err)
		return nil, fmt.Errorf("failed to load campaign: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	s, err := state.Parse(data)
	if err != nil {
		r.logger.Error("Failed to parse campaign", "campaign_id", id, "error", err)
		return nil, fmt.Errorf("failed to parse campaign: %w", err)
	}
	return s, nil
}

func (r *RedisStorage) DeleteCampaign(ctx context.Context, id uuid.UUID) error {
	if err := r.client.Del(ctx, campaignKey(id)).Err(); err != nil {
		r.logger.Error("Failed to delete campaign", "campaign_id", id, "error", err)
		return fmt.Errorf("failed to delete campaign: %w", err)
	}
	return nil
}

func (r *RedisStorage) ListCampaigns(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	iter := r.client.Scan(ctx, 0, campaignKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		id, err := uuid.Parse(strings.TrimPrefix(iter.Val(), campaignKeyPrefix))
		if err != nil {
			r.logger.Warn("Skipping malformed campaign key", "key", iter.Val())
			continue
		}
		ids = append(ids, id)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}
