package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/campaign-engine/pkg/narrative"
	"github.com/redis/go-redis/v9"
)

// narrativeTTL keeps undelivered beats around as long as the campaign snapshot
const narrativeTTL = 7 * 24 * time.Hour

// NarrativeQueue buffers narrative entries per campaign until the UI drains them
type NarrativeQueue struct {
	client *Client
}

func NewNarrativeQueue(client *Client) *NarrativeQueue {
	return &NarrativeQueue{client: client}
}

func narrativeKey(campaignID uuid.UUID) string {
	return fmt.Sprintf("narrative:%s", campaignID.String())
}

// Push appends entries to the campaign's narrative queue
func (q *NarrativeQueue) Push(ctx context.Context, campaignID uuid.UUID, entries ...narrative.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to serialize narrative entry: %w", err)
		}
		values = append(values, data)
	}

	key := narrativeKey(campaignID)
	_, err := q.client.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		pipe.Expire(ctx, key, narrativeTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to push narrative entries: %w", err)
	}
	return nil
}

// Drain removes and returns every queued entry for a campaign
func (q *NarrativeQueue) Drain(ctx context.Context, campaignID uuid.UUID) ([]narrative.Entry, error) {
	key := narrativeKey(campaignID)

	var lrange *redis.StringSliceCmd
	_, err := q.client.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		lrange = pipe.LRange(ctx, key, 0, -1)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to drain narrative entries: %w", err)
	}
	return decodeEntries(lrange.Val())
}

// Peek returns queued entries without removing them
func (q *NarrativeQueue) Peek(ctx context.Context, campaignID uuid.UUID) ([]narrative.Entry, error) {
	raw, err := q.client.rdb.LRange(ctx, narrativeKey(campaignID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to peek narrative entries: %w", err)
	}
	return decodeEntries(raw)
}

// Depth returns the number of queued entries for a campaign
func (q *NarrativeQueue) Depth(ctx context.Context, campaignID uuid.UUID) (int, error) {
	count, err := q.client.rdb.LLen(ctx, narrativeKey(campaignID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get narrative queue depth: %w", err)
	}
	return int(count), nil
}

// Clear removes all queued entries for a campaign
func (q *NarrativeQueue) Clear(ctx context.Context, campaignID uuid.UUID) error {
	if err := q.client.rdb.Del(ctx, narrativeKey(campaignID)).Err(); err != nil {
		return fmt.Errorf("failed to clear narrative queue: %w", err)
	}
	return nil
}

func decodeEntries(raw []string) ([]narrative.Entry, error) {
	entries := make([]narrative.Entry, 0, len(raw))
	for _, r := range raw {
		var e narrative.Entry
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			return nil, fmt.Errorf("failed to parse narrative entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
