package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jwebster45206/campaign-engine/pkg/narrative"
	"github.com/jwebster45206/campaign-engine/pkg/objective"
	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeRequestQueued     EventType = "request.queued"
	EventTypeRequestProcessing EventType = "request.processing"
	EventTypeRequestCompleted  EventType = "request.completed"
	EventTypeRequestFailed     EventType = "request.failed"
	EventTypeCampaignUpdated   EventType = "campaign.updated"
	EventTypeObjectiveChanged  EventType = "objective.changed"
	EventTypeNarrativeEntry    EventType = "narrative.entry"
)

// Event represents a generic event structure
type Event struct {
	Type       EventType              `json:"type"`
	RequestID  string                 `json:"request_id,omitempty"`
	CampaignID string                 `json:"campaign_id,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

// Broadcaster publishes events to Redis Pub/Sub for SSE and websocket distribution
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// Channel returns the pub/sub channel of a campaign
func Channel(campaignID uuid.UUID) string {
	return fmt.Sprintf("campaign-events:%s", campaignID.String())
}

// Subscribe opens a subscription to a campaign's channel. Callers must Close it.
func (b *Broadcaster) Subscribe(ctx context.Context, campaignID uuid.UUID) *redis.PubSub {
	return b.redisClient.Subscribe(ctx, Channel(campaignID))
}

// PublishRequestQueued publishes a request.queued event
func (b *Broadcaster) PublishRequestQueued(ctx context.Context, campaignID uuid.UUID, requestID string, requestType string) error {
	event := Event{
		Type:       EventTypeRequestQueued,
		RequestID:  requestID,
		CampaignID: campaignID.String(),
		Data: map[string]interface{}{
			"status": "queued",
			"type":   requestType,
		},
	}
	return b.publishToCampaign(ctx, campaignID, event)
}

// PublishRequestProcessing publishes a request.processing event
func (b *Broadcaster) PublishRequestProcessing(ctx context.Context, campaignID uuid.UUID, requestID string, requestType string) error {
	event := Event{
		Type:       EventTypeRequestProcessing,
		RequestID:  requestID,
		CampaignID: campaignID.String(),
		Data: map[string]interface{}{
			"status": "processing",
			"type":   requestType,
		},
	}
	return b.publishToCampaign(ctx, campaignID, event)
}

// PublishRequestCompleted publishes a request.completed event
func (b *Broadcaster) PublishRequestCompleted(ctx context.Context, campaignID uuid.UUID, requestID string, result map[string]interface{}) error {
	event := Event{
		Type:       EventTypeRequestCompleted,
		RequestID:  requestID,
		CampaignID: campaignID.String(),
		Data: map[string]interface{}{
			"status": "completed",
			"result": result,
		},
	}
	return b.publishToCampaign(ctx, campaignID, event)
}

// PublishRequestFailed publishes a request.failed event
func (b *Broadcaster) PublishRequestFailed(ctx context.Context, campaignID uuid.UUID, requestID string, errorMsg string) error {
	event := Event{
		Type:       EventTypeRequestFailed,
		RequestID:  requestID,
		CampaignID: campaignID.String(),
		Data: map[string]interface{}{
			"status": "failed",
			"error":  errorMsg,
		},
	}
	return b.publishToCampaign(ctx, campaignID, event)
}

// PublishCampaignUpdated publishes a campaign.updated event
func (b *Broadcaster) PublishCampaignUpdated(ctx context.Context, campaignID uuid.UUID, level, gameHour int, ended bool) error {
	event := Event{
		Type:       EventTypeCampaignUpdated,
		CampaignID: campaignID.String(),
		Data: map[string]interface{}{
			"level":     level,
			"game_hour": gameHour,
			"ended":     ended,
		},
	}
	return b.publishToCampaign(ctx, campaignID, event)
}

// PublishObjectiveChanged publishes an objective.changed event
func (b *Broadcaster) PublishObjectiveChanged(ctx context.Context, campaignID uuid.UUID, ch objective.Change) error {
	event := Event{
		Type:       EventTypeObjectiveChanged,
		CampaignID: campaignID.String(),
		Data: map[string]interface{}{
			"objective": ch.ID,
			"from":      ch.From,
			"to":        ch.To,
			"visible":   ch.Visible,
			"game_hour": ch.GameHour,
		},
	}
	return b.publishToCampaign(ctx, campaignID, event)
}

// PublishNarrativeEntry publishes a narrative.entry event
func (b *Broadcaster) PublishNarrativeEntry(ctx context.Context, campaignID uuid.UUID, entry narrative.Entry) error {
	event := Event{
		Type:       EventTypeNarrativeEntry,
		CampaignID: campaignID.String(),
		Data: map[string]interface{}{
			"seq":               entry.Seq,
			"kind":              entry.Kind,
			"id":                entry.ID,
			"game_hour":         entry.GameHour,
			"awaits_completion": entry.AwaitsCompletion,
		},
	}
	return b.publishToCampaign(ctx, campaignID, event)
}

// publishToCampaign publishes an event to the campaign-specific channel
func (b *Broadcaster) publishToCampaign(ctx context.Context, campaignID uuid.UUID, event Event) error {
	channel := Channel(campaignID)

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event", event)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", event.Type,
		"request_id", event.RequestID,
	)

	return nil
}
