package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jwebster45206/campaign-engine/pkg/narrative"
	"github.com/jwebster45206/campaign-engine/pkg/objective"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupBroadcaster(t *testing.T) (*Broadcaster, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewBroadcaster(rdb, logger), mr
}

func receive(t *testing.T, ch <-chan *redis.Message) Event {
	t.Helper()
	select {
	case msg := <-ch:
		var ev Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestBroadcaster_PublishesToCampaignChannel(t *testing.T) {
	b, _ := setupBroadcaster(t)
	ctx := context.Background()
	id := uuid.New()

	sub := b.Subscribe(ctx, id)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)
	ch := sub.Channel()

	require.NoError(t, b.PublishRequestQueued(ctx, id, "req-1", "advance"))
	ev := receive(t, ch)
	assert.Equal(t, EventTypeRequestQueued, ev.Type)
	assert.Equal(t, "req-1", ev.RequestID)
	assert.Equal(t, id.String(), ev.CampaignID)
	assert.Equal(t, "advance", ev.Data["type"])

	require.NoError(t, b.PublishObjectiveChanged(ctx, id, objective.Change{
		ID: "Mission-1", From: objective.StateActive, To: objective.StateSuccess, Visible: true, GameHour: 49,
	}))
	ev = receive(t, ch)
	assert.Equal(t, EventTypeObjectiveChanged, ev.Type)
	assert.Equal(t, "Mission-1", ev.Data["objective"])
	assert.Equal(t, "success", ev.Data["to"])
	assert.Equal(t, float64(49), ev.Data["game_hour"])

	require.NoError(t, b.PublishNarrativeEntry(ctx, id, narrative.Entry{Seq: 3, Kind: narrative.KindVideo, ID: "Video-Armada", AwaitsCompletion: true}))
	ev = receive(t, ch)
	assert.Equal(t, EventTypeNarrativeEntry, ev.Type)
	assert.Equal(t, "video", ev.Data["kind"])
	assert.Equal(t, true, ev.Data["awaits_completion"])

	require.NoError(t, b.PublishCampaignUpdated(ctx, id, 2, 30, false))
	ev = receive(t, ch)
	assert.Equal(t, EventTypeCampaignUpdated, ev.Type)
	assert.Equal(t, float64(2), ev.Data["level"])

	require.NoError(t, b.PublishRequestFailed(ctx, id, "req-2", "boom"))
	ev = receive(t, ch)
	assert.Equal(t, EventTypeRequestFailed, ev.Type)
	assert.Equal(t, "boom", ev.Data["error"])
}

func TestBroadcaster_OtherCampaignsDoNotReceive(t *testing.T) {
	b, _ := setupBroadcaster(t)
	ctx := context.Background()
	id := uuid.New()

	sub := b.Subscribe(ctx, id)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, b.PublishRequestCompleted(ctx, uuid.New(), "req-1", nil))

	select {
	case msg := <-sub.Channel():
		t.Fatalf("Unexpected message %v", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBroadcaster_PublishFailsWhenRedisDown(t *testing.T) {
	b, mr := setupBroadcaster(t)
	mr.Close()
	if err := b.PublishRequestProcessing(context.Background(), uuid.New(), "req", "event"); err == nil {
		t.Fatal("expected publish error")
	}
}
