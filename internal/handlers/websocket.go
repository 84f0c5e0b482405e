package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jwebster45206/campaign-engine/internal/logger"
	"github.com/jwebster45206/campaign-engine/pkg/mission"
	"github.com/jwebster45206/campaign-engine/pkg/narrative"
	"github.com/jwebster45206/campaign-engine/pkg/queue"
	"github.com/jwebster45206/campaign-engine/pkg/storage"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsReadTimeout  = 60 * time.Second
	wsOutboxSize   = 32
)

// Command is a client frame sent over the websocket
type Command struct {
	Type          queue.RequestType `json:"type"`
	Hours         int               `json:"hours,omitempty"`
	Millis        int64             `json:"millis,omitempty"`
	Event         *mission.Event    `json:"event,omitempty"`
	NarrativeID   string            `json:"narrative_id,omitempty"`
	NarrativeKind narrative.Kind    `json:"narrative_kind,omitempty"`
}

// Frame is a server frame sent over the websocket
type Frame struct {
	Type      string      `json:"type"`
	RequestID string      `json:"request_id,omitempty"`
	Error     string      `json:"error,omitempty"`
	Event     interface{} `json:"event,omitempty"`
}

// WebSocketHandler streams campaign events and accepts commands on one connection
// GET /v1/ws/campaign/{campaignID}
type WebSocketHandler struct {
	subscriber Subscriber
	requests   RequestEnqueuer
	storage    storage.Storage
	logger     *slog.Logger
	now        func() time.Time
	upgrader   websocket.Upgrader
}

func NewWebSocketHandler(subscriber Subscriber, requests RequestEnqueuer, store storage.Storage, log *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		subscriber: subscriber,
		requests:   requests,
		storage:    store,
		logger:     log,
		now:        time.Now,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	campaignID, err := campaignIDFromPath(r.URL.Path, "ws")
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	pubsub := h.subscriber.Subscribe(ctx, campaignID)
	defer func() {
		if err := pubsub.Close(); err != nil {
			h.logger.Error("Failed to close pubsub", "error", err)
		}
	}()
	if _, err := pubsub.Receive(ctx); err != nil {
		h.logger.Error("Failed to subscribe", "campaign_id", campaignID, "error", err)
		return
	}

	log := logger.WithCampaign(h.logger, campaignID)
	log.Info("Websocket connection established", "remote_addr", r.RemoteAddr)

	out := make(chan Frame, wsOutboxSize)
	out <- Frame{Type: "connected"}

	// Writer goroutine.
	done := make(chan struct{})
	go func() {
		defer close(done)
		msgs := pubsub.Channel()
		for {
			var frame Frame
			select {
			case <-ctx.Done():
				return
			case frame = <-out:
			case msg, ok := <-msgs:
				if !ok {
					cancel()
					return
				}
				frame = Frame{Type: "event", Event: json.RawMessage(msg.Payload)}
			}
			b, err := json.Marshal(frame)
			if err != nil {
				log.Error("Failed to marshal frame", "error", err)
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				cancel()
				return
			}
		}
	}()

	// Reader loop.
	for {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}
		reply := h.handleCommand(ctx, campaignID, msg)
		select {
		case out <- reply:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	cancel()
	<-done
	log.Info("Websocket client disconnected")
}

func (h *WebSocketHandler) handleCommand(ctx context.Context, campaignID uuid.UUID, msg []byte) Frame {
	var cmd Command
	if err := json.Unmarshal(msg, &cmd); err != nil {
		return Frame{Type: "error", Error: "invalid command: " + err.Error()}
	}
	if cmd.Type == queue.RequestTypeStart {
		return Frame{Type: "error", Error: "campaigns are started over HTTP"}
	}

	req := &queue.Request{
		RequestID:     uuid.New().String(),
		Type:          cmd.Type,
		CampaignID:    campaignID,
		Hours:         cmd.Hours,
		Millis:        cmd.Millis,
		Event:         cmd.Event,
		NarrativeID:   cmd.NarrativeID,
		NarrativeKind: cmd.NarrativeKind,
		EnqueuedAt:    h.now().UTC(),
	}
	if err := req.Validate(); err != nil {
		return Frame{Type: "error", Error: err.Error()}
	}
	snap, err := h.storage.LoadCampaign(ctx, campaignID)
	if err != nil {
		h.logger.Error("Failed to load campaign", "error", err, "campaign_id", campaignID)
		return Frame{Type: "error", Error: "failed to load campaign"}
	}
	if snap == nil {
		return Frame{Type: "error", Error: "campaign not found"}
	}
	// Only a reset may target a campaign that has already ended
	if snap.Ended() && cmd.Type != queue.RequestTypeReset {
		return Frame{Type: "error", Error: "campaign has ended"}
	}
	if err := h.requests.Enqueue(ctx, req); err != nil {
		h.logger.Error("Failed to enqueue websocket command", "error", err, "campaign_id", campaignID)
		return Frame{Type: "error", Error: "failed to queue request"}
	}
	return Frame{Type: "ack", RequestID: req.RequestID}
}
