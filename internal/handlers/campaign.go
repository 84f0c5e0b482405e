package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/campaign-engine/internal/journal"
	"github.com/jwebster45206/campaign-engine/pkg/mission"
	"github.com/jwebster45206/campaign-engine/pkg/narrative"
	"github.com/jwebster45206/campaign-engine/pkg/objective"
	"github.com/jwebster45206/campaign-engine/pkg/queue"
	"github.com/jwebster45206/campaign-engine/pkg/storage"
	"github.com/jwebster45206/campaign-engine/pkg/timer"
)

// RequestEnqueuer puts requests on the worker queue
type RequestEnqueuer interface {
	Enqueue(ctx context.Context, req *queue.Request) error
}

// RequestAnnouncer tells live subscribers that a request was queued
type RequestAnnouncer interface {
	PublishRequestQueued(ctx context.Context, campaignID uuid.UUID, requestID string, requestType string) error
}

// NarrativeReader hands queued narrative entries to the UI
type NarrativeReader interface {
	Drain(ctx context.Context, campaignID uuid.UUID) ([]narrative.Entry, error)
	Clear(ctx context.Context, campaignID uuid.UUID) error
}

// JournalReader exposes journaled objective transitions
type JournalReader interface {
	List(ctx context.Context, campaignID uuid.UUID, limit int) ([]journal.Entry, error)
	Delete(ctx context.Context, campaignID uuid.UUID) error
}

// CampaignOptions wires the campaign handler. Announcer, Narrative and Journal are optional.
type CampaignOptions struct {
	Storage   storage.Storage
	Requests  RequestEnqueuer
	Announcer RequestAnnouncer
	Narrative NarrativeReader
	Journal   JournalReader
	Logger    *slog.Logger
	Now       func() time.Time
}

type CampaignHandler struct {
	storage   storage.Storage
	requests  RequestEnqueuer
	announcer RequestAnnouncer
	narrative NarrativeReader
	journal   JournalReader
	logger    *slog.Logger
	now       func() time.Time
}

func NewCampaignHandler(opts CampaignOptions) *CampaignHandler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &CampaignHandler{
		storage:   opts.Storage,
		requests:  opts.Requests,
		announcer: opts.Announcer,
		narrative: opts.Narrative,
		journal:   opts.Journal,
		logger:    opts.Logger,
		now:       opts.Now,
	}
}

// CreateCampaignRequest defines the request body for creating a campaign
type CreateCampaignRequest struct {
	Level int `json:"level,omitempty"`
}

// AdvanceRequest defines the request body for advancing time
type AdvanceRequest struct {
	Hours  int   `json:"hours"`
	Millis int64 `json:"millis"`
}

// EventRequest wraps a host event
type EventRequest struct {
	Event *mission.Event `json:"event"`
}

// NarrativeCompleteRequest names the kind of the completed narrative beat
type NarrativeCompleteRequest struct {
	Kind narrative.Kind `json:"kind"`
}

// AcceptedResponse is returned for queued requests
type AcceptedResponse struct {
	CampaignID uuid.UUID `json:"campaign_id"`
	RequestID  string    `json:"request_id"`
	Type       string    `json:"type"`
}

// CampaignView is the player-facing summary of a stored campaign
type CampaignView struct {
	ID         uuid.UUID             `json:"id"`
	Catalog    string                `json:"catalog"`
	Level      int                   `json:"level"`
	GameHour   int                   `json:"game_hour"`
	Ended      bool                  `json:"ended"`
	GameOver   bool                  `json:"game_over"`
	Won        bool                  `json:"won"`
	Objectives []objective.Objective `json:"objectives"`
	Timers     []timer.Entry         `json:"timers"`
	SavedAt    time.Time             `json:"saved_at"`
}

// ServeHTTP handles HTTP requests for campaign operations
// Routes:
// POST   /v1/campaign                                   - Create and start a campaign
// GET    /v1/campaign/{id}                              - Read campaign summary
// DELETE /v1/campaign/{id}                              - Delete campaign
// POST   /v1/campaign/{id}/advance                      - Advance game time
// POST   /v1/campaign/{id}/events                       - Deliver a host event
// POST   /v1/campaign/{id}/reset                        - Restart the current level
// POST   /v1/campaign/{id}/narrative/{narrativeID}/complete - Finish a video or message
// GET    /v1/campaign/{id}/narrative                    - Drain queued narrative entries
// GET    /v1/campaign/{id}/journal                      - List objective transitions
func (h *CampaignHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/campaign"), "/")
	if path == "" {
		if r.Method != http.MethodPost {
			h.methodNotAllowed(w, r, "POST")
			return
		}
		h.handleCreate(w, r)
		return
	}

	parts := strings.Split(path, "/")
	id, err := uuid.Parse(parts[0])
	if err != nil {
		h.logger.Warn("Invalid campaign ID", "id", parts[0], "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid campaign ID format")
		return
	}

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			h.handleRead(w, r, id)
		case http.MethodDelete:
			h.handleDelete(w, r, id)
		default:
			h.methodNotAllowed(w, r, "GET, DELETE")
		}
	case len(parts) == 2 && parts[1] == "advance":
		h.post(w, r, id, false, h.handleAdvance)
	case len(parts) == 2 && parts[1] == "events":
		h.post(w, r, id, false, h.handleEvent)
	case len(parts) == 2 && parts[1] == "reset":
		h.post(w, r, id, true, h.handleReset)
	case len(parts) == 2 && parts[1] == "narrative":
		if r.Method != http.MethodGet {
			h.methodNotAllowed(w, r, "GET")
			return
		}
		h.handleNarrative(w, r, id)
	case len(parts) == 4 && parts[1] == "narrative" && parts[3] == "complete":
		h.post(w, r, id, false, func(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
			h.handleNarrativeComplete(w, r, id, parts[2])
		})
	case len(parts) == 2 && parts[1] == "journal":
		if r.Method != http.MethodGet {
			h.methodNotAllowed(w, r, "GET")
			return
		}
		h.handleJournal(w, r, id)
	default:
		writeError(w, h.logger, http.StatusNotFound, "Unknown campaign route")
	}
}

func (h *CampaignHandler) methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed string) {
	h.logger.Warn("Method not allowed for campaign endpoint", "method", r.Method, "path", r.URL.Path)
	w.Header().Set("Allow", allowed)
	writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: "+allowed)
}

// post checks the method and that the campaign exists before running fn.
// Only a reset may target a campaign that has already ended.
func (h *CampaignHandler) post(w http.ResponseWriter, r *http.Request, id uuid.UUID, allowEnded bool, fn func(http.ResponseWriter, *http.Request, uuid.UUID)) {
	if r.Method != http.MethodPost {
		h.methodNotAllowed(w, r, "POST")
		return
	}
	snap, err := h.storage.LoadCampaign(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to load campaign", "campaign_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load campaign")
		return
	}
	if snap == nil {
		writeError(w, h.logger, http.StatusNotFound, "Campaign not found")
		return
	}
	if snap.Ended() && !allowEnded {
		writeError(w, h.logger, http.StatusConflict, "Campaign has ended")
		return
	}
	fn(w, r, id)
}

func (h *CampaignHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var body CreateCampaignRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			h.logger.Warn("Invalid create campaign body", "error", err)
			writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	if body.Level == 0 {
		body.Level = 1
	}
	h.enqueue(w, r, &queue.Request{
		Type:       queue.RequestTypeStart,
		CampaignID: uuid.New(),
		Level:      body.Level,
	})
}

func (h *CampaignHandler) handleAdvance(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var body AdvanceRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body. Expected JSON with 'hours' or 'millis'.")
		return
	}
	h.enqueue(w, r, &queue.Request{
		Type:       queue.RequestTypeAdvance,
		CampaignID: id,
		Hours:      body.Hours,
		Millis:     body.Millis,
	})
}

func (h *CampaignHandler) handleEvent(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var body EventRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid event: "+err.Error())
		return
	}
	h.enqueue(w, r, &queue.Request{
		Type:       queue.RequestTypeEvent,
		CampaignID: id,
		Event:      body.Event,
	})
}

func (h *CampaignHandler) handleReset(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	h.enqueue(w, r, &queue.Request{
		Type:       queue.RequestTypeReset,
		CampaignID: id,
	})
}

func (h *CampaignHandler) handleNarrativeComplete(w http.ResponseWriter, r *http.Request, id uuid.UUID, narrativeID string) {
	body := NarrativeCompleteRequest{Kind: narrative.KindVideo}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, h.logger, http.StatusBadRequest, "Invalid request body: "+err.Error())
			return
		}
	}
	h.enqueue(w, r, &queue.Request{
		Type:          queue.RequestTypeNarrativeComplete,
		CampaignID:    id,
		NarrativeID:   narrativeID,
		NarrativeKind: body.Kind,
	})
}

// enqueue validates and queues a request, answering 202 with the request id
func (h *CampaignHandler) enqueue(w http.ResponseWriter, r *http.Request, req *queue.Request) {
	req.RequestID = uuid.New().String()
	req.EnqueuedAt = h.now().UTC()
	if err := req.Validate(); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.requests.Enqueue(r.Context(), req); err != nil {
		h.logger.Error("Failed to enqueue request", "error", err, "campaign_id", req.CampaignID, "type", req.Type)
		writeError(w, h.logger, http.StatusServiceUnavailable, "Failed to queue request")
		return
	}
	if h.announcer != nil {
		if err := h.announcer.PublishRequestQueued(r.Context(), req.CampaignID, req.RequestID, string(req.Type)); err != nil {
			h.logger.Error("Failed to publish queued event", "error", err)
		}
	}

	h.logger.Info("Request queued", "campaign_id", req.CampaignID, "request_id", req.RequestID, "type", req.Type)
	writeJSON(w, h.logger, http.StatusAccepted, AcceptedResponse{
		CampaignID: req.CampaignID,
		RequestID:  req.RequestID,
		Type:       string(req.Type),
	})
}

func (h *CampaignHandler) handleRead(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	snap, err := h.storage.LoadCampaign(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to load campaign", "campaign_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load campaign")
		return
	}
	if snap == nil {
		writeError(w, h.logger, http.StatusNotFound, "Campaign not found")
		return
	}

	view := CampaignView{
		ID:         snap.ID,
		Catalog:    snap.Catalog,
		Level:      snap.Level,
		GameHour:   snap.GameHour,
		Ended:      snap.Ended(),
		GameOver:   snap.Outcome.GameOver,
		Won:        snap.Outcome.Won,
		Objectives: []objective.Objective{},
		Timers:     snap.Timers.Missions,
		SavedAt:    snap.SavedAt,
	}
	for _, o := range snap.Objectives {
		if o.Visible {
			view.Objectives = append(view.Objectives, o)
		}
	}
	writeJSON(w, h.logger, http.StatusOK, view)
}

func (h *CampaignHandler) handleDelete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.storage.DeleteCampaign(r.Context(), id); err != nil {
		h.logger.Error("Failed to delete campaign", "campaign_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to delete campaign")
		return
	}
	if h.narrative != nil {
		if err := h.narrative.Clear(r.Context(), id); err != nil {
			h.logger.Error("Failed to clear narrative queue", "campaign_id", id, "error", err)
		}
	}
	if h.journal != nil {
		if err := h.journal.Delete(r.Context(), id); err != nil {
			h.logger.Error("Failed to delete journal", "campaign_id", id, "error", err)
		}
	}
	h.logger.Info("Campaign deleted", "campaign_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *CampaignHandler) handleNarrative(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if h.narrative == nil {
		writeError(w, h.logger, http.StatusNotImplemented, "Narrative queue is not configured")
		return
	}
	entries, err := h.narrative.Drain(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to drain narrative", "campaign_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to read narrative")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"campaign_id": id,
		"entries":     entries,
	})
}

func (h *CampaignHandler) handleJournal(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if h.journal == nil {
		writeError(w, h.logger, http.StatusNotImplemented, "Journal is not configured")
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, h.logger, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	entries, err := h.journal.List(r.Context(), id, limit)
	if err != nil {
		h.logger.Error("Failed to list journal", "campaign_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to read journal")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"campaign_id": id,
		"entries":     entries,
	})
}
