package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jwebster45206/campaign-engine/internal/journal"
	"github.com/jwebster45206/campaign-engine/pkg/campaign"
	"github.com/jwebster45206/campaign-engine/pkg/narrative"
	"github.com/jwebster45206/campaign-engine/pkg/objective"
	"github.com/jwebster45206/campaign-engine/pkg/queue"
	"github.com/jwebster45206/campaign-engine/pkg/state"
	"github.com/jwebster45206/campaign-engine/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueue struct {
	mu       sync.Mutex
	requests []*queue.Request
	err      error
}

func (q *fakeQueue) Enqueue(ctx context.Context, req *queue.Request) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.requests = append(q.requests, req)
	return nil
}

func (q *fakeQueue) last(t *testing.T) *queue.Request {
	t.Helper()
	q.mu.Lock()
	defer q.mu.Unlock()
	require.NotEmpty(t, q.requests)
	return q.requests[len(q.requests)-1]
}

type fakeAnnouncer struct {
	queued []string
}

func (a *fakeAnnouncer) PublishRequestQueued(ctx context.Context, id uuid.UUID, requestID string, requestType string) error {
	a.queued = append(a.queued, requestType)
	return nil
}

type fakeNarrative struct {
	entries map[uuid.UUID][]narrative.Entry
	cleared []uuid.UUID
}

func (n *fakeNarrative) Drain(ctx context.Context, id uuid.UUID) ([]narrative.Entry, error) {
	out := n.entries[id]
	delete(n.entries, id)
	if out == nil {
		out = []narrative.Entry{}
	}
	return out, nil
}

func (n *fakeNarrative) Clear(ctx context.Context, id uuid.UUID) error {
	n.cleared = append(n.cleared, id)
	return nil
}

type fakeJournal struct {
	entries []journal.Entry
	limit   int
	deleted []uuid.UUID
}

func (j *fakeJournal) List(ctx context.Context, id uuid.UUID, limit int) ([]journal.Entry, error) {
	j.limit = limit
	return j.entries, nil
}

func (j *fakeJournal) Delete(ctx context.Context, id uuid.UUID) error {
	j.deleted = append(j.deleted, id)
	return nil
}

type campaignFixture struct {
	handler   *CampaignHandler
	storage   *storage.MockStorage
	queue     *fakeQueue
	announcer *fakeAnnouncer
	narrative *fakeNarrative
	journal   *fakeJournal
}

func newCampaignFixture(t *testing.T) *campaignFixture {
	t.Helper()
	f := &campaignFixture{
		storage:   storage.NewMockStorage(),
		queue:     &fakeQueue{},
		announcer: &fakeAnnouncer{},
		narrative: &fakeNarrative{entries: make(map[uuid.UUID][]narrative.Entry)},
		journal:   &fakeJournal{},
	}
	f.handler = NewCampaignHandler(CampaignOptions{
		Storage:   f.storage,
		Requests:  f.queue,
		Announcer: f.announcer,
		Narrative: f.narrative,
		Journal:   f.journal,
		Logger:    testLogger(),
	})
	return f
}

// seed stores a started campaign and returns its id
func (f *campaignFixture) seed(t *testing.T) uuid.UUID {
	t.Helper()
	id := uuid.New()
	c := campaign.New(id, campaign.Options{Logger: testLogger()})
	require.NoError(t, c.Start(1))
	c.Advance(3)
	require.NoError(t, f.storage.SaveCampaign(context.Background(), id, c.Save()))
	return id
}

func (f *campaignFixture) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func TestCampaignHandler_Create(t *testing.T) {
	f := newCampaignFixture(t)

	w := f.do(http.MethodPost, "/v1/campaign", nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var resp AcceptedResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.NotEqual(t, uuid.Nil, resp.CampaignID)
	assert.NotEmpty(t, resp.RequestID)

	req := f.queue.last(t)
	assert.Equal(t, queue.RequestTypeStart, req.Type)
	assert.Equal(t, 1, req.Level, "level defaults to 1")
	assert.Equal(t, resp.CampaignID, req.CampaignID)
	assert.Equal(t, []string{"start"}, f.announcer.queued)

	w = f.do(http.MethodPost, "/v1/campaign", CreateCampaignRequest{Level: 3})
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 3, f.queue.last(t).Level)

	w = f.do(http.MethodPost, "/v1/campaign", CreateCampaignRequest{Level: -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCampaignHandler_CreateQueueFailure(t *testing.T) {
	f := newCampaignFixture(t)
	f.queue.err = errors.New("redis gone")

	w := f.do(http.MethodPost, "/v1/campaign", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Empty(t, f.announcer.queued)
}

func TestCampaignHandler_Read(t *testing.T) {
	f := newCampaignFixture(t)
	id := f.seed(t)

	w := f.do(http.MethodGet, "/v1/campaign/"+id.String(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var view CampaignView
	require.NoError(t, json.NewDecoder(w.Body).Decode(&view))
	assert.Equal(t, id, view.ID)
	assert.Equal(t, 1, view.Level)
	assert.Equal(t, 3, view.GameHour)
	assert.False(t, view.Ended)
	for _, o := range view.Objectives {
		assert.True(t, o.Visible, "only shown objectives are listed")
	}

	w = f.do(http.MethodGet, "/v1/campaign/"+uuid.New().String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodGet, "/v1/campaign/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPut, "/v1/campaign/"+id.String(), nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "GET, DELETE", w.Header().Get("Allow"))
}

func TestCampaignHandler_Delete(t *testing.T) {
	f := newCampaignFixture(t)
	id := f.seed(t)

	w := f.do(http.MethodDelete, "/v1/campaign/"+id.String(), nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	snap, err := f.storage.LoadCampaign(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, snap)
	assert.Equal(t, []uuid.UUID{id}, f.narrative.cleared)
	assert.Equal(t, []uuid.UUID{id}, f.journal.deleted)
}

func TestCampaignHandler_QueuedCommands(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		body     interface{}
		wantType queue.RequestType
		check    func(t *testing.T, req *queue.Request)
	}{
		{
			name:     "advance",
			path:     "/advance",
			body:     AdvanceRequest{Hours: 4},
			wantType: queue.RequestTypeAdvance,
			check:    func(t *testing.T, req *queue.Request) { assert.Equal(t, 4, req.Hours) },
		},
		{
			name:     "event",
			path:     "/events",
			body:     map[string]interface{}{"event": map[string]interface{}{"kind": "fleet_at_planet", "fleet": 2, "planet": "Hiroshima"}},
			wantType: queue.RequestTypeEvent,
			check: func(t *testing.T, req *queue.Request) {
				require.NotNil(t, req.Event)
				assert.Equal(t, "Hiroshima", req.Event.Planet)
			},
		},
		{
			name:     "reset",
			path:     "/reset",
			wantType: queue.RequestTypeReset,
		},
		{
			name:     "narrative complete",
			path:     "/narrative/Intro/complete",
			body:     NarrativeCompleteRequest{Kind: narrative.KindMessage},
			wantType: queue.RequestTypeNarrativeComplete,
			check: func(t *testing.T, req *queue.Request) {
				assert.Equal(t, "Intro", req.NarrativeID)
				assert.Equal(t, narrative.KindMessage, req.NarrativeKind)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCampaignFixture(t)
			id := f.seed(t)

			w := f.do(http.MethodPost, "/v1/campaign/"+id.String()+tt.path, tt.body)
			require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

			req := f.queue.last(t)
			assert.Equal(t, tt.wantType, req.Type)
			assert.Equal(t, id, req.CampaignID)
			if tt.check != nil {
				tt.check(t, req)
			}
		})
	}
}

func TestCampaignHandler_RejectsInvalidCommands(t *testing.T) {
	f := newCampaignFixture(t)
	id := f.seed(t)
	base := "/v1/campaign/" + id.String()

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, base+"/advance", AdvanceRequest{}).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, base+"/advance", AdvanceRequest{Hours: -2}).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, base+"/events",
		map[string]interface{}{"event": map[string]interface{}{"kind": "no_such_event"}}).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, base+"/narrative/Intro/complete",
		NarrativeCompleteRequest{Kind: narrative.KindAchievement}).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, f.do(http.MethodGet, base+"/advance", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, base+"/teleport", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/v1/campaign/"+uuid.New().String()+"/advance", AdvanceRequest{Hours: 1}).Code)
	assert.Empty(t, f.queue.requests)
}

func TestCampaignHandler_EndedCampaignOnlyAcceptsReset(t *testing.T) {
	f := newCampaignFixture(t)
	id := uuid.New()
	snap := state.NewSnapshot(id)
	snap.Level = 1
	snap.Outcome = narrative.Outcome{GameOver: true}
	require.NoError(t, f.storage.SaveCampaign(context.Background(), id, snap))

	base := "/v1/campaign/" + id.String()
	assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, base+"/advance", AdvanceRequest{Hours: 1}).Code)
	assert.Equal(t, http.StatusAccepted, f.do(http.MethodPost, base+"/reset", nil).Code)
}

func TestCampaignHandler_Narrative(t *testing.T) {
	f := newCampaignFixture(t)
	id := f.seed(t)
	f.narrative.entries[id] = []narrative.Entry{{Kind: narrative.KindMessage, ID: "Intro"}}

	w := f.do(http.MethodGet, "/v1/campaign/"+id.String()+"/narrative", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Entries []narrative.Entry `json:"entries"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Len(t, body.Entries, 1)
	assert.Equal(t, "Intro", body.Entries[0].ID)

	w = f.do(http.MethodGet, "/v1/campaign/"+id.String()+"/narrative", nil)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Empty(t, body.Entries, "drain empties the queue")
}

func TestCampaignHandler_Journal(t *testing.T) {
	f := newCampaignFixture(t)
	id := f.seed(t)
	f.journal.entries = []journal.Entry{{Seq: 1, CampaignID: id, Objective: "Scout", From: objective.StateActive, To: objective.StateSuccess}}

	w := f.do(http.MethodGet, "/v1/campaign/"+id.String()+"/journal?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, f.journal.limit)

	var body struct {
		Entries []journal.Entry `json:"entries"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Len(t, body.Entries, 1)
	assert.Equal(t, "Scout", body.Entries[0].Objective)

	w = f.do(http.MethodGet, "/v1/campaign/"+id.String()+"/journal?limit=x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
