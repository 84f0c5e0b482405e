package queue

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/campaign-engine/pkg/mission"
	"github.com/jwebster45206/campaign-engine/pkg/narrative"
)

func TestRequest_JSONRoundTrip(t *testing.T) {
	ev := mission.FleetAtPlanet(4, "Achilles")
	req := &Request{
		RequestID:  "req-1",
		Type:       RequestTypeEvent,
		CampaignID: uuid.New(),
		Event:      &ev,
		EnqueuedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	data, err := req.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	for _, want := range []string{`"campaign_id":"` + req.CampaignID.String() + `"`, `"kind":"fleet_at_planet"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("Expected %s in %s", want, data)
		}
	}

	decoded, err := FromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if decoded.CampaignID != req.CampaignID || decoded.Type != RequestTypeEvent {
		t.Errorf("Expected %s %s, got %s %s", req.Type, req.CampaignID, decoded.Type, decoded.CampaignID)
	}
	if decoded.Event == nil || *decoded.Event != ev {
		t.Errorf("Expected event %+v, got %+v", ev, decoded.Event)
	}
	if !req.EnqueuedAt.Equal(decoded.EnqueuedAt) {
		t.Errorf("Expected enqueued_at %v, got %v", req.EnqueuedAt, decoded.EnqueuedAt)
	}
}

func TestFromJSON_InvalidCampaignID(t *testing.T) {
	if _, err := FromJSON([]byte(`{"request_id":"x","type":"advance","campaign_id":"nope"}`)); err == nil {
		t.Fatal("expected error for malformed campaign id")
	}
}

func TestRequest_Validate(t *testing.T) {
	id := uuid.New()
	bad := mission.Event{Kind: mission.KindFleetAtPlanet}
	good := mission.NewDay()

	tests := []struct {
		name    string
		req     Request
		wantErr string
	}{
		{"missing campaign", Request{Type: RequestTypeReset}, "campaign_id is required"},
		{"start level zero", Request{Type: RequestTypeStart, CampaignID: id}, "level must be at least 1"},
		{"start ok", Request{Type: RequestTypeStart, CampaignID: id, Level: 1}, ""},
		{"advance empty", Request{Type: RequestTypeAdvance, CampaignID: id}, "advance needs hours or millis"},
		{"advance negative", Request{Type: RequestTypeAdvance, CampaignID: id, Hours: -1}, "cannot be negative"},
		{"advance ok", Request{Type: RequestTypeAdvance, CampaignID: id, Millis: 500}, ""},
		{"event missing", Request{Type: RequestTypeEvent, CampaignID: id}, "event is required"},
		{"event invalid", Request{Type: RequestTypeEvent, CampaignID: id, Event: &bad}, "requires fleet and planet"},
		{"event ok", Request{Type: RequestTypeEvent, CampaignID: id, Event: &good}, ""},
		{"narrative missing id", Request{Type: RequestTypeNarrativeComplete, CampaignID: id}, "narrative_id is required"},
		{"narrative bad kind", Request{Type: RequestTypeNarrativeComplete, CampaignID: id, NarrativeID: "V", NarrativeKind: narrative.KindWin}, "cannot be completed"},
		{"narrative ok", Request{Type: RequestTypeNarrativeComplete, CampaignID: id, NarrativeID: "V", NarrativeKind: narrative.KindVideo}, ""},
		{"reset ok", Request{Type: RequestTypeReset, CampaignID: id}, ""},
		{"unknown type", Request{Type: "chat", CampaignID: id}, "unknown request type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
