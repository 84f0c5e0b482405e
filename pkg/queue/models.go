package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/campaign-engine/pkg/mission"
	"github.com/jwebster45206/campaign-engine/pkg/narrative"
)

// RequestType identifies the type of request in the queue
type RequestType string

const (
	// RequestTypeStart begins a new campaign at a level
	RequestTypeStart RequestType = "start"

	// RequestTypeAdvance moves game time forward and pulses wall-clock timeouts
	RequestTypeAdvance RequestType = "advance"

	// RequestTypeEvent delivers a host event to the mission roster
	RequestTypeEvent RequestType = "event"

	// RequestTypeNarrativeComplete reports that the player finished a video or read a message
	RequestTypeNarrativeComplete RequestType = "narrative_complete"

	// RequestTypeReset restarts the current level
	RequestTypeReset RequestType = "reset"
)

// Request represents a unified request in the queue
type Request struct {
	RequestID  string      `json:"request_id"`
	Type       RequestType `json:"type"`
	CampaignID uuid.UUID   `json:"campaign_id"`

	// Start-specific fields
	Level int `json:"level,omitempty"`

	// Advance-specific fields
	Hours  int   `json:"hours,omitempty"`
	Millis int64 `json:"millis,omitempty"`

	// Event-specific fields
	Event *mission.Event `json:"event,omitempty"`

	// Narrative completion fields
	NarrativeID   string         `json:"narrative_id,omitempty"`
	NarrativeKind narrative.Kind `json:"narrative_kind,omitempty"`

	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Validate checks the fields required by the request type
func (r *Request) Validate() error {
	if r.CampaignID == uuid.Nil {
		return fmt.Errorf("campaign_id is required")
	}
	switch r.Type {
	case RequestTypeStart:
		if r.Level < 1 {
			return fmt.Errorf("level must be at least 1")
		}
	case RequestTypeAdvance:
		if r.Hours < 0 || r.Millis < 0 {
			return fmt.Errorf("hours and millis cannot be negative")
		}
		if r.Hours == 0 && r.Millis == 0 {
			return fmt.Errorf("advance needs hours or millis")
		}
	case RequestTypeEvent:
		if r.Event == nil {
			return fmt.Errorf("event is required")
		}
		if err := r.Event.Validate(); err != nil {
			return err
		}
	case RequestTypeNarrativeComplete:
		if r.NarrativeID == "" {
			return fmt.Errorf("narrative_id is required")
		}
		switch r.NarrativeKind {
		case narrative.KindVideo, narrative.KindMessage, narrative.KindForced:
		default:
			return fmt.Errorf("narrative_kind %q cannot be completed", r.NarrativeKind)
		}
	case RequestTypeReset:
	default:
		return fmt.Errorf("unknown request type: %s", r.Type)
	}
	return nil
}

// MarshalJSON serializes the request to JSON for Redis storage
func (r *Request) MarshalJSON() ([]byte, error) {
	type Alias Request
	return json.Marshal(&struct {
		CampaignID string `json:"campaign_id"`
		*Alias
	}{
		CampaignID: r.CampaignID.String(),
		Alias:      (*Alias)(r),
	})
}

// UnmarshalJSON deserializes the request from JSON in Redis
func (r *Request) UnmarshalJSON(data []byte) error {
	type Alias Request
	aux := &struct {
		CampaignID string `json:"campaign_id"`
		*Alias
	}{
		Alias: (*Alias)(r),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	campaignID, err := uuid.Parse(aux.CampaignID)
	if err != nil {
		return err
	}

	r.CampaignID = campaignID
	return nil
}

// ToJSON converts the request to JSON bytes for Redis
func (r *Request) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// FromJSON parses a request from JSON bytes
func FromJSON(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}
