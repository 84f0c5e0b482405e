package state

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/campaign-engine/pkg/mission"
	"github.com/jwebster45206/campaign-engine/pkg/narrative"
	"github.com/jwebster45206/campaign-engine/pkg/objective"
	"github.com/jwebster45206/campaign-engine/pkg/timer"
	"github.com/jwebster45206/campaign-engine/pkg/world"
)

// Version is the current snapshot document version
const Version = 1

// Snapshot is everything needed to resume a campaign run.
type Snapshot struct {
	Version    int                    `json:"version"`
	ID         uuid.UUID              `json:"id"`
	Catalog    string                 `json:"catalog"`
	Level      int                    `json:"level"`
	GameHour   int                    `json:"game_hour"`
	Objectives []objective.Objective  `json:"objectives"`
	Timers     timer.Snapshot         `json:"timers"`
	Scripted   []world.FleetID        `json:"scripted"`
	Units      map[string]mission.Doc `json:"units"`
	World      *world.MemorySnapshot  `json:"world"`
	Outcome    narrative.Outcome      `json:"outcome"`
	SavedAt    time.Time              `json:"saved_at"`
}

// NewSnapshot creates an empty snapshot for a campaign id
func NewSnapshot(id uuid.UUID) *Snapshot {
	return &Snapshot{
		Version:    Version,
		ID:         id,
		Objectives: []objective.Objective{},
		Timers:     timer.Snapshot{Missions: []timer.Entry{}, Timeouts: []timer.Entry{}},
		Scripted:   []world.FleetID{},
		Units:      make(map[string]mission.Doc),
	}
}

// Ended reports whether the run reached a terminal outcome
func (s *Snapshot) Ended() bool {
	return s.Outcome.GameOver || s.Outcome.Won
}

// Validate checks the snapshot against the document schema
func (s *Snapshot) Validate() error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return ValidateJSON(data)
}

// Parse validates raw JSON against the schema and decodes it
func Parse(data []byte) (*Snapshot, error) {
	if err := ValidateJSON(data); err != nil {
		return nil, err
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	if s.Version != Version {
		return nil, fmt.Errorf("unsupported snapshot version %d", s.Version)
	}
	if s.Units == nil {
		s.Units = make(map[string]mission.Doc)
	}
	return &s, nil
}
