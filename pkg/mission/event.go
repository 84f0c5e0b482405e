package mission

import (
	"encoding/json"
	"fmt"

	"github.com/jwebster45206/campaign-engine/pkg/world"
)

// Kind identifies the type of a game event delivered to mission units.
type Kind int

const (
	KindTime Kind = iota + 1
	KindNewDay
	KindFleetAtPlanet
	KindFleetAtFleet
	KindFleetAtPoint
	KindFleetDeployed
	KindFleetDestroyed
	KindSpacewarStart
	KindSpacewarFinish
	KindAutobattleStart
	KindAutobattleFinish
	KindGroundwarStart
	KindGroundwarFinish
	KindConquered
	KindLost
	KindColonized
	KindPlanetInfected
	KindPlanetCured
	KindPlanetDiscovered
	KindBuildingComplete
	KindResearchComplete
	KindProductionComplete
	KindMessageSeen
	KindTalkCompleted
	KindVideoComplete
	KindLevelChanged
	KindPlayerEliminated
	KindStanceChanged
	KindLoaded
	KindReset
)

var kindNames = map[Kind]string{
	KindTime:               "time",
	KindNewDay:             "new_day",
	KindFleetAtPlanet:      "fleet_at_planet",
	KindFleetAtFleet:       "fleet_at_fleet",
	KindFleetAtPoint:       "fleet_at_point",
	KindFleetDeployed:      "fleet_deployed",
	KindFleetDestroyed:     "fleet_destroyed",
	KindSpacewarStart:      "spacewar_start",
	KindSpacewarFinish:     "spacewar_finish",
	KindAutobattleStart:    "autobattle_start",
	KindAutobattleFinish:   "autobattle_finish",
	KindGroundwarStart:     "groundwar_start",
	KindGroundwarFinish:    "groundwar_finish",
	KindConquered:          "conquered",
	KindLost:               "lost",
	KindColonized:          "colonized",
	KindPlanetInfected:     "planet_infected",
	KindPlanetCured:        "planet_cured",
	KindPlanetDiscovered:   "planet_discovered",
	KindBuildingComplete:   "building_complete",
	KindResearchComplete:   "research_complete",
	KindProductionComplete: "production_complete",
	KindMessageSeen:        "message_seen",
	KindTalkCompleted:      "talk_completed",
	KindVideoComplete:      "video_complete",
	KindLevelChanged:       "level_changed",
	KindPlayerEliminated:   "player_eliminated",
	KindStanceChanged:      "stance_changed",
	KindLoaded:             "loaded",
	KindReset:              "reset",
}

var kindValues = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		m[name] = k
	}
	return m
}()

// Kinds returns every event kind in declaration order
func Kinds() []Kind {
	out := make([]Kind, 0, len(kindNames))
	for k := KindTime; k <= KindReset; k++ {
		out = append(out, k)
	}
	return out
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind maps an event name onto a Kind
func ParseKind(s string) (Kind, error) {
	if k, ok := kindValues[s]; ok {
		return k, nil
	}
	return 0, fmt.Errorf("unknown event kind: %q", s)
}

func (k Kind) MarshalJSON() ([]byte, error) {
	name, ok := kindNames[k]
	if !ok {
		return nil, fmt.Errorf("unknown event kind: %d", int(k))
	}
	return json.Marshal(name)
}

func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// BattleResult is the observed outcome of a combat resolved outside the engine.
type BattleResult struct {
	Attacker  world.FleetID   `json:"attacker"`
	Defenders []world.FleetID `json:"defenders,omitempty"`
	Planet    string          `json:"planet,omitempty"`
	Winner    string          `json:"winner,omitempty"`
	Destroyed []world.FleetID `json:"destroyed,omitempty"`
}

// WasDestroyed reports whether the fleet was lost in the battle
func (b BattleResult) WasDestroyed(id world.FleetID) bool {
	for _, d := range b.Destroyed {
		if d == id {
			return true
		}
	}
	return false
}

// Event is a single game event. Which payload fields are set depends on Kind.
type Event struct {
	Kind   Kind          `json:"kind"`
	Fleet  world.FleetID `json:"fleet,omitempty"`
	Other  world.FleetID `json:"other_fleet,omitempty"`
	Planet string        `json:"planet,omitempty"`
	Player string        `json:"player,omitempty"`
	Target string        `json:"target,omitempty"` // second player of a stance change
	ID     string        `json:"id,omitempty"`     // message, video, dialogue, building, research or product
	X      float64       `json:"x,omitempty"`
	Y      float64       `json:"y,omitempty"`
	Level  int           `json:"level,omitempty"`
	Stance int           `json:"stance,omitempty"`
	Battle *BattleResult `json:"battle,omitempty"`
}

func (e Event) String() string {
	return e.Kind.String()
}

// Validate checks the payload fields required by the event kind are present
func (e Event) Validate() error {
	switch e.Kind {
	case KindTime, KindNewDay, KindLoaded, KindReset:
	case KindFleetAtPlanet, KindFleetDeployed:
		if e.Fleet == 0 || e.Planet == "" {
			return fmt.Errorf("%s requires fleet and planet", e.Kind)
		}
	case KindFleetAtFleet:
		if e.Fleet == 0 || e.Other == 0 {
			return fmt.Errorf("%s requires fleet and other_fleet", e.Kind)
		}
	case KindFleetAtPoint, KindFleetDestroyed:
		if e.Fleet == 0 {
			return fmt.Errorf("%s requires fleet", e.Kind)
		}
	case KindSpacewarStart, KindSpacewarFinish, KindAutobattleStart, KindAutobattleFinish:
		if e.Battle == nil {
			return fmt.Errorf("%s requires battle", e.Kind)
		}
	case KindGroundwarStart, KindGroundwarFinish, KindPlanetInfected, KindPlanetCured:
		if e.Planet == "" {
			return fmt.Errorf("%s requires planet", e.Kind)
		}
	case KindConquered, KindLost, KindColonized, KindPlanetDiscovered:
		if e.Planet == "" || e.Player == "" {
			return fmt.Errorf("%s requires planet and player", e.Kind)
		}
	case KindBuildingComplete, KindProductionComplete:
		if e.Planet == "" || e.ID == "" {
			return fmt.Errorf("%s requires planet and id", e.Kind)
		}
	case KindResearchComplete, KindMessageSeen, KindTalkCompleted, KindVideoComplete:
		if e.ID == "" {
			return fmt.Errorf("%s requires id", e.Kind)
		}
	case KindLevelChanged:
		if e.Level <= 0 {
			return fmt.Errorf("%s requires a positive level", e.Kind)
		}
	case KindPlayerEliminated:
		if e.Player == "" {
			return fmt.Errorf("%s requires player", e.Kind)
		}
	case KindStanceChanged:
		if e.Player == "" || e.Target == "" {
			return fmt.Errorf("%s requires player and target", e.Kind)
		}
	default:
		return fmt.Errorf("unknown event kind: %d", int(e.Kind))
	}
	return nil
}

func Time() Event   { return Event{Kind: KindTime} }
func NewDay() Event { return Event{Kind: KindNewDay} }
func Loaded() Event { return Event{Kind: KindLoaded} }
func Reset() Event  { return Event{Kind: KindReset} }

func FleetAtPlanet(fleet world.FleetID, planet string) Event {
	return Event{Kind: KindFleetAtPlanet, Fleet: fleet, Planet: planet}
}

func FleetAtFleet(fleet, other world.FleetID) Event {
	return Event{Kind: KindFleetAtFleet, Fleet: fleet, Other: other}
}

func FleetAtPoint(fleet world.FleetID, x, y float64) Event {
	return Event{Kind: KindFleetAtPoint, Fleet: fleet, X: x, Y: y}
}

func FleetDestroyed(fleet world.FleetID) Event {
	return Event{Kind: KindFleetDestroyed, Fleet: fleet}
}

func SpacewarFinish(result BattleResult) Event {
	return Event{Kind: KindSpacewarFinish, Battle: &result, Planet: result.Planet}
}

func AutobattleFinish(result BattleResult) Event {
	return Event{Kind: KindAutobattleFinish, Battle: &result, Planet: result.Planet}
}

func Conquered(planet, player string) Event {
	return Event{Kind: KindConquered, Planet: planet, Player: player}
}

// Lost reports that player no longer owns planet
func Lost(planet, player string) Event {
	return Event{Kind: KindLost, Planet: planet, Player: player}
}

func BuildingComplete(planet, building string) Event {
	return Event{Kind: KindBuildingComplete, Planet: planet, ID: building}
}

func ResearchComplete(player, research string) Event {
	return Event{Kind: KindResearchComplete, Player: player, ID: research}
}

func MessageSeen(id string) Event   { return Event{Kind: KindMessageSeen, ID: id} }
func TalkCompleted(id string) Event { return Event{Kind: KindTalkCompleted, ID: id} }
func VideoComplete(id string) Event { return Event{Kind: KindVideoComplete, ID: id} }

func LevelChanged(level int) Event {
	return Event{Kind: KindLevelChanged, Level: level}
}

func PlayerEliminated(player string) Event {
	return Event{Kind: KindPlayerEliminated, Player: player}
}
