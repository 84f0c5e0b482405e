package world

import "sort"

// FleetID identifies a fleet. Ids come from a monotonically increasing sequence.
type FleetID int

// InventoryItem is a stack of ships or cargo carried by a fleet.
type InventoryItem struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
	Tag   string `json:"tag,omitempty"`
}

// Fleet is a group of ships owned by a player.
type Fleet struct {
	ID        FleetID         `json:"id"`
	Name      string          `json:"name"`
	Owner     string          `json:"owner"`
	X         float64         `json:"x"`
	Y         float64         `json:"y"`
	Inventory []InventoryItem `json:"inventory,omitempty"`
	Target    string          `json:"target,omitempty"` // planet the fleet is moving to
}

// HasTag reports whether any inventory item carries the tag
func (f Fleet) HasTag(tag string) bool {
	for _, it := range f.Inventory {
		if it.Tag == tag {
			return true
		}
	}
	return false
}

// Ships returns the total item count of the fleet
func (f Fleet) Ships() int {
	n := 0
	for _, it := range f.Inventory {
		n += it.Count
	}
	return n
}

// Planet is a star system body that can be owned and built on.
type Planet struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Owner     string   `json:"owner,omitempty"`
	X         float64  `json:"x"`
	Y         float64  `json:"y"`
	Buildings []string `json:"buildings,omitempty"`
}

// HasBuilding reports whether the planet has a building of the given type
func (p Planet) HasBuilding(building string) bool {
	for _, b := range p.Buildings {
		if b == building {
			return true
		}
	}
	return false
}

// Player is a faction taking part in the campaign.
type Player struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Money      int64  `json:"money"`
	Human      bool   `json:"human,omitempty"`
	Eliminated bool   `json:"eliminated,omitempty"`
}

// ResearchType is a technology that can be researched.
type ResearchType struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// World is the narrow read/mutate surface missions use.
// Lookups return false for unknown ids; mutations return false when the target does not exist.
type World interface {
	Planet(id string) (Planet, bool)
	Player(id string) (Player, bool)
	Research(id string) (ResearchType, bool)
	Fleet(id FleetID) (Fleet, bool)
	Fleets(owner string) []Fleet
	PlanetsOwned(owner string) int

	CreateFleet(name, owner string, x, y float64) FleetID
	RemoveFleet(id FleetID) bool
	ChangeInventory(id FleetID, itemType string, delta int) bool
	// SetInventoryTag tags the items of the given type, or every item when itemType is empty
	SetInventoryTag(id FleetID, itemType, tag string) bool
	MoveFleet(id FleetID, planetID string) bool
	GrantMoney(playerID string, amount int64) bool
}

func sortFleets(fleets []Fleet) {
	sort.Slice(fleets, func(i, j int) bool { return fleets[i].ID < fleets[j].ID })
}
