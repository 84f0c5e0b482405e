package world

import (
	"fmt"
	"sort"
)

// Memory is an in-memory World with the host-side operations a game loop needs.
type Memory struct {
	nextID   FleetID
	players  map[string]*Player
	planets  map[string]*Planet
	research map[string]ResearchType
	fleets   map[FleetID]*Fleet
}

// Ensure Memory implements World interface
var _ World = (*Memory)(nil)

// NewMemory creates an empty world
func NewMemory() *Memory {
	return &Memory{
		nextID:   1,
		players:  make(map[string]*Player),
		planets:  make(map[string]*Planet),
		research: make(map[string]ResearchType),
		fleets:   make(map[FleetID]*Fleet),
	}
}

func (m *Memory) Planet(id string) (Planet, bool) {
	p, ok := m.planets[id]
	if !ok {
		return Planet{}, false
	}
	cp := *p
	cp.Buildings = append([]string(nil), p.Buildings...)
	return cp, true
}

func (m *Memory) Player(id string) (Player, bool) {
	p, ok := m.players[id]
	if !ok {
		return Player{}, false
	}
	return *p, true
}

func (m *Memory) Research(id string) (ResearchType, bool) {
	r, ok := m.research[id]
	return r, ok
}

func (m *Memory) Fleet(id FleetID) (Fleet, bool) {
	f, ok := m.fleets[id]
	if !ok {
		return Fleet{}, false
	}
	return copyFleet(f), true
}

// Fleets returns the fleets of owner sorted by id. An empty owner returns every fleet.
func (m *Memory) Fleets(owner string) []Fleet {
	var out []Fleet
	for _, f := range m.fleets {
		if owner == "" || f.Owner == owner {
			out = append(out, copyFleet(f))
		}
	}
	sortFleets(out)
	return out
}

func (m *Memory) PlanetsOwned(owner string) int {
	n := 0
	for _, p := range m.planets {
		if p.Owner == owner {
			n++
		}
	}
	return n
}

func (m *Memory) CreateFleet(name, owner string, x, y float64) FleetID {
	id := m.nextID
	m.nextID++
	m.fleets[id] = &Fleet{ID: id, Name: name, Owner: owner, X: x, Y: y}
	return id
}

func (m *Memory) RemoveFleet(id FleetID) bool {
	if _, ok := m.fleets[id]; !ok {
		return false
	}
	delete(m.fleets, id)
	return true
}

func (m *Memory) ChangeInventory(id FleetID, itemType string, delta int) bool {
	f, ok := m.fleets[id]
	if !ok {
		return false
	}
	for i := range f.Inventory {
		if f.Inventory[i].Type != itemType {
			continue
		}
		f.Inventory[i].Count += delta
		if f.Inventory[i].Count <= 0 {
			f.Inventory = append(f.Inventory[:i], f.Inventory[i+1:]...)
		}
		return true
	}
	if delta > 0 {
		f.Inventory = append(f.Inventory, InventoryItem{Type: itemType, Count: delta})
	}
	return true
}

func (m *Memory) SetInventoryTag(id FleetID, itemType, tag string) bool {
	f, ok := m.fleets[id]
	if !ok {
		return false
	}
	for i := range f.Inventory {
		if itemType == "" || f.Inventory[i].Type == itemType {
			f.Inventory[i].Tag = tag
		}
	}
	return true
}

func (m *Memory) MoveFleet(id FleetID, planetID string) bool {
	f, ok := m.fleets[id]
	if !ok {
		return false
	}
	if _, ok := m.planets[planetID]; !ok {
		return false
	}
	f.Target = planetID
	return true
}

func (m *Memory) GrantMoney(playerID string, amount int64) bool {
	p, ok := m.players[playerID]
	if !ok {
		return false
	}
	p.Money += amount
	return true
}

// AddPlayer registers or replaces a player
func (m *Memory) AddPlayer(p Player) {
	cp := p
	m.players[p.ID] = &cp
}

// AddPlanet registers or replaces a planet
func (m *Memory) AddPlanet(p Planet) {
	cp := p
	cp.Buildings = append([]string(nil), p.Buildings...)
	m.planets[p.ID] = &cp
}

// AddResearch registers a research type
func (m *Memory) AddResearch(r ResearchType) {
	m.research[r.ID] = r
}

// SetPlanetOwner changes planet ownership and returns the previous owner
func (m *Memory) SetPlanetOwner(planetID, owner string) (string, error) {
	p, ok := m.planets[planetID]
	if !ok {
		return "", fmt.Errorf("planet not found: %s", planetID)
	}
	prev := p.Owner
	p.Owner = owner
	return prev, nil
}

// AddBuilding records a completed building on a planet
func (m *Memory) AddBuilding(planetID, building string) error {
	p, ok := m.planets[planetID]
	if !ok {
		return fmt.Errorf("planet not found: %s", planetID)
	}
	p.Buildings = append(p.Buildings, building)
	return nil
}

// Eliminate marks a player as out of the game
func (m *Memory) Eliminate(playerID string) error {
	p, ok := m.players[playerID]
	if !ok {
		return fmt.Errorf("player not found: %s", playerID)
	}
	p.Eliminated = true
	return nil
}

// Arrive completes a fleet's move: it is placed at its target planet and the target is cleared.
// Returns the planet the fleet arrived at.
func (m *Memory) Arrive(id FleetID) (string, error) {
	f, ok := m.fleets[id]
	if !ok {
		return "", fmt.Errorf("fleet not found: %d", id)
	}
	if f.Target == "" {
		return "", fmt.Errorf("fleet %d has no destination", id)
	}
	p, ok := m.planets[f.Target]
	if !ok {
		return "", fmt.Errorf("planet not found: %s", f.Target)
	}
	f.X, f.Y = p.X, p.Y
	f.Target = ""
	return p.ID, nil
}

// DestroyFleet removes a fleet lost in combat
func (m *Memory) DestroyFleet(id FleetID) error {
	if !m.RemoveFleet(id) {
		return fmt.Errorf("fleet not found: %d", id)
	}
	return nil
}

// MemorySnapshot is the persisted form of a Memory world.
type MemorySnapshot struct {
	NextFleetID FleetID        `json:"next_fleet_id"`
	Players     []Player       `json:"players"`
	Planets     []Planet       `json:"planets"`
	Research    []ResearchType `json:"research"`
	Fleets      []Fleet        `json:"fleets"`
}

// Snapshot captures the world with every collection sorted by id
func (m *Memory) Snapshot() *MemorySnapshot {
	s := &MemorySnapshot{
		NextFleetID: m.nextID,
		Players:     make([]Player, 0, len(m.players)),
		Planets:     make([]Planet, 0, len(m.planets)),
		Research:    make([]ResearchType, 0, len(m.research)),
		Fleets:      m.Fleets(""),
	}
	if s.Fleets == nil {
		s.Fleets = []Fleet{}
	}
	for _, p := range m.players {
		s.Players = append(s.Players, *p)
	}
	sort.Slice(s.Players, func(i, j int) bool { return s.Players[i].ID < s.Players[j].ID })
	for id := range m.planets {
		p, _ := m.Planet(id)
		s.Planets = append(s.Planets, p)
	}
	sort.Slice(s.Planets, func(i, j int) bool { return s.Planets[i].ID < s.Planets[j].ID })
	for _, r := range m.research {
		s.Research = append(s.Research, r)
	}
	sort.Slice(s.Research, func(i, j int) bool { return s.Research[i].ID < s.Research[j].ID })
	return s
}

// Restore replaces the world contents with a snapshot.
// The fleet sequence never moves below the highest restored id.
func (m *Memory) Restore(s *MemorySnapshot) {
	fresh := NewMemory()
	*m = *fresh
	if s == nil {
		return
	}
	for _, p := range s.Players {
		m.AddPlayer(p)
	}
	for _, p := range s.Planets {
		m.AddPlanet(p)
	}
	for _, r := range s.Research {
		m.AddResearch(r)
	}
	m.nextID = s.NextFleetID
	for _, f := range s.Fleets {
		cp := copyFleet(&f)
		m.fleets[f.ID] = &cp
		if f.ID >= m.nextID {
			m.nextID = f.ID + 1
		}
	}
	if m.nextID < 1 {
		m.nextID = 1
	}
}

func copyFleet(f *Fleet) Fleet {
	cp := *f
	cp.Inventory = append([]InventoryItem(nil), f.Inventory...)
	return cp
}
