package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed frontier.yaml
var frontierYAML []byte

// ObjectiveDef is the static description of a campaign objective.
type ObjectiveDef struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Description string `yaml:"description,omitempty"`
	Level       int    `yaml:"level"`
	Parent      string `yaml:"parent,omitempty"` // set for sub-tasks of a mission objective
}

// PlayerDef seeds a player into the world.
type PlayerDef struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Money int64  `yaml:"money"`
	Human bool   `yaml:"human,omitempty"`
}

// PlanetDef seeds a planet into the world.
type PlanetDef struct {
	ID    string  `yaml:"id"`
	Name  string  `yaml:"name"`
	Owner string  `yaml:"owner,omitempty"`
	X     float64 `yaml:"x"`
	Y     float64 `yaml:"y"`
}

// ResearchDef describes a research type known to the campaign.
type ResearchDef struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// Catalog is the static script of a campaign: objectives plus the starting world.
type Catalog struct {
	Name       string         `yaml:"name"`
	Levels     []int          `yaml:"levels"`
	Objectives []ObjectiveDef `yaml:"objectives"`
	Players    []PlayerDef    `yaml:"players"`
	Planets    []PlanetDef    `yaml:"planets"`
	Research   []ResearchDef  `yaml:"research"`

	byID map[string]ObjectiveDef
}

// Default returns the embedded "Frontier" campaign catalogue
func Default() *Catalog {
	c, err := Parse(frontierYAML)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded frontier.yaml is invalid: %v", err))
	}
	return c
}

// Load reads and validates a catalogue file. An empty path yields the default catalogue.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	c, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a YAML catalogue
func Parse(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("catalog yaml: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	c.index()
	return &c, nil
}

func (c *Catalog) index() {
	c.byID = make(map[string]ObjectiveDef, len(c.Objectives))
	for _, o := range c.Objectives {
		c.byID[o.ID] = o
	}
}

// Validate checks ids are unique and references resolve
func (c *Catalog) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("catalog name cannot be empty")
	}
	levels := make(map[int]bool, len(c.Levels))
	for _, l := range c.Levels {
		if l <= 0 {
			return fmt.Errorf("catalog level must be positive, got %d", l)
		}
		levels[l] = true
	}

	seen := make(map[string]bool)
	for _, o := range c.Objectives {
		if o.ID == "" {
			return fmt.Errorf("objective id cannot be empty")
		}
		if seen[o.ID] {
			return fmt.Errorf("duplicate objective id: %s", o.ID)
		}
		seen[o.ID] = true
		if !levels[o.Level] {
			return fmt.Errorf("objective %s references unknown level %d", o.ID, o.Level)
		}
	}
	for _, o := range c.Objectives {
		if o.Parent != "" && !seen[o.Parent] {
			return fmt.Errorf("objective %s references unknown parent %s", o.ID, o.Parent)
		}
	}

	players := make(map[string]bool)
	for _, p := range c.Players {
		if p.ID == "" {
			return fmt.Errorf("player id cannot be empty")
		}
		if players[p.ID] {
			return fmt.Errorf("duplicate player id: %s", p.ID)
		}
		players[p.ID] = true
	}

	planets := make(map[string]bool)
	for _, p := range c.Planets {
		if p.ID == "" {
			return fmt.Errorf("planet id cannot be empty")
		}
		if planets[p.ID] {
			return fmt.Errorf("duplicate planet id: %s", p.ID)
		}
		planets[p.ID] = true
		if p.Owner != "" && !players[p.Owner] {
			return fmt.Errorf("planet %s owned by unknown player %s", p.ID, p.Owner)
		}
	}
	return nil
}

// HasObjective reports whether the id is part of the campaign script
func (c *Catalog) HasObjective(id string) bool {
	if c.byID == nil {
		c.index()
	}
	_, ok := c.byID[id]
	return ok
}

// Objective returns the definition for an objective id
func (c *Catalog) Objective(id string) (ObjectiveDef, bool) {
	if c.byID == nil {
		c.index()
	}
	o, ok := c.byID[id]
	return o, ok
}

// ObjectivesForLevel returns the objective definitions of a level, sorted by id
func (c *Catalog) ObjectivesForLevel(level int) []ObjectiveDef {
	var out []ObjectiveDef
	for _, o := range c.Objectives {
		if o.Level == level {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// HumanPlayer returns the id of the player controlled by the user
func (c *Catalog) HumanPlayer() string {
	for _, p := range c.Players {
		if p.Human {
			return p.ID
		}
	}
	return ""
}
