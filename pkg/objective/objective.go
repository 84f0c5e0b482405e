package objective

import (
	"encoding/json"
	"fmt"
	"sort"
)

// State is the progress state of an objective.
type State string

const (
	// StateLocked means the objective is known but not yet pursuable.
	StateLocked State = "locked"
	// StateActive is the default state of any objective.
	StateActive State = "active"
	// StateSuccess is terminal: the objective was achieved.
	StateSuccess State = "success"
	// StateFailure is terminal: the objective was lost.
	StateFailure State = "failure"
)

// Terminal reports whether the state ends an objective's episode
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateFailure
}

// ParseState maps a stored name onto a State.
func ParseState(s string) (State, error) {
	switch State(s) {
	case StateLocked, StateActive, StateSuccess, StateFailure:
		return State(s), nil
	default:
		return "", fmt.Errorf("unknown objective state: %q", s)
	}
}

// UnmarshalJSON rejects state names outside the known set
func (s *State) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseState(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Objective is a named campaign goal.
type Objective struct {
	ID      string `json:"id"`
	Visible bool   `json:"visible"`
	State   State  `json:"state"`
}

// Change describes a single observed mutation of an objective.
type Change struct {
	ID       string `json:"id"`
	From     State  `json:"from"`
	To       State  `json:"to"`
	Visible  bool   `json:"visible"`
	GameHour int    `json:"game_hour"`
}

// Sorted returns objectives ordered by id
func Sorted(in map[string]*Objective) []Objective {
	out := make([]Objective, 0, len(in))
	for _, o := range in {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
