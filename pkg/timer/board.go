package timer

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/jwebster45206/campaign-engine/pkg/clock"
)

// Kind selects the time source a trigger is scheduled against.
type Kind int

const (
	// Mission triggers fire against the deterministic game hour.
	Mission Kind = iota + 1
	// Timeout triggers fire against wall-clock millis.
	Timeout
)

func (k Kind) String() string {
	switch k {
	case Mission:
		return "mission"
	case Timeout:
		return "timeout"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k Kind) other() Kind {
	if k == Mission {
		return Timeout
	}
	return Mission
}

// Entry is a pending trigger.
type Entry struct {
	Kind   Kind   `json:"-"`
	ID     string `json:"id"`
	FireAt int64  `json:"fire_at"`
}

// Board stores one-shot triggers in two disjoint namespaces.
type Board struct {
	clock    clock.Clock
	missions map[string]int64
	timeouts map[string]int64
}

// NewBoard creates an empty board reading time from clk
func NewBoard(clk clock.Clock) *Board {
	return &Board{
		clock:    clk,
		missions: make(map[string]int64),
		timeouts: make(map[string]int64),
	}
}

func (b *Board) table(k Kind) map[string]int64 {
	switch k {
	case Mission:
		return b.missions
	case Timeout:
		return b.timeouts
	default:
		panic(fmt.Sprintf("timer: unknown kind %d", int(k)))
	}
}

func (b *Board) now(k Kind) int64 {
	if k == Mission {
		return int64(b.clock.GameHour())
	}
	return b.clock.NowMillis()
}

// Schedule sets the fire time of id, overwriting any pending entry of the same kind.
// An id may not be pending in both namespaces at once.
func (b *Board) Schedule(k Kind, id string, fireAt int64) {
	if _, clash := b.table(k.other())[id]; clash {
		panic(fmt.Sprintf("timer: %q already pending as %s trigger", id, k.other()))
	}
	b.table(k)[id] = fireAt
}

// ScheduleIn schedules id delta units from now (hours for Mission, millis for Timeout)
func (b *Board) ScheduleIn(k Kind, id string, delta int64) {
	b.Schedule(k, id, b.now(k)+delta)
}

// ScheduleIfAbsent schedules id only when it is not already pending.
// Returns true if the entry was created.
func (b *Board) ScheduleIfAbsent(k Kind, id string, fireAt int64) bool {
	if b.Has(k, id) {
		return false
	}
	b.Schedule(k, id, fireAt)
	return true
}

// ScheduleInIfAbsent is ScheduleIfAbsent relative to now
func (b *Board) ScheduleInIfAbsent(k Kind, id string, delta int64) bool {
	return b.ScheduleIfAbsent(k, id, b.now(k)+delta)
}

// Has reports whether id is pending regardless of due-ness
func (b *Board) Has(k Kind, id string) bool {
	_, ok := b.table(k)[id]
	return ok
}

// IsDue reports whether id is pending and its fire time has been reached
func (b *Board) IsDue(k Kind, id string) bool {
	at, ok := b.table(k)[id]
	return ok && b.now(k) >= at
}

// Check reports whether id is due and, if so, removes it
func (b *Board) Check(k Kind, id string) bool {
	if !b.IsDue(k, id) {
		return false
	}
	delete(b.table(k), id)
	return true
}

// Clear cancels a pending entry
func (b *Board) Clear(k Kind, id string) {
	delete(b.table(k), id)
}

// ClearAll cancels every entry of both kinds
func (b *Board) ClearAll() {
	b.missions = make(map[string]int64)
	b.timeouts = make(map[string]int64)
}

// FireAt returns the scheduled fire time of id
func (b *Board) FireAt(k Kind, id string) (int64, bool) {
	at, ok := b.table(k)[id]
	return at, ok
}

// Pending returns the entries of a kind sorted by id
func (b *Board) Pending(k Kind) []Entry {
	t := b.table(k)
	out := make([]Entry, 0, len(t))
	for id, at := range t {
		out = append(out, Entry{Kind: k, ID: id, FireAt: at})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// HasDue reports whether any entry of the kind is due
func (b *Board) HasDue(k Kind) bool {
	now := b.now(k)
	for _, at := range b.table(k) {
		if now >= at {
			return true
		}
	}
	return false
}

// Snapshot is the persisted form of a board.
// Mission entries keep their absolute game hour; timeouts keep remaining millis
// so they can be re-anchored to a different wall clock on restore.
type Snapshot struct {
	Missions []Entry `json:"missions"`
	Timeouts []Entry `json:"timeouts"`
}

// Snapshot captures the pending entries
func (b *Board) Snapshot() Snapshot {
	now := b.clock.NowMillis()
	timeouts := b.Pending(Timeout)
	for i := range timeouts {
		remaining := timeouts[i].FireAt - now
		if remaining < 0 {
			remaining = 0
		}
		timeouts[i].FireAt = remaining
	}
	return Snapshot{
		Missions: b.Pending(Mission),
		Timeouts: timeouts,
	}
}

// Restore replaces the board contents with a snapshot
func (b *Board) Restore(s Snapshot) {
	b.ClearAll()
	now := b.clock.NowMillis()
	for _, e := range s.Missions {
		b.Schedule(Mission, e.ID, e.FireAt)
	}
	for _, e := range s.Timeouts {
		b.Schedule(Timeout, e.ID, now+e.FireAt)
	}
}

// MarshalJSON encodes the kind by name
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a kind name
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "mission":
		*k = Mission
	case "timeout":
		*k = Timeout
	default:
		return fmt.Errorf("unknown timer kind: %q", s)
	}
	return nil
}
