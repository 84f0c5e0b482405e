package objective

import (
	"fmt"

	"github.com/jwebster45206/campaign-engine/pkg/clock"
)

// Resolver resolves objective ids against the static campaign script.
// *catalog.Catalog satisfies it.
type Resolver interface {
	HasObjective(id string) bool
}

// Tracker is the keyed state machine of all objectives of a campaign run.
type Tracker struct {
	clock     clock.Clock
	resolver  Resolver
	items     map[string]*Objective
	observers []func(Change)
}

// NewTracker creates an empty tracker. A nil resolver accepts any id.
func NewTracker(clk clock.Clock, resolver Resolver) *Tracker {
	return &Tracker{
		clock:    clk,
		resolver: resolver,
		items:    make(map[string]*Objective),
	}
}

// Observe registers a listener that receives every change
func (t *Tracker) Observe(fn func(Change)) {
	t.observers = append(t.observers, fn)
}

func (t *Tracker) lookup(id string) *Objective {
	if o, ok := t.items[id]; ok {
		return o
	}
	if t.resolver != nil && !t.resolver.HasObjective(id) {
		panic(fmt.Sprintf("objective: %q is not part of the campaign catalog", id))
	}
	o := &Objective{ID: id, State: StateActive}
	t.items[id] = o
	return o
}

func (t *Tracker) notify(o *Objective, from State) {
	if len(t.observers) == 0 {
		return
	}
	hour := 0
	if t.clock != nil {
		hour = t.clock.GameHour()
	}
	ch := Change{ID: o.ID, From: from, To: o.State, Visible: o.Visible, GameHour: hour}
	for _, fn := range t.observers {
		fn(ch)
	}
}

// Get returns the objective, creating it as hidden and active on first reference
func (t *Tracker) Get(id string) Objective {
	return *t.lookup(id)
}

// Show makes the objective visible to the player
func (t *Tracker) Show(id string) {
	o := t.lookup(id)
	if o.Visible {
		return
	}
	o.Visible = true
	t.notify(o, o.State)
}

// Hide removes the objective from the player's objective list
func (t *Tracker) Hide(id string) {
	o := t.lookup(id)
	if !o.Visible {
		return
	}
	o.Visible = false
	t.notify(o, o.State)
}

// SetState moves the objective to s and reports whether anything changed.
// Once an objective is terminal it stays put until Reset.
func (t *Tracker) SetState(id string, s State) bool {
	if _, err := ParseState(string(s)); err != nil {
		panic(fmt.Sprintf("objective: %v", err))
	}
	o := t.lookup(id)
	if o.State == s || o.State.Terminal() {
		return false
	}
	from := o.State
	o.State = s
	t.notify(o, from)
	return true
}

// IsActive reports whether the objective is in the active state
func (t *Tracker) IsActive(id string) bool {
	return t.lookup(id).State == StateActive
}

// InProgress reports whether the objective is shown and still active
func (t *Tracker) InProgress(id string) bool {
	o := t.lookup(id)
	return o.Visible && o.State == StateActive
}

// IsCompleted reports whether the objective reached success or failure
func (t *Tracker) IsCompleted(id string) bool {
	return t.lookup(id).State.Terminal()
}

// IsSucceeded reports whether the objective reached success
func (t *Tracker) IsSucceeded(id string) bool {
	return t.lookup(id).State == StateSuccess
}

// IsFailed reports whether the objective reached failure
func (t *Tracker) IsFailed(id string) bool {
	return t.lookup(id).State == StateFailure
}

// Reset forgets an objective so the next reference starts a new attempt
func (t *Tracker) Reset(id string) {
	delete(t.items, id)
}

// ResetAll forgets every objective
func (t *Tracker) ResetAll() {
	t.items = make(map[string]*Objective)
}

// All returns every referenced objective sorted by id
func (t *Tracker) All() []Objective {
	return Sorted(t.items)
}

// Visible returns shown objectives sorted by id
func (t *Tracker) Visible() []Objective {
	var out []Objective
	for _, o := range t.All() {
		if o.Visible {
			out = append(out, o)
		}
	}
	return out
}

// Snapshot returns the persisted form of the tracker
func (t *Tracker) Snapshot() []Objective {
	return t.All()
}

// Restore replaces the tracker contents with a snapshot
func (t *Tracker) Restore(objectives []Objective) {
	t.items = make(map[string]*Objective, len(objectives))
	for _, o := range objectives {
		if _, err := ParseState(string(o.State)); err != nil {
			panic(fmt.Sprintf("objective: restoring %q: %v", o.ID, err))
		}
		cp := o
		t.items[o.ID] = &cp
	}
}
