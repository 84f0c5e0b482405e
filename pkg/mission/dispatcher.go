package mission

import (
	"fmt"
	"log/slog"
)

// Stats counts dispatcher activity.
type Stats struct {
	Events     int          `json:"events"`     // events taken off the queue
	Deliveries int          `json:"deliveries"` // unit handler invocations
	Skipped    int          `json:"skipped"`    // inapplicable unit/event pairs
	ByKind     map[Kind]int `json:"-"`
}

// Dispatcher fans events out to an ordered roster of units.
// Events posted while a delivery is in flight are queued and delivered in FIFO
// order once every unit has seen the current event.
type Dispatcher struct {
	units       []Unit
	logger      *slog.Logger
	queue       []Event
	dispatching bool
	stats       Stats
}

// NewDispatcher creates a dispatcher over units. Unit names must be unique.
func NewDispatcher(logger *slog.Logger, units ...Unit) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	seen := make(map[string]bool, len(units))
	for _, u := range units {
		if seen[u.Name()] {
			panic(fmt.Sprintf("mission: duplicate unit name %q", u.Name()))
		}
		seen[u.Name()] = true
	}
	return &Dispatcher{
		units:  units,
		logger: logger,
		stats:  Stats{ByKind: make(map[Kind]int)},
	}
}

// Units returns the roster in delivery order
func (d *Dispatcher) Units() []Unit {
	return append([]Unit(nil), d.units...)
}

// Dispatch delivers ev to every unit applicable at delivery time.
// Called from inside a handler it behaves like Post.
func (d *Dispatcher) Dispatch(ev Event) {
	d.Post(ev)
}

// Post queues ev behind the delivery in progress, or delivers it at once when idle.
// Unit panics propagate to the caller and drop whatever was still queued.
func (d *Dispatcher) Post(ev Event) {
	d.queue = append(d.queue, ev)
	if d.dispatching {
		d.logger.Debug("Event queued behind active dispatch", "kind", ev.Kind, "queued", len(d.queue))
		return
	}

	d.dispatching = true
	defer func() {
		d.dispatching = false
		d.queue = nil
	}()

	for len(d.queue) > 0 {
		next := d.queue[0]
		d.queue = d.queue[1:]
		d.deliver(next)
	}
}

func (d *Dispatcher) deliver(ev Event) {
	d.stats.Events++
	d.stats.ByKind[ev.Kind]++
	delivered := 0
	for _, u := range d.units {
		if !u.Applicable() {
			d.stats.Skipped++
			continue
		}
		u.Handle(ev)
		delivered++
	}
	d.stats.Deliveries += delivered
	if ev.Kind != KindTime {
		d.logger.Debug("Event dispatched", "kind", ev.Kind, "units", delivered)
	}
}

// Busy reports whether a delivery is in progress
func (d *Dispatcher) Busy() bool { return d.dispatching }

// Stats returns a copy of the delivery counters
func (d *Dispatcher) Stats() Stats {
	s := d.stats
	s.ByKind = make(map[Kind]int, len(d.stats.ByKind))
	for k, v := range d.stats.ByKind {
		s.ByKind[k] = v
	}
	return s
}

// Save collects every unit's document keyed by unit name
func (d *Dispatcher) Save() map[string]Doc {
	out := make(map[string]Doc, len(d.units))
	for _, u := range d.units {
		doc := Doc{}
		u.Save(doc)
		out[u.Name()] = doc
	}
	return out
}

// Load hands each unit its document. Units without a document load an empty one.
func (d *Dispatcher) Load(docs map[string]Doc) {
	for _, u := range d.units {
		doc, ok := docs[u.Name()]
		if !ok || doc == nil {
			doc = Doc{}
		}
		u.Load(doc)
	}
}
