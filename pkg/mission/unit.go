package mission

import (
	"log/slog"

	"github.com/jwebster45206/campaign-engine/pkg/clock"
	"github.com/jwebster45206/campaign-engine/pkg/fleet"
	"github.com/jwebster45206/campaign-engine/pkg/narrative"
	"github.com/jwebster45206/campaign-engine/pkg/objective"
	"github.com/jwebster45206/campaign-engine/pkg/timer"
	"github.com/jwebster45206/campaign-engine/pkg/world"
)

// Unit is one mission's logic.
// Handle switches on the event kind; kinds a unit does not care about are ignored.
type Unit interface {
	Name() string
	Applicable() bool
	Handle(ev Event)
	Save(doc Doc)
	Load(doc Doc)
}

// Campaign is the progression a unit can read and advance.
type Campaign interface {
	Level() int
	// Promote moves the campaign to level. The level_changed event is delivered
	// after the current dispatch completes.
	Promote(level int)
}

// Env carries the shared services a unit works against.
type Env struct {
	Clock      clock.Clock
	Objectives *objective.Tracker
	Timers     *timer.Board
	Fleets     *fleet.Registry
	World      world.World
	Narrative  narrative.Narrative
	Campaign   Campaign
	Logger     *slog.Logger
}
