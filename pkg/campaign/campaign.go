package campaign

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/campaign-engine/pkg/catalog"
	"github.com/jwebster45206/campaign-engine/pkg/clock"
	"github.com/jwebster45206/campaign-engine/pkg/fleet"
	"github.com/jwebster45206/campaign-engine/pkg/mission"
	"github.com/jwebster45206/campaign-engine/pkg/narrative"
	"github.com/jwebster45206/campaign-engine/pkg/objective"
	"github.com/jwebster45206/campaign-engine/pkg/state"
	"github.com/jwebster45206/campaign-engine/pkg/timer"
	"github.com/jwebster45206/campaign-engine/pkg/world"
)

// HoursPerDay is the number of game hours between new_day events.
const HoursPerDay = 24

// Clock is a clock whose game hour the campaign host can advance.
type Clock interface {
	clock.Clock
	AdvanceHours(n int)
}

// Options configures a new campaign. Zero values select the defaults.
type Options struct {
	Catalog *catalog.Catalog
	Clock   Clock
	Logger  *slog.Logger
	Now     func() time.Time
}

// Campaign owns the shared services and the mission roster of one run.
type Campaign struct {
	ID uuid.UUID

	catalog    *catalog.Catalog
	clock      Clock
	level      int
	objectives *objective.Tracker
	timers     *timer.Board
	fleets     *fleet.Registry
	world      *world.Memory
	narrative  *narrative.Recorder
	dispatcher *mission.Dispatcher
	logger     *slog.Logger
	now        func() time.Time
}

// Ensure Campaign implements mission.Campaign interface
var _ mission.Campaign = (*Campaign)(nil)

// New creates a campaign at level 0 with the world seeded from the catalogue.
// Call Start to begin play.
func New(id uuid.UUID, opts Options) *Campaign {
	if opts.Catalog == nil {
		opts.Catalog = catalog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = clock.NewManual(0, 0)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger.With("campaign_id", id.String())

	c := &Campaign{
		ID:         id,
		catalog:    opts.Catalog,
		clock:      opts.Clock,
		objectives: objective.NewTracker(opts.Clock, opts.Catalog),
		timers:     timer.NewBoard(opts.Clock),
		world:      world.NewMemory(),
		narrative:  narrative.NewRecorder(opts.Clock, logger),
		logger:     logger,
		now:        opts.Now,
	}
	c.fleets = fleet.NewRegistry(c.world)
	SeedWorld(c.world, c.catalog)

	env := mission.Env{
		Clock:      c.clock,
		Objectives: c.objectives,
		Timers:     c.timers,
		Fleets:     c.fleets,
		World:      c.world,
		Narrative:  c.narrative,
		Campaign:   c,
		Logger:     logger,
	}
	c.dispatcher = mission.NewDispatcher(logger, Roster(env)...)
	return c
}

// SeedWorld populates w with the catalogue's players, planets and research
func SeedWorld(w *world.Memory, cat *catalog.Catalog) {
	for _, p := range cat.Players {
		w.AddPlayer(world.Player{ID: p.ID, Name: p.Name, Money: p.Money, Human: p.Human})
	}
	for _, p := range cat.Planets {
		w.AddPlanet(world.Planet{ID: p.ID, Name: p.Name, Owner: p.Owner, X: p.X, Y: p.Y})
	}
	for _, r := range cat.Research {
		w.AddResearch(world.ResearchType{ID: r.ID, Name: r.Name})
	}
}

func (c *Campaign) Level() int { return c.level }

// Promote moves the campaign to level; units of the new level receive
// level_changed once the current delivery completes.
func (c *Campaign) Promote(level int) {
	if level == c.level {
		return
	}
	c.logger.Info("Campaign level changed", "from", c.level, "to", level)
	c.level = level
	c.dispatcher.Post(mission.LevelChanged(level))
}

// Start begins play at level
func (c *Campaign) Start(level int) error {
	if !c.hasLevel(level) {
		return fmt.Errorf("campaign %s has no level %d", c.catalog.Name, level)
	}
	if c.level != 0 {
		return fmt.Errorf("campaign already started at level %d", c.level)
	}
	c.Promote(level)
	return nil
}

func (c *Campaign) hasLevel(level int) bool {
	for _, l := range c.catalog.Levels {
		if l == level {
			return true
		}
	}
	return false
}

// Tick advances the game clock one hour and delivers time, plus new_day at day boundaries
func (c *Campaign) Tick() {
	c.clock.AdvanceHours(1)
	c.dispatcher.Dispatch(mission.Time())
	if c.clock.GameHour()%HoursPerDay == 0 {
		if n := c.fleets.CleanupScripted(); n > 0 {
			c.logger.Debug("Dropped stale scripted fleets", "count", n)
		}
		c.dispatcher.Dispatch(mission.NewDay())
	}
}

// Advance runs hours ticks, stopping early if the run ends
func (c *Campaign) Advance(hours int) {
	for i := 0; i < hours && !c.Ended(); i++ {
		c.Tick()
	}
}

// Pulse delivers a time event without advancing the game hour, letting
// wall-clock timeouts fire between ticks
func (c *Campaign) Pulse() {
	c.dispatcher.Dispatch(mission.Time())
}

// HasDueTimeouts reports whether a pulse would fire a pending timeout
func (c *Campaign) HasDueTimeouts() bool {
	return c.timers.HasDue(timer.Timeout)
}

// Deliver applies a host-reported event to the world model and dispatches it.
// Fleets reported destroyed leave the scripted set before any unit sees the event.
func (c *Campaign) Deliver(ev mission.Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	if err := c.apply(ev); err != nil {
		return fmt.Errorf("failed to apply %s: %w", ev.Kind, err)
	}
	c.dispatcher.Dispatch(ev)
	return nil
}

func (c *Campaign) apply(ev mission.Event) error {
	switch ev.Kind {
	case mission.KindFleetDestroyed:
		c.destroy(ev.Fleet)
	case mission.KindSpacewarFinish, mission.KindAutobattleFinish:
		for _, id := range ev.Battle.Destroyed {
			c.destroy(id)
		}
	case mission.KindFleetAtPlanet:
		if f, ok := c.world.Fleet(ev.Fleet); ok && f.Target == ev.Planet {
			if _, err := c.world.Arrive(ev.Fleet); err != nil {
				return err
			}
		}
	case mission.KindConquered, mission.KindColonized:
		if _, err := c.world.SetPlanetOwner(ev.Planet, ev.Player); err != nil {
			return err
		}
	case mission.KindLost:
		p, ok := c.world.Planet(ev.Planet)
		if !ok {
			return fmt.Errorf("planet not found: %s", ev.Planet)
		}
		if p.Owner == ev.Player {
			if _, err := c.world.SetPlanetOwner(ev.Planet, ""); err != nil {
				return err
			}
		}
	case mission.KindBuildingComplete:
		return c.world.AddBuilding(ev.Planet, ev.ID)
	case mission.KindPlayerEliminated:
		return c.world.Eliminate(ev.Player)
	}
	return nil
}

func (c *Campaign) destroy(id world.FleetID) {
	c.fleets.RemoveScripted(id)
	c.world.RemoveFleet(id)
}

// CompleteNarrative resumes the story after the player finished a video or a forced message.
// The matching video_complete or message_seen event is delivered even when no
// in-process callback is waiting, so the story also resumes after a reload.
func (c *Campaign) CompleteNarrative(id string, kind narrative.Kind) error {
	ran := c.narrative.Complete(id)
	c.logger.Debug("Narrative completed", "id", id, "kind", kind, "callback", ran)
	switch kind {
	case narrative.KindVideo:
		return c.Deliver(mission.VideoComplete(id))
	case narrative.KindMessage, narrative.KindForced:
		return c.Deliver(mission.MessageSeen(id))
	default:
		return fmt.Errorf("narrative kind %s cannot be completed", kind)
	}
}

// Reset starts the current level over as a new attempt: the level's objectives,
// all timers and scripted fleets are cleared, the world is reseeded and the
// level's units return to their initial stage.
func (c *Campaign) Reset() {
	for _, id := range c.fleets.Scripted() {
		c.fleets.RemoveFleet(id)
	}
	for _, def := range c.catalog.ObjectivesForLevel(c.level) {
		c.objectives.Reset(def.ID)
	}
	c.timers.ClearAll()
	c.world.Restore(nil)
	SeedWorld(c.world, c.catalog)
	c.narrative.Reset()

	level := c.level
	c.dispatcher.Dispatch(mission.Reset())
	c.level = 0
	if level != 0 {
		c.Promote(level)
	}
}

// Ended reports whether the run reached game over or victory
func (c *Campaign) Ended() bool { return c.narrative.Ended() }

func (c *Campaign) Clock() Clock                    { return c.clock }
func (c *Campaign) Catalog() *catalog.Catalog       { return c.catalog }
func (c *Campaign) Objectives() *objective.Tracker  { return c.objectives }
func (c *Campaign) Timers() *timer.Board            { return c.timers }
func (c *Campaign) Fleets() *fleet.Registry         { return c.fleets }
func (c *Campaign) World() *world.Memory            { return c.world }
func (c *Campaign) Narrative() *narrative.Recorder  { return c.narrative }
func (c *Campaign) Dispatcher() *mission.Dispatcher { return c.dispatcher }

// Save captures the run as a snapshot
func (c *Campaign) Save() *state.Snapshot {
	s := state.NewSnapshot(c.ID)
	s.Catalog = c.catalog.Name
	s.Level = c.level
	s.GameHour = c.clock.GameHour()
	s.Objectives = c.objectives.Snapshot()
	s.Timers = c.timers.Snapshot()
	s.Scripted = c.fleets.Snapshot()
	s.Units = c.dispatcher.Save()
	s.World = c.world.Snapshot()
	s.Outcome = c.narrative.Outcome()
	s.SavedAt = c.now().UTC()
	return s
}

// Restore loads a snapshot into a freshly created campaign and delivers loaded.
// The campaign clock must not be ahead of the snapshot's game hour.
func (c *Campaign) Restore(s *state.Snapshot) error {
	if s == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}
	if s.ID != c.ID {
		return fmt.Errorf("snapshot %s does not belong to campaign %s", s.ID, c.ID)
	}
	if s.Catalog != "" && s.Catalog != c.catalog.Name {
		return fmt.Errorf("snapshot uses catalog %q, campaign uses %q", s.Catalog, c.catalog.Name)
	}
	if gap := s.GameHour - c.clock.GameHour(); gap > 0 {
		c.clock.AdvanceHours(gap)
	} else if gap < 0 {
		return fmt.Errorf("snapshot game hour %d is behind the clock at %d", s.GameHour, c.clock.GameHour())
	}

	c.level = s.Level
	c.objectives.Restore(s.Objectives)
	c.timers.Restore(s.Timers)
	c.world.Restore(s.World)
	c.fleets.Restore(s.Scripted)
	c.dispatcher.Load(s.Units)
	c.narrative.RestoreOutcome(s.Outcome)
	c.dispatcher.Dispatch(mission.Loaded())
	return nil
}

// Load creates a campaign from a snapshot
func Load(s *state.Snapshot, opts Options) (*Campaign, error) {
	if s == nil {
		return nil, fmt.Errorf("snapshot cannot be nil")
	}
	c := New(s.ID, opts)
	if err := c.Restore(s); err != nil {
		return nil, err
	}
	return c, nil
}
