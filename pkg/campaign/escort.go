package campaign

import (
	"github.com/jwebster45206/campaign-engine/pkg/mission"
	"github.com/jwebster45206/campaign-engine/pkg/timer"
)

const (
	escortObjective   = "Mission-3"
	escortStart       = "Mission-3"
	escortThanks      = "Mission-3-Thanks"
	escortTraderTag   = "Mission-3-Trader"
	escortRaiderTag   = "Mission-3-Raiders"
	escortThanksDelay = 5000
	escortReward      = 1500
)

// escort: a trade convoy travels from Achilles to Naxos with raiders on its tail.
type escort struct {
	mission.Base
}

func newEscort(env mission.Env) *escort {
	return &escort{Base: mission.NewBase(env, "escort", 1)}
}

func (m *escort) Handle(ev mission.Event) {
	m.HandleCommon(ev)
	switch {
	case ev.Kind == mission.KindTime:
		m.onTime()
	case ev.Kind == mission.KindFleetAtPlanet:
		if m.Stage != mission.StageRunning || ev.Planet != Naxos {
			return
		}
		f, ok := m.World.Fleet(ev.Fleet)
		if !ok || !f.HasTag(escortTraderTag) {
			return
		}
		if m.Succeed(escortObjective) {
			m.Fleets.Release(f.ID)
			removeTagged(m.Env, escortRaiderTag, Pirates)
			m.World.GrantMoney(Empire, escortReward)
			m.Timers.ScheduleIn(timer.Timeout, escortThanks, escortThanksDelay)
			m.Advance(mission.StageDone)
		}
	case isCombatOutcome(ev.Kind):
		if m.Stage != mission.StageRunning {
			return
		}
		if _, alive := m.Fleets.FindByTag(escortTraderTag, Traders); alive {
			return
		}
		if m.Fail(escortObjective) {
			removeTagged(m.Env, escortRaiderTag, Pirates)
			m.Narrative.IncomingMessage("Msg-Mission-3-Failed")
			m.Advance(mission.StageDone)
		}
	}
}

func (m *escort) onTime() {
	if m.TimedOut(escortThanks) {
		m.Narrative.IncomingMessage("Msg-Mission-3-Thanks")
	}
	switch m.Stage {
	case mission.StageNone:
		if m.Objectives.IsCompleted(huntObjective) {
			m.StartIn(escortStart, 12)
			m.Advance(mission.StageWait)
		}
	case mission.StageWait:
		if !m.Fired(escortStart) {
			return
		}
		m.Objectives.Show(escortObjective)

		x, y := planetPos(m.World, Achilles)
		trader := m.Fleets.CreateFleet("Convoy", Traders, x, y)
		m.World.ChangeInventory(trader, "Freighter", 3)
		m.World.ChangeInventory(trader, "Corvette", 1)
		m.Fleets.TagItem(trader, "Freighter", escortTraderTag)
		m.World.MoveFleet(trader, Naxos)

		raiders := spawn(m.Env, "Raiders", Pirates, Achilles, "Corvette", 2, escortRaiderTag)
		m.World.MoveFleet(raiders, Naxos)

		m.Narrative.IncomingMessage("Msg-Mission-3")
		m.Advance(mission.StageRunning)
	}
}

func (m *escort) Save(doc mission.Doc) { m.SaveBase(doc) }
func (m *escort) Load(doc mission.Doc) { m.LoadBase(doc) }
