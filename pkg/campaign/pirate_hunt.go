package campaign

import (
	"github.com/jwebster45206/campaign-engine/pkg/mission"
	"github.com/jwebster45206/campaign-engine/pkg/timer"
)

const (
	huntObjective = "Mission-2"
	huntStart     = "Mission-2"
	huntTimeout   = "Mission-2-Timeout"
	huntTag       = "Mission-2-Pirates"
	huntHours     = 72
	huntReward    = 2000
)

// pirateHunt: a day after Achilles is secured, raiders appear and must be destroyed
// within three days. Letting them escape is not fatal.
type pirateHunt struct {
	mission.Base
}

func newPirateHunt(env mission.Env) *pirateHunt {
	return &pirateHunt{Base: mission.NewBase(env, "pirate-hunt", 1)}
}

func (m *pirateHunt) Handle(ev mission.Event) {
	m.HandleCommon(ev)
	switch {
	case ev.Kind == mission.KindTime:
		m.onTime()
	case isCombatOutcome(ev.Kind):
		if m.Stage != mission.StageRunning {
			return
		}
		if _, alive := m.Fleets.FindByTag(huntTag, Pirates); alive {
			return
		}
		if m.Succeed(huntObjective) {
			m.Timers.Clear(timer.Mission, huntTimeout)
			m.World.GrantMoney(Empire, huntReward)
			m.Narrative.Achievement("Ach-Mission-2")
			m.Advance(mission.StageDone)
		}
	}
}

func (m *pirateHunt) onTime() {
	switch m.Stage {
	case mission.StageNone:
		if m.Objectives.IsSucceeded(holdObjective) {
			m.StartIn(huntStart, 24)
			m.Advance(mission.StageWait)
		}
	case mission.StageWait:
		if !m.Fired(huntStart) {
			return
		}
		m.Objectives.Show(huntObjective)
		id := spawn(m.Env, "Raiders", Pirates, Achilles, "Corvette", 3, huntTag)
		m.World.MoveFleet(id, Achilles)
		m.Narrative.IncomingMessage("Msg-Mission-2")
		m.Timers.ScheduleIn(timer.Mission, huntTimeout, huntHours)
		m.Advance(mission.StageRunning)
	case mission.StageRunning:
		if m.Fired(huntTimeout) && m.Fail(huntObjective) {
			removeTagged(m.Env, huntTag, Pirates)
			m.Narrative.IncomingMessage("Msg-Mission-2-Escaped")
			m.Advance(mission.StageDone)
		}
	}
}

func (m *pirateHunt) Save(doc mission.Doc) { m.SaveBase(doc) }
func (m *pirateHunt) Load(doc mission.Doc) { m.LoadBase(doc) }
