package campaign

import (
	"github.com/jwebster45206/campaign-engine/pkg/mission"
)

const (
	outpostsObjective = "Mission-7"
	outpostsTask      = "Mission-7-Task-1"
	outpostsBuilding  = "Orbital-Defense"
	outpostsResearch  = "Laser-Cannon"
	outpostsReward    = 1000
)

// outposts: fortify Achilles with an orbital defense; researching laser cannons is a side task.
type outposts struct {
	mission.Base
}

func newOutposts(env mission.Env) *outposts {
	return &outposts{Base: mission.NewBase(env, "outposts", 2)}
}

func (m *outposts) Handle(ev mission.Event) {
	m.HandleCommon(ev)
	switch ev.Kind {
	case mission.KindLevelChanged:
		if m.Stage == mission.StageNone {
			m.Objectives.Show(outpostsObjective)
			m.Objectives.Show(outpostsTask)
			m.Advance(mission.StageRunning)
		}
	case mission.KindBuildingComplete:
		if m.Stage != mission.StageRunning || ev.Planet != Achilles || ev.ID != outpostsBuilding {
			return
		}
		if m.Succeed(outpostsObjective) {
			m.Narrative.Achievement("Ach-Mission-7")
			m.Advance(mission.StageDone)
		}
	case mission.KindResearchComplete:
		if ev.ID != outpostsResearch || (ev.Player != "" && ev.Player != Empire) {
			return
		}
		if m.Objectives.InProgress(outpostsTask) && m.Succeed(outpostsTask) {
			m.World.GrantMoney(Empire, outpostsReward)
		}
	}
}

func (m *outposts) Save(doc mission.Doc) { m.SaveBase(doc) }
func (m *outposts) Load(doc mission.Doc) { m.LoadBase(doc) }
