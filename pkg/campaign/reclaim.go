package campaign

import (
	"github.com/jwebster45206/campaign-engine/pkg/mission"
)

const (
	reclaimObjective = "Mission-5"
	reclaimTask      = "Mission-5-Task-1"
	reclaimStart     = "Mission-5"
	reclaimFail      = "Mission-5-Fail"
	reclaimTag       = "Mission-5-Garrison"
)

// reclaim: take Centronom back from the Garthog while holding Achilles.
// Destroying the garrison is an optional task.
type reclaim struct {
	mission.Base
}

func newReclaim(env mission.Env) *reclaim {
	return &reclaim{Base: mission.NewBase(env, "reclaim-centronom", 2)}
}

func (m *reclaim) Handle(ev mission.Event) {
	m.HandleCommon(ev)
	switch {
	case ev.Kind == mission.KindLevelChanged:
		if m.Stage == mission.StageNone {
			m.StartIn(reclaimStart, 2)
			m.Advance(mission.StageWait)
		}
	case ev.Kind == mission.KindTime:
		if m.Stage == mission.StageWait && m.Fired(reclaimStart) {
			m.Objectives.Show(reclaimObjective)
			m.Objectives.Show(reclaimTask)
			spawn(m.Env, "Garrison", Garthog, Centronom, "Cruiser", 4, reclaimTag)
			m.Narrative.IncomingMessage("Msg-Mission-5")
			m.Advance(mission.StageRunning)
		}
	case isCombatOutcome(ev.Kind):
		if m.Stage != mission.StageRunning || !m.Objectives.InProgress(reclaimTask) {
			return
		}
		if _, alive := m.Fleets.FindByTag(reclaimTag, Garthog); alive {
			return
		}
		if m.Succeed(reclaimTask) {
			m.Narrative.IncomingMessage("Msg-Mission-5-Garrison")
		}
	case ev.Kind == mission.KindConquered:
		if ev.Planet != Centronom || ev.Player != Empire || m.Stage != mission.StageRunning {
			return
		}
		if m.Succeed(reclaimObjective) {
			removeTagged(m.Env, reclaimTag, Garthog)
			if m.Objectives.IsActive(reclaimTask) {
				m.Fail(reclaimTask)
			}
			m.Narrative.Achievement("Ach-Mission-5")
			m.Advance(mission.StageDone)
		}
	case ev.Kind == mission.KindLost:
		if ev.Planet != Achilles || ev.Player != Empire || m.Stage != mission.StageRunning {
			return
		}
		if m.Fail(reclaimObjective) {
			m.Advance(mission.StageDone)
			m.Dismiss(reclaimFail)
		}
	}
}

func (m *reclaim) Save(doc mission.Doc) { m.SaveBase(doc) }
func (m *reclaim) Load(doc mission.Doc) { m.LoadBase(doc) }
