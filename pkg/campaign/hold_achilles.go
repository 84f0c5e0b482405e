package campaign

import (
	"github.com/jwebster45206/campaign-engine/pkg/mission"
	"github.com/jwebster45206/campaign-engine/pkg/timer"
)

const (
	holdObjective = "Mission-1"
	holdStart     = "Mission-1"
	holdSuccess   = "Mission-1-Success"
	holdFail      = "Mission-1-Fail"
	holdHours     = 48
)

// holdAchilles: keep Achilles for two days. Losing it ends the run.
type holdAchilles struct {
	mission.Base
}

func newHoldAchilles(env mission.Env) *holdAchilles {
	return &holdAchilles{Base: mission.NewBase(env, "hold-achilles", 1)}
}

func (m *holdAchilles) Handle(ev mission.Event) {
	m.HandleCommon(ev)
	switch ev.Kind {
	case mission.KindLevelChanged:
		if m.Stage == mission.StageNone {
			m.StartIn(holdStart, 1)
			m.Advance(mission.StageWait)
		}
	case mission.KindTime:
		m.onTime()
	case mission.KindLost:
		if ev.Planet != Achilles || ev.Player != Empire || m.Stage != mission.StageRunning {
			return
		}
		if m.Fail(holdObjective) {
			m.Timers.Clear(timer.Mission, holdSuccess)
			m.Advance(mission.StageDone)
			m.Dismiss(holdFail)
		}
	}
}

func (m *holdAchilles) onTime() {
	switch m.Stage {
	case mission.StageWait:
		if m.Fired(holdStart) {
			m.Objectives.Show(holdObjective)
			m.Narrative.IncomingMessage("Msg-Mission-1")
			m.Timers.ScheduleIn(timer.Mission, holdSuccess, holdHours)
			m.Advance(mission.StageRunning)
		}
	case mission.StageRunning:
		if m.Fired(holdSuccess) && m.Succeed(holdObjective) {
			m.Narrative.Achievement("Ach-Mission-1")
			m.Advance(mission.StageDone)
		}
	}
}

func (m *holdAchilles) Save(doc mission.Doc) { m.SaveBase(doc) }
func (m *holdAchilles) Load(doc mission.Doc) { m.LoadBase(doc) }
