package campaign

import (
	"github.com/jwebster45206/campaign-engine/pkg/mission"
	"github.com/jwebster45206/campaign-engine/pkg/timer"
)

const (
	envoyObjective = "Mission-4"
	envoyStart     = "Mission-4"
	envoyDeadline  = "Mission-4-Deadline"
	envoyFail      = "Mission-4-Fail"
	envoyMessage   = "Msg-Mission-4-Envoy"
	envoyTalk      = "Envoy"
	envoyHours     = 24
	envoyReward    = 5000
)

// envoy: receive the envoy and finish the talks within a day. Success opens level 2,
// missing the deadline ends the run.
type envoy struct {
	mission.Base
}

func newEnvoy(env mission.Env) *envoy {
	return &envoy{Base: mission.NewBase(env, "envoy", 1)}
}

func (m *envoy) Handle(ev mission.Event) {
	m.HandleCommon(ev)
	switch ev.Kind {
	case mission.KindTime:
		m.onTime()
	case mission.KindMessageSeen:
		if ev.ID == envoyMessage && m.Stage == mission.StageIntro {
			m.Timers.ScheduleIn(timer.Mission, envoyDeadline, envoyHours)
			m.Advance(mission.StageRunning)
		}
	case mission.KindTalkCompleted:
		if ev.ID != envoyTalk || m.Stage != mission.StageRunning {
			return
		}
		if m.Succeed(envoyObjective) {
			m.Timers.Clear(timer.Mission, envoyDeadline)
			m.World.GrantMoney(Empire, envoyReward)
			m.Narrative.Achievement("Ach-Mission-4")
			m.Advance(mission.StageDone)
			m.Campaign.Promote(m.MissionLevel() + 1)
		}
	}
}

func (m *envoy) onTime() {
	switch m.Stage {
	case mission.StageNone:
		if m.Objectives.IsCompleted(escortObjective) {
			m.StartIn(envoyStart, 6)
			m.Advance(mission.StageWait)
		}
	case mission.StageWait:
		if m.Fired(envoyStart) {
			m.Objectives.Show(envoyObjective)
			m.Narrative.IncomingMessage(envoyMessage)
			m.Advance(mission.StageIntro)
		}
	case mission.StageRunning:
		if m.Fired(envoyDeadline) && m.Fail(envoyObjective) {
			m.Advance(mission.StageDone)
			m.Dismiss(envoyFail)
		}
	}
}

func (m *envoy) Save(doc mission.Doc) { m.SaveBase(doc) }
func (m *envoy) Load(doc mission.Doc) { m.LoadBase(doc) }
