package campaign

import (
	"github.com/jwebster45206/campaign-engine/pkg/mission"
	"github.com/jwebster45206/campaign-engine/pkg/timer"
)

const (
	armadaObjective = "Mission-6"
	armadaStart     = "Mission-6"
	armadaWin       = "Mission-6-Win"
	armadaTag       = "Mission-6-Armada"
	armadaFleets    = 3
	armadaWinDelay  = 10000

	videoArmada  = "Video-Armada"
	videoVictory = "Video-Victory"
)

// armada: the Garthog counter-attack. Destroying every armada fleet wins the campaign.
type armada struct {
	mission.Base
}

func newArmada(env mission.Env) *armada {
	return &armada{Base: mission.NewBase(env, "armada", 2)}
}

func (m *armada) Handle(ev mission.Event) {
	m.HandleCommon(ev)
	switch {
	case ev.Kind == mission.KindTime:
		m.onTime()
	case isCombatOutcome(ev.Kind):
		if m.Stage != mission.StageRunning || len(m.Fleets.FindAllByTag(armadaTag, Garthog)) > 0 {
			return
		}
		if m.Succeed(armadaObjective) {
			m.Narrative.Achievement("Ach-Mission-6")
			m.Timers.ScheduleIn(timer.Timeout, armadaWin, armadaWinDelay)
			m.Advance(mission.StageDone)
		}
	case ev.Kind == mission.KindVideoComplete:
		if ev.ID == videoVictory && m.Objectives.IsSucceeded(armadaObjective) {
			m.Narrative.WinGame()
		}
	}
}

func (m *armada) onTime() {
	switch m.Stage {
	case mission.StageNone:
		if m.Objectives.IsSucceeded(reclaimObjective) {
			m.StartIn(armadaStart, 24)
			m.Advance(mission.StageWait)
		}
	case mission.StageWait:
		if !m.Fired(armadaStart) {
			return
		}
		m.Objectives.Show(armadaObjective)
		m.Narrative.PlayVideo(videoArmada, nil)
		for i := 0; i < armadaFleets; i++ {
			id := spawn(m.Env, "Armada", Garthog, Centronom, "Battleship", 2, armadaTag)
			m.World.MoveFleet(id, Achilles)
		}
		m.Advance(mission.StageRunning)
	case mission.StageDone:
		if m.TimedOut(armadaWin) {
			m.Narrative.PlayVideo(videoVictory, m.Narrative.WinGame)
		}
	}
}

func (m *armada) Save(doc mission.Doc) { m.SaveBase(doc) }
func (m *armada) Load(doc mission.Doc) { m.LoadBase(doc) }
