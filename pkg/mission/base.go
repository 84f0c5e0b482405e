package mission

import (
	"github.com/jwebster45206/campaign-engine/pkg/objective"
	"github.com/jwebster45206/campaign-engine/pkg/timer"
)

const (
	// MsgDismissed is the forced message shown before a fatal failure ends the run.
	MsgDismissed = "Msg-Dismissed"
	// DismissDelayMillis is the pause between a fatal failure and the dismissal message.
	DismissDelayMillis int64 = 13000
)

// Base carries the parts every unit shares: dependencies, level gating,
// the current stage and the dismissal path.
type Base struct {
	Env
	name  string
	level int

	Stage     Stage
	dismissal string // pending dismissal timeout id, "" when none
}

// NewBase creates the shared part of a unit applicable at level
func NewBase(env Env, name string, level int) Base {
	return Base{Env: env, name: name, level: level}
}

func (b *Base) Name() string { return b.name }

// Applicable gates every delivery on the campaign level
func (b *Base) Applicable() bool {
	return b.Campaign.Level() == b.level
}

// MissionLevel returns the level the unit plays in
func (b *Base) MissionLevel() int { return b.level }

// StartIn schedules the unit's opening trigger unless it is already pending
func (b *Base) StartIn(id string, hours int) bool {
	return b.Timers.ScheduleInIfAbsent(timer.Mission, id, int64(hours))
}

// Fired consumes a due mission-time trigger
func (b *Base) Fired(id string) bool {
	return b.Timers.Check(timer.Mission, id)
}

// TimedOut consumes a due wall-clock timeout
func (b *Base) TimedOut(id string) bool {
	return b.Timers.Check(timer.Timeout, id)
}

// Succeed moves the objective to success and reports whether it changed
func (b *Base) Succeed(id string) bool {
	if !b.Objectives.SetState(id, objective.StateSuccess) {
		return false
	}
	b.Logger.Info("Objective succeeded", "mission", b.name, "objective", id)
	return true
}

// Fail moves the objective to failure and reports whether it changed
func (b *Base) Fail(id string) bool {
	if !b.Objectives.SetState(id, objective.StateFailure) {
		return false
	}
	b.Logger.Info("Objective failed", "mission", b.name, "objective", id)
	return true
}

// Advance moves the unit to a new stage
func (b *Base) Advance(s Stage) {
	if b.Stage == s {
		return
	}
	b.Logger.Debug("Mission stage changed", "mission", b.name, "from", b.Stage, "to", s)
	b.Stage = s
}

// Dismiss starts the fatal failure path: after a short pause the player is
// shown the dismissal message and the run ends.
func (b *Base) Dismiss(timeoutID string) {
	if b.Timers.ScheduleInIfAbsent(timer.Timeout, timeoutID, DismissDelayMillis) {
		b.Logger.Info("Dismissal scheduled", "mission", b.name, "timeout", timeoutID)
	}
	b.dismissal = timeoutID
}

// Dismissed reports whether the unit is on the fatal failure path
func (b *Base) Dismissed() bool { return b.dismissal != "" }

// HandleCommon processes the events every unit treats the same way.
// Units call it first from Handle.
func (b *Base) HandleCommon(ev Event) {
	switch ev.Kind {
	case KindTime:
		if b.dismissal != "" && b.TimedOut(b.dismissal) {
			b.Narrative.ForceMessage(MsgDismissed, b.Narrative.GameOver)
		}
	case KindMessageSeen:
		// Callbacks do not survive a reload; acknowledging the message ends the run either way.
		if b.dismissal != "" && ev.ID == MsgDismissed && !b.Timers.Has(timer.Timeout, b.dismissal) {
			b.Narrative.GameOver()
		}
	case KindReset:
		b.Stage = StageNone
		b.dismissal = ""
	}
}

// SaveBase writes the shared fields
func (b *Base) SaveBase(doc Doc) {
	Stages.Store(doc, "stage", b.Stage)
	if b.dismissal != "" {
		doc.Set("dismissal", b.dismissal)
	}
}

// LoadBase reads the shared fields
func (b *Base) LoadBase(doc Doc) {
	b.Stage = Stages.Fetch(doc, "stage")
	b.dismissal = doc.String("dismissal")
}
