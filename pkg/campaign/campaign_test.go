package campaign

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/campaign-engine/pkg/clock"
	"github.com/jwebster45206/campaign-engine/pkg/mission"
	"github.com/jwebster45206/campaign-engine/pkg/narrative"
	"github.com/jwebster45206/campaign-engine/pkg/objective"
	"github.com/jwebster45206/campaign-engine/pkg/state"
	"github.com/jwebster45206/campaign-engine/pkg/timer"
	"github.com/jwebster45206/campaign-engine/pkg/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestCampaign(t *testing.T, level int) (*Campaign, *clock.Manual) {
	t.Helper()
	clk := clock.NewManual(0, 0)
	c := New(uuid.New(), Options{Clock: clk, Logger: testLogger(), Now: fixedNow})
	require.NoError(t, c.Start(level))
	return c, clk
}

func deliver(t *testing.T, c *Campaign, ev mission.Event) {
	t.Helper()
	require.NoError(t, c.Deliver(ev))
}

func hasEntry(entries []narrative.Entry, kind narrative.Kind, id string) int {
	n := 0
	for _, e := range entries {
		if e.Kind == kind && e.ID == id {
			n++
		}
	}
	return n
}

func scriptedFleet(t *testing.T, c *Campaign, tag, owner string) world.Fleet {
	t.Helper()
	f, ok := c.Fleets().FindByTag(tag, owner)
	require.True(t, ok, "expected a %s fleet tagged %s", owner, tag)
	return f
}

func money(c *Campaign) int64 {
	p, _ := c.World().Player(Empire)
	return p.Money
}

// holdToSuccess plays Mission 1 to success and returns at hour 49.
func holdToSuccess(t *testing.T, c *Campaign) {
	t.Helper()
	c.Advance(1)
	require.True(t, c.Objectives().InProgress(holdObjective))
	c.Advance(48)
	require.True(t, c.Objectives().IsSucceeded(holdObjective))
}

// playLevelOne completes Missions 1 to 4, promoting the campaign to level 2 at hour 93.
func playLevelOne(t *testing.T, c *Campaign) {
	t.Helper()
	holdToSuccess(t, c)

	c.Advance(24)
	pirates := scriptedFleet(t, c, huntTag, Pirates)
	deliver(t, c, mission.SpacewarFinish(mission.BattleResult{Planet: Achilles, Winner: Empire, Destroyed: []world.FleetID{pirates.ID}}))
	require.True(t, c.Objectives().IsSucceeded(huntObjective))

	c.Advance(13)
	convoy := scriptedFleet(t, c, escortTraderTag, Traders)
	deliver(t, c, mission.FleetAtPlanet(convoy.ID, Naxos))
	require.True(t, c.Objectives().IsSucceeded(escortObjective))

	c.Advance(7)
	require.True(t, c.Objectives().InProgress(envoyObjective))
	require.NoError(t, c.CompleteNarrative(envoyMessage, narrative.KindMessage))
	deliver(t, c, mission.TalkCompleted(envoyTalk))
	require.True(t, c.Objectives().IsSucceeded(envoyObjective))
	require.Equal(t, 2, c.Level())
}

func TestCampaign_StartValidatesLevel(t *testing.T) {
	c := New(uuid.New(), Options{Logger: testLogger()})
	assert.Error(t, c.Start(3))
	require.NoError(t, c.Start(1))
	assert.Error(t, c.Start(1), "a campaign starts once")
}

func TestHoldAchilles_Success(t *testing.T) {
	c, clk := newTestCampaign(t, 1)
	assert.True(t, c.Timers().Has(timer.Mission, holdStart))

	holdToSuccess(t, c)
	assert.Equal(t, 49, clk.GameHour())

	c.Advance(100)
	entries := c.Narrative().Entries()
	assert.Equal(t, 1, hasEntry(entries, narrative.KindMessage, "Msg-Mission-1"))
	assert.Equal(t, 1, hasEntry(entries, narrative.KindAchievement, "Ach-Mission-1"), "rewards fire once")
}

func TestHoldAchilles_LossEndsTheRun(t *testing.T) {
	c, clk := newTestCampaign(t, 1)
	c.Advance(5)

	deliver(t, c, mission.Lost(Achilles, Empire))
	assert.True(t, c.Objectives().IsFailed(holdObjective))
	assert.False(t, c.Timers().Has(timer.Mission, holdSuccess), "failure cancels the pending success")
	achilles, _ := c.World().Planet(Achilles)
	assert.Equal(t, "", achilles.Owner, "Achilles no longer belongs to the Empire")

	clk.AdvanceMillis(mission.DismissDelayMillis - 1)
	assert.False(t, c.HasDueTimeouts())
	c.Pulse()
	assert.Empty(t, c.Narrative().Pending())

	clk.AdvanceMillis(1)
	assert.True(t, c.HasDueTimeouts())
	c.Pulse()
	assert.Equal(t, []string{mission.MsgDismissed}, c.Narrative().Pending())
	assert.False(t, c.Ended())

	require.NoError(t, c.CompleteNarrative(mission.MsgDismissed, narrative.KindForced))
	assert.True(t, c.Narrative().IsGameOver())
	assert.True(t, c.Ended())
	assert.Equal(t, 1, hasEntry(c.Narrative().Entries(), narrative.KindGameOver, ""))
}

func TestHoldAchilles_IgnoresOtherLosses(t *testing.T) {
	c, _ := newTestCampaign(t, 1)
	c.Advance(2)

	deliver(t, c, mission.Lost("San-Sterling", Empire))
	deliver(t, c, mission.Lost(Achilles, Pirates))
	assert.True(t, c.Objectives().InProgress(holdObjective))
}

func TestPirateHunt_DestroyedBeforeDeadline(t *testing.T) {
	c, _ := newTestCampaign(t, 1)
	holdToSuccess(t, c)
	before := money(c)

	c.Advance(23)
	_, ok := c.Fleets().FindByTag(huntTag, Pirates)
	require.False(t, ok, "pirates appear a day after Achilles is secured")
	c.Advance(1)

	pirates := scriptedFleet(t, c, huntTag, Pirates)
	assert.True(t, c.Fleets().IsScripted(pirates.ID))
	assert.Equal(t, Achilles, pirates.Target)
	assert.Equal(t, 3, pirates.Ships())

	deliver(t, c, mission.AutobattleFinish(mission.BattleResult{Destroyed: []world.FleetID{pirates.ID}}))
	assert.True(t, c.Objectives().IsSucceeded(huntObjective))
	assert.False(t, c.Fleets().IsScripted(pirates.ID))
	assert.False(t, c.Timers().Has(timer.Mission, huntTimeout))
	assert.Equal(t, before+huntReward, money(c))
}

func TestPirateHunt_DeadlineIsNotFatal(t *testing.T) {
	c, _ := newTestCampaign(t, 1)
	holdToSuccess(t, c)
	c.Advance(24)
	pirates := scriptedFleet(t, c, huntTag, Pirates)

	c.Advance(huntHours)
	assert.True(t, c.Objectives().IsFailed(huntObjective))
	_, ok := c.World().Fleet(pirates.ID)
	assert.False(t, ok, "escaped pirates are removed from the world")
	assert.False(t, c.Fleets().IsScripted(pirates.ID))
	assert.False(t, c.Ended())

	c.Advance(13)
	assert.True(t, c.Objectives().InProgress(escortObjective), "escort follows a failed hunt")
}

func TestEscort_ConvoyArrives(t *testing.T) {
	c, clk := newTestCampaign(t, 1)
	holdToSuccess(t, c)
	c.Advance(24)
	deliver(t, c, mission.FleetDestroyed(scriptedFleet(t, c, huntTag, Pirates).ID))

	c.Advance(13)
	convoy := scriptedFleet(t, c, escortTraderTag, Traders)
	raiders := scriptedFleet(t, c, escortRaiderTag, Pirates)

	deliver(t, c, mission.FleetAtPlanet(convoy.ID, "Centronom"))
	assert.True(t, c.Objectives().InProgress(escortObjective), "arrival elsewhere is ignored")

	deliver(t, c, mission.FleetAtPlanet(convoy.ID, Naxos))
	assert.True(t, c.Objectives().IsSucceeded(escortObjective))
	assert.False(t, c.Fleets().IsScripted(convoy.ID), "convoy returns to AI control")
	arrived, ok := c.World().Fleet(convoy.ID)
	require.True(t, ok)
	naxos, _ := c.World().Planet(Naxos)
	assert.Equal(t, naxos.X, arrived.X)
	_, ok = c.World().Fleet(raiders.ID)
	assert.False(t, ok, "raiders are cleaned up")

	clk.AdvanceMillis(escortThanksDelay)
	c.Pulse()
	assert.Equal(t, 1, hasEntry(c.Narrative().Entries(), narrative.KindMessage, "Msg-Mission-3-Thanks"))
}

func TestEscort_ConvoyDestroyed(t *testing.T) {
	c, _ := newTestCampaign(t, 1)
	holdToSuccess(t, c)
	c.Advance(24)
	deliver(t, c, mission.FleetDestroyed(scriptedFleet(t, c, huntTag, Pirates).ID))
	c.Advance(13)
	convoy := scriptedFleet(t, c, escortTraderTag, Traders)

	deliver(t, c, mission.SpacewarFinish(mission.BattleResult{Winner: Pirates, Destroyed: []world.FleetID{convoy.ID}}))
	assert.True(t, c.Objectives().IsFailed(escortObjective))
	assert.Empty(t, c.Fleets().FindAllByTag(escortRaiderTag, Pirates))
	assert.False(t, c.Ended())
}

func TestEnvoy_PromotesToLevelTwo(t *testing.T) {
	c, clk := newTestCampaign(t, 1)
	start := money(c)
	playLevelOne(t, c)

	assert.Equal(t, 93, clk.GameHour())
	assert.Equal(t, start+huntReward+escortReward+envoyReward, money(c))
	assert.True(t, c.Timers().Has(timer.Mission, reclaimStart), "level 2 units saw level_changed")
	assert.True(t, c.Objectives().InProgress(outpostsObjective))
	assert.False(t, c.Timers().Has(timer.Mission, envoyDeadline))
}

func TestEnvoy_TalkBeforeMessageIsIgnored(t *testing.T) {
	c, _ := newTestCampaign(t, 1)
	holdToSuccess(t, c)
	c.Advance(24)
	deliver(t, c, mission.FleetDestroyed(scriptedFleet(t, c, huntTag, Pirates).ID))
	c.Advance(13)
	deliver(t, c, mission.FleetAtPlanet(scriptedFleet(t, c, escortTraderTag, Traders).ID, Naxos))
	c.Advance(7)

	deliver(t, c, mission.TalkCompleted(envoyTalk))
	assert.True(t, c.Objectives().IsActive(envoyObjective))
	assert.Equal(t, 1, c.Level())
}

func TestEnvoy_DeadlineDismisses(t *testing.T) {
	c, clk := newTestCampaign(t, 1)
	holdToSuccess(t, c)
	c.Advance(24)
	deliver(t, c, mission.FleetDestroyed(scriptedFleet(t, c, huntTag, Pirates).ID))
	c.Advance(13)
	deliver(t, c, mission.FleetAtPlanet(scriptedFleet(t, c, escortTraderTag, Traders).ID, Naxos))
	c.Advance(7)
	require.NoError(t, c.CompleteNarrative(envoyMessage, narrative.KindMessage))

	c.Advance(envoyHours)
	assert.True(t, c.Objectives().IsFailed(envoyObjective))
	assert.True(t, c.Timers().Has(timer.Timeout, envoyFail))

	clk.AdvanceMillis(mission.DismissDelayMillis)
	c.Pulse()
	require.NoError(t, c.CompleteNarrative(mission.MsgDismissed, narrative.KindForced))
	assert.True(t, c.Narrative().IsGameOver())
}

func TestLevelOneEventsDoNotReachLevelTwoUnits(t *testing.T) {
	c, _ := newTestCampaign(t, 1)
	c.Advance(3)

	deliver(t, c, mission.Conquered(Centronom, Empire))
	deliver(t, c, mission.BuildingComplete(Achilles, outpostsBuilding))
	for _, o := range c.Objectives().All() {
		def, _ := c.Catalog().Objective(o.ID)
		assert.Equal(t, 1, def.Level, "objective %s mutated by an inapplicable unit", o.ID)
	}
	assert.False(t, c.Timers().Has(timer.Mission, reclaimStart))
}

func TestReclaimAndArmada_WinTheCampaign(t *testing.T) {
	c, clk := newTestCampaign(t, 2)
	c.Advance(2)
	require.True(t, c.Objectives().InProgress(reclaimObjective))
	require.True(t, c.Objectives().InProgress(reclaimTask))

	garrison := scriptedFleet(t, c, reclaimTag, Garthog)
	deliver(t, c, mission.AutobattleFinish(mission.BattleResult{Planet: Centronom, Destroyed: []world.FleetID{garrison.ID}}))
	assert.True(t, c.Objectives().IsSucceeded(reclaimTask))
	assert.True(t, c.Objectives().InProgress(reclaimObjective))

	deliver(t, c, mission.Conquered(Centronom, Empire))
	assert.True(t, c.Objectives().IsSucceeded(reclaimObjective))
	centronom, _ := c.World().Planet(Centronom)
	assert.Equal(t, Empire, centronom.Owner)

	c.Advance(25)
	armadaFleetsFound := c.Fleets().FindAllByTag(armadaTag, Garthog)
	require.Len(t, armadaFleetsFound, armadaFleets)
	assert.Equal(t, 1, hasEntry(c.Narrative().Entries(), narrative.KindVideo, videoArmada))

	deliver(t, c, mission.SpacewarFinish(mission.BattleResult{Destroyed: []world.FleetID{armadaFleetsFound[0].ID, armadaFleetsFound[1].ID}}))
	assert.True(t, c.Objectives().InProgress(armadaObjective), "one armada fleet remains")

	deliver(t, c, mission.FleetDestroyed(armadaFleetsFound[2].ID))
	assert.True(t, c.Objectives().IsSucceeded(armadaObjective))

	clk.AdvanceMillis(armadaWinDelay)
	c.Pulse()
	assert.Equal(t, []string{videoVictory}, c.Narrative().Pending())

	require.NoError(t, c.CompleteNarrative(videoVictory, narrative.KindVideo))
	assert.True(t, c.Narrative().IsWon())
	assert.Equal(t, 1, hasEntry(c.Narrative().Entries(), narrative.KindWin, ""))
}

func TestReclaim_LosingAchillesDismisses(t *testing.T) {
	c, _ := newTestCampaign(t, 2)
	c.Advance(2)

	deliver(t, c, mission.Lost(Achilles, Empire))
	assert.True(t, c.Objectives().IsFailed(reclaimObjective))
	assert.True(t, c.Timers().Has(timer.Timeout, reclaimFail))
}

func TestReclaim_ConquestWithGarrisonAliveFailsTask(t *testing.T) {
	c, _ := newTestCampaign(t, 2)
	c.Advance(2)
	garrison := scriptedFleet(t, c, reclaimTag, Garthog)

	deliver(t, c, mission.Conquered(Centronom, Empire))
	assert.True(t, c.Objectives().IsSucceeded(reclaimObjective))
	assert.True(t, c.Objectives().IsFailed(reclaimTask))
	_, ok := c.World().Fleet(garrison.ID)
	assert.False(t, ok)
}

func TestOutposts(t *testing.T) {
	c, _ := newTestCampaign(t, 2)
	require.True(t, c.Objectives().InProgress(outpostsObjective))
	start := money(c)

	deliver(t, c, mission.ResearchComplete(Garthog, outpostsResearch))
	assert.True(t, c.Objectives().InProgress(outpostsTask))

	deliver(t, c, mission.ResearchComplete(Empire, outpostsResearch))
	deliver(t, c, mission.ResearchComplete(Empire, outpostsResearch))
	assert.True(t, c.Objectives().IsSucceeded(outpostsTask))
	assert.Equal(t, start+outpostsReward, money(c))

	deliver(t, c, mission.BuildingComplete(Naxos, outpostsBuilding))
	assert.True(t, c.Objectives().InProgress(outpostsObjective))
	deliver(t, c, mission.BuildingComplete(Achilles, outpostsBuilding))
	assert.True(t, c.Objectives().IsSucceeded(outpostsObjective))
}

func TestNewDay_CollectsStaleScriptedFleets(t *testing.T) {
	c, _ := newTestCampaign(t, 1)
	holdToSuccess(t, c)
	c.Advance(24)
	pirates := scriptedFleet(t, c, huntTag, Pirates)

	// removed behind the registry's back
	require.True(t, c.World().RemoveFleet(pirates.ID))
	require.True(t, c.Fleets().IsScripted(pirates.ID))

	c.Advance(24 - c.Clock().GameHour()%HoursPerDay)
	assert.False(t, c.Fleets().IsScripted(pirates.ID))
	for _, id := range c.Fleets().Scripted() {
		_, ok := c.World().Fleet(id)
		assert.True(t, ok)
	}
}

func TestDeliver_RejectsInvalidEvents(t *testing.T) {
	c, _ := newTestCampaign(t, 1)
	assert.Error(t, c.Deliver(mission.Event{Kind: mission.KindConquered}))
	assert.Error(t, c.Deliver(mission.Lost("Nowhere", Empire)))
	assert.Error(t, c.CompleteNarrative("Ach-1", narrative.KindAchievement))
}

func roundTrip(t *testing.T, c *Campaign) *Campaign {
	t.Helper()
	data, err := json.Marshal(c.Save())
	require.NoError(t, err)
	snap, err := state.Parse(data)
	require.NoError(t, err)

	restored, err := Load(snap, Options{Clock: clock.NewManual(0, 0), Logger: testLogger(), Now: fixedNow})
	require.NoError(t, err)
	return restored
}

func TestSaveRestore_ResumesMidMission(t *testing.T) {
	c, _ := newTestCampaign(t, 1)
	holdToSuccess(t, c)
	c.Advance(24)
	pirates := scriptedFleet(t, c, huntTag, Pirates)

	restored := roundTrip(t, c)
	assert.Equal(t, c.ID, restored.ID)
	assert.Equal(t, 73, restored.Clock().GameHour())
	assert.Equal(t, c.Objectives().All(), restored.Objectives().All())
	assert.Equal(t, c.Fleets().Scripted(), restored.Fleets().Scripted())
	assert.Equal(t, c.Dispatcher().Save(), restored.Dispatcher().Save())
	assert.Equal(t, "running", restored.Dispatcher().Save()["pirate-hunt"]["stage"])

	restored.Advance(huntHours)
	assert.True(t, restored.Objectives().IsFailed(huntObjective))
	_, ok := restored.World().Fleet(pirates.ID)
	assert.False(t, ok)
	next := restored.World().CreateFleet("Next", Empire, 0, 0)
	assert.Greater(t, int(next), int(pirates.ID), "fleet ids keep increasing after a reload")
}

func TestSaveRestore_DismissalSurvivesReload(t *testing.T) {
	c, clk := newTestCampaign(t, 1)
	c.Advance(3)
	deliver(t, c, mission.Lost(Achilles, Empire))
	clk.AdvanceMillis(4000)

	restored := roundTrip(t, c)
	rclk := restored.Clock().(*clock.Manual)
	at, ok := restored.Timers().FireAt(timer.Timeout, holdFail)
	require.True(t, ok)
	assert.Equal(t, mission.DismissDelayMillis-4000, at, "timeouts are re-anchored to the new clock")

	rclk.AdvanceMillis(at)
	restored.Pulse()
	require.Equal(t, []string{mission.MsgDismissed}, restored.Narrative().Pending())

	// the callback is lost on reload; acknowledging the message still ends the run
	again := roundTrip(t, restored)
	assert.Empty(t, again.Narrative().Pending())
	require.NoError(t, again.CompleteNarrative(mission.MsgDismissed, narrative.KindForced))
	assert.True(t, again.Ended())

	final := roundTrip(t, again)
	assert.True(t, final.Save().Ended())
}

func TestRestore_Errors(t *testing.T) {
	c, _ := newTestCampaign(t, 1)
	snap := c.Save()

	other := New(uuid.New(), Options{Logger: testLogger()})
	assert.Error(t, other.Restore(snap))
	assert.Error(t, other.Restore(nil))

	snap.Catalog = "elsewhere"
	_, err := Load(snap, Options{Logger: testLogger()})
	assert.Error(t, err)

	ahead := New(snap.ID, Options{Clock: clock.NewManual(10, 0), Logger: testLogger()})
	snap.Catalog = ""
	assert.Error(t, ahead.Restore(snap))
}

func TestReset_StartsTheLevelOver(t *testing.T) {
	c, clk := newTestCampaign(t, 1)
	c.Advance(3)
	deliver(t, c, mission.Lost(Achilles, Empire))
	clk.AdvanceMillis(mission.DismissDelayMillis)
	c.Pulse()
	require.NoError(t, c.CompleteNarrative(mission.MsgDismissed, narrative.KindForced))
	require.True(t, c.Ended())

	c.Reset()
	assert.False(t, c.Ended())
	assert.Equal(t, 1, c.Level())
	assert.Equal(t, objective.Objective{ID: holdObjective, State: objective.StateActive}, c.Objectives().Get(holdObjective))
	achilles, _ := c.World().Planet(Achilles)
	assert.Equal(t, Empire, achilles.Owner)

	c.Advance(1)
	assert.True(t, c.Objectives().InProgress(holdObjective))
}

func TestReset_DropsStaleDismissal(t *testing.T) {
	c, clk := newTestCampaign(t, 1)
	c.Advance(5)
	deliver(t, c, mission.Lost(Achilles, Empire))
	clk.AdvanceMillis(mission.DismissDelayMillis)
	c.Pulse()
	if got := c.Narrative().Pending(); len(got) != 1 || got[0] != mission.MsgDismissed {
		t.Fatalf("Expected dismissal pending, got %v", got)
	}

	c.Reset()
	c.Advance(1)
	if err := c.CompleteNarrative(mission.MsgDismissed, narrative.KindForced); err != nil {
		t.Fatalf("CompleteNarrative: %v", err)
	}
	if c.Ended() {
		t.Fatal("Expected the dismissal from the previous attempt to be ignored")
	}
	if !c.Objectives().InProgress(holdObjective) {
		t.Fatal("Expected the new attempt to keep holding Achilles")
	}
	if n := hasEntry(c.Narrative().Entries(), narrative.KindGameOver, ""); n != 0 {
		t.Fatalf("Expected no game over entry, got %d", n)
	}
}
