package campaign

import (
	"github.com/jwebster45206/campaign-engine/pkg/mission"
	"github.com/jwebster45206/campaign-engine/pkg/world"
)

// Players and planets of the Frontier campaign referenced by its missions.
const (
	Empire  = "Empire"
	Pirates = "Pirates"
	Traders = "Traders"
	Garthog = "Garthog"

	Achilles  = "Achilles"
	Naxos     = "Naxos"
	Centronom = "Centronom"
)

// spawnOffset is how far from a planet scripted fleets appear.
const spawnOffset = 30

// Roster returns the Frontier mission units in delivery order
func Roster(env mission.Env) []mission.Unit {
	return []mission.Unit{
		newHoldAchilles(env),
		newPirateHunt(env),
		newEscort(env),
		newEnvoy(env),
		newReclaim(env),
		newArmada(env),
		newOutposts(env),
	}
}

func planetPos(w world.World, id string) (float64, float64) {
	p, ok := w.Planet(id)
	if !ok {
		return 0, 0
	}
	return p.X, p.Y
}

// spawn creates a scripted fleet of count ships near planet and tags it
func spawn(env mission.Env, name, owner, planet, ship string, count int, tag string) world.FleetID {
	x, y := planetPos(env.World, planet)
	id := env.Fleets.CreateFleet(name, owner, x+spawnOffset, y)
	env.World.ChangeInventory(id, ship, count)
	env.Fleets.Tag(id, tag)
	env.Logger.Debug("Scripted fleet spawned", "fleet", id, "owner", owner, "tag", tag)
	return id
}

// removeTagged removes every scripted fleet of owner carrying tag
func removeTagged(env mission.Env, tag, owner string) int {
	n := 0
	for _, f := range env.Fleets.FindAllByTag(tag, owner) {
		if env.Fleets.RemoveFleet(f.ID) {
			n++
		}
	}
	return n
}

func isCombatOutcome(k mission.Kind) bool {
	return k == mission.KindSpacewarFinish || k == mission.KindAutobattleFinish || k == mission.KindFleetDestroyed
}
