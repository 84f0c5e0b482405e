package fleet

import (
	"sort"

	"github.com/jwebster45206/campaign-engine/pkg/world"
)

// Registry creates fleets on behalf of missions, finds them by tag and tracks
// the set of scripted fleet ids for cleanup.
type Registry struct {
	world    world.World
	scripted map[world.FleetID]struct{}
}

// NewRegistry creates a registry over w with an empty scripted set
func NewRegistry(w world.World) *Registry {
	return &Registry{
		world:    w,
		scripted: make(map[world.FleetID]struct{}),
	}
}

// CreateFleet creates a fleet in the world and marks it scripted
func (r *Registry) CreateFleet(name, owner string, x, y float64) world.FleetID {
	id := r.world.CreateFleet(name, owner, x, y)
	r.scripted[id] = struct{}{}
	return id
}

// Tag marks every inventory item of the fleet with tag
func (r *Registry) Tag(id world.FleetID, tag string) bool {
	return r.world.SetInventoryTag(id, "", tag)
}

// TagItem marks only the items of one type
func (r *Registry) TagItem(id world.FleetID, itemType, tag string) bool {
	return r.world.SetInventoryTag(id, itemType, tag)
}

// FindByTag returns the lowest-id fleet of owner carrying tag.
// Several fleets sharing a tag is tolerated; the first one wins.
func (r *Registry) FindByTag(tag, owner string) (world.Fleet, bool) {
	for _, f := range r.world.Fleets(owner) {
		if f.HasTag(tag) {
			return f, true
		}
	}
	return world.Fleet{}, false
}

// FindAllByTag returns every fleet of owner carrying tag, ordered by id
func (r *Registry) FindAllByTag(tag, owner string) []world.Fleet {
	var out []world.Fleet
	for _, f := range r.world.Fleets(owner) {
		if f.HasTag(tag) {
			out = append(out, f)
		}
	}
	return out
}

func (r *Registry) AddScripted(id world.FleetID) {
	r.scripted[id] = struct{}{}
}

func (r *Registry) RemoveScripted(id world.FleetID) {
	delete(r.scripted, id)
}

func (r *Registry) IsScripted(id world.FleetID) bool {
	_, ok := r.scripted[id]
	return ok
}

// Scripted returns the scripted ids in ascending order
func (r *Registry) Scripted() []world.FleetID {
	out := make([]world.FleetID, 0, len(r.scripted))
	for id := range r.scripted {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RemoveFleet removes the fleet from the world and from the scripted set
func (r *Registry) RemoveFleet(id world.FleetID) bool {
	delete(r.scripted, id)
	return r.world.RemoveFleet(id)
}

// Release hands a scripted fleet back to normal AI control
func (r *Registry) Release(id world.FleetID) {
	delete(r.scripted, id)
}

// CleanupScripted drops ids whose fleet no longer exists and returns how many were dropped
func (r *Registry) CleanupScripted() int {
	dropped := 0
	for id := range r.scripted {
		if _, ok := r.world.Fleet(id); !ok {
			delete(r.scripted, id)
			dropped++
		}
	}
	return dropped
}

// Snapshot returns the scripted set for persistence
func (r *Registry) Snapshot() []world.FleetID {
	return r.Scripted()
}

// Restore replaces the scripted set
func (r *Registry) Restore(ids []world.FleetID) {
	r.scripted = make(map[world.FleetID]struct{}, len(ids))
	for _, id := range ids {
		r.scripted[id] = struct{}{}
	}
}
