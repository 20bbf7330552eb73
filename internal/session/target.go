package session

import (
	"project-hunter/server/internal/ground"
	"project-hunter/server/internal/interact"
	"project-hunter/server/internal/scene"
	"project-hunter/server/internal/vec"
)

// groundActorBit marks scene IDs that stand for ground items so they never
// collide with world actors.
const groundActorBit scene.ID = 1 << 63

// groundTarget presents a ground item to the input machine. A tap takes it
// into the inventory; a completed hold equips it.
type groundTarget struct {
	s    *Session
	id   ground.ID
	desc interact.Descriptor
}

func (s *Session) groundFacet(id ground.ID) *groundTarget {
	return &groundTarget{s: s, id: id, desc: s.cfg.GroundDescriptor}
}

func groundIDOf(target interact.Interactable) (ground.ID, bool) {
	if g, ok := target.(*groundTarget); ok {
		return g.id, true
	}
	return ground.Invalid, false
}

func (g *groundTarget) ActorID() scene.ID                  { return groundActorBit | scene.ID(g.id) }
func (g *groundTarget) Descriptor() interact.Descriptor    { return g.desc }
func (g *groundTarget) Type() interact.Type                { return g.desc.Type }
func (g *groundTarget) DisplayText() string                { return g.desc.DisplayText() }
func (g *groundTarget) WidgetOffset() vec.Vec3             { return g.desc.WidgetOffset }
func (g *groundTarget) BeginFocus(interact.Actor)          {}
func (g *groundTarget) EndFocus(interact.Actor)            {}
func (g *groundTarget) HoldStart(interact.Actor)           {}
func (g *groundTarget) HoldUpdate(interact.Actor, float64) {}
func (g *groundTarget) HoldCancel(interact.Actor)          {}
func (g *groundTarget) MashStart(interact.Actor)           {}
func (g *groundTarget) MashUpdate(interact.Actor, float64) {}
func (g *groundTarget) MashComplete(interact.Actor)        {}
func (g *groundTarget) MashFail(interact.Actor)            {}

func (g *groundTarget) Location() vec.Vec3 {
	loc, _ := g.s.ground.Location(g.id)
	return loc
}

func (g *groundTarget) CanInteract(interact.Actor) bool {
	return g.desc.Enabled && g.s.ground.Contains(g.id)
}

func (g *groundTarget) OnInteract(interact.Actor) {
	g.s.pickupToInventory(g.id)
}

func (g *groundTarget) HoldComplete(interact.Actor) {
	g.s.pickupToEquipment(g.id)
}
