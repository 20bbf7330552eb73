package interact

import (
	"project-hunter/server/internal/scene"
	"project-hunter/server/internal/vec"
)

// Actor is the pawn attempting an interaction.
type Actor interface {
	scene.Actor
	Location() vec.Vec3
}

// Interactable is the capability set every interactive object exposes.
// Implementations are identified by ActorID; two values with the same ID are
// the same target.
type Interactable interface {
	scene.Actor

	Descriptor() Descriptor
	Type() Type
	CanInteract(actor Actor) bool
	Location() vec.Vec3

	BeginFocus(actor Actor)
	EndFocus(actor Actor)

	OnInteract(actor Actor)

	HoldStart(actor Actor)
	HoldUpdate(actor Actor, progress float64)
	HoldComplete(actor Actor)
	HoldCancel(actor Actor)

	MashStart(actor Actor)
	MashUpdate(actor Actor, progress float64)
	MashComplete(actor Actor)
	MashFail(actor Actor)

	DisplayText() string
	WidgetOffset() vec.Vec3
}

// Carrier is implemented by scene actors that carry an interactable component
// instead of implementing the facet directly.
type Carrier interface {
	Interactable() Interactable
}

// Resolve returns the facet exposed by a scene actor, if any.
func Resolve(actor scene.Actor) (Interactable, bool) {
	if actor == nil {
		return nil, false
	}
	if facet, ok := actor.(Interactable); ok {
		return facet, true
	}
	if carrier, ok := actor.(Carrier); ok {
		facet := carrier.Interactable()
		return facet, facet != nil
	}
	return nil, false
}

// Same reports whether a and b refer to the same target.
func Same(a, b Interactable) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ActorID() == b.ActorID()
}

// Indicator is the widget-layer progress display.
type Indicator interface {
	Show(target Interactable)
	SetProgress(progress float64)
	Hide()
}

type nopIndicator struct{}

func (nopIndicator) Show(Interactable)   {}
func (nopIndicator) SetProgress(float64) {}
func (nopIndicator) Hide()               {}
