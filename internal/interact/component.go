package interact

import (
	"project-hunter/server/internal/scene"
	"project-hunter/server/internal/vec"
)

// EventKind names a facet lifecycle callback.
type EventKind string

const (
	EventBeginFocus   EventKind = "begin_focus"
	EventEndFocus     EventKind = "end_focus"
	EventInteract     EventKind = "interact"
	EventHoldStart    EventKind = "hold_start"
	EventHoldUpdate   EventKind = "hold_update"
	EventHoldComplete EventKind = "hold_complete"
	EventHoldCancel   EventKind = "hold_cancel"
	EventMashStart    EventKind = "mash_start"
	EventMashUpdate   EventKind = "mash_update"
	EventMashComplete EventKind = "mash_complete"
	EventMashFail     EventKind = "mash_fail"
)

// Event is broadcast to component listeners.
type Event struct {
	Kind     EventKind
	Target   scene.ID
	Actor    scene.ID
	Progress float64
}

// Listener receives component events.
type Listener func(Event)

// AcceptFunc is an extra acceptance predicate layered on the enable flag.
type AcceptFunc func(actor Actor) bool

// Component is the default Interactable. Acceptance is the enable flag plus an
// optional predicate; every hook is broadcast to listeners and hold/mash hooks
// drive the optional world-space indicator.
type Component struct {
	id        scene.ID
	desc      Descriptor
	location  vec.Vec3
	accept    AcceptFunc
	listeners []Listener
	indicator Indicator
	toggled   bool
}

// NewComponent builds a component for the actor id.
func NewComponent(id scene.ID, desc Descriptor, location vec.Vec3) *Component {
	return &Component{id: id, desc: desc, location: location, indicator: nopIndicator{}}
}

func (c *Component) ActorID() scene.ID { return c.id }

func (c *Component) Descriptor() Descriptor { return c.desc }

func (c *Component) Type() Type { return c.desc.Type }

func (c *Component) Location() vec.Vec3 { return c.location }

func (c *Component) DisplayText() string { return c.desc.DisplayText() }

func (c *Component) WidgetOffset() vec.Vec3 { return c.desc.WidgetOffset }

// Toggled reports the toggle state flipped by each Toggle interaction.
func (c *Component) Toggled() bool { return c.toggled }

// SetLocation moves the component's world anchor.
func (c *Component) SetLocation(location vec.Vec3) { c.location = location }

// SetType changes the interaction mode at runtime.
func (c *Component) SetType(t Type) { c.desc.Type = t }

// SetEnabled flips the acceptance flag at runtime.
func (c *Component) SetEnabled(enabled bool) { c.desc.Enabled = enabled }

// Configure replaces the whole descriptor.
func (c *Component) Configure(desc Descriptor) { c.desc = desc }

// SetAcceptance installs an extra acceptance predicate.
func (c *Component) SetAcceptance(fn AcceptFunc) { c.accept = fn }

// SetIndicator installs the world-space progress indicator.
func (c *Component) SetIndicator(indicator Indicator) {
	if indicator == nil {
		indicator = nopIndicator{}
	}
	c.indicator = indicator
}

// Subscribe registers a listener for every lifecycle event.
func (c *Component) Subscribe(listener Listener) {
	if listener == nil {
		return
	}
	c.listeners = append(c.listeners, listener)
}

func (c *Component) CanInteract(actor Actor) bool {
	if c.desc.Type == TypeDisabled || !c.desc.Enabled {
		return false
	}
	if c.accept != nil && !c.accept(actor) {
		return false
	}
	return true
}

func (c *Component) BeginFocus(actor Actor) { c.broadcast(EventBeginFocus, actor, 0) }

func (c *Component) EndFocus(actor Actor) { c.broadcast(EventEndFocus, actor, 0) }

func (c *Component) OnInteract(actor Actor) {
	if c.desc.Type == TypeToggle {
		c.toggled = !c.toggled
	}
	c.broadcast(EventInteract, actor, 1)
}

func (c *Component) HoldStart(actor Actor) {
	c.indicator.Show(c)
	c.broadcast(EventHoldStart, actor, 0)
}

func (c *Component) HoldUpdate(actor Actor, progress float64) {
	c.indicator.SetProgress(progress)
	c.broadcast(EventHoldUpdate, actor, progress)
}

func (c *Component) HoldComplete(actor Actor) {
	c.indicator.Hide()
	c.broadcast(EventHoldComplete, actor, 1)
}

func (c *Component) HoldCancel(actor Actor) {
	c.indicator.Hide()
	c.broadcast(EventHoldCancel, actor, 0)
}

func (c *Component) MashStart(actor Actor) {
	c.indicator.Show(c)
	c.broadcast(EventMashStart, actor, 0)
}

func (c *Component) MashUpdate(actor Actor, progress float64) {
	c.indicator.SetProgress(progress)
	c.broadcast(EventMashUpdate, actor, progress)
}

func (c *Component) MashComplete(actor Actor) {
	c.indicator.Hide()
	c.broadcast(EventMashComplete, actor, 1)
}

func (c *Component) MashFail(actor Actor) {
	c.indicator.Hide()
	c.broadcast(EventMashFail, actor, 0)
}

func (c *Component) broadcast(kind EventKind, actor Actor, progress float64) {
	if len(c.listeners) == 0 {
		return
	}
	evt := Event{Kind: kind, Target: c.id, Progress: progress}
	if actor != nil {
		evt.Actor = actor.ActorID()
	}
	for _, listener := range c.listeners {
		listener(evt)
	}
}
