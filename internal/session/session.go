// Package session runs the interaction core for one controlling player:
// view point, detection, the input machine, validation and ground pickups.
package session

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"

	"project-hunter/server/internal/detect"
	"project-hunter/server/internal/ground"
	"project-hunter/server/internal/interact"
	"project-hunter/server/internal/pickup"
	"project-hunter/server/internal/scene"
	"project-hunter/server/internal/validate"
	"project-hunter/server/logging"
	"project-hunter/server/logging/interaction"
)

// Config tunes a session.
type Config struct {
	// InteractionDistance is the reach the validator checks against before
	// the latency budget is added.
	InteractionDistance float64
	// PickupRadius bounds PickupAllNearby.
	PickupRadius float64
	// GroundDescriptor is advertised by every focused ground item.
	GroundDescriptor interact.Descriptor

	Detect  detect.Config
	View    detect.ViewConfig
	Machine interact.MachineConfig
}

// DefaultConfig returns the standard session tuning.
func DefaultConfig() Config {
	ground := interact.DefaultDescriptor(interact.TypeTapOrHold)
	ground.ActionHandle = "pickup"
	return Config{
		InteractionDistance: 300,
		PickupRadius:        200,
		GroundDescriptor:    ground,
		Detect:              detect.DefaultConfig(),
		View:                detect.DefaultViewConfig(),
		Machine:             interact.DefaultMachineConfig(),
	}
}

func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.InteractionDistance <= 0 {
		c.InteractionDistance = def.InteractionDistance
	}
	if c.PickupRadius <= 0 {
		c.PickupRadius = def.PickupRadius
	}
	if c.GroundDescriptor.Validate() != nil || c.GroundDescriptor.Type == interact.TypeDisabled {
		c.GroundDescriptor = def.GroundDescriptor
	}
	return c
}

// Deps are the collaborators a session is built over.
type Deps struct {
	World     scene.World
	Ground    *ground.Registry
	Owner     detect.Owner
	Camera    detect.Camera
	Validator *validate.Validator
	Inventory pickup.Inventory
	Equipment pickup.Equipment
	Publisher logging.Publisher
	// Tick reports the simulation tick stamped on events.
	Tick func() uint64
}

// Focus is the current detection result. At most one of Target and
// GroundID is set.
type Focus struct {
	Target    interact.Interactable
	GroundID  ground.ID
	HasGround bool
}

// Empty reports whether nothing is focused.
func (f Focus) Empty() bool { return f.Target == nil && !f.HasGround }

func (f Focus) same(o Focus) bool {
	if f.HasGround || o.HasGround {
		return f.HasGround == o.HasGround && f.GroundID == o.GroundID
	}
	return interact.Same(f.Target, o.Target)
}

// TargetChangedFunc observes focus changes. Both values are zero when focus
// is lost.
type TargetChangedFunc func(target interact.Interactable, groundID ground.ID)

// Session is one controller's interaction core. It is driven from a single
// goroutine; only the outbox and counters are locked.
type Session struct {
	id   string
	cfg  Config
	deps Deps

	view      *detect.ViewPoint
	detector  *detect.Detector
	machine   *interact.Machine
	validator *validate.Validator
	pickup    *pickup.Coordinator
	ground    *ground.Registry

	indicator progressIndicator
	actorRef  logging.EntityRef
	focus     Focus
	listener  []TargetChangedFunc
	callCtx   context.Context

	mu       sync.Mutex
	outbox   []Notice
	counters Counters
	last     string
}

// Option configures a Session.
type Option func(*Session)

// WithID overrides the generated session id.
func WithID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// WithIndicator forwards machine progress to a HUD indicator in addition to
// the session outbox.
func WithIndicator(indicator interact.Indicator) Option {
	return func(s *Session) {
		s.indicator.next = indicator
	}
}

// New builds a session. Ground and Owner are required; a nil Validator gets
// a default one over World and Ground.
func New(cfg Config, deps Deps, opts ...Option) *Session {
	cfg = cfg.normalized()
	if deps.Ground == nil {
		deps.Ground = ground.NewRegistry()
	}
	if deps.Publisher == nil {
		deps.Publisher = logging.NopPublisher()
	}
	if deps.Tick == nil {
		deps.Tick = func() uint64 { return 0 }
	}
	if deps.Validator == nil {
		deps.Validator = validate.New(validate.DefaultConfig(), validate.WithWorld(deps.World), validate.WithGround(deps.Ground))
	}

	s := &Session{
		id:        ulid.Make().String(),
		cfg:       cfg,
		deps:      deps,
		view:      detect.NewViewPoint(cfg.View, deps.Owner, deps.Camera),
		detector:  detect.New(cfg.Detect, deps.Ground),
		validator: deps.Validator,
		ground:    deps.Ground,
		callCtx:   context.Background(),
		counters:  Counters{Transitions: make(map[interact.State]uint64)},
	}
	s.indicator.s = s
	if deps.Owner != nil {
		s.actorRef = logging.Ref(logging.EntityKindPlayer, uint64(deps.Owner.ActorID()))
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.pickup = pickup.New(deps.Ground, deps.Inventory, deps.Equipment,
		pickup.WithPublisher(deps.Publisher, s.actorRef),
		pickup.WithTick(deps.Tick),
	)
	s.machine = interact.NewMachine(deps.Owner, cfg.Machine,
		interact.WithIndicator(&s.indicator),
		interact.WithCommit(s.commit),
		interact.WithObserver(s.observe),
	)
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Machine exposes the input machine for inspection.
func (s *Session) Machine() *interact.Machine { return s.machine }

// Validator returns the session's validator.
func (s *Session) Validator() *validate.Validator { return s.validator }

// OnTargetChanged registers a focus observer.
func (s *Session) OnTargetChanged(fn TargetChangedFunc) {
	if fn != nil {
		s.listener = append(s.listener, fn)
	}
}

// CurrentInteractable returns the focused interactable, if any.
func (s *Session) CurrentInteractable() (interact.Interactable, bool) {
	return s.focus.Target, s.focus.Target != nil
}

// CurrentGroundItem returns the focused ground item id, if any.
func (s *Session) CurrentGroundItem() (ground.ID, bool) {
	return s.focus.GroundID, s.focus.HasGround
}

// Focus returns the current focus.
func (s *Session) Focus() Focus { return s.focus }

// Tick runs detection, moves focus and advances the machine by dt seconds.
func (s *Session) Tick(ctx context.Context, dt float64) {
	defer s.enter(ctx)()
	origin, forward := s.view.Resolve()
	res := s.detector.Detect(s.deps.World, origin, forward, s.deps.Owner)
	s.setFocus(Focus{Target: res.Target, GroundID: res.GroundID, HasGround: res.HasGround})
	s.machine.Update(dt)
}

// OnPress handles the interact button going down.
func (s *Session) OnPress(ctx context.Context) {
	defer s.enter(ctx)()
	s.machine.Press()
}

// OnRelease handles the interact button going up.
func (s *Session) OnRelease(ctx context.Context) {
	defer s.enter(ctx)()
	s.machine.Release()
}

// Cancel aborts the active interaction.
func (s *Session) Cancel(ctx context.Context) {
	defer s.enter(ctx)()
	s.machine.Cancel()
}

// PickupAllNearby takes every ground item within the pickup radius into the
// inventory, nearest id first. Items that fail validation or do not fit stay
// on the ground.
func (s *Session) PickupAllNearby(ctx context.Context) ([]*pickup.Result, []*pickup.Failure) {
	if s.deps.Owner == nil {
		return nil, nil
	}
	defer s.enter(ctx)()
	origin := s.deps.Owner.Location()
	var (
		results  []*pickup.Result
		failures []*pickup.Failure
	)
	for _, entry := range s.ground.InRadius(origin, s.cfg.PickupRadius) {
		if f := s.validator.ValidateGround(entry.ID, s.deps.Owner, origin, s.cfg.InteractionDistance); f != nil {
			s.rejected(nil, entry.ID, f)
			continue
		}
		result, failure := s.pickupToInventory(entry.ID)
		if failure != nil {
			failures = append(failures, failure)
			continue
		}
		results = append(results, result)
	}
	return results, failures
}

func (s *Session) enter(ctx context.Context) func() {
	if ctx == nil {
		ctx = context.Background()
	}
	prev := s.callCtx
	s.callCtx = ctx
	return func() { s.callCtx = prev }
}

func (s *Session) setFocus(next Focus) {
	if s.focus.same(next) {
		return
	}
	prev := s.focus
	s.focus = next

	var target interact.Interactable
	switch {
	case next.Target != nil:
		target = next.Target
	case next.HasGround:
		target = s.groundFacet(next.GroundID)
	}
	s.machine.SetFocus(target)

	interaction.FocusChanged(s.callCtx, s.deps.Publisher, s.deps.Tick(), s.actorRef, interaction.FocusPayload{
		Previous: focusID(prev),
		Current:  focusID(next),
		GroundID: uint64(next.GroundID),
	}, nil)
	notice := Notice{Kind: NoticeFocus, GroundID: uint64(next.GroundID)}
	if target != nil {
		notice.TargetID = uint64(target.ActorID())
		notice.Text = target.DisplayText()
		notice.Mode = target.Type().String()
	}
	s.push(notice)
	for _, fn := range s.listener {
		fn(next.Target, next.GroundID)
	}
}

func focusID(f Focus) uint64 {
	switch {
	case f.Target != nil:
		return uint64(f.Target.ActorID())
	case f.HasGround:
		return uint64(groundActorBit | scene.ID(f.GroundID))
	default:
		return 0
	}
}

// commit is the machine's gate: the validator runs before any terminal hook.
func (s *Session) commit(target interact.Interactable, _ interact.Type) bool {
	if s.deps.Owner == nil {
		return false
	}
	origin := s.deps.Owner.Location()
	var failure *validate.Failure
	if id, ok := groundIDOf(target); ok {
		failure = s.validator.ValidateGround(id, s.deps.Owner, origin, s.cfg.InteractionDistance)
	} else {
		failure = s.validator.Validate(target, s.deps.Owner, origin, s.cfg.InteractionDistance)
	}
	if failure == nil {
		return true
	}
	id, _ := groundIDOf(target)
	s.rejected(target, id, failure)
	return false
}

func (s *Session) rejected(target interact.Interactable, id ground.ID, failure *validate.Failure) {
	interaction.ValidationRejected(s.callCtx, s.deps.Publisher, s.deps.Tick(), s.actorRef, targetRef(target, id), interaction.RejectedPayload{
		Reason:   string(failure.Reason),
		Distance: failure.Distance,
		Allowed:  failure.Allowed,
		Detail:   failure.Detail,
	}, nil)
	s.mu.Lock()
	s.counters.Rejected++
	s.last = failure.Error()
	s.mu.Unlock()
	s.push(Notice{Kind: NoticeRejected, GroundID: uint64(id), Reason: string(failure.Reason)})
}

func (s *Session) observe(t interact.Transition) {
	id, _ := groundIDOf(t.Target)
	interaction.Transition(s.callCtx, s.deps.Publisher, s.deps.Tick(), s.actorRef, targetRef(t.Target, id), interaction.TransitionPayload{
		From: string(t.From),
		To:   string(t.To),
		Mode: t.Mode.String(),
		Time: t.Time,
	}, nil)
	notice := Notice{Kind: NoticeState, State: string(t.To), Mode: t.Mode.String(), GroundID: uint64(id)}
	if t.Target != nil {
		notice.TargetID = uint64(t.Target.ActorID())
	}
	s.push(notice)
	if t.To.Terminal() {
		s.mu.Lock()
		s.counters.Transitions[t.To]++
		s.mu.Unlock()
	}
}

func (s *Session) pickupToInventory(id ground.ID) (*pickup.Result, *pickup.Failure) {
	result, failure := s.pickup.ToInventory(s.callCtx, id)
	s.recordPickup(id, result, failure)
	return result, failure
}

func (s *Session) pickupToEquipment(id ground.ID) (*pickup.Result, *pickup.Failure) {
	result, failure := s.pickup.ToEquipment(s.callCtx, id)
	s.recordPickup(id, result, failure)
	return result, failure
}

func (s *Session) recordPickup(id ground.ID, result *pickup.Result, failure *pickup.Failure) {
	s.mu.Lock()
	if failure != nil {
		s.counters.PickupFailures++
		s.last = failure.Error()
	} else {
		s.counters.Pickups++
	}
	s.mu.Unlock()

	notice := Notice{Kind: NoticePickup, GroundID: uint64(id)}
	if failure != nil {
		notice.Reason = string(failure.Reason)
	} else if result != nil {
		notice.Destination = string(result.Destination)
		if result.Item != nil {
			notice.ItemID = result.Item.ID
		}
	}
	s.push(notice)
}

func targetRef(target interact.Interactable, id ground.ID) logging.EntityRef {
	if id != ground.Invalid {
		return logging.Ref(logging.EntityKindGroundItem, uint64(id))
	}
	if target == nil {
		return logging.EntityRef{Kind: logging.EntityKindUnknown}
	}
	return logging.Ref(logging.EntityKindInteractable, uint64(target.ActorID()))
}
