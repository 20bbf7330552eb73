package session

import (
	"context"
	"testing"

	"project-hunter/server/internal/ground"
	"project-hunter/server/internal/interact"
	"project-hunter/server/internal/items"
	"project-hunter/server/internal/pickup"
	"project-hunter/server/internal/scene"
	"project-hunter/server/internal/validate"
	"project-hunter/server/internal/vec"
	"project-hunter/server/logging"
	"project-hunter/server/logging/interaction"
)

type pawn struct {
	id      scene.ID
	loc     vec.Vec3
	forward vec.Vec3
}

func (p *pawn) ActorID() scene.ID  { return p.id }
func (p *pawn) Location() vec.Vec3 { return p.loc }
func (p *pawn) Forward() vec.Vec3  { return p.forward }
func (p *pawn) EyeHeight() float64 { return 0 }

type refusingInventory struct{ calls int }

func (r *refusingInventory) Add(*items.Item) bool {
	r.calls++
	return false
}

type recorder struct{ events []logging.Event }

func (r *recorder) Publish(_ context.Context, e logging.Event) { r.events = append(r.events, e) }

func (r *recorder) count(t logging.EventType) int {
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

type fixture struct {
	scene     *scene.Scene
	ground    *ground.Registry
	owner     *pawn
	validator *validate.Validator
	equipment *items.Equipment
	events    *recorder
}

func newFixture() *fixture {
	s := scene.New()
	g := ground.NewRegistry()
	return &fixture{
		scene:     s,
		ground:    g,
		owner:     &pawn{id: 1, forward: vec.New(1, 0, 0)},
		validator: validate.New(validate.DefaultConfig(), validate.WithWorld(s), validate.WithGround(g)),
		equipment: items.NewEquipment(),
		events:    &recorder{},
	}
}

func (f *fixture) session(cfg Config, inventory pickup.Inventory) *Session {
	return New(cfg, Deps{
		World:     f.scene,
		Ground:    f.ground,
		Owner:     f.owner,
		Validator: f.validator,
		Inventory: inventory,
		Equipment: f.equipment,
		Publisher: f.events,
	})
}

func sword(id string) *items.Item {
	return &items.Item{ID: id, Type: items.ItemTypeIronSword, Class: items.ClassWeapon, Subtype: items.SubtypeSword, Stack: 1}
}

func helm(id string) *items.Item {
	return &items.Item{ID: id, Type: items.ItemTypeIronHelm, Class: items.ClassArmor, Subtype: items.SubtypeHelmet, Stack: 1}
}

func addTap(s *scene.Scene, id scene.ID, at vec.Vec3) (*interact.Component, *[]interact.EventKind) {
	c := interact.NewComponent(id, interact.DefaultDescriptor(interact.TypeTap), at)
	var seen []interact.EventKind
	c.Subscribe(func(e interact.Event) { seen = append(seen, e.Kind) })
	s.Add(scene.Body{Actor: c, Center: at, Radius: 10})
	return c, &seen
}

func countKind(kinds []interact.EventKind, kind interact.EventKind) int {
	n := 0
	for _, k := range kinds {
		if k == kind {
			n++
		}
	}
	return n
}

func TestTapInteractsOnceWithoutValidationFailures(t *testing.T) {
	f := newFixture()
	target, seen := addTap(f.scene, 10, vec.New(200, 0, 0))
	s := f.session(DefaultConfig(), items.NewInventory(4))
	ctx := context.Background()

	s.Tick(ctx, 0)
	if got, ok := s.CurrentInteractable(); !ok || got.ActorID() != target.ActorID() {
		t.Fatalf("expected focus on the tap target")
	}
	s.OnPress(ctx)
	s.Tick(ctx, 0.05)
	s.OnRelease(ctx)

	if n := countKind(*seen, interact.EventInteract); n != 1 {
		t.Fatalf("expected on_interact once, got %d", n)
	}
	if f.validator.Failures() != 0 {
		t.Fatalf("expected no validation failures, got %v", f.validator.Counters())
	}
	if s.Machine().Record().State != interact.StateIdle {
		t.Fatalf("expected idle record after the tap")
	}

	var completed bool
	for _, n := range s.Drain() {
		if n.Kind == NoticeState && n.State == string(interact.StateCompleted) {
			completed = true
		}
	}
	if !completed {
		t.Fatalf("expected a completed state notice")
	}
	if len(s.Drain()) != 0 {
		t.Fatalf("expected drained outbox")
	}
	if f.events.count(interaction.EventTransition) == 0 || f.events.count(interaction.EventFocusChanged) != 1 {
		t.Fatalf("expected transition and focus events, got %d focus", f.events.count(interaction.EventFocusChanged))
	}
}

func TestTapPickupRollsBackWhenInventoryRefuses(t *testing.T) {
	f := newFixture()
	for i := 1; i < 17; i++ {
		f.ground.Remove(f.ground.Insert(helm("filler"), vec.New(1000, 0, 0)))
	}
	item := sword("blade")
	id := f.ground.Insert(item, vec.New(10, 10, 0))
	if id != 17 {
		t.Fatalf("expected ground id 17, got %d", id)
	}
	inventory := &refusingInventory{}
	s := f.session(DefaultConfig(), inventory)
	ctx := context.Background()

	s.Tick(ctx, 0)
	if got, ok := s.CurrentGroundItem(); !ok || got != id {
		t.Fatalf("expected ground focus on 17, got %d %v", got, ok)
	}
	s.OnPress(ctx)
	s.Tick(ctx, 0.05)
	s.OnRelease(ctx)

	if inventory.calls != 1 {
		t.Fatalf("expected one inventory add attempt, got %d", inventory.calls)
	}
	loc, ok := f.ground.Location(17)
	if !ok || !loc.Equal(vec.New(10, 10, 0)) {
		t.Fatalf("expected item 17 back at (10,10,0), got %+v %v", loc, ok)
	}
	if got, _ := f.ground.Get(17); got != item {
		t.Fatalf("expected the same item restored")
	}
	if f.equipment.Len() != 0 {
		t.Fatalf("expected no equipment change")
	}
	diag := s.Diagnostics()
	if diag.Counters.PickupFailures != 1 || diag.LastFailure == "" {
		t.Fatalf("expected one recorded pickup failure, got %+v", diag.Counters)
	}
	if err := f.ground.Verify(); err != nil {
		t.Fatalf("registry incoherent: %v", err)
	}
}

func TestFocusIsExclusiveAndOrdered(t *testing.T) {
	f := newFixture()
	target, seen := addTap(f.scene, 10, vec.New(200, 0, 0))
	groundID := f.ground.Insert(helm("cap"), vec.New(50, 0, 0))
	s := f.session(DefaultConfig(), items.NewInventory(4))
	var changes []ground.ID
	s.OnTargetChanged(func(_ interact.Interactable, id ground.ID) { changes = append(changes, id) })
	ctx := context.Background()

	s.Tick(ctx, 0)
	if _, ok := s.CurrentGroundItem(); ok {
		t.Fatalf("interactable focus must suppress ground focus")
	}
	if _, ok := s.CurrentInteractable(); !ok {
		t.Fatalf("expected interactable focus")
	}
	s.Tick(ctx, 0)
	if len(changes) != 1 {
		t.Fatalf("expected unchanged focus to stay quiet, got %d changes", len(changes))
	}

	f.scene.Remove(target.ActorID())
	s.Tick(ctx, 0)
	if _, ok := s.CurrentInteractable(); ok {
		t.Fatalf("expected interactable focus cleared")
	}
	if got, ok := s.CurrentGroundItem(); !ok || got != groundID {
		t.Fatalf("expected ground focus on %d", groundID)
	}
	if len(changes) != 2 || changes[1] != groundID {
		t.Fatalf("expected a second change to the ground item, got %v", changes)
	}
	kinds := *seen
	if len(kinds) != 2 || kinds[0] != interact.EventBeginFocus || kinds[1] != interact.EventEndFocus {
		t.Fatalf("expected begin then end focus, got %v", kinds)
	}
}

func TestHoldOnGroundItemEquips(t *testing.T) {
	f := newFixture()
	id := f.ground.Insert(sword("blade"), vec.New(40, 0, 0))
	s := f.session(DefaultConfig(), items.NewInventory(4))
	ctx := context.Background()

	s.Tick(ctx, 0)
	s.OnPress(ctx)
	s.Tick(ctx, 0.3)
	if rec := s.Machine().Record(); !rec.Graduated || rec.State != interact.StateInProgress {
		t.Fatalf("expected graduated hold, got %+v", rec)
	}
	s.Tick(ctx, 1.0)
	equipped, ok := f.equipment.Get(items.SlotMainHand)
	if !ok || equipped.ID != "blade" {
		t.Fatalf("expected sword in main hand")
	}
	if f.ground.Contains(id) {
		t.Fatalf("expected ground entry removed")
	}
	s.OnRelease(ctx)
	s.Tick(ctx, 0)
	if _, ok := s.CurrentGroundItem(); ok {
		t.Fatalf("expected focus cleared once the item is gone")
	}
	if diag := s.Diagnostics(); diag.Counters.Pickups != 1 || diag.Counters.Transitions[interact.StateCompleted] != 1 {
		t.Fatalf("unexpected counters %+v", diag.Counters)
	}
}

func TestCommitGateRejectsOutOfReachTarget(t *testing.T) {
	f := newFixture()
	_, seen := addTap(f.scene, 10, vec.New(200, 0, 0))
	cfg := DefaultConfig()
	cfg.InteractionDistance = 100
	s := f.session(cfg, items.NewInventory(4))
	ctx := context.Background()

	s.Tick(ctx, 0)
	s.OnPress(ctx)
	s.OnRelease(ctx)

	if countKind(*seen, interact.EventInteract) != 0 {
		t.Fatalf("expected no interaction past the reach limit")
	}
	diag := s.Diagnostics()
	if diag.ValidationFailures[string(validate.ReasonDistance)] != 1 {
		t.Fatalf("expected one distance failure, got %v", diag.ValidationFailures)
	}
	if diag.Counters.Transitions[interact.StateFailed] != 1 || diag.Counters.Rejected != 1 {
		t.Fatalf("expected a failed transition, got %+v", diag.Counters)
	}
	if f.events.count(interaction.EventValidationRejected) != 1 {
		t.Fatalf("expected a rejection event")
	}
}

func TestPickupAllNearbyStopsAtCapacity(t *testing.T) {
	f := newFixture()
	f.ground.Insert(sword("a"), vec.New(30, 0, 0))
	f.ground.Insert(helm("b"), vec.New(0, 30, 0))
	f.ground.Insert(sword("c"), vec.New(-30, 0, 0))
	far := f.ground.Insert(helm("far"), vec.New(900, 0, 0))
	s := f.session(DefaultConfig(), items.NewInventory(2))

	results, failures := s.PickupAllNearby(context.Background())
	if len(results) != 2 || len(failures) != 1 {
		t.Fatalf("expected 2 pickups and 1 failure, got %d and %d", len(results), len(failures))
	}
	if failures[0].Reason != pickup.ReasonInventoryFull {
		t.Fatalf("expected inventory_full, got %s", failures[0].Reason)
	}
	if f.ground.Len() != 2 || !f.ground.Contains(far) {
		t.Fatalf("expected the overflow item and the distant item to stay, got %d", f.ground.Len())
	}
}
