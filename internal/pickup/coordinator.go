// Package pickup moves ground items into an actor's inventory or equipment
// and rolls the ground registry back when the move cannot complete.
package pickup

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"project-hunter/server/internal/ground"
	"project-hunter/server/internal/items"
	"project-hunter/server/internal/vec"
	"project-hunter/server/logging"
	"project-hunter/server/logging/economy"
)

const tracerName = "project-hunter/server/internal/pickup"

// Reason tags a pickup failure.
type Reason string

const (
	ReasonStaleID       Reason = "stale_id"
	ReasonInventoryFull Reason = "inventory_full"
	ReasonEquipFailed   Reason = "equip_failed"
)

// Failure describes a refused or rolled back pickup.
type Failure struct {
	Reason   Reason
	GroundID ground.ID
	Detail   string
}

func (f *Failure) Error() string {
	if f == nil {
		return "<nil>"
	}
	if f.Detail != "" {
		return fmt.Sprintf("pickup %d: %s: %s", f.GroundID, f.Reason, f.Detail)
	}
	return fmt.Sprintf("pickup %d: %s", f.GroundID, f.Reason)
}

// Destination names where an item ended up.
type Destination string

const (
	DestinationInventory Destination = "inventory"
	DestinationEquipment Destination = "equipment"
	DestinationGround    Destination = "ground"
)

// Result describes a completed pickup.
type Result struct {
	GroundID    ground.ID
	Item        *items.Item
	Destination Destination
	Slot        items.EquipSlot

	// Displaced is the item pushed out of Slot, if any.
	Displaced         *items.Item
	DisplacedTo       Destination
	DisplacedGroundID ground.ID
}

// Inventory is the actor's bag. Add must leave the inventory unchanged when
// it returns false.
type Inventory interface {
	Add(item *items.Item) bool
}

// Equipment is the actor's paper doll.
type Equipment interface {
	Equip(item *items.Item, slot items.EquipSlot) (*items.Item, error)
}

// Ground is the slice of the ground registry the coordinator mutates.
type Ground interface {
	Entry(id ground.ID) (ground.Entry, bool)
	Remove(id ground.ID) *items.Item
	Restore(id ground.ID, item *items.Item, location vec.Vec3) error
	Insert(item *items.Item, location vec.Vec3) ground.ID
}

// Coordinator performs pickups for one actor.
type Coordinator struct {
	ground    Ground
	inventory Inventory
	equipment Equipment

	publisher logging.Publisher
	actor     logging.EntityRef
	tick      func() uint64
	tracer    trace.Tracer
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithPublisher reports pickups as economy events attributed to actor.
func WithPublisher(pub logging.Publisher, actor logging.EntityRef) Option {
	return func(c *Coordinator) {
		if pub != nil {
			c.publisher = pub
		}
		c.actor = actor
	}
}

// WithTick supplies the simulation tick stamped on events.
func WithTick(tick func() uint64) Option {
	return func(c *Coordinator) {
		if tick != nil {
			c.tick = tick
		}
	}
}

// WithTracer overrides the global tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Coordinator) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// New builds a coordinator. equipment may be nil, in which case equip
// requests fall back to the inventory.
func New(g Ground, inventory Inventory, equipment Equipment, opts ...Option) *Coordinator {
	c := &Coordinator{
		ground:    g,
		inventory: inventory,
		equipment: equipment,
		publisher: logging.NopPublisher(),
		tick:      func() uint64 { return 0 },
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// ToInventory moves ground item id into the inventory. When the inventory
// refuses, the item is restored at its original location under the same id.
func (c *Coordinator) ToInventory(ctx context.Context, id ground.ID) (*Result, *Failure) {
	ctx, span := c.tracer.Start(ctx, "pickup.to_inventory", trace.WithAttributes(attribute.Int64("ground.id", int64(id))))
	defer span.End()

	entry, item, failure := c.take(id)
	if failure != nil {
		return nil, c.failed(ctx, span, failure)
	}
	if !c.addToInventory(item) {
		c.rollback(entry)
		return nil, c.failed(ctx, span, &Failure{Reason: ReasonInventoryFull, GroundID: id})
	}
	result := &Result{GroundID: id, Item: item, Destination: DestinationInventory}
	economy.ItemPickedUp(ctx, c.publisher, c.tick(), c.actor, itemPayload(id, item), traceExtra(ctx))
	return result, nil
}

// ToEquipment equips ground item id into the slot its type maps to. Items
// without a slot go to the inventory instead. A displaced item goes to the
// inventory, or back onto the ground at the pickup location when the
// inventory is full.
func (c *Coordinator) ToEquipment(ctx context.Context, id ground.ID) (*Result, *Failure) {
	ctx, span := c.tracer.Start(ctx, "pickup.to_equipment", trace.WithAttributes(attribute.Int64("ground.id", int64(id))))
	defer span.End()

	entry, item, failure := c.take(id)
	if failure != nil {
		return nil, c.failed(ctx, span, failure)
	}

	slot, ok := items.SlotFor(item)
	if !ok || c.equipment == nil {
		if !c.addToInventory(item) {
			c.rollback(entry)
			return nil, c.failed(ctx, span, &Failure{Reason: ReasonInventoryFull, GroundID: id})
		}
		economy.ItemPickedUp(ctx, c.publisher, c.tick(), c.actor, itemPayload(id, item), traceExtra(ctx))
		return &Result{GroundID: id, Item: item, Destination: DestinationInventory}, nil
	}

	displaced, err := c.equipment.Equip(item, slot)
	if err != nil {
		c.rollback(entry)
		return nil, c.failed(ctx, span, &Failure{Reason: ReasonEquipFailed, GroundID: id, Detail: err.Error()})
	}
	span.SetAttributes(attribute.String("equip.slot", string(slot)))

	result := &Result{GroundID: id, Item: item, Destination: DestinationEquipment, Slot: slot}
	economy.ItemEquipped(ctx, c.publisher, c.tick(), c.actor, economy.EquippedPayload{ItemPayload: itemPayload(id, item), Slot: string(slot)}, traceExtra(ctx))

	if displaced != nil {
		result.Displaced = displaced
		if c.addToInventory(displaced) {
			result.DisplacedTo = DestinationInventory
		} else {
			result.DisplacedTo = DestinationGround
			result.DisplacedGroundID = c.ground.Insert(displaced, entry.Location)
		}
		economy.ItemDisplaced(ctx, c.publisher, c.tick(), c.actor, economy.DisplacedPayload{
			ItemID:      displaced.ID,
			Slot:        string(slot),
			Destination: string(result.DisplacedTo),
			GroundID:    uint64(result.DisplacedGroundID),
		}, traceExtra(ctx))
	}
	return result, nil
}

// take looks id up and removes it. The registry is the only source of truth,
// so a repeated commit of the same id fails with stale_id.
func (c *Coordinator) take(id ground.ID) (ground.Entry, *items.Item, *Failure) {
	if c.ground == nil {
		return ground.Entry{}, nil, &Failure{Reason: ReasonStaleID, GroundID: id, Detail: "no ground registry"}
	}
	entry, ok := c.ground.Entry(id)
	if !ok {
		return ground.Entry{}, nil, &Failure{Reason: ReasonStaleID, GroundID: id}
	}
	item := c.ground.Remove(id)
	if item == nil {
		return ground.Entry{}, nil, &Failure{Reason: ReasonStaleID, GroundID: id}
	}
	return entry, item, nil
}

func (c *Coordinator) addToInventory(item *items.Item) bool {
	return c.inventory != nil && c.inventory.Add(item)
}

func (c *Coordinator) rollback(entry ground.Entry) {
	if err := c.ground.Restore(entry.ID, entry.Item, entry.Location); err != nil {
		c.ground.Insert(entry.Item, entry.Location)
	}
}

func (c *Coordinator) failed(ctx context.Context, span trace.Span, failure *Failure) *Failure {
	span.SetStatus(codes.Error, string(failure.Reason))
	economy.PickupFailed(ctx, c.publisher, c.tick(), c.actor, economy.PickupFailedPayload{
		GroundID: uint64(failure.GroundID),
		Reason:   string(failure.Reason),
	}, traceExtra(ctx))
	return failure
}

func itemPayload(id ground.ID, item *items.Item) economy.ItemPayload {
	return economy.ItemPayload{
		GroundID: uint64(id),
		ItemID:   item.ID,
		ItemType: string(item.Type),
		Rarity:   item.Rarity.String(),
		Quantity: item.Stack,
	}
}

func traceExtra(ctx context.Context) map[string]any {
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		return map[string]any{"traceId": sc.TraceID().String()}
	}
	return nil
}
