package economy

import (
	"context"

	"project-hunter/server/logging"
)

const (
	// EventItemPickedUp is emitted when a ground item lands in an inventory.
	EventItemPickedUp logging.EventType = "economy.item_picked_up"
	// EventItemEquipped is emitted when a ground item is equipped directly.
	EventItemEquipped logging.EventType = "economy.item_equipped"
	// EventItemDisplaced is emitted when equipping pushes an item out of its slot.
	EventItemDisplaced logging.EventType = "economy.item_displaced"
	// EventPickupFailed is emitted when a pickup is rolled back or refused.
	EventPickupFailed logging.EventType = "economy.pickup_failed"
)

// ItemPayload describes the item moved by a pickup.
type ItemPayload struct {
	GroundID uint64 `json:"groundId"`
	ItemID   string `json:"itemId"`
	ItemType string `json:"itemType"`
	Rarity   string `json:"rarity"`
	Quantity int    `json:"quantity"`
}

// EquippedPayload describes an equip-from-ground action.
type EquippedPayload struct {
	ItemPayload
	Slot string `json:"slot"`
}

// DisplacedPayload describes where a displaced item ended up.
type DisplacedPayload struct {
	ItemID      string `json:"itemId"`
	Slot        string `json:"slot"`
	Destination string `json:"destination"`
	GroundID    uint64 `json:"groundId,omitempty"`
}

// PickupFailedPayload describes why a pickup failed.
type PickupFailedPayload struct {
	GroundID uint64 `json:"groundId"`
	Reason   string `json:"reason"`
}

// ItemPickedUp publishes an inventory pickup event.
func ItemPickedUp(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ItemPayload, extra map[string]any) {
	publish(ctx, pub, EventItemPickedUp, logging.SeverityInfo, tick, actor, payload, extra)
}

// ItemEquipped publishes an equip-from-ground event.
func ItemEquipped(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload EquippedPayload, extra map[string]any) {
	publish(ctx, pub, EventItemEquipped, logging.SeverityInfo, tick, actor, payload, extra)
}

// ItemDisplaced publishes where a displaced item went.
func ItemDisplaced(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload DisplacedPayload, extra map[string]any) {
	publish(ctx, pub, EventItemDisplaced, logging.SeverityInfo, tick, actor, payload, extra)
}

// PickupFailed publishes a warning for a failed pickup.
func PickupFailed(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PickupFailedPayload, extra map[string]any) {
	publish(ctx, pub, EventPickupFailed, logging.SeverityWarn, tick, actor, payload, extra)
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, severity logging.Severity, tick uint64, actor logging.EntityRef, payload any, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     eventType,
		Tick:     tick,
		Actor:    actor,
		Severity: severity,
		Category: logging.CategoryEconomy,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}
