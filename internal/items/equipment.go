package items

import (
	"fmt"
	"sort"
)

// EquippedItem stores the item occupying a specific equipment slot.
type EquippedItem struct {
	Slot EquipSlot `json:"slot"`
	Item *Item     `json:"item"`
}

// Equipment holds the deterministic equipped item list for an actor.
type Equipment struct {
	Slots []EquippedItem `json:"slots,omitempty"`
}

// NewEquipment returns an empty equipment container.
func NewEquipment() *Equipment {
	return &Equipment{}
}

// Get returns the item in slot, if any.
func (e *Equipment) Get(slot EquipSlot) (*Item, bool) {
	if e == nil {
		return nil, false
	}
	for _, entry := range e.Slots {
		if entry.Slot == slot {
			return entry.Item, true
		}
	}
	return nil, false
}

// Equip places item into slot and returns the item it displaced, if any.
func (e *Equipment) Equip(item *Item, slot EquipSlot) (*Item, error) {
	if e == nil {
		return nil, fmt.Errorf("equipment unavailable")
	}
	if item == nil {
		return nil, fmt.Errorf("nil item")
	}
	if !ValidSlot(slot) {
		return nil, fmt.Errorf("invalid equip slot %q", slot)
	}
	for i := range e.Slots {
		if e.Slots[i].Slot == slot {
			displaced := e.Slots[i].Item
			e.Slots[i].Item = item
			return displaced, nil
		}
	}
	e.Slots = append(e.Slots, EquippedItem{Slot: slot, Item: item})
	e.sortSlots()
	return nil, nil
}

// Remove clears slot and returns what was there.
func (e *Equipment) Remove(slot EquipSlot) (*Item, bool) {
	if e == nil || len(e.Slots) == 0 {
		return nil, false
	}
	for i := range e.Slots {
		if e.Slots[i].Slot != slot {
			continue
		}
		removed := e.Slots[i].Item
		e.Slots = append(e.Slots[:i], e.Slots[i+1:]...)
		return removed, true
	}
	return nil, false
}

// Len reports the number of occupied slots.
func (e *Equipment) Len() int {
	if e == nil {
		return 0
	}
	return len(e.Slots)
}

// Snapshot returns a copy of the slot list in rank order.
func (e *Equipment) Snapshot() []EquippedItem {
	if e == nil || len(e.Slots) == 0 {
		return nil
	}
	cloned := make([]EquippedItem, len(e.Slots))
	copy(cloned, e.Slots)
	return cloned
}

func (e *Equipment) sortSlots() {
	if len(e.Slots) <= 1 {
		return
	}
	sort.Slice(e.Slots, func(i, j int) bool {
		ai := EquipSlotRank(e.Slots[i].Slot)
		bj := EquipSlotRank(e.Slots[j].Slot)
		if ai == bj {
			return string(e.Slots[i].Slot) < string(e.Slots[j].Slot)
		}
		return ai < bj
	})
}
