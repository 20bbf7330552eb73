package items

// DefaultInventoryCapacity is the slot count used when NewInventory receives a
// non-positive capacity.
const DefaultInventoryCapacity = 24

const unboundedStackRoom = 1 << 30

// InventorySlot stores an item at a specific position.
type InventorySlot struct {
	Slot int   `json:"slot"`
	Item *Item `json:"item"`
}

// Inventory maintains an ordered, capacity-bounded list of slots. Stackable
// items of the same type and rarity merge into existing stacks before a new
// slot is consumed.
type Inventory struct {
	Capacity int             `json:"capacity"`
	Slots    []InventorySlot `json:"slots"`
}

// NewInventory returns an empty inventory with the provided capacity.
func NewInventory(capacity int) *Inventory {
	if capacity <= 0 {
		capacity = DefaultInventoryCapacity
	}
	return &Inventory{Capacity: capacity}
}

// Add stores the item, returning false when it cannot be placed. A rejected
// add leaves the inventory unchanged.
func (inv *Inventory) Add(item *Item) bool {
	if inv == nil || item == nil {
		return false
	}
	if item.Stackable {
		remaining := item.Stack
		if remaining < 1 {
			remaining = 1
		}
		free := 0
		for _, slot := range inv.Slots {
			if mergeable(slot.Item, item) {
				free += stackRoom(slot.Item)
			}
		}
		if free >= remaining {
			for i := range inv.Slots {
				if remaining == 0 {
					break
				}
				existing := inv.Slots[i].Item
				if !mergeable(existing, item) {
					continue
				}
				moved := min(stackRoom(existing), remaining)
				existing.Stack += moved
				remaining -= moved
			}
			return true
		}
	}
	if len(inv.Slots) >= inv.Capacity {
		return false
	}
	inv.Slots = append(inv.Slots, InventorySlot{Slot: inv.nextSlot(), Item: item})
	return true
}

// Remove takes the item with the given instance ID out of the inventory.
func (inv *Inventory) Remove(id string) (*Item, bool) {
	if inv == nil {
		return nil, false
	}
	for i := range inv.Slots {
		if inv.Slots[i].Item == nil || inv.Slots[i].Item.ID != id {
			continue
		}
		removed := inv.Slots[i].Item
		inv.Slots = append(inv.Slots[:i], inv.Slots[i+1:]...)
		return removed, true
	}
	return nil, false
}

// Len reports the number of occupied slots.
func (inv *Inventory) Len() int {
	if inv == nil {
		return 0
	}
	return len(inv.Slots)
}

// Full reports whether every slot is occupied.
func (inv *Inventory) Full() bool {
	return inv == nil || len(inv.Slots) >= inv.Capacity
}

// Items returns the stored items in slot order.
func (inv *Inventory) Items() []*Item {
	if inv == nil || len(inv.Slots) == 0 {
		return nil
	}
	out := make([]*Item, 0, len(inv.Slots))
	for _, slot := range inv.Slots {
		out = append(out, slot.Item)
	}
	return out
}

func (inv *Inventory) nextSlot() int {
	used := make(map[int]struct{}, len(inv.Slots))
	for _, slot := range inv.Slots {
		used[slot.Slot] = struct{}{}
	}
	for idx := 0; ; idx++ {
		if _, taken := used[idx]; !taken {
			return idx
		}
	}
}

func mergeable(existing, incoming *Item) bool {
	if existing == nil || incoming == nil || !existing.Stackable {
		return false
	}
	return existing.Type == incoming.Type && existing.Rarity == incoming.Rarity && existing.Corrupted == incoming.Corrupted
}

func stackRoom(item *Item) int {
	if item.MaxStack <= 0 {
		return unboundedStackRoom
	}
	room := item.MaxStack - item.Stack
	if room < 0 {
		return 0
	}
	return room
}
