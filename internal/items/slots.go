package items

// EquipSlot names an equipment slot.
type EquipSlot string

const (
	SlotMainHand EquipSlot = "main_hand"
	SlotOffHand  EquipSlot = "off_hand"
	SlotTwoHand  EquipSlot = "two_hand"
	SlotHead     EquipSlot = "head"
	SlotChest    EquipSlot = "chest"
	SlotGloves   EquipSlot = "gloves"
	SlotBoots    EquipSlot = "boots"
	SlotLegs     EquipSlot = "legs"
	SlotRing     EquipSlot = "ring"
	SlotAmulet   EquipSlot = "amulet"
	SlotBelt     EquipSlot = "belt"
)

var orderedEquipSlots = []EquipSlot{
	SlotMainHand,
	SlotOffHand,
	SlotTwoHand,
	SlotHead,
	SlotChest,
	SlotGloves,
	SlotBoots,
	SlotLegs,
	SlotRing,
	SlotAmulet,
	SlotBelt,
}

var equipSlotToRank = func() map[EquipSlot]int {
	ranks := make(map[EquipSlot]int, len(orderedEquipSlots))
	for idx, slot := range orderedEquipSlots {
		ranks[slot] = idx
	}
	return ranks
}()

// EquipSlotRank orders slots for deterministic listings. Unknown slots sort last.
func EquipSlotRank(slot EquipSlot) int {
	if rank, ok := equipSlotToRank[slot]; ok {
		return rank
	}
	return len(orderedEquipSlots)
}

// ValidSlot reports whether slot is a known equipment slot.
func ValidSlot(slot EquipSlot) bool {
	_, ok := equipSlotToRank[slot]
	return ok
}

var armorSlots = map[Subtype]EquipSlot{
	SubtypeHelmet: SlotHead,
	SubtypeChest:  SlotChest,
	SubtypeGloves: SlotGloves,
	SubtypeBoots:  SlotBoots,
	SubtypeLegs:   SlotLegs,
}

var accessorySlots = map[Subtype]EquipSlot{
	SubtypeRing:   SlotRing,
	SubtypeAmulet: SlotAmulet,
	SubtypeBelt:   SlotBelt,
}

// SlotFor maps an item to the slot a hold-pickup equips it into. The second
// return is false when the item has no equipment slot.
func SlotFor(item *Item) (EquipSlot, bool) {
	if item == nil {
		return "", false
	}
	switch item.Class {
	case ClassWeapon:
		if item.TwoHanded {
			return SlotTwoHand, true
		}
		return SlotMainHand, true
	case ClassArmor:
		slot, ok := armorSlots[item.Subtype]
		return slot, ok
	case ClassAccessory:
		slot, ok := accessorySlots[item.Subtype]
		return slot, ok
	default:
		return "", false
	}
}
