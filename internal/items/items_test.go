package items

import "testing"

func TestSlotForMapping(t *testing.T) {
	cases := []struct {
		name string
		item *Item
		slot EquipSlot
		ok   bool
	}{
		{name: "two handed", item: &Item{Class: ClassWeapon, Subtype: SubtypeGreatsword, TwoHanded: true}, slot: SlotTwoHand, ok: true},
		{name: "one handed", item: &Item{Class: ClassWeapon, Subtype: SubtypeSword}, slot: SlotMainHand, ok: true},
		{name: "helmet", item: &Item{Class: ClassArmor, Subtype: SubtypeHelmet}, slot: SlotHead, ok: true},
		{name: "legs", item: &Item{Class: ClassArmor, Subtype: SubtypeLegs}, slot: SlotLegs, ok: true},
		{name: "amulet", item: &Item{Class: ClassAccessory, Subtype: SubtypeAmulet}, slot: SlotAmulet, ok: true},
		{name: "belt", item: &Item{Class: ClassAccessory, Subtype: SubtypeBelt}, slot: SlotBelt, ok: true},
		{name: "potion", item: &Item{Class: ClassConsumable, Subtype: SubtypePotion}, ok: false},
		{name: "armor without subtype", item: &Item{Class: ClassArmor}, ok: false},
		{name: "nil", item: nil, ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			slot, ok := SlotFor(tc.item)
			if ok != tc.ok || slot != tc.slot {
				t.Fatalf("SlotFor = (%q, %v), want (%q, %v)", slot, ok, tc.slot, tc.ok)
			}
		})
	}
}

func TestRarityUpgradeCapsAtTop(t *testing.T) {
	if got := RarityRare.Upgrade(); got != RarityEpic {
		t.Fatalf("expected epic, got %s", got)
	}
	if got := RarityTop.Upgrade(); got != RarityTop {
		t.Fatalf("expected upgrade to stay at top, got %s", got)
	}
}

func TestRarityTextRoundTrip(t *testing.T) {
	var r Rarity
	if err := r.UnmarshalText([]byte(" Epic ")); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if r != RarityEpic {
		t.Fatalf("expected epic, got %s", r)
	}
	if err := r.UnmarshalText([]byte("mythic")); err == nil {
		t.Fatalf("expected error for unknown rarity")
	}
}

func TestCatalogInitIsDeterministic(t *testing.T) {
	catalog := DefaultCatalog()
	a := New()
	a.SetSeed(99)
	b := New()
	b.SetSeed(99)
	ref := Ref{Class: ClassWeapon}
	if err := catalog.Init(a, ref, 12, RarityEpic, true); err != nil {
		t.Fatalf("init a: %v", err)
	}
	if err := catalog.Init(b, ref, 12, RarityEpic, true); err != nil {
		t.Fatalf("init b: %v", err)
	}
	if a.ID != b.ID || a.Type != b.Type {
		t.Fatalf("expected identical items, got %s/%s and %s/%s", a.ID, a.Type, b.ID, b.Type)
	}
	if len(a.Affixes) != 3 || len(b.Affixes) != 3 {
		t.Fatalf("expected three affixes for epic, got %d and %d", len(a.Affixes), len(b.Affixes))
	}
	for i := range a.Affixes {
		if a.Affixes[i] != b.Affixes[i] {
			t.Fatalf("affix %d differs: %+v vs %+v", i, a.Affixes[i], b.Affixes[i])
		}
	}

	c := New()
	c.SetSeed(100)
	if err := catalog.Init(c, Ref{Row: a.Type}, 12, RarityEpic, true); err != nil {
		t.Fatalf("init c: %v", err)
	}
	if c.ID == a.ID {
		t.Fatalf("expected distinct instance ids for distinct seeds")
	}
}

func TestCatalogInitRejectsUnknownRow(t *testing.T) {
	catalog := DefaultCatalog()
	if err := catalog.Init(New(), Ref{Row: "missing"}, 1, RarityCommon, false); err == nil {
		t.Fatalf("expected error for unknown row")
	}
	if err := catalog.Init(New(), Ref{}, 1, RarityCommon, false); err == nil {
		t.Fatalf("expected error for empty ref")
	}
}

func TestNewCatalogRejectsDuplicates(t *testing.T) {
	def := mustDefine(DefinitionParams{ID: "x", Class: ClassMaterial})
	if _, err := NewCatalog(def, def); err == nil {
		t.Fatalf("expected duplicate error")
	}
}

func TestSetStackRespectsStackability(t *testing.T) {
	item := &Item{Stack: 1}
	item.SetStack(5)
	if item.Stack != 1 {
		t.Fatalf("non-stackable item stack = %d", item.Stack)
	}
	item.Stackable = true
	item.MaxStack = 3
	item.SetStack(5)
	if item.Stack != 3 {
		t.Fatalf("expected clamp to max stack, got %d", item.Stack)
	}
}

func TestInventoryCapacityAndStacking(t *testing.T) {
	inv := NewInventory(2)
	potion := func(n int) *Item {
		return &Item{ID: "p", Type: ItemTypeHealthPotion, Stackable: true, MaxStack: 5, Stack: n}
	}
	if !inv.Add(potion(4)) {
		t.Fatalf("expected first add to succeed")
	}
	if !inv.Add(&Item{ID: "sword", Type: ItemTypeIronSword, Stack: 1}) {
		t.Fatalf("expected second add to succeed")
	}
	if !inv.Add(potion(1)) {
		t.Fatalf("expected merge into existing stack")
	}
	if inv.Len() != 2 || inv.Slots[0].Item.Stack != 5 {
		t.Fatalf("unexpected inventory state: %+v", inv.Slots)
	}
	if inv.Add(potion(1)) {
		t.Fatalf("expected full inventory to reject add")
	}
	if inv.Slots[0].Item.Stack != 5 {
		t.Fatalf("rejected add mutated stack: %d", inv.Slots[0].Item.Stack)
	}
	if _, ok := inv.Remove("sword"); !ok {
		t.Fatalf("expected remove to succeed")
	}
	if inv.Full() {
		t.Fatalf("inventory should have room after remove")
	}
}

func TestEquipmentEquipReturnsDisplaced(t *testing.T) {
	eq := NewEquipment()
	first := &Item{ID: "a"}
	second := &Item{ID: "b"}
	if displaced, err := eq.Equip(first, SlotMainHand); err != nil || displaced != nil {
		t.Fatalf("first equip = (%v, %v)", displaced, err)
	}
	if _, err := eq.Equip(&Item{ID: "h"}, SlotHead); err != nil {
		t.Fatalf("equip head: %v", err)
	}
	displaced, err := eq.Equip(second, SlotMainHand)
	if err != nil {
		t.Fatalf("second equip: %v", err)
	}
	if displaced != first {
		t.Fatalf("expected first item displaced, got %v", displaced)
	}
	if got, _ := eq.Get(SlotMainHand); got != second {
		t.Fatalf("expected second item in main hand")
	}
	if eq.Slots[0].Slot != SlotMainHand || eq.Slots[1].Slot != SlotHead {
		t.Fatalf("slots not in rank order: %+v", eq.Slots)
	}
	if _, err := eq.Equip(second, "tail"); err == nil {
		t.Fatalf("expected invalid slot error")
	}
}
