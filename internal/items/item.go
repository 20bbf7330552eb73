package items

import "fmt"

// ItemType identifies a catalog row ("iron_sword", "health_potion").
type ItemType string

// Class enumerates the coarse item classes the pickup and loot paths branch on.
type Class string

const (
	ClassWeapon     Class = "weapon"
	ClassArmor      Class = "armor"
	ClassAccessory  Class = "accessory"
	ClassConsumable Class = "consumable"
	ClassMaterial   Class = "material"
	ClassCurrency   Class = "currency"
)

var validClasses = map[Class]struct{}{
	ClassWeapon:     {},
	ClassArmor:      {},
	ClassAccessory:  {},
	ClassConsumable: {},
	ClassMaterial:   {},
	ClassCurrency:   {},
}

// ValidClass reports whether the class is one of the canonical classes.
func ValidClass(class Class) bool {
	_, ok := validClasses[class]
	return ok
}

// Subtype refines a class; armour and accessory subtypes decide the equipment slot.
type Subtype string

const (
	SubtypeSword      Subtype = "sword"
	SubtypeDagger     Subtype = "dagger"
	SubtypeAxe        Subtype = "axe"
	SubtypeGreatsword Subtype = "greatsword"
	SubtypeBow        Subtype = "bow"
	SubtypeStaff      Subtype = "staff"
	SubtypeHelmet     Subtype = "helmet"
	SubtypeChest      Subtype = "chest"
	SubtypeGloves     Subtype = "gloves"
	SubtypeBoots      Subtype = "boots"
	SubtypeLegs       Subtype = "legs"
	SubtypeRing       Subtype = "ring"
	SubtypeAmulet     Subtype = "amulet"
	SubtypeBelt       Subtype = "belt"
	SubtypePotion     Subtype = "potion"
	SubtypeOre        Subtype = "ore"
	SubtypeCoin       Subtype = "coin"
)

// Affix is a rolled modifier attached to an item instance.
type Affix struct {
	Type      string  `json:"type" yaml:"type"`
	Magnitude float64 `json:"magnitude" yaml:"magnitude"`
}

// Item is a single item instance. Instances are created by the loot sampler and
// initialised through an Initializer; the ground registry, inventory and
// equipment hold pointers to them.
type Item struct {
	ID             string   `json:"id"`
	Type           ItemType `json:"type"`
	Name           string   `json:"name,omitempty"`
	Class          Class    `json:"class"`
	Subtype        Subtype  `json:"subtype,omitempty"`
	TwoHanded      bool     `json:"two_handed,omitempty"`
	Visual         string   `json:"visual,omitempty"`
	Level          int      `json:"level"`
	Rarity         Rarity   `json:"rarity"`
	Seed           uint64   `json:"seed"`
	Stackable      bool     `json:"stackable,omitempty"`
	MaxStack       int      `json:"max_stack,omitempty"`
	Stack          int      `json:"stack"`
	Affixes        []Affix  `json:"affixes,omitempty"`
	Corrupted      bool     `json:"corrupted,omitempty"`
	CorruptionType string   `json:"corruption_type,omitempty"`
}

// New returns an empty item with a stack of one.
func New() *Item {
	return &Item{Stack: 1}
}

// IsStackable reports whether SetStack may raise the stack above one.
func (it *Item) IsStackable() bool {
	return it != nil && it.Stackable
}

// SetStack sets the stack size, clamped to [1, MaxStack] for stackable items.
// Non-stackable items always keep a stack of one.
func (it *Item) SetStack(n int) {
	if it == nil {
		return
	}
	if !it.Stackable || n < 1 {
		it.Stack = 1
		return
	}
	if it.MaxStack > 0 && n > it.MaxStack {
		n = it.MaxStack
	}
	it.Stack = n
}

// SetSeed stamps the per-item seed used for affix generation.
func (it *Item) SetSeed(seed uint64) {
	if it == nil {
		return
	}
	it.Seed = seed
}

// VisualKind returns the key used to batch ground visuals of this item.
func (it *Item) VisualKind() string {
	if it == nil {
		return ""
	}
	if it.Visual != "" {
		return it.Visual
	}
	if it.Type != "" {
		return string(it.Type)
	}
	return string(it.Class)
}

// Clone returns a deep copy of the item.
func (it *Item) Clone() *Item {
	if it == nil {
		return nil
	}
	cloned := *it
	if len(it.Affixes) > 0 {
		cloned.Affixes = make([]Affix, len(it.Affixes))
		copy(cloned.Affixes, it.Affixes)
	}
	return &cloned
}

func (it *Item) String() string {
	if it == nil {
		return "<nil item>"
	}
	return fmt.Sprintf("%s[%s lvl=%d x%d]", it.Type, it.Rarity, it.Level, it.Stack)
}
