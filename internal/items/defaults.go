package items

const (
	ItemTypeGold          ItemType = "gold"
	ItemTypeHealthPotion  ItemType = "health_potion"
	ItemTypeRefinedOre    ItemType = "refined_ore"
	ItemTypeIronDagger    ItemType = "iron_dagger"
	ItemTypeIronSword     ItemType = "iron_sword"
	ItemTypeGreatsword    ItemType = "greatsword"
	ItemTypeHuntingBow    ItemType = "hunting_bow"
	ItemTypeIronHelm      ItemType = "iron_helm"
	ItemTypeLeatherJerkin ItemType = "leather_jerkin"
	ItemTypeLeatherGloves ItemType = "leather_gloves"
	ItemTypeTravelBoots   ItemType = "travel_boots"
	ItemTypeChainLeggings ItemType = "chain_leggings"
	ItemTypeSilverRing    ItemType = "silver_ring"
	ItemTypeTravelerCharm ItemType = "traveler_charm"
	ItemTypeWornBelt      ItemType = "worn_belt"
)

var weaponAffixes = []AffixTemplate{
	{Type: "attack_power", Base: 4},
	{Type: "attack_speed", Base: 0.05},
	{Type: "crit_chance", Base: 0.02},
	{Type: "life_steal", Base: 0.01},
	{Type: "fire_damage", Base: 3},
}

var armorAffixes = []AffixTemplate{
	{Type: "armor_flat", Base: 6},
	{Type: "max_health", Base: 10},
	{Type: "fire_resist", Base: 0.03},
	{Type: "cold_resist", Base: 0.03},
	{Type: "move_speed", Base: 0.02},
}

var accessoryAffixes = []AffixTemplate{
	{Type: "magic_find", Base: 5},
	{Type: "luck", Base: 2},
	{Type: "max_health", Base: 8},
	{Type: "crit_chance", Base: 0.015},
}

// DefaultCatalog returns the built-in item catalog.
func DefaultCatalog() *Catalog {
	catalog, err := NewCatalog(defaultDefinitions()...)
	if err != nil {
		panic(err)
	}
	return catalog
}

func defaultDefinitions() []Definition {
	return []Definition{
		mustDefine(DefinitionParams{ID: ItemTypeGold, Name: "Gold Coin", Class: ClassCurrency, Subtype: SubtypeCoin, Stackable: true, Visual: "coin_pile"}),
		mustDefine(DefinitionParams{ID: ItemTypeHealthPotion, Name: "Lesser Healing Potion", Class: ClassConsumable, Subtype: SubtypePotion, Stackable: true, MaxStack: 20, Visual: "potion"}),
		mustDefine(DefinitionParams{ID: ItemTypeRefinedOre, Name: "Refined Ore", Class: ClassMaterial, Subtype: SubtypeOre, Stackable: true, MaxStack: 50, Visual: "ore"}),
		mustDefine(DefinitionParams{ID: ItemTypeIronDagger, Name: "Iron Dagger", Class: ClassWeapon, Subtype: SubtypeDagger, Visual: "blade_small", Affixes: weaponAffixes}),
		mustDefine(DefinitionParams{ID: ItemTypeIronSword, Name: "Iron Sword", Class: ClassWeapon, Subtype: SubtypeSword, Visual: "blade", Affixes: weaponAffixes}),
		mustDefine(DefinitionParams{ID: ItemTypeGreatsword, Name: "Greatsword", Class: ClassWeapon, Subtype: SubtypeGreatsword, TwoHanded: true, Visual: "blade_large", Affixes: weaponAffixes}),
		mustDefine(DefinitionParams{ID: ItemTypeHuntingBow, Name: "Hunting Bow", Class: ClassWeapon, Subtype: SubtypeBow, TwoHanded: true, Visual: "bow", Affixes: weaponAffixes}),
		mustDefine(DefinitionParams{ID: ItemTypeIronHelm, Name: "Iron Helm", Class: ClassArmor, Subtype: SubtypeHelmet, Visual: "armor", Affixes: armorAffixes}),
		mustDefine(DefinitionParams{ID: ItemTypeLeatherJerkin, Name: "Leather Jerkin", Class: ClassArmor, Subtype: SubtypeChest, Visual: "armor", Affixes: armorAffixes}),
		mustDefine(DefinitionParams{ID: ItemTypeLeatherGloves, Name: "Leather Gloves", Class: ClassArmor, Subtype: SubtypeGloves, Visual: "armor", Affixes: armorAffixes}),
		mustDefine(DefinitionParams{ID: ItemTypeTravelBoots, Name: "Travel Boots", Class: ClassArmor, Subtype: SubtypeBoots, Visual: "armor", Affixes: armorAffixes}),
		mustDefine(DefinitionParams{ID: ItemTypeChainLeggings, Name: "Chain Leggings", Class: ClassArmor, Subtype: SubtypeLegs, Visual: "armor", Affixes: armorAffixes}),
		mustDefine(DefinitionParams{ID: ItemTypeSilverRing, Name: "Silver Ring", Class: ClassAccessory, Subtype: SubtypeRing, Visual: "trinket", Affixes: accessoryAffixes}),
		mustDefine(DefinitionParams{ID: ItemTypeTravelerCharm, Name: "Traveler's Charm", Class: ClassAccessory, Subtype: SubtypeAmulet, Visual: "trinket", Affixes: accessoryAffixes}),
		mustDefine(DefinitionParams{ID: ItemTypeWornBelt, Name: "Worn Belt", Class: ClassAccessory, Subtype: SubtypeBelt, Visual: "trinket", Affixes: accessoryAffixes}),
	}
}
