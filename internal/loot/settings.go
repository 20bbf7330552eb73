package loot

import "project-hunter/server/internal/items"

// DropSettings are the knobs for one generation. They travel by value.
type DropSettings struct {
	MinDrops             int     `yaml:"min_drops" json:"minDrops"`
	MaxDrops             int     `yaml:"max_drops" json:"maxDrops"`
	DropChanceMultiplier float64 `yaml:"drop_chance_multiplier" json:"dropChanceMultiplier"`
	QuantityMultiplier   float64 `yaml:"quantity_multiplier" json:"quantityMultiplier"`

	SourceRarity      SourceRarity  `yaml:"source_rarity" json:"sourceRarity"`
	RarityBonusChance float64       `yaml:"rarity_bonus_chance" json:"rarityBonusChance"`
	MinimumRarity     *items.Rarity `yaml:"minimum_rarity,omitempty" json:"minimumRarity,omitempty"`

	SourceLevel   int `yaml:"source_level" json:"sourceLevel"`
	LevelVariance int `yaml:"level_variance" json:"levelVariance"`

	CorruptionChance float64 `yaml:"corruption_chance" json:"corruptionChance"`
	OnlyCorrupted    bool    `yaml:"only_corrupted" json:"onlyCorrupted"`
	ExcludeCorrupted bool    `yaml:"exclude_corrupted" json:"excludeCorrupted"`

	Luck      float64 `yaml:"luck" json:"luck"`
	MagicFind float64 `yaml:"magic_find" json:"magicFind"`

	// Currency is rolled once per generation when Max > 0.
	Currency Range `yaml:"currency" json:"currency"`
}

// DefaultDropSettings returns the baseline used when a source sets nothing.
func DefaultDropSettings() DropSettings {
	return DropSettings{
		MinDrops:             1,
		MaxDrops:             3,
		DropChanceMultiplier: 1,
		QuantityMultiplier:   1,
		SourceRarity:         SourceNormal,
		RarityBonusChance:    0.1,
		SourceLevel:          1,
		LevelVariance:        2,
	}
}

// magicFindFactor scales maximum drops.
func (s DropSettings) magicFindFactor() float64 {
	return 1 + s.MagicFind*0.01
}

// quantityFactor scales rolled stack sizes and currency.
func (s DropSettings) quantityFactor() float64 {
	return s.QuantityMultiplier + s.MagicFind*0.01
}

// UpgradeChance is the probability a base-tier roll moves up one tier. Luck
// contributes here and nowhere else.
func (s DropSettings) UpgradeChance() float64 {
	return s.RarityBonusChance + s.Luck*0.005
}

// DropOverrides replaces individual drop settings. A nil field leaves the
// underlying value alone, so an override may equal the default and still win.
type DropOverrides struct {
	MinDrops             *int     `json:"minDrops,omitempty"`
	MaxDrops             *int     `json:"maxDrops,omitempty"`
	DropChanceMultiplier *float64 `json:"dropChanceMultiplier,omitempty"`
	QuantityMultiplier   *float64 `json:"quantityMultiplier,omitempty"`

	SourceRarity      *SourceRarity `json:"sourceRarity,omitempty"`
	RarityBonusChance *float64      `json:"rarityBonusChance,omitempty"`
	MinimumRarity     *items.Rarity `json:"minimumRarity,omitempty"`

	SourceLevel   *int `json:"sourceLevel,omitempty"`
	LevelVariance *int `json:"levelVariance,omitempty"`

	CorruptionChance *float64 `json:"corruptionChance,omitempty"`
	OnlyCorrupted    *bool    `json:"onlyCorrupted,omitempty"`
	ExcludeCorrupted *bool    `json:"excludeCorrupted,omitempty"`

	Luck      *float64 `json:"luck,omitempty"`
	MagicFind *float64 `json:"magicFind,omitempty"`

	Currency *Range `json:"currency,omitempty"`
}

// Apply returns base with every present override written over it.
func (o DropOverrides) Apply(base DropSettings) DropSettings {
	override(&base.MinDrops, o.MinDrops)
	override(&base.MaxDrops, o.MaxDrops)
	override(&base.DropChanceMultiplier, o.DropChanceMultiplier)
	override(&base.QuantityMultiplier, o.QuantityMultiplier)
	override(&base.SourceRarity, o.SourceRarity)
	override(&base.RarityBonusChance, o.RarityBonusChance)
	if o.MinimumRarity != nil {
		minimum := *o.MinimumRarity
		base.MinimumRarity = &minimum
	}
	override(&base.SourceLevel, o.SourceLevel)
	override(&base.LevelVariance, o.LevelVariance)
	override(&base.CorruptionChance, o.CorruptionChance)
	override(&base.OnlyCorrupted, o.OnlyCorrupted)
	override(&base.ExcludeCorrupted, o.ExcludeCorrupted)
	override(&base.Luck, o.Luck)
	override(&base.MagicFind, o.MagicFind)
	override(&base.Currency, o.Currency)
	return base
}

func override[T any](dst, value *T) {
	if value != nil {
		*dst = *value
	}
}
