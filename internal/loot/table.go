package loot

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"project-hunter/server/internal/items"
)

// Policy selects how a table picks entries.
type Policy int

const (
	PolicyWeighted Policy = iota
	PolicySequential
	PolicyGuaranteedOne
	PolicyAll
)

var policyNames = map[Policy]string{
	PolicyWeighted:      "weighted",
	PolicySequential:    "sequential",
	PolicyGuaranteedOne: "guaranteed_one",
	PolicyAll:           "all",
}

func (p Policy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// ParsePolicy maps a policy name onto a Policy.
func ParsePolicy(name string) (Policy, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for p, candidate := range policyNames {
		if candidate == normalized {
			return p, nil
		}
	}
	return PolicyWeighted, fmt.Errorf("unknown selection policy %q", name)
}

func (p Policy) MarshalText() ([]byte, error) {
	if _, ok := policyNames[p]; !ok {
		return nil, fmt.Errorf("unknown selection policy %d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *Policy) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// SourceRarity is the tier of the thing that dropped the loot.
type SourceRarity int

const (
	SourceTrash SourceRarity = iota
	SourceNormal
	SourceChampion
	SourceElite
	SourceBoss
)

var sourceRarityNames = map[SourceRarity]string{
	SourceTrash:    "trash",
	SourceNormal:   "normal",
	SourceChampion: "champion",
	SourceElite:    "elite",
	SourceBoss:     "boss",
}

func (r SourceRarity) String() string {
	if name, ok := sourceRarityNames[r]; ok {
		return name
	}
	return fmt.Sprintf("source_rarity(%d)", int(r))
}

// BaseTier maps a source tier onto the item rarity it drops by default.
func (r SourceRarity) BaseTier() items.Rarity {
	switch r {
	case SourceChampion:
		return items.RarityUncommon
	case SourceElite:
		return items.RarityRare
	case SourceBoss:
		return items.RarityEpic
	default:
		return items.RarityCommon
	}
}

func (r SourceRarity) MarshalText() ([]byte, error) {
	if _, ok := sourceRarityNames[r]; !ok {
		return nil, fmt.Errorf("unknown source rarity %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *SourceRarity) UnmarshalText(text []byte) error {
	normalized := strings.ToLower(strings.TrimSpace(string(text)))
	for tier, name := range sourceRarityNames {
		if name == normalized {
			*r = tier
			return nil
		}
	}
	return fmt.Errorf("unknown source rarity %q", text)
}

// Range is an inclusive integer window.
type Range struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

// Entry is one possible drop in a table.
type Entry struct {
	ItemRow         items.ItemType `yaml:"item_row,omitempty" json:"itemRow,omitempty"`
	ItemClass       items.Class    `yaml:"item_class,omitempty" json:"itemClass,omitempty"`
	DropChance      float64        `yaml:"drop_chance" json:"dropChance"`
	Weight          float64        `yaml:"weight" json:"weight"`
	MinQuantity     int            `yaml:"min_quantity" json:"minQuantity"`
	MaxQuantity     int            `yaml:"max_quantity" json:"maxQuantity"`
	OverrideRarity  *items.Rarity  `yaml:"override_rarity,omitempty" json:"overrideRarity,omitempty"`
	GenerateAffixes bool           `yaml:"generate_affixes" json:"generateAffixes"`
	Level           *Range         `yaml:"level,omitempty" json:"level,omitempty"`
	IsCorrupted     bool           `yaml:"is_corrupted,omitempty" json:"isCorrupted,omitempty"`
	CorruptionType  string         `yaml:"corruption_type,omitempty" json:"corruptionType,omitempty"`
	CanBeCorrupted  bool           `yaml:"can_be_corrupted" json:"canBeCorrupted"`
}

// DefaultEntry is the template decoded entries start from. Entries may be
// corrupted unless they opt out.
func DefaultEntry() Entry {
	return Entry{CanBeCorrupted: true}
}

func (e *Entry) UnmarshalYAML(node *yaml.Node) error {
	type plain Entry
	decoded := plain(DefaultEntry())
	if err := node.Decode(&decoded); err != nil {
		return err
	}
	*e = Entry(decoded)
	return nil
}

// Ref returns the item reference handed to the initializer.
func (e Entry) Ref() items.Ref {
	return items.Ref{Row: e.ItemRow, Class: e.ItemClass}
}

// EffectiveWeight is the entry's weight scaled by its drop chance.
func (e Entry) EffectiveWeight() float64 {
	return e.Weight * e.DropChance
}

// Validate reports every problem with the entry.
func (e Entry) Validate() error {
	var errs []error
	if e.ItemRow == "" && e.ItemClass == "" {
		errs = append(errs, errors.New("item_row or item_class is required"))
	}
	if e.ItemClass != "" && !items.ValidClass(e.ItemClass) {
		errs = append(errs, fmt.Errorf("unknown item_class %q", e.ItemClass))
	}
	if e.DropChance < 0 || e.DropChance > 1 {
		errs = append(errs, fmt.Errorf("drop_chance %.3f must be in [0,1]", e.DropChance))
	}
	if e.Weight <= 0 {
		errs = append(errs, fmt.Errorf("weight %.3f must be > 0", e.Weight))
	}
	if e.MinQuantity < 1 {
		errs = append(errs, fmt.Errorf("min_quantity %d must be >= 1", e.MinQuantity))
	}
	if e.MaxQuantity < e.MinQuantity {
		errs = append(errs, fmt.Errorf("max_quantity %d must be >= min_quantity %d", e.MaxQuantity, e.MinQuantity))
	}
	if e.OverrideRarity != nil && !e.OverrideRarity.Valid() {
		errs = append(errs, fmt.Errorf("override_rarity %d out of range", int(*e.OverrideRarity)))
	}
	if e.Level != nil && (e.Level.Min < 1 || e.Level.Max < e.Level.Min) {
		errs = append(errs, fmt.Errorf("level window [%d,%d] invalid", e.Level.Min, e.Level.Max))
	}
	return errors.Join(errs...)
}

// Valid reports whether the entry can be sampled.
func (e Entry) Valid() bool { return e.Validate() == nil }

// Table is a loaded loot table.
type Table struct {
	// ID is the document identity plus row, for diagnostics.
	ID              string  `yaml:"-" json:"id,omitempty" jsonschema:"-"`
	Policy          Policy  `yaml:"policy" json:"policy"`
	AllowDuplicates bool    `yaml:"allow_duplicates" json:"allowDuplicates"`
	Selections      *Range  `yaml:"selections,omitempty" json:"selections,omitempty"`
	Entries         []Entry `yaml:"entries" json:"entries"`
}

// Validate reports every problem with the table, prefixing entry problems
// with their index.
func (t *Table) Validate() error {
	if t == nil {
		return errors.New("nil table")
	}
	var errs []error
	if _, ok := policyNames[t.Policy]; !ok {
		errs = append(errs, fmt.Errorf("unknown policy %d", int(t.Policy)))
	}
	if t.Selections != nil && (t.Selections.Min < 0 || t.Selections.Max < t.Selections.Min) {
		errs = append(errs, fmt.Errorf("selections [%d,%d] invalid", t.Selections.Min, t.Selections.Max))
	}
	for i, entry := range t.Entries {
		if err := entry.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("entries[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
