package items

import (
	"fmt"
	"strings"
)

// Rarity is the ordered item rarity tier.
type Rarity int

const (
	RarityCommon Rarity = iota
	RarityUncommon
	RarityRare
	RarityEpic
	RarityLegendary
)

// RarityTop is the highest tier an upgrade may reach.
const RarityTop = RarityLegendary

var rarityNames = [...]string{
	RarityCommon:    "common",
	RarityUncommon:  "uncommon",
	RarityRare:      "rare",
	RarityEpic:      "epic",
	RarityLegendary: "legendary",
}

func (r Rarity) String() string {
	if r < RarityCommon || r > RarityTop {
		return fmt.Sprintf("rarity(%d)", int(r))
	}
	return rarityNames[r]
}

// Valid reports whether r is a defined tier.
func (r Rarity) Valid() bool {
	return r >= RarityCommon && r <= RarityTop
}

// Upgrade returns the next tier, capped at RarityTop.
func (r Rarity) Upgrade() Rarity {
	if r >= RarityTop {
		return RarityTop
	}
	return r + 1
}

// ParseRarity resolves a case-insensitive tier name.
func ParseRarity(name string) (Rarity, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for idx, candidate := range rarityNames {
		if candidate == normalized {
			return Rarity(idx), nil
		}
	}
	return RarityCommon, fmt.Errorf("unknown rarity %q", name)
}

func (r Rarity) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid rarity %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *Rarity) UnmarshalText(text []byte) error {
	parsed, err := ParseRarity(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
