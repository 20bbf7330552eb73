package interact

import (
	"fmt"
	"strings"
)

// Type selects how presses on an interactable are interpreted.
type Type int

const (
	TypeTap Type = iota
	TypeHold
	TypeMash
	TypeTapOrHold
	TypeToggle
	TypeContinuous
	TypeDisabled
)

var typeNames = [...]string{
	TypeTap:        "tap",
	TypeHold:       "hold",
	TypeMash:       "mash",
	TypeTapOrHold:  "tap_or_hold",
	TypeToggle:     "toggle",
	TypeContinuous: "continuous",
	TypeDisabled:   "disabled",
}

func (t Type) String() string {
	if t < TypeTap || t > TypeDisabled {
		return fmt.Sprintf("type(%d)", int(t))
	}
	return typeNames[t]
}

// ParseType resolves a case-insensitive type name.
func ParseType(name string) (Type, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for idx, candidate := range typeNames {
		if candidate == normalized {
			return Type(idx), nil
		}
	}
	return TypeDisabled, fmt.Errorf("unknown interaction type %q", name)
}

func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// usesHold reports whether the type runs the threshold/duration hold branch.
func (t Type) usesHold() bool {
	return t == TypeHold || t == TypeTapOrHold
}
