package interact

import (
	"errors"
	"fmt"

	"project-hunter/server/internal/vec"
)

// HoldParams configures the Hold and TapOrHold modes. Times are in seconds.
type HoldParams struct {
	TapHoldThreshold float64 `json:"tapHoldThreshold" yaml:"tap_hold_threshold"`
	HoldDuration     float64 `json:"holdDuration" yaml:"hold_duration"`
	CanCancel        bool    `json:"canCancel" yaml:"can_cancel"`
}

// MashParams configures the Mash mode.
type MashParams struct {
	RequiredCount int `json:"requiredCount" yaml:"required_count"`
	// DecayRate is in counts per second.
	DecayRate float64 `json:"decayRate" yaml:"decay_rate"`
}

// Text holds the per-mode prompt shown next to the focused object.
type Text map[Type]string

// Descriptor is the configuration an interactable advertises.
type Descriptor struct {
	Type         Type       `json:"type" yaml:"type"`
	Enabled      bool       `json:"enabled" yaml:"enabled"`
	Text         Text       `json:"text,omitempty" yaml:"text,omitempty"`
	Hold         HoldParams `json:"hold" yaml:"hold"`
	Mash         MashParams `json:"mash" yaml:"mash"`
	WidgetOffset vec.Vec3   `json:"widgetOffset" yaml:"widget_offset"`
	// ActionHandle names the logical input action whose bound key the HUD shows.
	ActionHandle string `json:"actionHandle,omitempty" yaml:"action_handle,omitempty"`
}

const (
	defaultTapHoldThreshold = 0.3
	defaultHoldDuration     = 1.0
	defaultMashRequired     = 10
	defaultMashDecay        = 2.0
	minHoldDuration         = 0.1
)

var defaultText = Text{
	TypeTap:        "Interact",
	TypeHold:       "Hold to interact",
	TypeMash:       "Mash to interact",
	TypeTapOrHold:  "Tap to take, hold to equip",
	TypeToggle:     "Toggle",
	TypeContinuous: "Hold",
}

// DefaultDescriptor returns an enabled descriptor with populated parameters.
func DefaultDescriptor(t Type) Descriptor {
	return Descriptor{
		Type:    t,
		Enabled: true,
		Hold: HoldParams{
			TapHoldThreshold: defaultTapHoldThreshold,
			HoldDuration:     defaultHoldDuration,
			CanCancel:        true,
		},
		Mash: MashParams{
			RequiredCount: defaultMashRequired,
			DecayRate:     defaultMashDecay,
		},
		ActionHandle: "interact",
	}
}

// Validate checks that the parameters the type needs are populated.
func (d Descriptor) Validate() error {
	if d.Type < TypeTap || d.Type > TypeDisabled {
		return fmt.Errorf("invalid interaction type %d", int(d.Type))
	}
	var errs []error
	if d.Type.usesHold() {
		if d.Hold.TapHoldThreshold <= 0 {
			errs = append(errs, fmt.Errorf("%s: tap/hold threshold must be positive", d.Type))
		}
		if d.Hold.HoldDuration < minHoldDuration {
			errs = append(errs, fmt.Errorf("%s: hold duration must be at least %.1fs", d.Type, minHoldDuration))
		}
	}
	if d.Type == TypeMash {
		if d.Mash.RequiredCount < 1 {
			errs = append(errs, fmt.Errorf("mash: required count must be at least 1"))
		}
		if d.Mash.DecayRate < 0 {
			errs = append(errs, fmt.Errorf("mash: decay rate must not be negative"))
		}
	}
	return errors.Join(errs...)
}

// DisplayText returns the prompt for the current type.
func (d Descriptor) DisplayText() string {
	if text, ok := d.Text[d.Type]; ok && text != "" {
		return text
	}
	return defaultText[d.Type]
}

// HoldProgress is the hold-branch progress after elapsed seconds since press.
func (d Descriptor) HoldProgress(elapsed float64) float64 {
	if d.Hold.HoldDuration <= 0 {
		return 1
	}
	return clamp01((elapsed - d.Hold.TapHoldThreshold) / d.Hold.HoldDuration)
}

// MashProgress is the mash progress for count presses.
func (d Descriptor) MashProgress(count int) float64 {
	if d.Mash.RequiredCount <= 0 {
		return 1
	}
	return clamp01(float64(count) / float64(d.Mash.RequiredCount))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
