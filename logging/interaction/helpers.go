package interaction

import (
	"context"

	"project-hunter/server/logging"
)

const (
	// EventFocusChanged is emitted when the detector moves focus to a new target.
	EventFocusChanged logging.EventType = "interaction.focus_changed"
	// EventTransition is emitted for every record state change.
	EventTransition logging.EventType = "interaction.transition"
	// EventValidationRejected is emitted when the server-side validator refuses an interaction.
	EventValidationRejected logging.EventType = "interaction.validation_rejected"
)

// FocusPayload describes a focus change. Zero IDs mean "nothing".
type FocusPayload struct {
	Previous uint64 `json:"previous,omitempty"`
	Current  uint64 `json:"current,omitempty"`
	GroundID uint64 `json:"groundId,omitempty"`
}

// TransitionPayload mirrors one record transition.
type TransitionPayload struct {
	From string  `json:"from"`
	To   string  `json:"to"`
	Mode string  `json:"mode"`
	Time float64 `json:"time"`
}

// RejectedPayload describes a validation failure.
type RejectedPayload struct {
	Reason   string  `json:"reason"`
	Distance float64 `json:"distance,omitempty"`
	Allowed  float64 `json:"allowed,omitempty"`
	Detail   string  `json:"detail,omitempty"`
}

// FocusChanged publishes a debug focus event.
func FocusChanged(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload FocusPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventFocusChanged,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryInteraction,
		Payload:  payload,
		Extra:    extra,
	})
}

// Transition publishes a record transition. Terminal failures are raised to warn.
func Transition(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, target logging.EntityRef, payload TransitionPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	severity := logging.SeverityDebug
	switch payload.To {
	case "completed", "cancelled":
		severity = logging.SeverityInfo
	case "failed":
		severity = logging.SeverityWarn
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventTransition,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: severity,
		Category: logging.CategoryInteraction,
		Payload:  payload,
		Extra:    extra,
	})
}

// ValidationRejected publishes a warning for a refused interaction.
func ValidationRejected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, target logging.EntityRef, payload RejectedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventValidationRejected,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityWarn,
		Category: logging.CategoryInteraction,
		Payload:  payload,
		Extra:    extra,
	})
}
