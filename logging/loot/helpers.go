package loot

import (
	"context"

	"project-hunter/server/logging"
)

const (
	// EventGenerated is emitted after a source's table has been sampled.
	EventGenerated logging.EventType = "loot.generated"
	// EventSpawned is emitted after generated items have been placed on the ground.
	EventSpawned logging.EventType = "loot.spawned"
	// EventSourceUnavailable is emitted when a request names a source that cannot be used.
	EventSourceUnavailable logging.EventType = "loot.source_unavailable"
)

// GeneratedPayload summarises one generation.
type GeneratedPayload struct {
	SourceID string `json:"sourceId"`
	TableID  string `json:"tableId"`
	Seed     uint64 `json:"seed"`
	Items    int    `json:"items"`
	Gold     int    `json:"gold"`
}

// SpawnedPayload summarises one spawn.
type SpawnedPayload struct {
	SourceID  string   `json:"sourceId"`
	GroundIDs []uint64 `json:"groundIds"`
}

// SourceUnavailablePayload describes why a source could not be used.
type SourceUnavailablePayload struct {
	SourceID string `json:"sourceId"`
	Reason   string `json:"reason"`
}

// Generated publishes a generation summary.
func Generated(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload GeneratedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventGenerated,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLoot,
		Payload:  payload,
		Extra:    extra,
	})
}

// Spawned publishes the ground ids created for a drop.
func Spawned(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload SpawnedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSpawned,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryLoot,
		Payload:  payload,
		Extra:    extra,
	})
}

// SourceUnavailable publishes a warning for a missing, disabled or broken source.
func SourceUnavailable(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload SourceUnavailablePayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSourceUnavailable,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryLoot,
		Payload:  payload,
		Extra:    extra,
	})
}
